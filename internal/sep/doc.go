// Package sep wraps the demucs binary for vocal separation.
package sep
