// Package voice maps recognized speakers to synthesis voices through the
// show-level role registries.
package voice
