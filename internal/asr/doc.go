// Package asr parses raw speech recognition payloads into a word-level
// transcript with speaker and gender metadata.
package asr
