// Package mt holds the translation-side logic that needs no network: the
// show glossary, per-utterance prompt assembly, and the JSONL record
// formats.
package mt
