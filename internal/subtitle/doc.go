// Package subtitle turns word-level transcripts into the utterance-level
// subtitle model, the first authoritative document of the pipeline.
package subtitle
