// Package tts synthesizes dub-model utterances and fits each segment to
// its time budget, backed by a content-addressed blob cache.
package tts
