// Package volctts streams synthesized speech from the unidirectional TTS
// API and reassembles the base64 audio chunks into one raw blob.
package volctts
