package tts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// SynthesizerVersion participates in the content hash so a synthesis logic
// change invalidates every cached blob at once.
const SynthesizerVersion = 1

// ContentHash identifies a synthesis result by everything that shapes it.
// Text is NFC-normalized first so visually identical strings hash alike.
func ContentHash(text, voiceID, emotion string) string {
	h := sha256.New()
	h.Write([]byte(norm.NFC.String(text)))
	h.Write([]byte{0})
	h.Write([]byte(voiceID))
	h.Write([]byte{0})
	h.Write([]byte(emotion))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", SynthesizerVersion)
	return hex.EncodeToString(h.Sum(nil))
}

// TextHash is the hash of the normalized text alone, stored in the cache
// ledger for debugging cache hits.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(norm.NFC.String(text)))
	return hex.EncodeToString(sum[:])
}
