package asr

import (
	"strings"
	"unicode"
)

// isPunct covers both ASCII and CJK sentence punctuation the recognizer
// emits in utterance text but strips from word tokens.
func isPunct(r rune) bool {
	if unicode.IsPunct(r) {
		return true
	}
	switch r {
	case '。', '，', '？', '！', '；', '：', '、',
		'“', '”', '‘', '’', '…':
		return true
	}
	return false
}

// AttachPunctuation copies the utterance's words and reattaches the
// punctuation that appears after each word in the utterance text. Word
// timings are untouched; only the text grows. Words that cannot be located
// in the text keep their original form.
func AttachPunctuation(u Utterance) []Word {
	words := make([]Word, len(u.Words))
	copy(words, u.Words)
	text := []rune(u.Text)
	cursor := 0
	for i := range words {
		idx := indexRunes(text, cursor, words[i].Text)
		if idx < 0 {
			continue
		}
		cursor = idx + len([]rune(words[i].Text))
		var trailer strings.Builder
		for cursor < len(text) {
			r := text[cursor]
			if unicode.IsSpace(r) {
				cursor++
				continue
			}
			if !isPunct(r) {
				break
			}
			trailer.WriteRune(r)
			cursor++
		}
		if trailer.Len() > 0 {
			words[i].Text += trailer.String()
		}
	}
	return words
}

// indexRunes finds needle within haystack at or after start, in runes.
func indexRunes(haystack []rune, start int, needle string) int {
	target := []rune(needle)
	if len(target) == 0 || start >= len(haystack) {
		return -1
	}
	for i := start; i+len(target) <= len(haystack); i++ {
		match := true
		for j, r := range target {
			if haystack[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// EndsSentence reports whether a word's text closes a sentence. The
// normalizer treats such words as preferred split points.
func EndsSentence(text string) bool {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return false
	}
	switch runes[len(runes)-1] {
	case '.', '!', '?', '。', '！', '？', '…', ';', '；':
		return true
	}
	return false
}
