package subtitle

import (
	"fmt"
	"strings"
)

// SRTCue is one numbered subtitle entry.
type SRTCue struct {
	StartMS int
	EndMS   int
	Text    string
}

// FormatSRT renders cues as a SubRip document. Cues are numbered in the
// order given.
func FormatSRT(cues []SRTCue) string {
	var b strings.Builder
	for i, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, srtTimestamp(c.StartMS), srtTimestamp(c.EndMS), c.Text)
	}
	return b.String()
}

// SourceCues flattens the model's cues for rendering.
func (m *Model) SourceCues() []SRTCue {
	var out []SRTCue
	for _, u := range m.Utterances {
		for _, c := range u.Cues {
			out = append(out, SRTCue{StartMS: c.StartMS, EndMS: c.EndMS, Text: c.Source.Text})
		}
	}
	return out
}

func srtTimestamp(ms int) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3600000
	m := ms % 3600000 / 60000
	s := ms % 60000 / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
