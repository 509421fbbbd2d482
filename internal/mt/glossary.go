package mt

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// GlossaryEntry pins a translation for one surface form.
type GlossaryEntry struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Note   string `json:"note,omitempty"`
}

// Glossary is the show-level terminology dictionary.
type Glossary struct {
	Entries []GlossaryEntry `json:"entries"`
}

// LoadGlossary reads the show glossary. A missing file is an empty
// glossary.
func LoadGlossary(path string) (*Glossary, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Glossary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}
	var g Glossary
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse glossary %s: %w", path, err)
	}
	for i, e := range g.Entries {
		if strings.TrimSpace(e.Source) == "" || strings.TrimSpace(e.Target) == "" {
			return nil, fmt.Errorf("glossary entry %d has empty source or target", i)
		}
	}
	return &g, nil
}

// Matching returns only the entries whose surface form occurs in the given
// text. Injection is strictly per-utterance: entries that do not appear are
// never sent, so unrelated utterances stay uncontaminated.
func (g *Glossary) Matching(text string) []GlossaryEntry {
	var out []GlossaryEntry
	for _, e := range g.Entries {
		if strings.Contains(text, e.Source) {
			out = append(out, e)
		}
	}
	return out
}
