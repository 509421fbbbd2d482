package mt

import (
	"fmt"
	"strings"
)

// PromptOptions shape the per-utterance translation request.
type PromptOptions struct {
	SourceLang string
	TargetLang string
	// EpisodeContext is the full episode source text, included when the
	// configuration enables it.
	EpisodeContext string
	// DomainHint is appended only when the utterance contains one of the
	// trigger tokens.
	DomainHint     string
	DomainTriggers []string
}

// SystemPrompt is the fixed translator instruction.
func SystemPrompt(sourceLang, targetLang string) string {
	return fmt.Sprintf("You are a dubbing translator. Translate %s dialogue into natural spoken %s. "+
		"Keep the translation concise enough to be spoken in roughly the same time as the original. "+
		"Return only the translation, no explanations.", langName(sourceLang), langName(targetLang))
}

// BuildPrompt assembles the user prompt for one utterance. Glossary entries
// are injected only when their surface form occurs in the utterance; the
// domain hint only when a trigger token does.
func BuildPrompt(text string, glossary []GlossaryEntry, opts PromptOptions) string {
	var b strings.Builder
	if opts.EpisodeContext != "" {
		b.WriteString("Episode transcript for context:\n")
		b.WriteString(opts.EpisodeContext)
		b.WriteString("\n\n")
	}
	if hint := domainHint(text, opts); hint != "" {
		b.WriteString("Domain note: ")
		b.WriteString(hint)
		b.WriteString("\n\n")
	}
	if len(glossary) > 0 {
		b.WriteString("Use these fixed translations:\n")
		for _, e := range glossary {
			fmt.Fprintf(&b, "- %s => %s", e.Source, e.Target)
			if e.Note != "" {
				fmt.Fprintf(&b, " (%s)", e.Note)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Translate this line:\n")
	b.WriteString(text)
	return b.String()
}

func domainHint(text string, opts PromptOptions) string {
	if opts.DomainHint == "" || len(opts.DomainTriggers) == 0 {
		return ""
	}
	for _, trigger := range opts.DomainTriggers {
		if trigger != "" && strings.Contains(text, trigger) {
			return opts.DomainHint
		}
	}
	return ""
}

func langName(code string) string {
	switch strings.ToLower(code) {
	case "zh", "zh-cn":
		return "Chinese"
	case "en", "en-us":
		return "English"
	case "ja", "ja-jp":
		return "Japanese"
	default:
		return code
	}
}
