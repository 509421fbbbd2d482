// Package align turns the subtitle model plus translations into the dub
// model: per-utterance time budgets, bounded end extension, and rebuilt
// target-language cues.
package align
