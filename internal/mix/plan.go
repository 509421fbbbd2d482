package mix

import (
	"fmt"
	"sort"

	"dubbin/internal/align"
	"dubbin/internal/tts"
)

// OverflowGraceMS is how far past its budget a segment may play before the
// mixer truncates it, matching the maximum end extension alignment grants.
const OverflowGraceMS = 200

// Placement schedules one segment on the output timeline.
type Placement struct {
	UttID   string
	WavPath string
	// DelayMS is the absolute start position.
	DelayMS int
	// LimitMS truncates the segment to this length; 0 means play in full.
	LimitMS int
	// Failed segments are silence blobs; kept in the plan so the timeline
	// math stays uniform.
	Failed bool
}

// Plan is the complete mixing schedule.
type Plan struct {
	DurationMS int
	Placements []Placement
}

// BuildPlan computes where every segment goes and how much of it may play.
// No segment plays outside [start, start+budget+grace]; residual overlaps
// between consecutive segments truncate the earlier one.
func BuildPlan(dub *align.DubModel, index *tts.Index) (*Plan, error) {
	plan := &Plan{DurationMS: dub.AudioDurationMS}
	utterances := make([]align.DubUtterance, len(dub.Utterances))
	copy(utterances, dub.Utterances)
	sort.SliceStable(utterances, func(i, j int) bool {
		return utterances[i].StartMS < utterances[j].StartMS
	})

	for i, u := range utterances {
		seg, ok := index.Segments[u.UttID]
		if !ok {
			return nil, fmt.Errorf("utterance %s has no synthesized segment", u.UttID)
		}
		limit := 0
		ceiling := u.BudgetMS + OverflowGraceMS
		if seg.DurationMS > ceiling {
			limit = ceiling
		}
		// A following segment that starts before this one would end wins
		// the overlap; truncate this one at its start.
		if i+1 < len(utterances) {
			endMS := u.StartMS + effectiveLength(seg.DurationMS, limit)
			if next := utterances[i+1].StartMS; next < endMS {
				limit = next - u.StartMS
			}
		}
		if limit < 0 {
			limit = 0
		}
		plan.Placements = append(plan.Placements, Placement{
			UttID:   u.UttID,
			WavPath: seg.WavPath,
			DelayMS: u.StartMS,
			LimitMS: limit,
			Failed:  seg.Status == tts.StatusFailed,
		})
	}
	return plan, nil
}

func effectiveLength(durationMS, limitMS int) int {
	if limitMS > 0 && limitMS < durationMS {
		return limitMS
	}
	return durationMS
}

// EndMS reports where a placement stops playing, given the segment's
// duration.
func (p Placement) EndMS(durationMS int) int {
	return p.DelayMS + effectiveLength(durationMS, p.LimitMS)
}
