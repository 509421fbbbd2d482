package tts

// Fit decides the time compression for a synthesized segment. The rate is
// the factor needed to fit durationMS into budgetMS, floored at 1.0 (never
// slow down). When even the ceiling cannot fit the segment, the rate is
// clamped and the segment overflows its budget; the mixer truncates it.
func Fit(durationMS, budgetMS int, maxRate float64) (rate float64, overflow bool) {
	if durationMS <= 0 || budgetMS <= 0 {
		return 1.0, false
	}
	rate = float64(durationMS) / float64(budgetMS)
	if rate <= 1.0 {
		return 1.0, false
	}
	if rate > maxRate {
		return maxRate, true
	}
	return rate, false
}

// FittedDurationMS is the expected segment length after compression at
// rate.
func FittedDurationMS(durationMS int, rate float64) int {
	if rate <= 1.0 {
		return durationMS
	}
	return int(float64(durationMS)/rate + 0.5)
}
