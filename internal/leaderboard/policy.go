package leaderboard

import (
	"adaptive-assessment-service/internal/attempt"
)

// Policy converts a finalized attempt into the weighted score used for
// ranking. Policies are swappable behind this one function shape.
type Policy func(*attempt.Record) float64

const (
	// maxDurationPenalty caps the time-weighted penalty term.
	maxDurationPenalty = 0.3
	// categoryBonus is the per-correct-answer bonus in the prioritized category.
	categoryBonus = 0.25
)

// TimeWeighted scores raw × (1 − min(totalDurationMinutes, 0.3)). The cap
// applies to the minutes value itself, so every attempt longer than 18
// seconds takes the same 30% penalty.
func TimeWeighted() Policy {
	return func(r *attempt.Record) float64 {
		minutes := r.TotalDuration().Minutes()
		if minutes > maxDurationPenalty {
			minutes = maxDurationPenalty
		}
		return float64(r.RawScore()) * (1 - minutes)
	}
}

// CategoryWeighted scores raw × (1 + 0.25 × correct answers in the
// prioritized category).
func CategoryWeighted(category string) Policy {
	return func(r *attempt.Record) float64 {
		bonus := categoryBonus * float64(r.CorrectInCategory(category))
		return float64(r.RawScore()) * (1 + bonus)
	}
}
