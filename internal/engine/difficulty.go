package engine

import (
	"math"
	"time"

	"adaptive-assessment-service/internal/domain"
)

const (
	initialEstimate = 0.5
	correctStep     = 0.1
	incorrectStep   = 0.15
	// speedWindow is the response time treated as maximally slow.
	speedWindow = time.Minute
)

// Controller is the adaptive strategy consulted by a session. It is only
// called under the session's lock, so implementations need no locking of
// their own.
type Controller interface {
	// SelectNext picks a question from the non-empty pool, given the
	// answers recorded so far (question ID -> chosen answer).
	SelectNext(pool []domain.Question, answered map[string]string) domain.Question
	// Observe folds one resolution into the difficulty estimate.
	Observe(correct bool, took time.Duration)
	// TimeoutFor scales the base per-question budget by estimated skill.
	TimeoutFor(base time.Duration) time.Duration
	// Estimate reports the current estimate in [0, 1].
	Estimate() float64
}

// AdaptiveController tracks a scalar skill estimate in [0, 1]. Slow misses
// back off only gently, so one unlucky question does not crater the estimate.
type AdaptiveController struct {
	estimate float64
}

func NewAdaptiveController() *AdaptiveController {
	return &AdaptiveController{estimate: initialEstimate}
}

// SelectNext returns the pool question whose normalized difficulty is closest
// to the estimate; ties keep the earliest pool entry.
func (c *AdaptiveController) SelectNext(pool []domain.Question, _ map[string]string) domain.Question {
	best := pool[0]
	bestDist := math.Inf(1)
	for i := range pool {
		normalized := float64(pool[i].Difficulty.Weight()) / float64(domain.MaxDifficultyWeight)
		if dist := math.Abs(normalized - c.estimate); dist < bestDist {
			bestDist = dist
			best = pool[i]
		}
	}
	return best
}

func (c *AdaptiveController) Observe(correct bool, took time.Duration) {
	speed := float64(took.Milliseconds()) / float64(speedWindow.Milliseconds())
	if speed > 1 {
		speed = 1
	}
	if correct {
		c.estimate = math.Min(1.0, c.estimate+correctStep*speed)
	} else {
		c.estimate = math.Max(0.0, c.estimate-incorrectStep*(1-speed))
	}
}

// TimeoutFor yields base × (2 − estimate): low estimated skill gets up to 2×
// the base budget, high skill approaches 1×.
func (c *AdaptiveController) TimeoutFor(base time.Duration) time.Duration {
	return time.Duration(float64(base) * (2 - c.estimate))
}

func (c *AdaptiveController) Estimate() float64 {
	return c.estimate
}
