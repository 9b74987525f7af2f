// Package attempt holds the record of one learner's pass through one quiz:
// ordered answers, per-question timings, and the derived scores the
// leaderboard ranks by. Records are mutable through RecordAnswer until
// Finalize, then frozen.
package attempt

import (
	"sort"
	"sync"
	"time"

	"adaptive-assessment-service/internal/domain"

	"github.com/google/uuid"
)

const (
	// flagThreshold flags a question whose response time exceeds this
	// multiple of the attempt's running average.
	flagThreshold = 2.0
	// maxTimePenalty caps the per-question time penalty fraction.
	maxTimePenalty = 0.3
)

// Answer is one recorded question/answer pair in ask order.
type Answer struct {
	Question domain.Question
	Chosen   string
	Took     time.Duration
	Correct  bool
}

// Record tracks a single quiz attempt.
type Record struct {
	id        string
	learnerID string
	quiz      domain.Quiz
	startedAt time.Time
	now       func() time.Time

	mu        sync.RWMutex
	order     []domain.Question
	answers   map[string]string
	durations map[string]time.Duration
	flagged   map[string]struct{}

	finalized     bool
	endedAt       time.Time
	rawScore      int
	weightedScore float64
	hardestMissed *domain.Question
}

// New creates an empty record for a learner starting a quiz.
func New(learnerID string, quiz domain.Quiz) *Record {
	return NewWithClock(learnerID, quiz, time.Now)
}

// NewWithClock allows deterministic timestamps in tests.
func NewWithClock(learnerID string, quiz domain.Quiz, now func() time.Time) *Record {
	return &Record{
		id:        uuid.NewString(),
		learnerID: learnerID,
		quiz:      quiz,
		startedAt: now(),
		now:       now,
		answers:   make(map[string]string),
		durations: make(map[string]time.Duration),
		flagged:   make(map[string]struct{}),
	}
}

// RecordAnswer stores the chosen answer and response time for a question.
// A question answered again overwrites in place without changing ask order.
func (r *Record) RecordAnswer(q domain.Question, answer string, took time.Duration) error {
	if q.ID == "" {
		return domain.ErrInvalidArgument
	}
	if took < 0 {
		return domain.ErrNegativeDuration
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return domain.ErrAttemptFinalized
	}

	if _, seen := r.answers[q.ID]; !seen {
		r.order = append(r.order, q)
	}
	r.answers[q.ID] = answer
	r.durations[q.ID] = took

	// Running average includes the answer just recorded, so the first
	// answer can never flag itself.
	avg := r.averageLocked()
	if avg > 0 && float64(took.Milliseconds()) > flagThreshold*avg {
		r.flagged[q.ID] = struct{}{}
	}
	return nil
}

// Finalize freezes the record and fixes the derived scores. Calling it again
// is a no-op, so repeated saves yield bit-identical scores.
func (r *Record) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	r.finalized = true
	r.endedAt = r.now()
	r.computeScoresLocked()
}

func (r *Record) computeScoresLocked() {
	raw := 0
	for i := range r.order {
		q := r.order[i]
		if q.IsCorrect(r.answers[q.ID]) {
			raw += q.Score()
		}
	}
	r.rawScore = raw
	r.weightedScore = r.timeWeightedLocked()
	r.hardestMissed = r.hardestMissedLocked()
}

// timeWeightedLocked sums, per correct answer, the point value scaled by
// 1 − min(took/maxObserved, maxTimePenalty).
func (r *Record) timeWeightedLocked() float64 {
	if len(r.order) == 0 {
		return 0
	}
	maxMillis := 1.0
	for _, d := range r.durations {
		if ms := float64(d.Milliseconds()); ms > maxMillis {
			maxMillis = ms
		}
	}

	total := 0.0
	for i := range r.order {
		q := r.order[i]
		if !q.IsCorrect(r.answers[q.ID]) {
			continue
		}
		ratio := float64(r.durations[q.ID].Milliseconds()) / maxMillis
		if ratio > maxTimePenalty {
			ratio = maxTimePenalty
		}
		total += float64(q.Score()) * (1 - ratio)
	}
	return total
}

// hardestMissedLocked picks the incorrect answer with the largest response
// time; ties keep the question asked first.
func (r *Record) hardestMissedLocked() *domain.Question {
	var hardest *domain.Question
	var hardestTook time.Duration = -1
	for i := range r.order {
		q := r.order[i]
		if q.IsCorrect(r.answers[q.ID]) {
			continue
		}
		if took := r.durations[q.ID]; took > hardestTook {
			hardestTook = took
			hardest = &r.order[i]
		}
	}
	return hardest
}

func (r *Record) averageLocked() float64 {
	if len(r.durations) == 0 {
		return 0
	}
	total := 0.0
	for _, d := range r.durations {
		total += float64(d.Milliseconds())
	}
	return total / float64(len(r.durations))
}

// Flag marks an answered question for review.
func (r *Record) Flag(questionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.answers[questionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	r.flagged[questionID] = struct{}{}
	return nil
}

// Unflag clears a review mark.
func (r *Record) Unflag(questionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flagged, questionID)
}

func (r *Record) ID() string        { return r.id }
func (r *Record) LearnerID() string { return r.learnerID }
func (r *Record) Quiz() domain.Quiz { return r.quiz }
func (r *Record) QuizID() string    { return r.quiz.ID }

func (r *Record) StartedAt() time.Time { return r.startedAt }

func (r *Record) EndedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.endedAt
}

func (r *Record) Finalized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finalized
}

func (r *Record) RawScore() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rawScore
}

func (r *Record) WeightedScore() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weightedScore
}

// HardestMissed returns the hardest missed question, if any answer was wrong.
func (r *Record) HardestMissed() (domain.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.hardestMissed == nil {
		return domain.Question{}, false
	}
	return *r.hardestMissed, true
}

// Answers returns the recorded answers in ask order.
func (r *Record) Answers() []Answer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Answer, 0, len(r.order))
	for i := range r.order {
		q := r.order[i]
		out = append(out, Answer{
			Question: q,
			Chosen:   r.answers[q.ID],
			Took:     r.durations[q.ID],
			Correct:  q.IsCorrect(r.answers[q.ID]),
		})
	}
	return out
}

// Flagged returns IDs of anomalously slow (or manually flagged) questions.
func (r *Record) Flagged() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.flagged))
	for id := range r.flagged {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TotalDuration is the wall time from start to finalize (or to now while the
// attempt is still live).
func (r *Record) TotalDuration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	end := r.endedAt
	if !r.finalized {
		end = r.now()
	}
	return end.Sub(r.startedAt)
}

// AverageResponseMillis is the mean recorded response time in milliseconds.
func (r *Record) AverageResponseMillis() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.averageLocked()
}

// CorrectCount returns how many recorded answers were correct.
func (r *Record) CorrectCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for i := range r.order {
		if r.order[i].IsCorrect(r.answers[r.order[i].ID]) {
			count++
		}
	}
	return count
}

// CorrectInCategory counts correct answers whose question carries category.
func (r *Record) CorrectInCategory(category string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for i := range r.order {
		q := r.order[i]
		if q.Category == category && q.IsCorrect(r.answers[q.ID]) {
			count++
		}
	}
	return count
}

// IncorrectQuestions returns the missed questions in ask order.
func (r *Record) IncorrectQuestions() []domain.Question {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var missed []domain.Question
	for i := range r.order {
		if !r.order[i].IsCorrect(r.answers[r.order[i].ID]) {
			missed = append(missed, r.order[i])
		}
	}
	return missed
}

// AccuracyByCategory maps each answered category to its correct fraction.
func (r *Record) AccuracyByCategory() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	correct := make(map[string]int)
	total := make(map[string]int)
	for i := range r.order {
		q := r.order[i]
		total[q.Category]++
		if q.IsCorrect(r.answers[q.ID]) {
			correct[q.Category]++
		}
	}
	out := make(map[string]float64, len(total))
	for cat, n := range total {
		out[cat] = float64(correct[cat]) / float64(n)
	}
	return out
}
