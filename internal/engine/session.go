// Package engine drives one learner through one timed, adaptive quiz
// attempt. A session is mutated from two sides only: the caller submitting
// answers and the timer firing a timeout for the armed question. One mutex
// plus an arming epoch makes every question's resolution exactly-once.
package engine

import (
	"sync"
	"time"

	"adaptive-assessment-service/internal/attempt"
	"adaptive-assessment-service/internal/domain"

	"github.com/google/uuid"
)

// DefaultBaseTimeout is the unscaled per-question budget.
const DefaultBaseTimeout = 90 * time.Second

// Status is the session lifecycle state.
type Status int

const (
	NotStarted Status = iota
	InProgress
	// Paused is reserved; no transition reaches it yet.
	Paused
	Completed
	TimedOut
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == Completed || s == TimedOut
}

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "notStarted"
	case InProgress:
		return "inProgress"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	case TimedOut:
		return "timedOut"
	default:
		return "unknown"
	}
}

// EventKind tags session events pushed to subscribers.
type EventKind string

const (
	// EventQuestion announces a newly presented question.
	EventQuestion EventKind = "question"
	// EventAnswered reports an explicit answer resolution.
	EventAnswered EventKind = "answered"
	// EventTimedOut reports a timeout resolution (terminal).
	EventTimedOut EventKind = "timedOut"
	// EventCompleted reports pool exhaustion (terminal).
	EventCompleted EventKind = "completed"
)

// Result summarizes one question resolution.
type Result struct {
	Question domain.Question
	Answer   string
	Correct  bool
	Took     time.Duration
	TimedOut bool
}

// Event is pushed to session subscribers on every transition.
type Event struct {
	Kind      EventKind
	SessionID string
	Status    Status
	Question  *domain.Question // set for EventQuestion
	Result    *Result          // set for EventAnswered / EventTimedOut
}

// Session owns the live state machine for one in-progress attempt.
type Session struct {
	id          string
	quiz        domain.Quiz
	learnerID   string
	createdAt   time.Time
	now         func() time.Time
	baseTimeout time.Duration
	controller  Controller

	mu            sync.Mutex
	status        Status
	pool          []domain.Question
	current       *domain.Question
	questionStart time.Time
	endedAt       time.Time
	answers       map[string]string
	durations     map[string]time.Duration
	record        *attempt.Record
	timer         *time.Timer
	armed         int // epoch; a fire with a stale epoch is a no-op
	subscribers   map[chan Event]struct{}
}

// New creates a session with the default adaptive controller.
func New(quiz domain.Quiz, learnerID string, baseTimeout time.Duration) *Session {
	return NewWithController(quiz, learnerID, baseTimeout, NewAdaptiveController(), time.Now)
}

// NewWithController injects the strategy and clock, for callers and tests.
func NewWithController(quiz domain.Quiz, learnerID string, baseTimeout time.Duration, controller Controller, now func() time.Time) *Session {
	if baseTimeout <= 0 {
		baseTimeout = DefaultBaseTimeout
	}
	pool := make([]domain.Question, len(quiz.Questions))
	copy(pool, quiz.Questions)
	return &Session{
		id:          uuid.NewString(),
		quiz:        quiz,
		learnerID:   learnerID,
		createdAt:   now(),
		now:         now,
		baseTimeout: baseTimeout,
		controller:  controller,
		status:      NotStarted,
		pool:        pool,
		answers:     make(map[string]string),
		durations:   make(map[string]time.Duration),
		record:      attempt.NewWithClock(learnerID, quiz, now),
		subscribers: make(map[chan Event]struct{}),
	}
}

// Start moves NotStarted -> InProgress exactly once and presents the first
// question. A second call fails.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != NotStarted {
		return domain.ErrSessionAlreadyStarted
	}
	s.status = InProgress
	s.advanceLocked()
	return nil
}

// SubmitAnswer resolves the current question with the given answer and
// advances, possibly completing the session.
func (s *Session) SubmitAnswer(answer string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != InProgress || s.current == nil {
		return Result{}, domain.ErrNoActiveQuestion
	}
	s.disarmLocked()
	res := s.resolveLocked(answer, false)
	return res, nil
}

// resolveLocked records the answer against the current question in both the
// session and the growing attempt record, feeds the controller, and either
// terminates (timeout) or advances.
func (s *Session) resolveLocked(answer string, timedOut bool) Result {
	q := *s.current
	took := s.now().Sub(s.questionStart)
	s.answers[q.ID] = answer
	s.durations[q.ID] = took
	// The record only rejects negative durations or a finalized record,
	// neither of which can happen on this path.
	_ = s.record.RecordAnswer(q, answer, took)

	correct := q.IsCorrect(answer)
	s.controller.Observe(correct, took)
	s.current = nil

	res := Result{Question: q, Answer: answer, Correct: correct, Took: took, TimedOut: timedOut}
	if timedOut {
		s.finishLocked(TimedOut)
		s.broadcastLocked(Event{Kind: EventTimedOut, SessionID: s.id, Status: s.status, Result: &res})
		return res
	}
	s.broadcastLocked(Event{Kind: EventAnswered, SessionID: s.id, Status: s.status, Result: &res})
	s.advanceLocked()
	return res
}

// advanceLocked presents the next question or completes the session. A
// question leaves the pool exactly once, the moment it becomes current.
func (s *Session) advanceLocked() {
	if len(s.pool) == 0 {
		s.finishLocked(Completed)
		s.broadcastLocked(Event{Kind: EventCompleted, SessionID: s.id, Status: s.status})
		return
	}

	next := s.controller.SelectNext(s.pool, s.answers)
	for i := range s.pool {
		if s.pool[i].ID == next.ID {
			s.pool = append(s.pool[:i], s.pool[i+1:]...)
			break
		}
	}
	s.current = &next
	s.questionStart = s.now()
	s.armLocked(s.controller.TimeoutFor(s.baseTimeout))
	s.broadcastLocked(Event{Kind: EventQuestion, SessionID: s.id, Status: s.status, Question: &next})
}

// armLocked schedules the timeout for the question just presented. The epoch
// captured by the callback goes stale as soon as the question is resolved.
func (s *Session) armLocked(d time.Duration) {
	s.armed++
	epoch := s.armed
	s.timer = time.AfterFunc(d, func() {
		s.fireTimeout(epoch)
	})
}

func (s *Session) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.armed++
}

// fireTimeout is the timer-side entry into the exactly-once gate. Losing the
// race with SubmitAnswer leaves the epoch stale and the fire becomes a no-op.
func (s *Session) fireTimeout(epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.armed || s.status != InProgress || s.current == nil {
		return
	}
	s.resolveLocked("", true)
}

func (s *Session) finishLocked(st Status) {
	s.disarmLocked()
	s.status = st
	s.endedAt = s.now()
	s.current = nil
}

// SaveAttempt finalizes and returns the attempt record once the session is
// terminal. Repeated calls return the same record with identical scores.
func (s *Session) SaveAttempt() (*attempt.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.Terminal() {
		return nil, domain.ErrSessionNotFinished
	}
	s.record.Finalize()
	return s.record, nil
}

// Subscribe returns a channel of session events plus a cancel func. Slow
// subscribers lose stale events rather than blocking resolution.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) ID() string        { return s.id }
func (s *Session) LearnerID() string { return s.learnerID }
func (s *Session) QuizID() string    { return s.quiz.ID }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CurrentQuestion returns the active question, if the session has one.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.Question{}, false
	}
	return *s.current, true
}

// QuestionsRemaining counts the not-yet-asked pool, excluding the current
// question.
func (s *Session) QuestionsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pool)
}

// Elapsed is the time spent on the current question so far.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return s.now().Sub(s.questionStart)
}

// SkillEstimate exposes the controller's running estimate.
func (s *Session) SkillEstimate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.Estimate()
}

func (s *Session) EndedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endedAt
}
