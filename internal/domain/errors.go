package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy bases. All failures in the core are local and synchronous;
// callers match with errors.Is against either a base or a specific sentinel.
var (
	// ErrInvalidState marks an operation attempted in a state that forbids it.
	ErrInvalidState = errors.New("invalid state")
	// ErrNotFound marks an unknown identifier in a query.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument marks a missing or out-of-range value.
	ErrInvalidArgument = errors.New("invalid argument")
)

var (
	// ErrSessionAlreadyStarted is returned by a second Start on a session.
	ErrSessionAlreadyStarted = fmt.Errorf("session already started: %w", ErrInvalidState)
	// ErrNoActiveQuestion is returned when an answer arrives with no current question.
	ErrNoActiveQuestion = fmt.Errorf("no active question: %w", ErrInvalidState)
	// ErrAttemptFinalized is returned when a finalized attempt is mutated.
	ErrAttemptFinalized = fmt.Errorf("attempt already finalized: %w", ErrInvalidState)
	// ErrAttemptNotFinalized is returned when the leaderboard is fed a live attempt.
	ErrAttemptNotFinalized = fmt.Errorf("attempt not finalized: %w", ErrInvalidState)
	// ErrSessionNotFinished is returned when an attempt is saved before the
	// session reaches a terminal state.
	ErrSessionNotFinished = fmt.Errorf("session not finished: %w", ErrInvalidState)

	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = fmt.Errorf("quiz: %w", ErrNotFound)
	// ErrQuestionNotFound indicates an unknown question ID.
	ErrQuestionNotFound = fmt.Errorf("question: %w", ErrNotFound)
	// ErrSessionNotFound indicates a session ID with no live session.
	ErrSessionNotFound = fmt.Errorf("session: %w", ErrNotFound)
	// ErrLearnerNotFound indicates a learner with no recorded attempts.
	ErrLearnerNotFound = fmt.Errorf("learner: %w", ErrNotFound)

	// ErrNegativeDuration rejects negative response times.
	ErrNegativeDuration = fmt.Errorf("negative duration: %w", ErrInvalidArgument)
	// ErrNilAttempt rejects a nil attempt record.
	ErrNilAttempt = fmt.Errorf("nil attempt: %w", ErrInvalidArgument)
)
