// Package app wires the session engine, content repository, and leaderboard
// into the use cases callers drive.
package app

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"adaptive-assessment-service/internal/attempt"
	"adaptive-assessment-service/internal/domain"
	"adaptive-assessment-service/internal/engine"
	"adaptive-assessment-service/internal/leaderboard"
)

// SessionStore abstracts how live sessions are tracked (in-memory, Redis-marked, etc).
type SessionStore interface {
	Put(s *engine.Session)
	Get(sessionID string) (*engine.Session, bool)
	Delete(sessionID string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptArchiver persists finalized attempts at the boundary; the core
// never reads them back.
type AttemptArchiver interface {
	ArchiveAttempt(ctx context.Context, rec *attempt.Record, weightedScore float64) error
}

// AssessmentService contains the core assessment use cases.
type AssessmentService struct {
	sessions    SessionStore
	quizzes     QuizRepository
	board       *leaderboard.Leaderboard
	archiver    AttemptArchiver
	baseTimeout time.Duration

	mu       sync.Mutex
	history  map[string][]*attempt.Record
	finished map[string]*attempt.Record // session ID -> ingested record
	cancels  []func()

	watchers errgroup.Group
}

func NewAssessmentService(store SessionStore, quizzes QuizRepository, board *leaderboard.Leaderboard, baseTimeout time.Duration) *AssessmentService {
	if baseTimeout <= 0 {
		baseTimeout = engine.DefaultBaseTimeout
	}
	return &AssessmentService{
		sessions:    store,
		quizzes:     quizzes,
		board:       board,
		baseTimeout: baseTimeout,
		history:     make(map[string][]*attempt.Record),
		finished:    make(map[string]*attempt.Record),
	}
}

// SetArchiver installs an optional persistence sink for finalized attempts.
func (s *AssessmentService) SetArchiver(a AttemptArchiver) {
	s.archiver = a
}

// StartSession loads the quiz, creates and starts a session, and watches it
// so terminal transitions (including background timeouts) are ingested into
// the leaderboard exactly once.
func (s *AssessmentService) StartSession(ctx context.Context, quizID, learnerID string) (*engine.Session, error) {
	if quizID == "" || learnerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	sess := engine.New(quiz, learnerID, s.baseTimeout)
	s.sessions.Put(sess)
	s.watch(sess)

	if err := sess.Start(); err != nil {
		s.sessions.Delete(sess.ID())
		return nil, err
	}
	return sess, nil
}

// watch subscribes before Start so no terminal event can be missed.
func (s *AssessmentService) watch(sess *engine.Session) {
	events, cancel := sess.Subscribe()
	s.mu.Lock()
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()

	s.watchers.Go(func() error {
		defer cancel()
		for ev := range events {
			if ev.Status.Terminal() {
				s.finish(context.Background(), sess)
				return nil
			}
		}
		return nil
	})
}

// Session returns a live session by ID.
func (s *AssessmentService) Session(sessionID string) (*engine.Session, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

// SubmitAnswer resolves the current question of a live session. When the
// resolution completes the session, the attempt is ingested before returning
// so rank queries immediately reflect it.
func (s *AssessmentService) SubmitAnswer(ctx context.Context, sessionID, answer string) (engine.Result, engine.Status, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return engine.Result{}, engine.NotStarted, domain.ErrSessionNotFound
	}
	res, err := sess.SubmitAnswer(answer)
	if err != nil {
		return engine.Result{}, sess.Status(), err
	}
	status := sess.Status()
	if status.Terminal() {
		s.finish(ctx, sess)
	}
	return res, status, nil
}

// SaveAttempt returns the finalized attempt record for a terminal session,
// ingesting it if the watcher has not yet. Repeated calls return the same
// record.
func (s *AssessmentService) SaveAttempt(ctx context.Context, sessionID string) (*attempt.Record, error) {
	s.mu.Lock()
	if rec, ok := s.finished[sessionID]; ok {
		s.mu.Unlock()
		return rec, nil
	}
	s.mu.Unlock()

	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if !sess.Status().Terminal() {
		return nil, domain.ErrSessionNotFinished
	}
	return s.finish(ctx, sess)
}

// finish finalizes, ingests, and archives a terminal session exactly once.
// Both the watcher and the foreground paths land here; the finished map is
// the idempotence gate.
func (s *AssessmentService) finish(ctx context.Context, sess *engine.Session) (*attempt.Record, error) {
	rec, err := sess.SaveAttempt()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if prior, ok := s.finished[sess.ID()]; ok {
		s.mu.Unlock()
		return prior, nil
	}
	s.finished[sess.ID()] = rec
	s.history[sess.LearnerID()] = append(s.history[sess.LearnerID()], rec)
	s.mu.Unlock()

	if err := s.board.AddAttempt(rec); err != nil {
		return nil, err
	}
	if s.archiver != nil {
		if err := s.archiver.ArchiveAttempt(ctx, rec, s.board.WeightedScore(rec)); err != nil {
			log.Printf("archive attempt %s: %v", rec.ID(), err)
		}
	}
	s.sessions.Delete(sess.ID())
	return rec, nil
}

// History returns the learner's finalized attempts in completion order.
func (s *AssessmentService) History(learnerID string) []*attempt.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.history[learnerID]
	out := make([]*attempt.Record, len(recs))
	copy(out, recs)
	return out
}

// Leaderboard exposes rank queries and standings subscriptions.
func (s *AssessmentService) Leaderboard() *leaderboard.Leaderboard {
	return s.board
}

// Close cancels session watchers and waits for them to drain.
func (s *AssessmentService) Close() error {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
	return s.watchers.Wait()
}
