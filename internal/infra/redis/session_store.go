package redis

import (
	"context"
	"sync"
	"time"

	"adaptive-assessment-service/internal/engine"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionStore.
// Notes:
//   - Sessions stay in a local map: the engine's timers and mutex live
//     in-process and cannot be serialized.
//   - Redis holds liveness markers with the learner and quiz IDs, so
//     operators can see in-flight attempts across instances.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*engine.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*engine.Session),
	}
}

func (s *SessionStore) Put(sess *engine.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID()] = sess
	// best-effort liveness marker
	_ = s.client.HSet(context.Background(), s.key(sess.ID()),
		"learnerId", sess.LearnerID(),
		"quizId", sess.QuizID(),
	).Err()
	_ = s.client.Expire(context.Background(), s.key(sess.ID()), s.ttl).Err()
}

func (s *SessionStore) Get(sessionID string) (*engine.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "assessment:session:" + sessionID
}
