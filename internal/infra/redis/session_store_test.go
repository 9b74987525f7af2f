package redis

import (
	"testing"
	"time"

	"adaptive-assessment-service/internal/engine"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	sess := engine.New(sampleQuiz(), "alice", time.Hour)
	store.Put(sess)

	key := "assessment:session:" + sess.ID()
	if !mr.Exists(key) {
		t.Fatalf("expected liveness marker %s", key)
	}
	if got := mr.HGet(key, "learnerId"); got != "alice" {
		t.Fatalf("expected learnerId alice, got %q", got)
	}
	if got := mr.HGet(key, "quizId"); got != "quiz-1" {
		t.Fatalf("expected quizId quiz-1, got %q", got)
	}

	got, ok := store.Get(sess.ID())
	if !ok || got != sess {
		t.Fatal("stored session not returned")
	}

	store.Delete(sess.ID())
	if mr.Exists(key) {
		t.Fatalf("expected liveness marker removed")
	}
	if _, ok := store.Get(sess.ID()); ok {
		t.Fatal("deleted session still present")
	}
}

func TestSessionStoreMarkersExpire(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Second)

	sess := engine.New(sampleQuiz(), "alice", time.Hour)
	store.Put(sess)

	mr.FastForward(5 * time.Second)
	if mr.Exists("assessment:session:" + sess.ID()) {
		t.Fatal("expected liveness marker to expire")
	}
	// the live session itself survives the marker
	if _, ok := store.Get(sess.ID()); !ok {
		t.Fatal("expected session to remain in the local map")
	}
}
