// Package bank is the in-process content repository: validated questions
// indexed by ID, category, and difficulty. The core treats its contents as
// read-only; the bank exists for seeding and admin tooling at the boundary.
package bank

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"adaptive-assessment-service/internal/domain"
)

type Bank struct {
	mu         sync.RWMutex
	byID       map[string]domain.Question
	byCategory map[string][]domain.Question
	rnd        *rand.Rand
}

func New() *Bank {
	return &Bank{
		byID:       make(map[string]domain.Question),
		byCategory: make(map[string][]domain.Question),
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Add validates and stores a question; duplicates are rejected.
func (b *Bank) Add(q domain.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.byID[q.ID]; exists {
		return fmt.Errorf("question %q already exists: %w", q.ID, domain.ErrInvalidArgument)
	}
	b.byID[q.ID] = q
	b.byCategory[q.Category] = append(b.byCategory[q.Category], q)
	return nil
}

// Remove deletes a question, reporting whether it was present.
func (b *Bank) Remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.byID[id]
	if !ok {
		return false
	}
	delete(b.byID, id)
	list := b.byCategory[q.Category]
	for i := range list {
		if list[i].ID == id {
			b.byCategory[q.Category] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(b.byCategory[q.Category]) == 0 {
		delete(b.byCategory, q.Category)
	}
	return true
}

// Get looks up a question by ID.
func (b *Bank) Get(id string) (domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.byID[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

// ByCategory returns the questions carrying category, in insertion order.
func (b *Bank) ByCategory(category string) []domain.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	list := b.byCategory[category]
	out := make([]domain.Question, len(list))
	copy(out, list)
	return out
}

// ByDifficulty returns questions whose tier falls in [min, max].
func (b *Bank) ByDifficulty(min, max domain.Difficulty) []domain.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []domain.Question
	for _, q := range b.byID {
		if q.Difficulty >= min && q.Difficulty <= max {
			out = append(out, q)
		}
	}
	return out
}

// Random samples up to count questions, optionally restricted to a category
// (empty means any).
func (b *Bank) Random(count int, category string) []domain.Question {
	if count <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var pool []domain.Question
	if category == "" {
		pool = make([]domain.Question, 0, len(b.byID))
		for _, q := range b.byID {
			pool = append(pool, q)
		}
	} else {
		pool = append(pool, b.byCategory[category]...)
	}
	if len(pool) == 0 {
		return nil
	}

	b.rnd.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if count > len(pool) {
		count = len(pool)
	}
	return pool[:count]
}

func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byID)
}
