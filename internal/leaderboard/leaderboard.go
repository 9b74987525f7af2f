// Package leaderboard ranks finalized quiz attempts under a pluggable
// scoring policy. All writes funnel through one critical section so the
// score index, best-score map, and rank cache stay mutually consistent;
// reads never observe a partially applied ingest.
package leaderboard

import (
	"container/heap"
	"sort"
	"sync"
	"time"

	"adaptive-assessment-service/internal/attempt"
	"adaptive-assessment-service/internal/domain"
)

const (
	// DefaultRecentLimit bounds the recent high-scores set.
	DefaultRecentLimit = 10
	// DefaultStandingsSize is the snapshot depth pushed to subscribers.
	DefaultStandingsSize = 10
)

type scored struct {
	rec   *attempt.Record
	score float64
}

// bucket groups attempts sharing one weighted score; buckets are kept in
// descending score order, attempts within a bucket in arrival order.
type bucket struct {
	score    float64
	attempts []scored
}

// Leaderboard ingests finalized attempts and answers rank queries.
type Leaderboard struct {
	policy        Policy
	recentLimit   int
	standingsSize int
	now           func() time.Time

	mu          sync.RWMutex
	buckets     []bucket
	best        map[string]float64
	recent      recentHeap
	rankCache   map[string]int
	subscribers map[chan domain.Standings]struct{}
}

// New builds a leaderboard with default bounds.
func New(policy Policy) *Leaderboard {
	return NewWithConfig(policy, DefaultRecentLimit, DefaultStandingsSize, time.Now)
}

// NewWithConfig injects bounds and clock, for configuration and tests.
func NewWithConfig(policy Policy, recentLimit, standingsSize int, now func() time.Time) *Leaderboard {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	if standingsSize <= 0 {
		standingsSize = DefaultStandingsSize
	}
	return &Leaderboard{
		policy:        policy,
		recentLimit:   recentLimit,
		standingsSize: standingsSize,
		now:           now,
		best:          make(map[string]float64),
		rankCache:     make(map[string]int),
		subscribers:   make(map[chan domain.Standings]struct{}),
	}
}

// AddAttempt applies one ingest as a single atomic unit: policy score,
// best-score max merge, score index insert, bounded recent set, rank cache
// invalidation.
func (lb *Leaderboard) AddAttempt(rec *attempt.Record) error {
	if rec == nil {
		return domain.ErrNilAttempt
	}
	if !rec.Finalized() {
		return domain.ErrAttemptNotFinalized
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	score := lb.policy(rec)
	learnerID := rec.LearnerID()

	if cur, ok := lb.best[learnerID]; !ok || score > cur {
		lb.best[learnerID] = score
	}

	entry := scored{rec: rec, score: score}
	idx := sort.Search(len(lb.buckets), func(i int) bool {
		return lb.buckets[i].score <= score
	})
	if idx < len(lb.buckets) && lb.buckets[idx].score == score {
		lb.buckets[idx].attempts = append(lb.buckets[idx].attempts, entry)
	} else {
		lb.buckets = append(lb.buckets, bucket{})
		copy(lb.buckets[idx+1:], lb.buckets[idx:])
		lb.buckets[idx] = bucket{score: score, attempts: []scored{entry}}
	}

	if lb.recent.Len() < lb.recentLimit {
		heap.Push(&lb.recent, entry)
	} else if score > lb.recent[0].score {
		lb.recent[0] = entry
		heap.Fix(&lb.recent, 0)
	}

	// A new attempt can push any learner down, so every cached rank is
	// suspect, not just the ingesting learner's.
	lb.rankCache = make(map[string]int)
	lb.broadcastLocked()
	return nil
}

// Rank returns the 1-based position of the learner's best score: one plus
// the number of recorded attempts with a strictly higher weighted score.
// Cached until the next ingest.
func (lb *Leaderboard) Rank(learnerID string) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if rank, ok := lb.rankCache[learnerID]; ok {
		return rank, nil
	}
	best, ok := lb.best[learnerID]
	if !ok {
		return 0, domain.ErrLearnerNotFound
	}

	rank := 1
	for i := range lb.buckets {
		if lb.buckets[i].score <= best {
			break
		}
		rank += len(lb.buckets[i].attempts)
	}
	lb.rankCache[learnerID] = rank
	return rank, nil
}

// BestScore returns the learner's best weighted score seen so far.
func (lb *Leaderboard) BestScore(learnerID string) (float64, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	best, ok := lb.best[learnerID]
	if !ok {
		return 0, domain.ErrLearnerNotFound
	}
	return best, nil
}

// TopN returns up to n attempts by descending weighted score, stable within
// equal scores by arrival order.
func (lb *Leaderboard) TopN(n int) []*attempt.Record {
	if n <= 0 {
		return nil
	}
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.topLocked(n)
}

func (lb *Leaderboard) topLocked(n int) []*attempt.Record {
	out := make([]*attempt.Record, 0, n)
	for i := range lb.buckets {
		for j := range lb.buckets[i].attempts {
			out = append(out, lb.buckets[i].attempts[j].rec)
			if len(out) == n {
				return out
			}
		}
	}
	return out
}

// RecentHighScores returns the bounded high-score set, highest first.
func (lb *Leaderboard) RecentHighScores() []*attempt.Record {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	entries := make([]scored, len(lb.recent))
	copy(entries, lb.recent)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].score > entries[j].score
	})
	out := make([]*attempt.Record, len(entries))
	for i := range entries {
		out[i] = entries[i].rec
	}
	return out
}

// WeightedScore applies the configured policy to an attempt.
func (lb *Leaderboard) WeightedScore(rec *attempt.Record) float64 {
	return lb.policy(rec)
}

// Subscribe returns a channel of standings snapshots plus a cancel func.
// The current snapshot is delivered immediately; slow subscribers drop stale
// snapshots rather than blocking AddAttempt.
func (lb *Leaderboard) Subscribe() (<-chan domain.Standings, func()) {
	ch := make(chan domain.Standings, 8)

	lb.mu.Lock()
	lb.subscribers[ch] = struct{}{}
	initial := lb.standingsLocked()
	lb.mu.Unlock()

	ch <- initial

	cancel := func() {
		lb.mu.Lock()
		if _, ok := lb.subscribers[ch]; ok {
			delete(lb.subscribers, ch)
			close(ch)
		}
		lb.mu.Unlock()
	}
	return ch, cancel
}

// Standings returns the current snapshot used for broadcasting.
func (lb *Leaderboard) Standings() domain.Standings {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.standingsLocked()
}

func (lb *Leaderboard) standingsLocked() domain.Standings {
	top := lb.topLocked(lb.standingsSize)
	entries := make([]domain.StandingsEntry, 0, len(top))
	for _, rec := range top {
		entries = append(entries, domain.StandingsEntry{
			LearnerID: rec.LearnerID(),
			AttemptID: rec.ID(),
			Score:     lb.policy(rec),
		})
	}
	return domain.Standings{Entries: entries, UpdatedAt: lb.now()}
}

func (lb *Leaderboard) broadcastLocked() {
	snapshot := lb.standingsLocked()
	for ch := range lb.subscribers {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

// recentHeap is a min-heap by weighted score, so the minimum is replaced
// first once the set is full.
type recentHeap []scored

func (h recentHeap) Len() int            { return len(h) }
func (h recentHeap) Less(i, j int) bool  { return h[i].score < h[j].score }
func (h recentHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *recentHeap) Push(x interface{}) { *h = append(*h, x.(scored)) }
func (h *recentHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
