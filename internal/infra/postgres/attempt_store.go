package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"adaptive-assessment-service/internal/attempt"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptStore archives finalized attempt summaries as JSONB rows. The core
// never reads these back; they exist for reporting and audit.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

type archivedAnswer struct {
	QuestionID string `json:"questionId"`
	Chosen     string `json:"chosen"`
	TookMillis int64  `json:"tookMillis"`
	Correct    bool   `json:"correct"`
}

type archivedAttempt struct {
	RawScore      int              `json:"rawScore"`
	WeightedScore float64          `json:"weightedScore"`
	PolicyScore   float64          `json:"policyScore"`
	Flagged       []string         `json:"flagged"`
	HardestMissed string           `json:"hardestMissed,omitempty"`
	Answers       []archivedAnswer `json:"answers"`
}

func (s *AttemptStore) ArchiveAttempt(ctx context.Context, rec *attempt.Record, weightedScore float64) error {
	doc := archivedAttempt{
		RawScore:      rec.RawScore(),
		WeightedScore: rec.WeightedScore(),
		PolicyScore:   weightedScore,
		Flagged:       rec.Flagged(),
	}
	if hardest, ok := rec.HardestMissed(); ok {
		doc.HardestMissed = hardest.ID
	}
	for _, ans := range rec.Answers() {
		doc.Answers = append(doc.Answers, archivedAnswer{
			QuestionID: ans.Question.ID,
			Chosen:     ans.Chosen,
			TookMillis: ans.Took.Milliseconds(),
			Correct:    ans.Correct,
		})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO attempts (id, learner_id, quiz_id, started_at, ended_at, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID(), rec.LearnerID(), rec.QuizID(), rec.StartedAt(), rec.EndedAt(), data,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}
