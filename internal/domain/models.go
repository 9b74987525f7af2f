package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Difficulty is the ordinal tier of a question. Weights feed the adaptive
// selector, which normalizes against the highest tier.
type Difficulty int

const (
	Easy Difficulty = iota + 1
	Medium
	Hard
)

// MaxDifficultyWeight is the weight of the hardest tier.
const MaxDifficultyWeight = int(Hard)

func (d Difficulty) Weight() int {
	return int(d)
}

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Hard:
		return "hard"
	default:
		return "medium"
	}
}

func (d Difficulty) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Difficulty) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw {
	case "easy":
		*d = Easy
	case "medium", "":
		*d = Medium
	case "hard":
		*d = Hard
	default:
		return fmt.Errorf("unknown difficulty %q", raw)
	}
	return nil
}

// Question models an MCQ question. Content is owned by the bank/loader and
// never mutated by the session engine or leaderboard.
type Question struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correctAnswer"`
	Difficulty    Difficulty `json:"difficulty"`
	Category      string     `json:"category"`
	Points        int        `json:"points"` // defaults to 1 if zero
}

// IsCorrect reports whether answer matches the correct option. The blank
// answer recorded on timeout is never correct.
func (q Question) IsCorrect(answer string) bool {
	return answer != "" && q.CorrectAnswer == answer
}

// Score returns the assigned point value, defaulting to 1.
func (q Question) Score() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// Validate checks the content invariants the core assumes: at least two
// options and the correct answer listed among them.
func (q Question) Validate() error {
	if q.ID == "" || q.Text == "" {
		return fmt.Errorf("question %q: missing id or text: %w", q.ID, ErrInvalidArgument)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("question %q: at least 2 options required: %w", q.ID, ErrInvalidArgument)
	}
	for _, opt := range q.Options {
		if opt == q.CorrectAnswer {
			return nil
		}
	}
	return fmt.Errorf("question %q: correct answer must be in options: %w", q.ID, ErrInvalidArgument)
}

// Quiz is an ordered collection of questions with assigned point values.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Category  string     `json:"category"`
	Questions []Question `json:"questions"`
}

// Question looks up a question by ID.
func (z Quiz) Question(id string) (Question, bool) {
	for i := range z.Questions {
		if z.Questions[i].ID == id {
			return z.Questions[i], true
		}
	}
	return Question{}, false
}

// ScoreFor returns the point value assigned to a question, or 0 if the
// question is not part of the quiz.
func (z Quiz) ScoreFor(questionID string) int {
	q, ok := z.Question(questionID)
	if !ok {
		return 0
	}
	return q.Score()
}

// TotalScore is the maximum raw score attainable.
func (z Quiz) TotalScore() int {
	total := 0
	for i := range z.Questions {
		total += z.Questions[i].Score()
	}
	return total
}

// Validate checks each question and rejects duplicates within the quiz.
func (z Quiz) Validate() error {
	if z.ID == "" {
		return fmt.Errorf("quiz: missing id: %w", ErrInvalidArgument)
	}
	seen := make(map[string]struct{}, len(z.Questions))
	for i := range z.Questions {
		if err := z.Questions[i].Validate(); err != nil {
			return err
		}
		if _, dup := seen[z.Questions[i].ID]; dup {
			return fmt.Errorf("quiz %q: duplicate question %q: %w", z.ID, z.Questions[i].ID, ErrInvalidArgument)
		}
		seen[z.Questions[i].ID] = struct{}{}
	}
	return nil
}

// StandingsEntry is one ranked attempt in a standings snapshot.
type StandingsEntry struct {
	LearnerID string  `json:"learnerId"`
	AttemptID string  `json:"attemptId"`
	Score     float64 `json:"score"`
}

// Standings captures the ordered leaderboard snapshot pushed to subscribers.
type Standings struct {
	Entries   []StandingsEntry `json:"entries"`
	UpdatedAt time.Time        `json:"updatedAt"`
}
