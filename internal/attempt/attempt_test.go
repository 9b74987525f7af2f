package attempt

import (
	"errors"
	"math"
	"testing"
	"time"

	"adaptive-assessment-service/internal/domain"
)

func question(id, category string, points int) domain.Question {
	return domain.Question{
		ID:            id,
		Text:          "question " + id,
		Options:       []string{"a", "b", "c"},
		CorrectAnswer: "a",
		Difficulty:    domain.Medium,
		Category:      category,
		Points:        points,
	}
}

func testQuiz(questions ...domain.Question) domain.Quiz {
	return domain.Quiz{ID: "quiz-1", Title: "Test Quiz", Questions: questions}
}

func fixedClock() func() time.Time {
	t := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestRecordAnswerRejectsBadInput(t *testing.T) {
	rec := New("alice", testQuiz(question("q1", "Math", 1)))

	err := rec.RecordAnswer(question("q1", "Math", 1), "a", -time.Second)
	if !errors.Is(err, domain.ErrNegativeDuration) {
		t.Fatalf("expected ErrNegativeDuration, got %v", err)
	}
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected error to wrap ErrInvalidArgument, got %v", err)
	}
	if err := rec.RecordAnswer(domain.Question{}, "a", time.Second); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty question, got %v", err)
	}
}

func TestRecordAnswerAfterFinalize(t *testing.T) {
	rec := New("alice", testQuiz(question("q1", "Math", 1)))
	rec.Finalize()
	err := rec.RecordAnswer(question("q1", "Math", 1), "a", time.Second)
	if !errors.Is(err, domain.ErrAttemptFinalized) {
		t.Fatalf("expected ErrAttemptFinalized, got %v", err)
	}
}

func TestScores(t *testing.T) {
	q1 := question("q1", "Math", 1)
	q2 := question("q2", "Math", 1)
	rec := NewWithClock("alice", testQuiz(q1, q2), fixedClock())

	if err := rec.RecordAnswer(q1, "a", 5*time.Second); err != nil {
		t.Fatalf("record q1: %v", err)
	}
	if err := rec.RecordAnswer(q2, "b", 90*time.Second); err != nil {
		t.Fatalf("record q2: %v", err)
	}
	rec.Finalize()

	if rec.RawScore() != 1 {
		t.Fatalf("expected raw score 1, got %d", rec.RawScore())
	}
	// max observed response is 90s; q1's ratio 5/90 stays under the cap
	want := 1 * (1 - 5000.0/90000.0)
	if math.Abs(rec.WeightedScore()-want) > 1e-9 {
		t.Fatalf("expected weighted score %f, got %f", want, rec.WeightedScore())
	}
	missed, ok := rec.HardestMissed()
	if !ok || missed.ID != "q2" {
		t.Fatalf("expected hardest missed q2, got %s (ok=%v)", missed.ID, ok)
	}
}

func TestWeightedScorePenaltyCap(t *testing.T) {
	q1 := question("q1", "Math", 1)
	q2 := question("q2", "Math", 1)
	rec := NewWithClock("alice", testQuiz(q1, q2), fixedClock())

	// both correct; the slowest answer's ratio is 1.0 but the penalty caps
	if err := rec.RecordAnswer(q1, "a", 10*time.Second); err != nil {
		t.Fatalf("record q1: %v", err)
	}
	if err := rec.RecordAnswer(q2, "a", 100*time.Second); err != nil {
		t.Fatalf("record q2: %v", err)
	}
	rec.Finalize()

	want := (1 - 0.1) + (1 - 0.3)
	if math.Abs(rec.WeightedScore()-want) > 1e-9 {
		t.Fatalf("expected weighted score %f, got %f", want, rec.WeightedScore())
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	q1 := question("q1", "Math", 2)
	rec := NewWithClock("alice", testQuiz(q1), fixedClock())
	if err := rec.RecordAnswer(q1, "a", time.Second); err != nil {
		t.Fatalf("record: %v", err)
	}

	rec.Finalize()
	raw, weighted, ended := rec.RawScore(), rec.WeightedScore(), rec.EndedAt()
	rec.Finalize()
	if rec.RawScore() != raw || rec.WeightedScore() != weighted || !rec.EndedAt().Equal(ended) {
		t.Fatal("second finalize changed the record")
	}
	if !rec.Finalized() {
		t.Fatal("record should report finalized")
	}
}

func TestFlagsAnomalouslySlowAnswers(t *testing.T) {
	q1 := question("q1", "Math", 1)
	q2 := question("q2", "Math", 1)
	q3 := question("q3", "Math", 1)
	rec := New("alice", testQuiz(q1, q2, q3))

	if err := rec.RecordAnswer(q1, "a", time.Second); err != nil {
		t.Fatalf("record q1: %v", err)
	}
	if err := rec.RecordAnswer(q2, "a", time.Second); err != nil {
		t.Fatalf("record q2: %v", err)
	}
	// running average becomes 4s; 10s exceeds twice that
	if err := rec.RecordAnswer(q3, "a", 10*time.Second); err != nil {
		t.Fatalf("record q3: %v", err)
	}

	flagged := rec.Flagged()
	if len(flagged) != 1 || flagged[0] != "q3" {
		t.Fatalf("expected only q3 flagged, got %v", flagged)
	}
}

func TestFirstAnswerNeverFlagsItself(t *testing.T) {
	q1 := question("q1", "Math", 1)
	rec := New("alice", testQuiz(q1))
	if err := rec.RecordAnswer(q1, "a", time.Hour); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := rec.Flagged(); len(got) != 0 {
		t.Fatalf("expected no flags, got %v", got)
	}
}

func TestManualFlagging(t *testing.T) {
	q1 := question("q1", "Math", 1)
	rec := New("alice", testQuiz(q1))
	if err := rec.Flag("q1"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound for unanswered question, got %v", err)
	}
	if err := rec.RecordAnswer(q1, "a", time.Second); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := rec.Flag("q1"); err != nil {
		t.Fatalf("flag: %v", err)
	}
	if got := rec.Flagged(); len(got) != 1 || got[0] != "q1" {
		t.Fatalf("expected q1 flagged, got %v", got)
	}
	rec.Unflag("q1")
	if got := rec.Flagged(); len(got) != 0 {
		t.Fatalf("expected no flags after unflag, got %v", got)
	}
}

func TestHardestMissedTieKeepsAskOrder(t *testing.T) {
	q1 := question("q1", "Math", 1)
	q2 := question("q2", "Math", 1)
	rec := New("alice", testQuiz(q1, q2))

	if err := rec.RecordAnswer(q1, "b", 30*time.Second); err != nil {
		t.Fatalf("record q1: %v", err)
	}
	if err := rec.RecordAnswer(q2, "c", 30*time.Second); err != nil {
		t.Fatalf("record q2: %v", err)
	}
	rec.Finalize()

	missed, ok := rec.HardestMissed()
	if !ok || missed.ID != "q1" {
		t.Fatalf("expected tie to keep q1, got %s (ok=%v)", missed.ID, ok)
	}
}

func TestHardestMissedAbsentWhenAllCorrect(t *testing.T) {
	q1 := question("q1", "Math", 1)
	rec := New("alice", testQuiz(q1))
	if err := rec.RecordAnswer(q1, "a", time.Second); err != nil {
		t.Fatalf("record: %v", err)
	}
	rec.Finalize()
	if _, ok := rec.HardestMissed(); ok {
		t.Fatal("expected no hardest-missed question")
	}
}

func TestCategoryBreakdown(t *testing.T) {
	q1 := question("q1", "Math", 1)
	q2 := question("q2", "Math", 1)
	q3 := question("q3", "History", 1)
	rec := New("alice", testQuiz(q1, q2, q3))

	if err := rec.RecordAnswer(q1, "a", time.Second); err != nil {
		t.Fatalf("record q1: %v", err)
	}
	if err := rec.RecordAnswer(q2, "b", time.Second); err != nil {
		t.Fatalf("record q2: %v", err)
	}
	if err := rec.RecordAnswer(q3, "a", time.Second); err != nil {
		t.Fatalf("record q3: %v", err)
	}

	if got := rec.CorrectInCategory("Math"); got != 1 {
		t.Fatalf("expected 1 correct in Math, got %d", got)
	}
	if got := rec.CorrectCount(); got != 2 {
		t.Fatalf("expected 2 correct, got %d", got)
	}
	acc := rec.AccuracyByCategory()
	if acc["Math"] != 0.5 || acc["History"] != 1.0 {
		t.Fatalf("unexpected accuracy map %v", acc)
	}
	missed := rec.IncorrectQuestions()
	if len(missed) != 1 || missed[0].ID != "q2" {
		t.Fatalf("unexpected missed questions %v", missed)
	}
}

func TestAnswersPreserveAskOrder(t *testing.T) {
	q1 := question("q1", "Math", 1)
	q2 := question("q2", "Math", 1)
	rec := New("alice", testQuiz(q1, q2))

	if err := rec.RecordAnswer(q2, "a", time.Second); err != nil {
		t.Fatalf("record q2: %v", err)
	}
	if err := rec.RecordAnswer(q1, "b", time.Second); err != nil {
		t.Fatalf("record q1: %v", err)
	}
	// re-answering overwrites in place without reordering
	if err := rec.RecordAnswer(q2, "c", 2*time.Second); err != nil {
		t.Fatalf("re-record q2: %v", err)
	}

	answers := rec.Answers()
	if len(answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(answers))
	}
	if answers[0].Question.ID != "q2" || answers[0].Chosen != "c" {
		t.Fatalf("unexpected first answer %+v", answers[0])
	}
	if answers[1].Question.ID != "q1" || answers[1].Correct {
		t.Fatalf("unexpected second answer %+v", answers[1])
	}
}
