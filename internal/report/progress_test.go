package report

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"adaptive-assessment-service/internal/attempt"
	"adaptive-assessment-service/internal/domain"
)

func finishedAttempt(t *testing.T, title string, answers map[string]bool) *attempt.Record {
	t.Helper()
	quiz := domain.Quiz{ID: "quiz-1", Title: title}
	var questions []domain.Question
	for id := range answers {
		questions = append(questions, domain.Question{
			ID:            id,
			Text:          "question " + id,
			CorrectAnswer: "a",
			Difficulty:    domain.Easy,
			Category:      "Math",
			Points:        1,
		})
	}
	quiz.Questions = questions

	rec := attempt.New("alice", quiz)
	for _, q := range questions {
		chosen := "a"
		if !answers[q.ID] {
			chosen = "b"
		}
		if err := rec.RecordAnswer(q, chosen, time.Second); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	rec.Finalize()
	return rec
}

func TestWriteProgressEmptyHistory(t *testing.T) {
	var sb strings.Builder
	if err := WriteProgress(&sb, "alice", nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "PROGRESS REPORT: alice") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "No quiz attempts yet.") {
		t.Fatalf("missing empty-history line:\n%s", out)
	}
}

func TestWriteProgressSummarizesAttempts(t *testing.T) {
	attempts := []*attempt.Record{
		finishedAttempt(t, "Arithmetic", map[string]bool{"q1": true, "q2": false}),
		finishedAttempt(t, "Fractions", map[string]bool{"q1": true, "q2": true}),
	}

	var sb strings.Builder
	if err := WriteProgress(&sb, "alice", attempts); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := sb.String()

	if !strings.Contains(out, "Total attempts: 2") {
		t.Fatalf("missing attempt count:\n%s", out)
	}
	if !strings.Contains(out, "Average raw score: 1.5") {
		t.Fatalf("missing average:\n%s", out)
	}
	if !strings.Contains(out, "Arithmetic") || !strings.Contains(out, "Fractions") {
		t.Fatalf("missing quiz titles:\n%s", out)
	}
	if !strings.Contains(out, "- Math: 1") {
		t.Fatalf("missing weak category:\n%s", out)
	}
	if !strings.Contains(out, "- Math: 75.0%") {
		t.Fatalf("missing accuracy line:\n%s", out)
	}
}

func TestWriteProgressShowsOnlyRecentAttempts(t *testing.T) {
	var attempts []*attempt.Record
	for i := 0; i < recentAttemptsShown+2; i++ {
		title := fmt.Sprintf("Session %d", i)
		attempts = append(attempts, finishedAttempt(t, title, map[string]bool{"q1": true}))
	}

	var sb strings.Builder
	if err := WriteProgress(&sb, "alice", attempts); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := sb.String()

	for i := 0; i < 2; i++ {
		if strings.Contains(out, fmt.Sprintf("Session %d ", i)) {
			t.Fatalf("old attempt %d leaked into recent table:\n%s", i, out)
		}
	}
	for i := 2; i < recentAttemptsShown+2; i++ {
		if !strings.Contains(out, fmt.Sprintf("Session %d", i)) {
			t.Fatalf("recent attempt %d missing from table:\n%s", i, out)
		}
	}
}

func TestExportProgress(t *testing.T) {
	dir := t.TempDir()
	attempts := []*attempt.Record{
		finishedAttempt(t, "Arithmetic", map[string]bool{"q1": true}),
	}

	path, err := ExportProgress(dir, "alice", attempts)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasSuffix(path, "ProgressReport_alice.txt") {
		t.Fatalf("unexpected path %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported report: %v", err)
	}
	if !strings.Contains(string(data), "PROGRESS REPORT: alice") {
		t.Fatalf("exported report missing header:\n%s", data)
	}
}
