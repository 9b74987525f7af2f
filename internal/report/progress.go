// Package report renders a learner's attempt history into a plain-text
// progress report. It sits outside the core: it only reads finalized
// attempt records.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"adaptive-assessment-service/internal/attempt"
)

const recentAttemptsShown = 5

// WriteProgress renders the report for one learner.
func WriteProgress(w io.Writer, learnerID string, attempts []*attempt.Record) error {
	rule := strings.Repeat("=", 50)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  PROGRESS REPORT: %s\n", learnerID)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	if len(attempts) == 0 {
		fmt.Fprintln(w, "No quiz attempts yet.")
		return nil
	}

	totalRaw := 0
	for _, rec := range attempts {
		totalRaw += rec.RawScore()
	}
	fmt.Fprintf(w, "Total attempts: %d\n", len(attempts))
	fmt.Fprintf(w, "Average raw score: %.1f\n\n", float64(totalRaw)/float64(len(attempts)))

	fmt.Fprintln(w, "Recent attempts:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Quiz\tRaw\tWeighted\tFinished")
	start := 0
	if len(attempts) > recentAttemptsShown {
		start = len(attempts) - recentAttemptsShown
	}
	for _, rec := range attempts[start:] {
		title := rec.Quiz().Title
		if title == "" {
			title = rec.QuizID()
		}
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%s\n",
			title, rec.RawScore(), rec.WeightedScore(),
			rec.EndedAt().Format("Jan 02, 2006 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nWeak categories (missed answers):")
	for _, wc := range weakCategories(attempts) {
		fmt.Fprintf(w, "- %s: %d\n", wc.category, wc.missed)
	}

	fmt.Fprintln(w, "\nAccuracy by category:")
	for _, acc := range accuracyByCategory(attempts) {
		fmt.Fprintf(w, "- %s: %.1f%%\n", acc.category, acc.accuracy*100)
	}
	return nil
}

// ExportProgress writes the report to ProgressReport_<learner>.txt in dir and
// returns the path.
func ExportProgress(dir, learnerID string, attempts []*attempt.Record) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("ProgressReport_%s.txt", learnerID))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WriteProgress(f, learnerID, attempts); err != nil {
		return "", err
	}
	return path, nil
}

type weakCategory struct {
	category string
	missed   int
}

func weakCategories(attempts []*attempt.Record) []weakCategory {
	missed := make(map[string]int)
	for _, rec := range attempts {
		for _, q := range rec.IncorrectQuestions() {
			missed[q.Category]++
		}
	}
	out := make([]weakCategory, 0, len(missed))
	for cat, n := range missed {
		out = append(out, weakCategory{category: cat, missed: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].missed != out[j].missed {
			return out[i].missed > out[j].missed
		}
		return out[i].category < out[j].category
	})
	return out
}

type categoryAccuracy struct {
	category string
	accuracy float64
}

func accuracyByCategory(attempts []*attempt.Record) []categoryAccuracy {
	correct := make(map[string]int)
	total := make(map[string]int)
	for _, rec := range attempts {
		for _, ans := range rec.Answers() {
			total[ans.Question.Category]++
			if ans.Correct {
				correct[ans.Question.Category]++
			}
		}
	}
	out := make([]categoryAccuracy, 0, len(total))
	for cat, n := range total {
		out = append(out, categoryAccuracy{category: cat, accuracy: float64(correct[cat]) / float64(n)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].category < out[j].category })
	return out
}
