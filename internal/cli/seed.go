package cli

import (
	"log"

	"adaptive-assessment-service/internal/bank"
	"adaptive-assessment-service/internal/domain"
)

// demoQuizzes builds a small content set through the question bank; swap the
// static loader for the Postgres one by configuring postgres.url.
func demoQuizzes() map[string]domain.Quiz {
	b := bank.New()
	for _, q := range demoQuestions() {
		if err := b.Add(q); err != nil {
			log.Printf("seed question %s: %v", q.ID, err)
		}
	}

	quizzes := map[string]domain.Quiz{
		"algorithms-101": {
			ID:        "algorithms-101",
			Title:     "Algorithms Warm-up",
			Category:  "Algorithms",
			Questions: b.ByCategory("Algorithms"),
		},
		"mixed-drill": {
			ID:        "mixed-drill",
			Title:     "Mixed Technical Drill",
			Category:  "General",
			Questions: b.Random(4, ""),
		},
	}
	for id, quiz := range quizzes {
		if err := quiz.Validate(); err != nil {
			log.Printf("seed quiz %s: %v", id, err)
			delete(quizzes, id)
		}
	}
	return quizzes
}

func demoQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            "algo-binary-search",
			Text:          "What is the time complexity of binary search?",
			Options:       []string{"O(n)", "O(log n)", "O(n^2)"},
			CorrectAnswer: "O(log n)",
			Difficulty:    domain.Easy,
			Category:      "Algorithms",
			Points:        1,
		},
		{
			ID:            "algo-stable-sort",
			Text:          "Which of these sorting algorithms is stable?",
			Options:       []string{"Heapsort", "Quicksort", "Merge sort"},
			CorrectAnswer: "Merge sort",
			Difficulty:    domain.Medium,
			Category:      "Algorithms",
			Points:        2,
		},
		{
			ID:            "algo-dag-order",
			Text:          "Which traversal produces a topological order of a DAG?",
			Options:       []string{"Reverse post-order DFS", "Pre-order BFS", "In-order DFS"},
			CorrectAnswer: "Reverse post-order DFS",
			Difficulty:    domain.Hard,
			Category:      "Algorithms",
			Points:        3,
		},
		{
			ID:            "prog-const",
			Text:          "Which keyword declares an immutable binding in Go?",
			Options:       []string{"const", "final", "static"},
			CorrectAnswer: "const",
			Difficulty:    domain.Easy,
			Category:      "Programming",
			Points:        1,
		},
		{
			ID:            "db-index",
			Text:          "What does a B-tree index primarily speed up?",
			Options:       []string{"Range scans", "Full-table writes", "Schema migrations"},
			CorrectAnswer: "Range scans",
			Difficulty:    domain.Medium,
			Category:      "Databases",
			Points:        2,
		},
		{
			ID:            "net-tcp",
			Text:          "Which layer does TCP operate at?",
			Options:       []string{"Transport", "Network", "Session"},
			CorrectAnswer: "Transport",
			Difficulty:    domain.Easy,
			Category:      "Networking",
			Points:        1,
		},
	}
}
