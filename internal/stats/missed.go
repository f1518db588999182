package stats

import (
	"sort"

	"github.com/verte-zerg/rapiddent/internal/model"
)

// MissedQuestion counts how often a question was answered wrong in exams.
type MissedQuestion struct {
	ID     string
	Text   string
	Misses int
}

// MostMissed returns the n questions with the most exam misses.
func MostMissed(attempts []model.ExamAttempt, n int) []MissedQuestion {
	if n <= 0 || len(attempts) == 0 {
		return nil
	}
	counts := map[string]int{}
	for _, a := range attempts {
		for _, id := range a.WrongIDs {
			counts[id]++
		}
	}
	items := make([]MissedQuestion, 0, len(counts))
	for id, c := range counts {
		items = append(items, MissedQuestion{ID: id, Misses: c})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Misses == items[j].Misses {
			return items[i].ID < items[j].ID
		}
		return items[i].Misses > items[j].Misses
	})
	if n < len(items) {
		items = items[:n]
	}
	return items
}
