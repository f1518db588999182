package stats

import (
	"sort"

	"github.com/verte-zerg/rapiddent/internal/model"
)

// TypeAccuracy is the practice accuracy for one question type.
type TypeAccuracy struct {
	Type     string
	Answered int
	Correct  int
	Accuracy float64
}

// ReviewChecker reports whether a question needs review.
type ReviewChecker interface {
	IsWrong(id string) bool
}

// BreakdownByType groups answered questions by type, weakest first.
func BreakdownByType(answered []model.Question, review ReviewChecker) []TypeAccuracy {
	byType := map[string]*TypeAccuracy{}
	for _, q := range answered {
		entry, ok := byType[q.Type]
		if !ok {
			entry = &TypeAccuracy{Type: q.Type}
			byType[q.Type] = entry
		}
		entry.Answered++
		if !review.IsWrong(q.ID) {
			entry.Correct++
		}
	}
	out := make([]TypeAccuracy, 0, len(byType))
	for _, entry := range byType {
		entry.Accuracy = float64(entry.Correct) / float64(entry.Answered)
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Accuracy == out[j].Accuracy {
			return out[i].Type < out[j].Type
		}
		return out[i].Accuracy < out[j].Accuracy
	})
	return out
}
