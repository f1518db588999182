package stats

import (
	"context"
	"sort"

	"github.com/verte-zerg/rapiddent/internal/bank"
	"github.com/verte-zerg/rapiddent/internal/model"
	"github.com/verte-zerg/rapiddent/internal/progress"
)

const mostMissedLimit = 10

// AttemptLister reads exam history.
type AttemptLister interface {
	ListExamAttempts(ctx context.Context, last int) ([]model.ExamAttempt, error)
}

// ProgressSource exposes the current progress state.
type ProgressSource interface {
	Snapshot() progress.Snapshot
	IsWrong(id string) bool
}

// Report contains precomputed data for dashboard rendering.
type Report struct {
	Progress    ProgressSummary
	Exams       ExamSummary
	Attempts    []model.ExamAttempt
	Correct     []model.Question
	NeedsReview []model.Question
	MostMissed  []MissedQuestion
	Breakdown   []TypeAccuracy
}

// BuildReport loads and prepares data for dashboard rendering.
func BuildReport(ctx context.Context, attempts AttemptLister, provider bank.Provider, prog ProgressSource, cfg model.StatsConfig) (Report, error) {
	history, err := attempts.ListExamAttempts(ctx, cfg.LastAttempts)
	if err != nil {
		return Report{}, err
	}
	snap := prog.Snapshot()
	missed := MostMissed(history, mostMissedLimit)

	ids := append([]string(nil), snap.Completed...)
	for _, m := range missed {
		ids = append(ids, m.ID)
	}
	questions, err := provider.FetchQuestionsByIDs(ctx, ids)
	if err != nil {
		return Report{}, err
	}
	byID := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	report := Report{
		Progress: SummarizeProgress(snap),
		Exams:    SummarizeExams(history),
		Attempts: history,
	}
	answered := make([]model.Question, 0, len(snap.Completed))
	for _, id := range snap.Completed {
		q, ok := byID[id]
		if !ok {
			continue
		}
		answered = append(answered, q)
		if prog.IsWrong(id) {
			report.NeedsReview = append(report.NeedsReview, q)
		} else {
			report.Correct = append(report.Correct, q)
		}
	}
	sortByText(report.Correct)
	sortByText(report.NeedsReview)
	report.Breakdown = BreakdownByType(answered, prog)

	for i := range missed {
		if q, ok := byID[missed[i].ID]; ok {
			missed[i].Text = q.Text
		}
	}
	report.MostMissed = missed
	return report, nil
}

func sortByText(questions []model.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].Text == questions[j].Text {
			return questions[i].ID < questions[j].ID
		}
		return questions[i].Text < questions[j].Text
	})
}
