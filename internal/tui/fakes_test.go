package tui

import (
	"context"
	"fmt"

	"github.com/verte-zerg/rapiddent/internal/bank"
	"github.com/verte-zerg/rapiddent/internal/model"
)

type fakeProvider struct {
	questions []model.Question
	scenarios []model.Scenario
	err       error
	calls     int
}

func (p *fakeProvider) FetchQuestions(_ context.Context, typeFilter string) ([]model.Question, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	var out []model.Question
	for _, q := range p.questions {
		if typeFilter == "" || q.Type == typeFilter {
			out = append(out, q)
		}
	}
	return out, nil
}

func (p *fakeProvider) FetchQuestionsByIDs(_ context.Context, ids []string) ([]model.Question, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Question
	for _, q := range p.questions {
		if want[q.ID] {
			out = append(out, q)
		}
	}
	return out, p.err
}

func (p *fakeProvider) FetchScenarios(context.Context) ([]model.Scenario, error) {
	p.calls++
	return p.scenarios, p.err
}

func (p *fakeProvider) FetchQuestionsForScenario(_ context.Context, scenarioID string) ([]model.Question, error) {
	var out []model.Question
	for _, q := range p.questions {
		if q.ScenarioID == scenarioID {
			out = append(out, q)
		}
	}
	return out, p.err
}

var _ bank.Provider = (*fakeProvider)(nil)

type memKV struct {
	data map[string][]string
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]string{}}
}

func (m *memKV) GetStringArray(key string) ([]string, error) {
	return append([]string(nil), m.data[key]...), nil
}

func (m *memKV) SetStringArray(key string, values []string) error {
	m.data[key] = append([]string(nil), values...)
	return nil
}

type memRecorder struct {
	attempts []model.ExamAttempt
}

func (r *memRecorder) InsertExamAttempt(_ context.Context, attempt model.ExamAttempt) error {
	r.attempts = append(r.attempts, attempt)
	return nil
}

func rapidFire(n int) []model.Question {
	out := make([]model.Question, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Question{
			ID:            fmt.Sprintf("rf-%02d", i),
			Text:          fmt.Sprintf("Statement %d is true.", i),
			Type:          model.TypeRapidFire,
			CorrectOption: model.OptionTrue,
			Explanation:   "Because it is.",
		})
	}
	return out
}
