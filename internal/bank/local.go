package bank

import (
	"context"
	"fmt"

	"github.com/verte-zerg/rapiddent/internal/model"
	"github.com/verte-zerg/rapiddent/internal/store"
)

// LocalProvider serves the bank from the local SQLite store.
type LocalProvider struct {
	store *store.Store
}

// NewLocalProvider wraps an open store.
func NewLocalProvider(st *store.Store) *LocalProvider {
	return &LocalProvider{store: st}
}

// FetchQuestions returns every question, or only those of typeFilter.
func (p *LocalProvider) FetchQuestions(ctx context.Context, typeFilter string) ([]model.Question, error) {
	questions, err := p.store.ListQuestions(ctx, store.QuestionFilter{Type: typeFilter})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	return questions, nil
}

// FetchQuestionsByIDs returns the questions with the given ids. Unknown ids
// are omitted.
func (p *LocalProvider) FetchQuestionsByIDs(ctx context.Context, ids []string) ([]model.Question, error) {
	return FetchInBatches(ctx, ids, MaxBatchSize, func(ctx context.Context, batch []string) ([]model.Question, error) {
		questions, err := p.store.ListQuestions(ctx, store.QuestionFilter{IDs: batch})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
		}
		return questions, nil
	})
}

// FetchScenarios returns every stored scenario.
func (p *LocalProvider) FetchScenarios(ctx context.Context) ([]model.Scenario, error) {
	scenarios, err := p.store.ListScenarios(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	return scenarios, nil
}

// FetchQuestionsForScenario returns the questions linked to a scenario.
func (p *LocalProvider) FetchQuestionsForScenario(ctx context.Context, scenarioID string) ([]model.Question, error) {
	if scenarioID == "" {
		return nil, nil
	}
	questions, err := p.store.ListQuestions(ctx, store.QuestionFilter{ScenarioID: scenarioID})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	return questions, nil
}
