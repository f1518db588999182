package bank

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/rapiddent/internal/model"
)

// MaxBatchSize bounds how many ids a single lookup may carry.
const MaxBatchSize = 30

// Provider supplies questions and scenarios from a bank.
type Provider interface {
	FetchQuestions(ctx context.Context, typeFilter string) ([]model.Question, error)
	FetchQuestionsByIDs(ctx context.Context, ids []string) ([]model.Question, error)
	FetchScenarios(ctx context.Context) ([]model.Scenario, error)
	FetchQuestionsForScenario(ctx context.Context, scenarioID string) ([]model.Question, error)
}

// BatchFunc fetches a single batch of ids.
type BatchFunc func(ctx context.Context, ids []string) ([]model.Question, error)

// FetchInBatches splits ids into groups of at most size, fetches them
// concurrently and merges the results in batch order. If any batch fails the
// whole call fails and no partial result is returned.
func FetchInBatches(ctx context.Context, ids []string, size int, fetch BatchFunc) ([]model.Question, error) {
	if size <= 0 {
		size = MaxBatchSize
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []model.Question{}, nil
	}

	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}

	results := make([][]model.Question, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		g.Go(func() error {
			questions, err := fetch(gctx, batch)
			if err != nil {
				return fmt.Errorf("fetch batch %d of %d: %w", i+1, len(batches), err)
			}
			results[i] = questions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]model.Question, 0, len(ids))
	for _, batch := range results {
		merged = append(merged, batch...)
	}
	return merged, nil
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// RandomScenario picks one scenario and returns it with its linked questions.
func RandomScenario(ctx context.Context, p Provider, rnd *rand.Rand) (model.Scenario, []model.Question, error) {
	scenarios, err := p.FetchScenarios(ctx)
	if err != nil {
		return model.Scenario{}, nil, err
	}
	if len(scenarios) == 0 {
		return model.Scenario{}, nil, fmt.Errorf("no scenarios: %w", ErrNoData)
	}
	scenario := scenarios[rnd.Intn(len(scenarios))]
	questions, err := p.FetchQuestionsForScenario(ctx, scenario.ID)
	if err != nil {
		return model.Scenario{}, nil, err
	}
	if len(questions) == 0 {
		return model.Scenario{}, nil, fmt.Errorf("no questions for scenario %s: %w", scenario.ID, ErrNoData)
	}
	return scenario, questions, nil
}
