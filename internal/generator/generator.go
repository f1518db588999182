// Package generator selects and orders questions for practice and exams.
package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/verte-zerg/rapiddent/internal/bank"
	"github.com/verte-zerg/rapiddent/internal/model"
)

// Tracker reports answer history for practice deck selection.
type Tracker interface {
	IsCompleted(id string) bool
	IsWrong(id string) bool
}

// Generator produces randomized question orders.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Rand exposes the random source for callers that pick single items.
func (g *Generator) Rand() *rand.Rand {
	return g.rnd
}

// Shuffle returns a uniformly permuted copy of questions.
func (g *Generator) Shuffle(questions []model.Question) []model.Question {
	out := append([]model.Question(nil), questions...)
	g.rnd.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// SelectExam filters pool to typeFilter, shuffles it and keeps required
// questions. A pool that is too small yields *bank.InsufficientQuestionsError.
func (g *Generator) SelectExam(pool []model.Question, typeFilter string, required int) ([]model.Question, error) {
	if required <= 0 {
		return nil, fmt.Errorf("required question count must be greater than 0")
	}
	filtered := FilterType(pool, typeFilter)
	if len(filtered) < required {
		return nil, &bank.InsufficientQuestionsError{Available: len(filtered), Required: required}
	}
	return g.Shuffle(filtered)[:required], nil
}

// PracticeDeck picks the questions for a rapid fire round. Review mode keeps
// only questions flagged for review. Otherwise unanswered questions are used,
// or the whole bank once everything has been answered. A positive limit
// truncates the shuffled deck.
func (g *Generator) PracticeDeck(all []model.Question, tracker Tracker, cfg model.PracticeConfig) ([]model.Question, error) {
	var deck []model.Question
	if cfg.Review {
		for _, q := range all {
			if tracker.IsWrong(q.ID) {
				deck = append(deck, q)
			}
		}
		if len(deck) == 0 {
			return nil, fmt.Errorf("no questions need review: %w", bank.ErrNoData)
		}
	} else {
		for _, q := range all {
			if !tracker.IsCompleted(q.ID) {
				deck = append(deck, q)
			}
		}
		if len(deck) == 0 {
			deck = all
		}
		if len(deck) == 0 {
			return nil, fmt.Errorf("question bank is empty: %w", bank.ErrNoData)
		}
	}
	deck = g.Shuffle(deck)
	if cfg.Limit > 0 && len(deck) > cfg.Limit {
		deck = deck[:cfg.Limit]
	}
	return deck, nil
}

// FilterType keeps questions of the given type. An empty type keeps all.
func FilterType(questions []model.Question, qType string) []model.Question {
	if qType == "" {
		return append([]model.Question(nil), questions...)
	}
	out := make([]model.Question, 0, len(questions))
	for _, q := range questions {
		if q.Type == qType {
			out = append(out, q)
		}
	}
	return out
}
