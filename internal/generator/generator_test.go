package generator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/verte-zerg/rapiddent/internal/bank"
	"github.com/verte-zerg/rapiddent/internal/model"
)

func pool(n int, qType string) []model.Question {
	out := make([]model.Question, n)
	for i := range out {
		out[i] = model.Question{ID: fmt.Sprintf("%s-%02d", qType, i), Type: qType}
	}
	return out
}

type fakeTracker struct {
	completed map[string]bool
	wrong     map[string]bool
}

func (f fakeTracker) IsCompleted(id string) bool { return f.completed[id] }
func (f fakeTracker) IsWrong(id string) bool     { return f.wrong[id] }

func TestSelectExamInsufficient(t *testing.T) {
	g := NewWithSeed(1)
	questions := append(pool(25, model.TypeRapidFire), pool(10, model.TypeScenario)...)
	_, err := g.SelectExam(questions, model.TypeRapidFire, 30)
	var insufficient *bank.InsufficientQuestionsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientQuestionsError, got %v", err)
	}
	if insufficient.Available != 25 || insufficient.Required != 30 {
		t.Fatalf("unexpected counts: %+v", insufficient)
	}
}

func TestSelectExamFiltersAndTruncates(t *testing.T) {
	g := NewWithSeed(2)
	questions := append(pool(40, model.TypeRapidFire), pool(10, model.TypeScenario)...)
	selected, err := g.SelectExam(questions, model.TypeRapidFire, 30)
	if err != nil {
		t.Fatalf("SelectExam failed: %v", err)
	}
	if len(selected) != 30 {
		t.Fatalf("expected 30 questions, got %d", len(selected))
	}
	seen := map[string]bool{}
	for _, q := range selected {
		if q.Type != model.TypeRapidFire {
			t.Fatalf("unexpected type %s", q.Type)
		}
		if seen[q.ID] {
			t.Fatalf("duplicate question %s", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	g := NewWithSeed(3)
	questions := pool(20, model.TypeRapidFire)
	shuffled := g.Shuffle(questions)
	if len(shuffled) != len(questions) {
		t.Fatalf("length changed")
	}
	counts := map[string]int{}
	for _, q := range shuffled {
		counts[q.ID]++
	}
	for _, q := range questions {
		if counts[q.ID] != 1 {
			t.Fatalf("question %s appears %d times", q.ID, counts[q.ID])
		}
	}
	if questions[0].ID != "RAPID_FIRE-00" {
		t.Fatalf("input must not be modified")
	}
}

func TestShuffleCoversPositions(t *testing.T) {
	g := NewWithSeed(4)
	questions := pool(3, model.TypeRapidFire)
	firsts := map[string]int{}
	for i := 0; i < 3000; i++ {
		firsts[g.Shuffle(questions)[0].ID]++
	}
	for _, q := range questions {
		if firsts[q.ID] < 800 {
			t.Fatalf("question %s first only %d times", q.ID, firsts[q.ID])
		}
	}
}

func TestPracticeDeckUncompleted(t *testing.T) {
	g := NewWithSeed(5)
	all := pool(4, model.TypeRapidFire)
	tracker := fakeTracker{completed: map[string]bool{all[0].ID: true, all[1].ID: true}}
	deck, err := g.PracticeDeck(all, tracker, model.PracticeConfig{})
	if err != nil {
		t.Fatalf("PracticeDeck failed: %v", err)
	}
	if len(deck) != 2 {
		t.Fatalf("expected 2 uncompleted questions, got %d", len(deck))
	}
	for _, q := range deck {
		if tracker.completed[q.ID] {
			t.Fatalf("completed question %s in deck", q.ID)
		}
	}
}

func TestPracticeDeckAllCompletedFallsBack(t *testing.T) {
	g := NewWithSeed(6)
	all := pool(3, model.TypeRapidFire)
	tracker := fakeTracker{completed: map[string]bool{}}
	for _, q := range all {
		tracker.completed[q.ID] = true
	}
	deck, err := g.PracticeDeck(all, tracker, model.PracticeConfig{Limit: 2})
	if err != nil {
		t.Fatalf("PracticeDeck failed: %v", err)
	}
	if len(deck) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(deck))
	}
}

func TestPracticeDeckReview(t *testing.T) {
	g := NewWithSeed(7)
	all := pool(3, model.TypeRapidFire)
	tracker := fakeTracker{
		completed: map[string]bool{all[0].ID: true, all[1].ID: true},
		wrong:     map[string]bool{all[1].ID: true},
	}
	deck, err := g.PracticeDeck(all, tracker, model.PracticeConfig{Review: true})
	if err != nil {
		t.Fatalf("PracticeDeck failed: %v", err)
	}
	if len(deck) != 1 || deck[0].ID != all[1].ID {
		t.Fatalf("unexpected review deck: %+v", deck)
	}

	_, err = g.PracticeDeck(all, fakeTracker{}, model.PracticeConfig{Review: true})
	if !errors.Is(err, bank.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestPracticeDeckEmptyBank(t *testing.T) {
	g := NewWithSeed(8)
	if _, err := g.PracticeDeck(nil, fakeTracker{}, model.PracticeConfig{}); !errors.Is(err, bank.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
