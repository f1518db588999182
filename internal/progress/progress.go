// Package progress tracks which questions the user has answered and which
// ones still need review.
package progress

import (
	"log/slog"
	"sort"

	"github.com/verte-zerg/rapiddent/internal/applog"
)

// Keys under which the id sets are persisted.
const (
	CompletedKey = "completedQuestionIDs"
	WrongKey     = "wrongQuestionIDs"
)

// KV is the key-value collaborator the store persists to.
type KV interface {
	GetStringArray(key string) ([]string, error)
	SetStringArray(key string, values []string) error
}

// Snapshot is an immutable view of the progress state.
type Snapshot struct {
	Completed []string
	Wrong     []string
}

// CompletedCount returns the number of answered questions.
func (s Snapshot) CompletedCount() int { return len(s.Completed) }

// WrongCount returns the number of questions needing review.
func (s Snapshot) WrongCount() int { return len(s.Wrong) }

// CorrectCount returns the number of answered questions not needing review.
func (s Snapshot) CorrectCount() int { return len(s.Completed) - len(s.Wrong) }

// Store owns the completed and wrong id sets. Every wrong id is also
// completed. Store is not safe for concurrent use; callers serialize access.
type Store struct {
	kv        KV
	logger    *slog.Logger
	completed map[string]struct{}
	wrong     map[string]struct{}
	observers map[int]func(Snapshot)
	nextObs   int
}

// New creates a store and restores any persisted state from kv.
func New(kv KV, logger *slog.Logger) *Store {
	s := &Store{
		kv:        kv,
		logger:    applog.OrDiscard(logger),
		completed: map[string]struct{}{},
		wrong:     map[string]struct{}{},
		observers: map[int]func(Snapshot){},
	}
	s.Load()
	return s
}

// Load replaces the in-memory state with the persisted one. Missing or
// unreadable values load as empty sets.
func (s *Store) Load() {
	s.completed = s.readSet(CompletedKey)
	s.wrong = s.readSet(WrongKey)
	for id := range s.wrong {
		s.completed[id] = struct{}{}
	}
	s.logger.Debug("progress loaded", "completed", len(s.completed), "wrong", len(s.wrong))
}

func (s *Store) readSet(key string) map[string]struct{} {
	set := map[string]struct{}{}
	values, err := s.kv.GetStringArray(key)
	if err != nil {
		s.logger.Warn("progress read failed", "key", key, "error", err)
		return set
	}
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// Save writes both sets. Write failures are logged and otherwise ignored.
func (s *Store) Save() {
	if err := s.kv.SetStringArray(CompletedKey, sortedKeys(s.completed)); err != nil {
		s.logger.Error("progress save failed", "key", CompletedKey, "error", err)
	}
	if err := s.kv.SetStringArray(WrongKey, sortedKeys(s.wrong)); err != nil {
		s.logger.Error("progress save failed", "key", WrongKey, "error", err)
	}
}

// MarkAnswered records an answer. A correct answer clears the id from the
// review set; a wrong one adds it.
func (s *Store) MarkAnswered(id string, correct bool) {
	s.completed[id] = struct{}{}
	if correct {
		delete(s.wrong, id)
	} else {
		s.wrong[id] = struct{}{}
	}
	s.logger.Debug("question answered", "id", id, "correct", correct)
	s.changed()
}

// Reset clears all progress.
func (s *Store) Reset() {
	s.completed = map[string]struct{}{}
	s.wrong = map[string]struct{}{}
	s.logger.Info("progress reset")
	s.changed()
}

func (s *Store) changed() {
	s.Save()
	if len(s.observers) == 0 {
		return
	}
	snap := s.Snapshot()
	keys := make([]int, 0, len(s.observers))
	for k := range s.observers {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		if fn, ok := s.observers[k]; ok {
			fn(snap)
		}
	}
}

// Subscribe registers fn to be called after every mutation. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		delete(s.observers, id)
	}
}

// CompletedCount returns the number of answered questions.
func (s *Store) CompletedCount() int { return len(s.completed) }

// WrongCount returns the number of questions needing review.
func (s *Store) WrongCount() int { return len(s.wrong) }

// CorrectCount returns the number of answered questions not needing review.
func (s *Store) CorrectCount() int { return len(s.completed) - len(s.wrong) }

// IsCompleted reports whether id has been answered.
func (s *Store) IsCompleted(id string) bool {
	_, ok := s.completed[id]
	return ok
}

// IsWrong reports whether id needs review.
func (s *Store) IsWrong(id string) bool {
	_, ok := s.wrong[id]
	return ok
}

// CompletedIDs returns the answered ids, sorted.
func (s *Store) CompletedIDs() []string { return sortedKeys(s.completed) }

// WrongIDs returns the ids needing review, sorted.
func (s *Store) WrongIDs() []string { return sortedKeys(s.wrong) }

// CorrectIDs returns the completed ids that do not need review, sorted.
func (s *Store) CorrectIDs() []string {
	out := make([]string, 0, s.CorrectCount())
	for id := range s.completed {
		if _, wrong := s.wrong[id]; !wrong {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{Completed: s.CompletedIDs(), Wrong: s.WrongIDs()}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
