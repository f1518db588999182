package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/rapiddent/internal/bank"
	"github.com/verte-zerg/rapiddent/internal/exam"
	"github.com/verte-zerg/rapiddent/internal/generator"
	"github.com/verte-zerg/rapiddent/internal/model"
)

func newExam(t *testing.T, pool int, cfg model.ExamConfig) (*ExamModel, *memRecorder, tea.Cmd) {
	t.Helper()
	recorder := &memRecorder{}
	m := NewExamModel(&fakeProvider{questions: rapidFire(pool)}, recorder, generator.NewWithSeed(3), cfg, nil)
	_, cmd := m.Update(m.Init()())
	return m, recorder, cmd
}

func TestExamInsufficientQuestions(t *testing.T) {
	m, _, cmd := newExam(t, 5, model.ExamConfig{Questions: 30})
	if cmd != nil {
		t.Fatalf("no tick expected without a session")
	}
	if m.stage != examFailed || m.session != nil {
		t.Fatalf("expected failure without session, stage=%d", m.stage)
	}
	if !strings.Contains(m.View(), "Need 30 but only 5 found") {
		t.Fatalf("unexpected view: %q", m.View())
	}
}

func TestExamCompletesAndRecordsAttempt(t *testing.T) {
	m, recorder, cmd := newExam(t, 10, model.ExamConfig{Questions: 4, PassPercent: 75})
	if cmd == nil || m.stage != examRunning {
		t.Fatalf("expected running exam with tick")
	}
	for _, key := range []string{"t", "t", "t", "f"} {
		m.Update(keyRunes(key))
	}
	if m.stage != examReport {
		t.Fatalf("expected report, got %d", m.stage)
	}
	result, ok := m.Result()
	if !ok || result.Score != 3 || result.Percentage != 75 || !result.Passed {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Reason != exam.ReasonCompleted {
		t.Fatalf("unexpected reason: %s", result.Reason)
	}
	if len(recorder.attempts) != 1 || recorder.attempts[0].Percentage != 75 {
		t.Fatalf("attempt not recorded: %+v", recorder.attempts)
	}
	if len(result.WrongQuestions) != 1 {
		t.Fatalf("expected one wrong question, got %d", len(result.WrongQuestions))
	}
	if !strings.Contains(m.View(), "PASSED") {
		t.Fatalf("report missing verdict")
	}
}

func TestExamTickCountsDownAndTimesOut(t *testing.T) {
	m, recorder, cmd := newExam(t, 10, model.ExamConfig{Questions: 5, Duration: 3 * time.Second})
	m.Update(keyRunes("t"))
	id := m.session.ID()
	for i := 0; i < 2; i++ {
		_, cmd = m.Update(tickMsg{sessionID: id})
		if cmd == nil {
			t.Fatalf("tick %d should reschedule", i)
		}
	}
	if m.session.Remaining() != 1 {
		t.Fatalf("expected 1 second left, got %d", m.session.Remaining())
	}
	_, cmd = m.Update(tickMsg{sessionID: id})
	if cmd != nil {
		t.Fatalf("finished session must stop ticking")
	}
	result, ok := m.Result()
	if !ok || result.Reason != exam.ReasonTimedOut || result.Score != 1 || result.Total != 5 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(recorder.attempts) != 1 {
		t.Fatalf("timed out attempt should be recorded")
	}
}

func TestExamDropsStaleTicks(t *testing.T) {
	m, _, _ := newExam(t, 10, model.ExamConfig{Questions: 5, Duration: 10 * time.Second})
	before := m.session.Remaining()
	_, cmd := m.Update(tickMsg{sessionID: "stale"})
	if cmd != nil {
		t.Fatalf("stale tick must not reschedule")
	}
	if m.session.Remaining() != before {
		t.Fatalf("stale tick changed the countdown")
	}
}

func TestExamAbandonIsNotRecorded(t *testing.T) {
	m, recorder, _ := newExam(t, 10, model.ExamConfig{Questions: 5})
	id := m.session.ID()
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	result, ok := m.Result()
	if !ok || result.Reason != exam.ReasonAbandoned {
		t.Fatalf("expected abandoned result, got %+v", result)
	}
	if len(recorder.attempts) != 0 {
		t.Fatalf("abandoned attempt must not be recorded")
	}
	if _, cmd := m.Update(tickMsg{sessionID: id}); cmd != nil {
		t.Fatalf("tick after abandon must not reschedule")
	}
}

func TestExamFetchErrorRetry(t *testing.T) {
	provider := &fakeProvider{questions: rapidFire(10), err: bank.ErrDataUnavailable}
	m := NewExamModel(provider, &memRecorder{}, generator.NewWithSeed(3), model.ExamConfig{Questions: 5}, nil)
	m.Update(m.Init()())
	if m.stage != examFailed {
		t.Fatalf("expected failure")
	}
	provider.err = nil
	_, cmd := m.Update(keyRunes("r"))
	_, tick := m.Update(cmd())
	if m.stage != examRunning || tick == nil {
		t.Fatalf("expected running exam after retry")
	}
}
