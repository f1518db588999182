package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/rapiddent/internal/model"
	"github.com/verte-zerg/rapiddent/internal/progress"
)

func TestSummarizeProgress(t *testing.T) {
	summary := SummarizeProgress(progress.Snapshot{
		Completed: []string{"a", "b", "c", "d"},
		Wrong:     []string{"b"},
	})
	if summary.Completed != 4 || summary.Correct != 3 || summary.NeedsReview != 1 || summary.Accuracy != 0.75 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if empty := SummarizeProgress(progress.Snapshot{}); empty.Accuracy != 0 {
		t.Fatalf("expected zero accuracy, got %f", empty.Accuracy)
	}
}

func TestSummarizeExams(t *testing.T) {
	attempts := []model.ExamAttempt{
		{ID: "1", Percentage: 70},
		{ID: "2", Percentage: 80, Passed: true},
		{ID: "3", Percentage: 90, Passed: true},
	}
	summary := SummarizeExams(attempts)
	if summary.Attempts != 3 || summary.Passed != 2 || summary.BestPercent != 90 || summary.AvgPercent != 80 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Last.ID != "3" {
		t.Fatalf("expected last attempt 3, got %s", summary.Last.ID)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{10, 20, 30, 40}, 2)
	want := []float64{10, 15, 25, 35}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 100, 50}); got != " @+" {
		t.Fatalf("unexpected sparkline %q", got)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	report := Report{
		Progress: ProgressSummary{Completed: 5, Correct: 3, NeedsReview: 2, Accuracy: 0.6},
	}
	if err := RenderSummary(&buf, report); err != nil {
		t.Fatalf("RenderSummary failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Completed: 5", "Needs review: 2", "Accuracy: 60.00%", "No exam attempts yet."} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}

	buf.Reset()
	attempts := []model.ExamAttempt{{Percentage: 80, Passed: true, FinishReason: "completed", EndedAt: time.Now()}}
	report.Attempts = attempts
	report.Exams = SummarizeExams(attempts)
	if err := RenderSummary(&buf, report); err != nil {
		t.Fatalf("RenderSummary failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Last: 80% (passed, completed)") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestMostMissed(t *testing.T) {
	attempts := []model.ExamAttempt{
		{WrongIDs: []string{"q2", "q1"}},
		{WrongIDs: []string{"q2", "q3"}},
	}
	missed := MostMissed(attempts, 2)
	if len(missed) != 2 || missed[0].ID != "q2" || missed[0].Misses != 2 || missed[1].ID != "q1" {
		t.Fatalf("unexpected ranking: %+v", missed)
	}
}

type wrongSet map[string]bool

func (w wrongSet) IsWrong(id string) bool { return w[id] }

func TestBreakdownByType(t *testing.T) {
	answered := []model.Question{
		{ID: "r1", Type: model.TypeRapidFire},
		{ID: "r2", Type: model.TypeRapidFire},
		{ID: "s1", Type: model.TypeScenario},
	}
	breakdown := BreakdownByType(answered, wrongSet{"s1": true})
	if len(breakdown) != 2 {
		t.Fatalf("expected 2 types, got %d", len(breakdown))
	}
	if breakdown[0].Type != model.TypeScenario || breakdown[0].Accuracy != 0 {
		t.Fatalf("expected scenario first, got %+v", breakdown[0])
	}
	if breakdown[1].Answered != 2 || breakdown[1].Correct != 2 {
		t.Fatalf("unexpected rapid fire entry: %+v", breakdown[1])
	}
}
