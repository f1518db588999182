package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/rapiddent/internal/model"
)

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Type", "Accuracy", "Correct"}
	rows := [][]string{
		{"Scenario", "97.50%", "12"},
		{"Rapid Fire", "8.00%", "3"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Type       Accuracy Correct" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Scenario     97.50%      12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Rapid Fire    8.00%       3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestShortText(t *testing.T) {
	if got := ShortText("Local   anesthetic\nwith epinephrine", 100); got != "Local anesthetic with epinephrine" {
		t.Fatalf("unexpected collapse: %q", got)
	}
	if got := ShortText("abcdefghij", 6); got != "abcde…" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestRenderQuestionTable(t *testing.T) {
	var buf bytes.Buffer
	err := RenderQuestionTable(&buf, "Needs Review", []model.Question{
		{ID: "q1", Type: model.TypeRapidFire, Text: "Nitrous oxide is contraindicated in COPD."},
	})
	if err != nil {
		t.Fatalf("RenderQuestionTable failed: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Needs Review\nID Type       Question\n") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "q1 Rapid Fire Nitrous oxide") {
		t.Fatalf("missing row:\n%s", out)
	}

	buf.Reset()
	if err := RenderQuestionTable(&buf, "Correct", nil); err != nil {
		t.Fatalf("RenderQuestionTable failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No questions.") {
		t.Fatalf("expected empty marker")
	}
}
