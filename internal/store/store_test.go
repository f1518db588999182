package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/rapiddent/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "rapiddent.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestUpsertAndListQuestions(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	questions := []model.Question{
		{ID: "q2", Text: "Scenario question", Type: model.TypeScenario, CorrectOption: "C", Explanation: "e", ScenarioID: "s1",
			Options: []model.Option{{ID: "A", Text: "a"}, {ID: "B", Text: "b"}, {ID: "C", Text: "c", IsCorrect: true}}},
		{ID: "q1", Text: "Rapid question", Type: model.TypeRapidFire, CorrectOption: "A", Explanation: "e"},
	}
	if err := st.UpsertQuestions(ctx, questions); err != nil {
		t.Fatalf("UpsertQuestions failed: %v", err)
	}

	all, err := st.ListQuestions(ctx, QuestionFilter{})
	if err != nil {
		t.Fatalf("ListQuestions failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "q1" || all[1].ID != "q2" {
		t.Fatalf("unexpected questions: %+v", all)
	}
	if len(all[1].Options) != 3 || all[1].Options[2].ID != "C" || !all[1].Options[2].IsCorrect {
		t.Fatalf("unexpected options: %+v", all[1].Options)
	}

	rapid, err := st.ListQuestions(ctx, QuestionFilter{Type: model.TypeRapidFire})
	if err != nil {
		t.Fatalf("ListQuestions by type failed: %v", err)
	}
	if len(rapid) != 1 || rapid[0].ID != "q1" {
		t.Fatalf("unexpected type filter result: %+v", rapid)
	}

	linked, err := st.ListQuestions(ctx, QuestionFilter{ScenarioID: "s1"})
	if err != nil {
		t.Fatalf("ListQuestions by scenario failed: %v", err)
	}
	if len(linked) != 1 || linked[0].ID != "q2" {
		t.Fatalf("unexpected scenario filter result: %+v", linked)
	}

	byID, err := st.ListQuestions(ctx, QuestionFilter{IDs: []string{"q2", "missing"}})
	if err != nil {
		t.Fatalf("ListQuestions by ids failed: %v", err)
	}
	if len(byID) != 1 || byID[0].ID != "q2" {
		t.Fatalf("unexpected id filter result: %+v", byID)
	}

	none, err := st.ListQuestions(ctx, QuestionFilter{IDs: []string{}})
	if err != nil {
		t.Fatalf("ListQuestions with empty ids failed: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no questions, got %d", len(none))
	}
}

func TestUpsertQuestionsReplacesOptions(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	q := model.Question{ID: "q1", Text: "old", Type: model.TypeScenario, CorrectOption: "A", Explanation: "e",
		Options: []model.Option{{ID: "A", Text: "a", IsCorrect: true}, {ID: "B", Text: "b"}}}
	if err := st.UpsertQuestions(ctx, []model.Question{q}); err != nil {
		t.Fatalf("UpsertQuestions failed: %v", err)
	}
	q.Text = "new"
	q.Options = []model.Option{{ID: "A", Text: "a", IsCorrect: true}}
	if err := st.UpsertQuestions(ctx, []model.Question{q}); err != nil {
		t.Fatalf("second UpsertQuestions failed: %v", err)
	}

	got, err := st.ListQuestions(ctx, QuestionFilter{})
	if err != nil {
		t.Fatalf("ListQuestions failed: %v", err)
	}
	if len(got) != 1 || got[0].Text != "new" || len(got[0].Options) != 1 {
		t.Fatalf("unexpected question after replace: %+v", got)
	}

	count, err := st.CountQuestions(ctx, "")
	if err != nil {
		t.Fatalf("CountQuestions failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 question, got %d", count)
	}
}

func TestScenarios(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	sc := model.Scenario{ID: "s1", PatientName: "Patient", Age: 45, Gender: "Male", ChiefComplaint: "Pain",
		MedicalHistory: "None", Medications: "None", Allergies: "Penicillin", ClinicalFindings: "Caries", VitalSigns: "BP 120/80"}
	if err := st.UpsertScenarios(ctx, []model.Scenario{sc}); err != nil {
		t.Fatalf("UpsertScenarios failed: %v", err)
	}
	got, err := st.ListScenarios(ctx)
	if err != nil {
		t.Fatalf("ListScenarios failed: %v", err)
	}
	if len(got) != 1 || got[0] != sc {
		t.Fatalf("unexpected scenarios: %+v", got)
	}
}

func TestStringArray(t *testing.T) {
	st := openTestStore(t)

	values, err := st.GetStringArray("missing")
	if err != nil {
		t.Fatalf("GetStringArray failed: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected empty array, got %v", values)
	}

	if err := st.SetStringArray("ids", []string{"a", "b"}); err != nil {
		t.Fatalf("SetStringArray failed: %v", err)
	}
	if err := st.SetStringArray("ids", []string{"c"}); err != nil {
		t.Fatalf("SetStringArray overwrite failed: %v", err)
	}
	values, err = st.GetStringArray("ids")
	if err != nil {
		t.Fatalf("GetStringArray failed: %v", err)
	}
	if len(values) != 1 || values[0] != "c" {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestStringArrayWriteWhileOtherConnectionReads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rapiddent.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	if err := st.SetStringArray("k", []string{"a"}); err != nil {
		t.Fatalf("SetStringArray failed: %v", err)
	}

	other, err := sql.Open("sqlite", dataSource(path))
	if err != nil {
		t.Fatalf("open second connection: %v", err)
	}
	t.Cleanup(func() {
		_ = other.Close()
	})
	tx, err := other.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin read tx: %v", err)
	}
	rows, err := tx.Query(`SELECT key FROM kv`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !rows.Next() {
		t.Fatalf("expected a row in kv")
	}

	if err := st.SetStringArray("k", []string{"a", "b"}); err != nil {
		t.Fatalf("write during open read failed: %v", err)
	}

	_ = rows.Close()
	_ = tx.Rollback()
	values, err := st.GetStringArray("k")
	if err != nil {
		t.Fatalf("GetStringArray failed: %v", err)
	}
	if len(values) != 2 || values[0] != "a" || values[1] != "b" {
		t.Fatalf("write was lost, got %v", values)
	}
}

func TestStringArrayMalformedReadsEmpty(t *testing.T) {
	st := openTestStore(t)
	if _, err := st.db.Exec(`INSERT INTO kv (key, value) VALUES ('bad', '{not json')`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	values, err := st.GetStringArray("bad")
	if err != nil {
		t.Fatalf("GetStringArray failed: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected empty array, got %v", values)
	}
}

func TestExamAttempts(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		attempt := model.ExamAttempt{
			ID:           string(rune('a' + i)),
			StartedAt:    base.Add(time.Duration(i) * time.Hour),
			EndedAt:      base.Add(time.Duration(i)*time.Hour + 30*time.Minute),
			Score:        20 + i,
			Total:        30,
			Percentage:   67 + i,
			FinishReason: "completed",
			WrongIDs:     []string{"q1"},
		}
		if i == 2 {
			attempt.Passed = true
			attempt.WrongIDs = nil
		}
		if err := st.InsertExamAttempt(ctx, attempt); err != nil {
			t.Fatalf("InsertExamAttempt failed: %v", err)
		}
	}

	last, err := st.ListExamAttempts(ctx, 2)
	if err != nil {
		t.Fatalf("ListExamAttempts failed: %v", err)
	}
	if len(last) != 2 || last[0].ID != "b" || last[1].ID != "c" {
		t.Fatalf("unexpected attempts: %+v", last)
	}
	if !last[1].Passed || len(last[1].WrongIDs) != 0 {
		t.Fatalf("unexpected last attempt: %+v", last[1])
	}
	if !last[0].EndedAt.Equal(base.Add(90 * time.Minute)) {
		t.Fatalf("unexpected ended at: %v", last[0].EndedAt)
	}

	all, err := st.ListExamAttempts(ctx, 0)
	if err != nil {
		t.Fatalf("ListExamAttempts failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(all))
	}
}
