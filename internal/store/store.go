// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/rapiddent/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// busyTimeoutMs bounds how long a connection waits on another one's lock.
const busyTimeoutMs = 5000

// timeLayout keeps a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for the question bank, progress and exam history.
type Store struct {
	db *sql.DB
}

// QuestionFilter narrows ListQuestions. Empty fields match everything.
type QuestionFilter struct {
	Type       string
	ScenarioID string
	IDs        []string
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dataSource(path))
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// dataSource enables WAL so readers never block the progress writes, and a
// busy timeout for writers racing another process.
func dataSource(path string) string {
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, busyTimeoutMs)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			type TEXT NOT NULL,
			correct_option TEXT NOT NULL,
			explanation TEXT NOT NULL,
			scenario_id TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS question_options (
			question_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			option_id TEXT NOT NULL,
			text TEXT NOT NULL,
			is_correct INTEGER NOT NULL,
			PRIMARY KEY (question_id, option_id)
		);`,
		`CREATE TABLE IF NOT EXISTS scenarios (
			id TEXT PRIMARY KEY,
			patient_name TEXT NOT NULL,
			age INTEGER NOT NULL,
			gender TEXT NOT NULL,
			chief_complaint TEXT NOT NULL,
			medical_history TEXT NOT NULL,
			medications TEXT NOT NULL,
			allergies TEXT NOT NULL,
			clinical_findings TEXT NOT NULL,
			vital_signs TEXT NOT NULL,
			media_url TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS exam_attempts (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			score INTEGER NOT NULL,
			total INTEGER NOT NULL,
			percentage INTEGER NOT NULL,
			passed INTEGER NOT NULL,
			finish_reason TEXT NOT NULL,
			wrong_ids TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_type ON questions(type);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_scenario ON questions(scenario_id);`,
		`CREATE INDEX IF NOT EXISTS idx_exam_attempts_ended_at ON exam_attempts(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertQuestions inserts or replaces questions together with their options.
func (s *Store) UpsertQuestions(ctx context.Context, questions []model.Question) (err error) {
	if len(questions) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	for _, q := range questions {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO questions (id, text, type, correct_option, explanation, scenario_id, image_url)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET text = excluded.text, type = excluded.type,
			 correct_option = excluded.correct_option, explanation = excluded.explanation,
			 scenario_id = excluded.scenario_id, image_url = excluded.image_url`,
			q.ID, q.Text, q.Type, q.CorrectOption, q.Explanation, q.ScenarioID, q.ImageURL,
		); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM question_options WHERE question_id = ?`, q.ID); err != nil {
			return err
		}
		for i, opt := range q.Options {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO question_options (question_id, position, option_id, text, is_correct)
				 VALUES (?, ?, ?, ?, ?)`,
				q.ID, i, opt.ID, opt.Text, boolToInt(opt.IsCorrect),
			); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// UpsertScenarios inserts or replaces scenarios.
func (s *Store) UpsertScenarios(ctx context.Context, scenarios []model.Scenario) (err error) {
	if len(scenarios) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO scenarios (id, patient_name, age, gender, chief_complaint, medical_history,
		 medications, allergies, clinical_findings, vital_signs, media_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, sc := range scenarios {
		if _, err = stmt.ExecContext(ctx, sc.ID, sc.PatientName, sc.Age, sc.Gender, sc.ChiefComplaint,
			sc.MedicalHistory, sc.Medications, sc.Allergies, sc.ClinicalFindings, sc.VitalSigns, sc.MediaURL,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListQuestions returns questions matching the filter ordered by id.
func (s *Store) ListQuestions(ctx context.Context, filter QuestionFilter) ([]model.Question, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.ScenarioID != "" {
		clauses = append(clauses, "scenario_id = ?")
		args = append(args, filter.ScenarioID)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return nil, nil
		}
		placeholders := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		clauses = append(clauses, fmt.Sprintf("id IN (%s)", strings.Join(placeholders, ",")))
	}
	query := fmt.Sprintf(`SELECT id, text, type, correct_option, explanation, scenario_id, image_url
		FROM questions
		WHERE %s
		ORDER BY id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Type, &q.CorrectOption, &q.Explanation, &q.ScenarioID, &q.ImageURL); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachOptions(ctx, questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *Store) attachOptions(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	index := make(map[string]int, len(questions))
	placeholders := make([]string, len(questions))
	args := make([]any, len(questions))
	for i, q := range questions {
		index[q.ID] = i
		placeholders[i] = "?"
		args[i] = q.ID
	}
	query := fmt.Sprintf(`SELECT question_id, option_id, text, is_correct
		FROM question_options
		WHERE question_id IN (%s)
		ORDER BY question_id, position`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	for rows.Next() {
		var questionID string
		var opt model.Option
		var isCorrect int
		if err := rows.Scan(&questionID, &opt.ID, &opt.Text, &isCorrect); err != nil {
			return err
		}
		opt.IsCorrect = isCorrect != 0
		i := index[questionID]
		questions[i].Options = append(questions[i].Options, opt)
	}
	return rows.Err()
}

// ListScenarios returns every stored scenario ordered by id.
func (s *Store) ListScenarios(ctx context.Context) ([]model.Scenario, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, patient_name, age, gender, chief_complaint, medical_history, medications,
		 allergies, clinical_findings, vital_signs, media_url
		 FROM scenarios ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var scenarios []model.Scenario
	for rows.Next() {
		var sc model.Scenario
		if err := rows.Scan(&sc.ID, &sc.PatientName, &sc.Age, &sc.Gender, &sc.ChiefComplaint, &sc.MedicalHistory,
			&sc.Medications, &sc.Allergies, &sc.ClinicalFindings, &sc.VitalSigns, &sc.MediaURL); err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return scenarios, nil
}

// CountQuestions returns the number of stored questions of a type, or all
// questions when qType is empty.
func (s *Store) CountQuestions(ctx context.Context, qType string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions WHERE (? = '' OR type = ?)`, qType, qType,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetStringArray returns the array stored under key. A missing key or a
// value that is not a JSON string array reads as empty.
func (s *Store) GetStringArray(key string) ([]string, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, nil
	}
	return values, nil
}

// SetStringArray replaces the array stored under key.
func (s *Store) SetStringArray(key string, values []string) error {
	if values == nil {
		values = []string{}
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(payload),
	)
	return err
}

// InsertExamAttempt stores a finished exam.
func (s *Store) InsertExamAttempt(ctx context.Context, attempt model.ExamAttempt) error {
	wrong := attempt.WrongIDs
	if wrong == nil {
		wrong = []string{}
	}
	wrongJSON, err := json.Marshal(wrong)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exam_attempts (id, started_at, ended_at, score, total, percentage, passed, finish_reason, wrong_ids)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID,
		attempt.StartedAt.UTC().Format(timeLayout),
		attempt.EndedAt.UTC().Format(timeLayout),
		attempt.Score,
		attempt.Total,
		attempt.Percentage,
		boolToInt(attempt.Passed),
		attempt.FinishReason,
		string(wrongJSON),
	)
	return err
}

// ListExamAttempts returns the most recent attempts in chronological order.
// A non-positive last returns every attempt.
func (s *Store) ListExamAttempts(ctx context.Context, last int) ([]model.ExamAttempt, error) {
	limit := last
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, ended_at, score, total, percentage, passed, finish_reason, wrong_ids
		 FROM (SELECT * FROM exam_attempts ORDER BY ended_at DESC LIMIT ?)
		 ORDER BY ended_at ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var attempts []model.ExamAttempt
	for rows.Next() {
		var a model.ExamAttempt
		var startedAt, endedAt, wrongJSON string
		var passed int
		if err := rows.Scan(&a.ID, &startedAt, &endedAt, &a.Score, &a.Total, &a.Percentage, &passed, &a.FinishReason, &wrongJSON); err != nil {
			return nil, err
		}
		if a.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, err
		}
		if a.EndedAt, err = time.Parse(timeLayout, endedAt); err != nil {
			return nil, err
		}
		a.Passed = passed != 0
		if err := json.Unmarshal([]byte(wrongJSON), &a.WrongIDs); err != nil {
			return nil, fmt.Errorf("decode wrong ids for attempt %s: %w", a.ID, err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attempts, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
