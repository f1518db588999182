package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verte-zerg/rapiddent/internal/applog"
	"github.com/verte-zerg/rapiddent/internal/model"
)

// PostgresProvider serves a shared bank from PostgreSQL. Records are kept as
// JSONB documents and parsed on the way out.
type PostgresProvider struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres connects to dsn and ensures the document tables exist.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresProvider, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is not configured", ErrDataUnavailable)
	}
	connConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse database config: %w", ErrDataUnavailable, err)
	}
	db, err := pgxpool.NewWithConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create database pool: %w", ErrDataUnavailable, err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", ErrDataUnavailable, err)
	}
	p := &PostgresProvider{db: db, logger: applog.OrDiscard(logger)}
	if err := p.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// Close releases the pool.
func (p *PostgresProvider) Close() {
	p.db.Close()
}

func (p *PostgresProvider) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS question_docs (
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scenario_docs (
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_question_docs_type ON question_docs ((doc->>'type'))`,
		`CREATE INDEX IF NOT EXISTS idx_question_docs_scenario ON question_docs ((doc->>'scenario_id'))`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate document tables: %w", err)
		}
	}
	return nil
}

// FetchQuestions returns every question, or only those of typeFilter.
func (p *PostgresProvider) FetchQuestions(ctx context.Context, typeFilter string) ([]model.Question, error) {
	docs, err := p.queryDocs(ctx,
		`SELECT id, doc FROM question_docs WHERE ($1 = '' OR doc->>'type' = $1) ORDER BY id`, typeFilter)
	if err != nil {
		return nil, err
	}
	questions, _ := ParseQuestions(docs, p.logger)
	return questions, nil
}

// FetchQuestionsByIDs returns the questions with the given ids in batches.
func (p *PostgresProvider) FetchQuestionsByIDs(ctx context.Context, ids []string) ([]model.Question, error) {
	return FetchInBatches(ctx, ids, MaxBatchSize, func(ctx context.Context, batch []string) ([]model.Question, error) {
		docs, err := p.queryDocs(ctx, `SELECT id, doc FROM question_docs WHERE id = ANY($1) ORDER BY id`, batch)
		if err != nil {
			return nil, err
		}
		questions, _ := ParseQuestions(docs, p.logger)
		return questions, nil
	})
}

// FetchScenarios returns every scenario.
func (p *PostgresProvider) FetchScenarios(ctx context.Context) ([]model.Scenario, error) {
	docs, err := p.queryDocs(ctx, `SELECT id, doc FROM scenario_docs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	scenarios, _ := ParseScenarios(docs, p.logger)
	return scenarios, nil
}

// FetchQuestionsForScenario returns the questions linked to a scenario.
func (p *PostgresProvider) FetchQuestionsForScenario(ctx context.Context, scenarioID string) ([]model.Question, error) {
	if scenarioID == "" {
		return nil, nil
	}
	docs, err := p.queryDocs(ctx,
		`SELECT id, doc FROM question_docs WHERE doc->>'scenario_id' = $1 ORDER BY id`, scenarioID)
	if err != nil {
		return nil, err
	}
	questions, _ := ParseQuestions(docs, p.logger)
	return questions, nil
}

func (p *PostgresProvider) queryDocs(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query documents: %w", ErrDataUnavailable, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		data := map[string]any{}
		if err := json.Unmarshal(raw, &data); err != nil {
			p.logger.Warn("dropping undecodable document", "id", id, "error", err)
			continue
		}
		docs = append(docs, Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}
	return docs, nil
}

// Publish validates a bundle and writes its valid documents to the shared
// bank, replacing documents with the same id.
func (p *PostgresProvider) Publish(ctx context.Context, bundle Bundle) (ImportReport, error) {
	var report ImportReport
	validQuestions := make([]Document, 0, len(bundle.Questions))
	for _, doc := range bundle.Questions {
		if _, err := ParseQuestion(doc); err != nil {
			p.logger.Warn("rejecting question", "id", doc.ID, "error", err)
			report.Rejected = append(report.Rejected, err)
			continue
		}
		validQuestions = append(validQuestions, doc)
	}
	validScenarios := make([]Document, 0, len(bundle.Scenarios))
	for _, doc := range bundle.Scenarios {
		if _, err := ParseScenario(doc); err != nil {
			p.logger.Warn("rejecting scenario", "id", doc.ID, "error", err)
			report.Rejected = append(report.Rejected, err)
			continue
		}
		validScenarios = append(validScenarios, doc)
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return ImportReport{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback(ctx)
	}()

	if err := upsertDocs(ctx, tx, "question_docs", validQuestions); err != nil {
		return ImportReport{}, err
	}
	if err := upsertDocs(ctx, tx, "scenario_docs", validScenarios); err != nil {
		return ImportReport{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ImportReport{}, fmt.Errorf("failed to commit documents: %w", err)
	}
	report.Questions = len(validQuestions)
	report.Scenarios = len(validScenarios)
	return report, nil
}

func upsertDocs(ctx context.Context, tx pgx.Tx, table string, docs []Document) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`, table)
	for _, doc := range docs {
		raw, err := json.Marshal(doc.Data)
		if err != nil {
			return fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
		}
		if _, err := tx.Exec(ctx, query, doc.ID, raw); err != nil {
			return fmt.Errorf("failed to write document %s: %w", doc.ID, err)
		}
	}
	return nil
}
