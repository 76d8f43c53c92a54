// Package store persists cases, event logs and user feedback to Postgres.
// Persistence is best-effort alongside the calculation flow: a case is saved
// after each computation, every notable action is appended to the event log,
// and feedback references a stored case. Serialized payloads never contain
// the proposer name; it is excluded at the serialization layer.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantbridge/rpucalc/internal/pipeline"
)

// Store wraps a pgx connection pool. Safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects a pool to the given database URL.
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// schemaStatements create the three tables. Each statement is idempotent so
// startup can run them unconditionally.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS cases (
		case_id     TEXT PRIMARY KEY,
		file_hash   TEXT NOT NULL,
		product_id  TEXT NOT NULL,
		result_json JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS event_log (
		id         BIGSERIAL PRIMARY KEY,
		session_id TEXT,
		case_id    TEXT,
		event      TEXT NOT NULL,
		payload    JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id         BIGSERIAL PRIMARY KEY,
		case_id    TEXT,
		session_id TEXT,
		rating     INT,
		comments   TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// InitSchema creates the tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// SaveCase upserts a computed result keyed by its case ID. Recomputing the
// same document and PTD overwrites the stored row instead of duplicating it.
func (s *Store) SaveCase(ctx context.Context, res *pipeline.Result) error {
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	query := `
		INSERT INTO cases (case_id, file_hash, product_id, result_json, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (case_id)
		DO UPDATE SET
			file_hash   = EXCLUDED.file_hash,
			product_id  = EXCLUDED.product_id,
			result_json = EXCLUDED.result_json,
			updated_at  = EXCLUDED.updated_at`

	if _, err := s.pool.Exec(ctx, query, res.CaseID, res.FileHash, res.ProductID, resultJSON, time.Now().UTC()); err != nil {
		return fmt.Errorf("saving case: %w", err)
	}
	return nil
}

// LoadCase retrieves a stored result by case ID. A missing case returns
// (nil, nil).
func (s *Store) LoadCase(ctx context.Context, caseID string) (*pipeline.Result, error) {
	var resultJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT result_json FROM cases WHERE case_id = $1`, caseID).Scan(&resultJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading case: %w", err)
	}

	var res pipeline.Result
	if err := json.Unmarshal(resultJSON, &res); err != nil {
		return nil, fmt.Errorf("unmarshaling case: %w", err)
	}
	return &res, nil
}

// LogEvent emits a structured log line and appends the event to the log
// table. The insert is best-effort: a database failure downgrades to a
// warning so logging never breaks the request path.
func (s *Store) LogEvent(ctx context.Context, sessionID, caseID, event string, payload any) {
	s.logger.Info(event, "session_id", sessionID, "case_id", caseID, "payload", payload)

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("event payload not serializable", "event", event, "error", err)
		payloadJSON = nil
	}

	query := `INSERT INTO event_log (session_id, case_id, event, payload) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, sessionID, caseID, event, payloadJSON); err != nil {
		s.logger.Warn("event log insert failed", "event", event, "error", err)
	}
}

// SaveFeedback records a user's rating and comments for a case.
func (s *Store) SaveFeedback(ctx context.Context, caseID, sessionID string, rating int, comments string) error {
	query := `INSERT INTO feedback (case_id, session_id, rating, comments) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, caseID, sessionID, rating, comments); err != nil {
		return fmt.Errorf("saving feedback: %w", err)
	}
	return nil
}
