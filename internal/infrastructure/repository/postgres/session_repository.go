package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/graymont/bidpipe/internal/core/domain"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) CreateSession(ctx context.Context, session *domain.ExtractionSession) error {
	documents, err := json.Marshal(session.Documents)
	if err != nil {
		return fmt.Errorf("marshal session documents: %w", err)
	}
	config, err := json.Marshal(session.Config)
	if err != nil {
		return fmt.Errorf("marshal session config: %w", err)
	}
	metrics, err := json.Marshal(session.Metrics)
	if err != nil {
		return fmt.Errorf("marshal session metrics: %w", err)
	}
	passes, err := json.Marshal(session.Passes)
	if err != nil {
		return fmt.Errorf("marshal session passes: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO extraction_sessions (id, documents, config, status, current_pass, progress, status_message, warning, metrics, passes, started_at, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`, session.ID, documents, config, string(session.Status), session.CurrentPass, session.Progress,
		session.StatusMessage, session.Warning, metrics, passes, session.StartedAt, session.CompletedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetSession(ctx context.Context, id string) (*domain.ExtractionSession, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, documents, config, status, current_pass, progress, status_message, warning, metrics, passes, started_at, completed_at
FROM extraction_sessions
WHERE id = $1
`, id)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", err)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (r *SessionRepository) UpdateSessionState(ctx context.Context, session *domain.ExtractionSession) error {
	metrics, err := json.Marshal(session.Metrics)
	if err != nil {
		return fmt.Errorf("marshal session metrics: %w", err)
	}
	passes, err := json.Marshal(session.Passes)
	if err != nil {
		return fmt.Errorf("marshal session passes: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE extraction_sessions
SET status = $2, current_pass = $3, progress = $4, status_message = $5, warning = $6, metrics = $7, passes = $8, completed_at = $9
WHERE id = $1
`, session.ID, string(session.Status), session.CurrentPass, session.Progress,
		session.StatusMessage, session.Warning, metrics, passes, session.CompletedAt)
	if err != nil {
		return fmt.Errorf("update session state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session state rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrSessionNotFound, "update session state", sql.ErrNoRows)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*domain.ExtractionSession, error) {
	var (
		session   domain.ExtractionSession
		status    string
		documents []byte
		config    []byte
		metrics   []byte
		passes    []byte
	)
	err := row.Scan(&session.ID, &documents, &config, &status, &session.CurrentPass, &session.Progress,
		&session.StatusMessage, &session.Warning, &metrics, &passes, &session.StartedAt, &session.CompletedAt)
	if err != nil {
		return nil, err
	}
	session.Status = domain.SessionStatus(status)
	if err := json.Unmarshal(documents, &session.Documents); err != nil {
		return nil, fmt.Errorf("unmarshal session documents: %w", err)
	}
	if err := json.Unmarshal(config, &session.Config); err != nil {
		return nil, fmt.Errorf("unmarshal session config: %w", err)
	}
	if err := json.Unmarshal(metrics, &session.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal session metrics: %w", err)
	}
	if err := json.Unmarshal(passes, &session.Passes); err != nil {
		return nil, fmt.Errorf("unmarshal session passes: %w", err)
	}
	return &session, nil
}
