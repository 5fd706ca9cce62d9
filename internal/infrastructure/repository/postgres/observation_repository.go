package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/graymont/bidpipe/internal/core/domain"
)

type ObservationRepository struct {
	db *sql.DB
}

func NewObservationRepository(db *sql.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

func (r *ObservationRepository) InsertObservations(ctx context.Context, observations []domain.AIObservation) error {
	if len(observations) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert observations: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := range observations {
		obs := &observations[i]
		affectedPackages, err := json.Marshal(obs.AffectedPackages)
		if err != nil {
			return fmt.Errorf("marshal affected packages: %w", err)
		}
		affectedItems, err := json.Marshal(obs.AffectedItems)
		if err != nil {
			return fmt.Errorf("marshal affected items: %w", err)
		}
		suggestedActions, err := json.Marshal(obs.SuggestedActions)
		if err != nil {
			return fmt.Errorf("marshal suggested actions: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO observations (id, session_id, severity, category, title, insight, affected_packages, affected_items, suggested_actions, state, response, responder_id, responded_at, created_at, pass)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`, obs.ID, obs.SessionID, string(obs.Severity), obs.Category, obs.Title, obs.Insight,
			affectedPackages, affectedItems, suggestedActions, string(obs.State),
			obs.Response, obs.ResponderID, obs.RespondedAt, obs.CreatedAt, obs.Pass)
		if err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert observations: %w", err)
	}
	return nil
}

func (r *ObservationRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.AIObservation, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, severity, category, title, insight, affected_packages, affected_items, suggested_actions, state, response, responder_id, responded_at, created_at, pass
FROM observations
WHERE session_id = $1
ORDER BY pass, created_at
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AIObservation, 0)
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return out, nil
}

func (r *ObservationRepository) GetObservation(ctx context.Context, id string) (*domain.AIObservation, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, session_id, severity, category, title, insight, affected_packages, affected_items, suggested_actions, state, response, responder_id, responded_at, created_at, pass
FROM observations
WHERE id = $1
`, id)

	obs, err := scanObservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrEntityNotFound, "get observation", err)
		}
		return nil, fmt.Errorf("get observation: %w", err)
	}
	return obs, nil
}

func (r *ObservationRepository) UpdateObservationState(ctx context.Context, obs *domain.AIObservation) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE observations
SET state = $2, response = $3, responder_id = $4, responded_at = $5
WHERE id = $1
`, obs.ID, string(obs.State), obs.Response, obs.ResponderID, obs.RespondedAt)
	if err != nil {
		return fmt.Errorf("update observation state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update observation state rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrEntityNotFound, "update observation state", sql.ErrNoRows)
	}
	return nil
}

func scanObservation(row rowScanner) (*domain.AIObservation, error) {
	var (
		obs              domain.AIObservation
		severity         string
		state            string
		affectedPackages []byte
		affectedItems    []byte
		suggestedActions []byte
	)
	err := row.Scan(&obs.ID, &obs.SessionID, &severity, &obs.Category, &obs.Title, &obs.Insight,
		&affectedPackages, &affectedItems, &suggestedActions, &state,
		&obs.Response, &obs.ResponderID, &obs.RespondedAt, &obs.CreatedAt, &obs.Pass)
	if err != nil {
		return nil, err
	}
	obs.Severity = domain.ObservationSeverity(severity)
	obs.State = domain.ObservationState(state)
	if err := json.Unmarshal(affectedPackages, &obs.AffectedPackages); err != nil {
		return nil, fmt.Errorf("unmarshal affected packages: %w", err)
	}
	if err := json.Unmarshal(affectedItems, &obs.AffectedItems); err != nil {
		return nil, fmt.Errorf("unmarshal affected items: %w", err)
	}
	if err := json.Unmarshal(suggestedActions, &obs.SuggestedActions); err != nil {
		return nil, fmt.Errorf("unmarshal suggested actions: %w", err)
	}
	return &obs, nil
}
