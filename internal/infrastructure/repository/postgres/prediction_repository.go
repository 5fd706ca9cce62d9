package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/graymont/bidpipe/internal/core/domain"
)

// PredictionRepository is an append-only ledger; records are never
// updated or deleted.
type PredictionRepository struct {
	db *sql.DB
}

func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) AppendPrediction(ctx context.Context, record *domain.PredictionRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO prediction_records (id, session_id, entity_type, entity_id, field, predicted_value, predicted_confidence, predicted_by_pass, predicted_by_model, final_value, final_source, was_correct, context, recorded_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`, record.ID, record.SessionID, record.EntityType, record.EntityID, record.Field,
		record.PredictedValue, record.PredictedConfidence, record.PredictedByPass, record.PredictedByModel,
		record.FinalValue, string(record.FinalSource), record.WasCorrect, record.Context, record.RecordedAt)
	if err != nil {
		return fmt.Errorf("append prediction: %w", err)
	}
	return nil
}
