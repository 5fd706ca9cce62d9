package ports

import (
	"context"

	"github.com/graymont/bidpipe/internal/core/domain"
)

// BatchRequest is a batch extraction submission.
type BatchRequest struct {
	Documents []domain.ExtractionDocument `json:"documents"`
	Config    domain.SessionConfig        `json:"config"`
}

// ExtractionService is the inbound contract for running and observing
// extraction sessions.
type ExtractionService interface {
	StartBatch(ctx context.Context, req BatchRequest) (*domain.ExtractionSession, error)
	Run(ctx context.Context, sessionID string) error
	GetStatus(ctx context.Context, sessionID string) (*domain.StatusSnapshot, error)
	GetResults(ctx context.Context, sessionID string) (*domain.SessionResults, error)
}

// CorrectionService is the inbound contract for the correction ledger.
type CorrectionService interface {
	Apply(ctx context.Context, sessionID, reviewerID string, correction domain.Correction) error
	ApplyBatch(ctx context.Context, batch domain.CorrectionBatch) (*domain.BatchOutcome, error)
}
