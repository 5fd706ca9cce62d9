package ports

import (
	"context"
	"io"

	"github.com/graymont/bidpipe/internal/core/domain"
)

// SessionRepository persists session lifecycle state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *domain.ExtractionSession) error
	GetSession(ctx context.Context, id string) (*domain.ExtractionSession, error)
	UpdateSessionState(ctx context.Context, session *domain.ExtractionSession) error
}

// PackageRepository persists work packages and their line items.
type PackageRepository interface {
	UpsertPackages(ctx context.Context, sessionID string, packages []domain.ExtractedWorkPackage) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.ExtractedWorkPackage, error)
	GetPackage(ctx context.Context, id string) (*domain.ExtractedWorkPackage, error)
	UpdatePackage(ctx context.Context, pkg *domain.ExtractedWorkPackage) error
	GetLineItem(ctx context.Context, id string) (*domain.ExtractedLineItem, string, error)
	UpdateLineItem(ctx context.Context, packageID string, item *domain.ExtractedLineItem) error
	InsertLineItem(ctx context.Context, packageID string, item *domain.ExtractedLineItem) error
	SetItemCount(ctx context.Context, packageID string, count int) error
}

// ObservationRepository persists AI observations and their dispositions.
type ObservationRepository interface {
	InsertObservations(ctx context.Context, observations []domain.AIObservation) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.AIObservation, error)
	GetObservation(ctx context.Context, id string) (*domain.AIObservation, error)
	UpdateObservationState(ctx context.Context, obs *domain.AIObservation) error
}

// PredictionLedger appends prediction-vs-actual audit rows.
type PredictionLedger interface {
	AppendPrediction(ctx context.Context, record *domain.PredictionRecord) error
}

// DocumentStore stores source document bytes.
type DocumentStore interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue hands queued sessions from the API to the worker.
type MessageQueue interface {
	PublishSessionQueued(ctx context.Context, sessionID string) error
	SubscribeSessionQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// ModelDocument is one document prepared for a model invocation. Image
// content travels as raw bytes and is encoded by the adapter; PDF and
// text content travels as per-page extracted text.
type ModelDocument struct {
	ID        string
	Name      string
	MimeType  string
	ImageData []byte
	PageTexts []string
}

// ModelRequest is one invocation of the document-understanding model.
type ModelRequest struct {
	Kind         domain.ResponseKind
	Instructions string
	Documents    []ModelDocument
}

// ModelResponse carries the raw model text plus usage accounting.
// Parsing and repair belong to the combiner, not the adapter.
type ModelResponse struct {
	Text  string
	Model string
	Usage domain.TokenUsage
}

// DocumentModel invokes the external document-understanding model.
// Implementations must not retry: a failed call propagates to the
// orchestrator, which decides whether the unit is skippable.
type DocumentModel interface {
	Extract(ctx context.Context, req ModelRequest) (*ModelResponse, error)
}

// PageTextExtractor pulls per-page plain text out of a stored document.
type PageTextExtractor interface {
	ExtractPages(ctx context.Context, doc domain.ExtractionDocument) ([]string, error)
}

// TaxonomyHit is one ranked CSI taxonomy entry.
type TaxonomyHit struct {
	Code  string
	Title string
	Score float64
}

// TaxonomyIndex performs ranked text search over the CSI taxonomy.
// Search is deterministic and side-effect-free.
type TaxonomyIndex interface {
	Search(query string, divisionHint string, limit int) []TaxonomyHit
}
