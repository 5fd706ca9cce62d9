package domain

import "time"

type SessionStatus string

const (
	StatusInitializing   SessionStatus = "initializing"
	StatusPass1Extract   SessionStatus = "pass_1_extracting"
	StatusPass2Review    SessionStatus = "pass_2_reviewing"
	StatusPass3DeepDive  SessionStatus = "pass_3_deep_dive"
	StatusPass4Validate  SessionStatus = "pass_4_validating"
	StatusPass5Final     SessionStatus = "pass_5_final"
	StatusAwaitingReview SessionStatus = "awaiting_review"
	StatusCompleted      SessionStatus = "completed"
	StatusFailed         SessionStatus = "failed"
)

// Terminal reports whether a session in this status can no longer advance.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s SessionStatus) InProgress() bool {
	return !s.Terminal() && s != StatusAwaitingReview
}

type DocumentType string

const (
	DocTypeDrawings DocumentType = "drawings"
	DocTypeSpecs    DocumentType = "specifications"
	DocTypeAddendum DocumentType = "addendum"
)

// ExtractionDocument is one input file reference. Immutable once its
// session starts.
type ExtractionDocument struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Type        DocumentType `json:"type"`
	StoragePath string       `json:"storage_path"`
	MimeType    string       `json:"mime_type"`
	ContentHash string       `json:"content_hash,omitempty"`
}

// SessionConfig holds per-run pipeline toggles.
type SessionConfig struct {
	MaxPasses           int    `json:"max_passes"`
	EnableDeepDive      bool   `json:"enable_deep_dive"`
	EnableCrossDocument bool   `json:"enable_cross_document"`
	RequireHumanReview  bool   `json:"require_human_review"`
	UseSyntheticData    bool   `json:"use_synthetic_data"`
	ProjectID           string `json:"project_id,omitempty"`
}

// PassCount is the number of passes this configuration will run,
// clamped to the five the pipeline defines.
func (c SessionConfig) PassCount() int {
	n := c.MaxPasses
	if n <= 0 || n > 5 {
		n = 5
	}
	return n
}

// SessionMetrics is a point-in-time snapshot of extraction totals.
type SessionMetrics struct {
	TotalPackages        int            `json:"total_packages"`
	TotalLineItems       int            `json:"total_line_items"`
	TotalObservations    int            `json:"total_observations"`
	CriticalObservations int            `json:"critical_observations"`
	WarningObservations  int            `json:"warning_observations"`
	ConfidenceHistogram  map[string]int `json:"confidence_histogram"`
	DivisionsCovered     []string       `json:"divisions_covered"`
	InputTokens          int64          `json:"input_tokens"`
	OutputTokens         int64          `json:"output_tokens"`
	DocumentsProcessed   int            `json:"documents_processed"`
	DocumentsFailed      int            `json:"documents_failed"`
}

// PassRecord summarizes one completed pipeline pass.
type PassRecord struct {
	Number     int       `json:"number"`
	Name       string    `json:"name"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	ItemsAdded int       `json:"items_added"`
	Skipped    bool      `json:"skipped,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// ExtractionSession is one pipeline run. Owned by the orchestrator and
// mutated only through its state transitions.
type ExtractionSession struct {
	ID            string               `json:"id"`
	Documents     []ExtractionDocument `json:"documents"`
	Config        SessionConfig        `json:"config"`
	Status        SessionStatus        `json:"status"`
	CurrentPass   int                  `json:"current_pass"`
	Progress      int                  `json:"progress"`
	StatusMessage string               `json:"status_message,omitempty"`
	Warning       string               `json:"warning,omitempty"`
	Metrics       SessionMetrics       `json:"metrics"`
	Passes        []PassRecord         `json:"passes"`
	StartedAt     time.Time            `json:"started_at"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
}

// StatusSnapshot is the poll-style read model for a running session.
type StatusSnapshot struct {
	SessionID     string         `json:"session_id"`
	Status        SessionStatus  `json:"status"`
	CurrentPass   int            `json:"current_pass"`
	Progress      int            `json:"progress"`
	StatusMessage string         `json:"status_message,omitempty"`
	Metrics       SessionMetrics `json:"metrics"`
}

// SessionResults is the full output read model for downstream consumers.
type SessionResults struct {
	SessionID    string                 `json:"session_id"`
	Status       SessionStatus          `json:"status"`
	WorkPackages []ExtractedWorkPackage `json:"work_packages"`
	Observations []AIObservation        `json:"observations"`
	Metrics      SessionMetrics         `json:"metrics"`
	Passes       []PassRecord           `json:"passes"`
	Warning      string                 `json:"warning,omitempty"`
}
