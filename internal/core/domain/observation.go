package domain

import "time"

type ObservationSeverity string

const (
	SeverityCritical ObservationSeverity = "critical"
	SeverityWarning  ObservationSeverity = "warning"
	SeverityInfo     ObservationSeverity = "info"
)

type ObservationState string

const (
	ObservationPending      ObservationState = "pending"
	ObservationAcknowledged ObservationState = "acknowledged"
	ObservationDismissed    ObservationState = "dismissed"
	ObservationResponded    ObservationState = "responded"
)

// AIObservation is a flagged concern independent of any single line
// item, produced during review and validation passes. The pipeline
// never mutates one after creation; only human acknowledgment does.
type AIObservation struct {
	ID               string              `json:"id"`
	SessionID        string              `json:"session_id"`
	Severity         ObservationSeverity `json:"severity"`
	Category         string              `json:"category"`
	Title            string              `json:"title"`
	Insight          string              `json:"insight"`
	AffectedPackages []string            `json:"affected_packages,omitempty"`
	AffectedItems    []string            `json:"affected_items,omitempty"`
	SuggestedActions []string            `json:"suggested_actions,omitempty"`
	State            ObservationState    `json:"state"`
	Response         string              `json:"response,omitempty"`
	ResponderID      string              `json:"responder_id,omitempty"`
	RespondedAt      *time.Time          `json:"responded_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	Pass             int                 `json:"pass"`
}
