package domain

type CorrectionKind string

const (
	KindFieldCorrection  CorrectionKind = "field_correction"
	KindAddLineItem      CorrectionKind = "add_line_item"
	KindDeleteLineItem   CorrectionKind = "delete_line_item"
	KindObservationState CorrectionKind = "observation_disposition"
)

type EntityType string

const (
	EntityLineItem    EntityType = "line_item"
	EntityWorkPackage EntityType = "work_package"
	EntityObservation EntityType = "observation"
)

// Correction is one reviewer action against an extracted entity. Which
// fields are meaningful depends on Kind.
type Correction struct {
	Kind           CorrectionKind   `json:"kind"`
	EntityType     EntityType       `json:"entity_type"`
	EntityID       string           `json:"entity_id"`
	Field          string           `json:"field,omitempty"`
	OriginalValue  string           `json:"original_value,omitempty"`
	CorrectedValue string           `json:"corrected_value,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	PackageID      string           `json:"package_id,omitempty"`
	NewItem        *ResultItem      `json:"new_item,omitempty"`
	Disposition    ObservationState `json:"disposition,omitempty"`
	Response       string           `json:"response,omitempty"`
}

// CorrectionBatch applies many corrections, each atomically on its own.
type CorrectionBatch struct {
	SessionID    string       `json:"session_id"`
	ReviewerID   string       `json:"reviewer_id"`
	ReviewerName string       `json:"reviewer_name,omitempty"`
	Corrections  []Correction `json:"corrections"`
}

// CorrectionOutcome reports one batch item's result.
type CorrectionOutcome struct {
	Index    int    `json:"index"`
	EntityID string `json:"entity_id,omitempty"`
	Applied  bool   `json:"applied"`
	Error    string `json:"error,omitempty"`
}

// BatchOutcome aggregates per-item outcomes. One failing item never
// aborts the rest of the batch.
type BatchOutcome struct {
	Applied  int                 `json:"applied"`
	Failed   int                 `json:"failed"`
	Outcomes []CorrectionOutcome `json:"outcomes"`
}
