package domain

import "time"

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Classification ties a package or line item to a CSI division/section.
type Classification struct {
	DivisionCode string  `json:"division_code"`
	SectionCode  string  `json:"section_code,omitempty"`
	Title        string  `json:"title,omitempty"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning,omitempty"`
}

// SourceRef points a line item back at the page it was read from.
type SourceRef struct {
	DocumentID string `json:"document_id,omitempty"`
	SheetLabel string `json:"sheet_label,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
	Bounds     string `json:"bounds,omitempty"`
}

// CorrectionEntry is one human edit recorded against a field.
type CorrectionEntry struct {
	Field       string    `json:"field"`
	Original    string    `json:"original"`
	Corrected   string    `json:"corrected"`
	Reason      string    `json:"reason,omitempty"`
	ReviewerID  string    `json:"reviewer_id,omitempty"`
	CorrectedAt time.Time `json:"corrected_at"`
}

// ExtractedLineItem is the smallest unit of extracted scope. Each item
// belongs to exactly one work package.
type ExtractedLineItem struct {
	ID             string            `json:"id"`
	ItemNumber     string            `json:"item_number,omitempty"`
	Description    string            `json:"description"`
	Action         string            `json:"action,omitempty"`
	Quantity       float64           `json:"quantity,omitempty"`
	Unit           string            `json:"unit,omitempty"`
	Specifications string            `json:"specifications,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	Source         SourceRef         `json:"source"`
	OrderIndex     int               `json:"order_index"`
	Confidence     float64           `json:"confidence"`
	CSICode        string            `json:"csi_code,omitempty"`
	CSITitle       string            `json:"csi_title,omitempty"`
	Deleted        bool              `json:"deleted,omitempty"`
	Corrections    []CorrectionEntry `json:"corrections,omitempty"`
}

// Provenance records which pass and model produced a package.
type Provenance struct {
	ExtractedBy    string    `json:"extracted_by"`
	ExtractedAt    time.Time `json:"extracted_at"`
	Pass           int       `json:"pass"`
	HumanReviewed  bool      `json:"human_reviewed"`
	RepairedOutput bool      `json:"repaired_output,omitempty"`
}

// ExtractedWorkPackage is a trade-scoped bundle of line items. Packages
// are created in pass 1 and enriched by later passes, never deleted
// within a session.
type ExtractedWorkPackage struct {
	ID             string              `json:"id"`
	PackageID      string              `json:"package_id"`
	SessionID      string              `json:"session_id"`
	Name           string              `json:"name"`
	Trade          string              `json:"trade"`
	Classification Classification     `json:"classification"`
	LineItems      []ExtractedLineItem `json:"line_items"`
	ItemCount      int                 `json:"item_count"`
	Complexity     string              `json:"complexity,omitempty"`
	KeyDocuments   []string            `json:"key_documents,omitempty"`
	Confidence     ConfidenceLevel     `json:"confidence"`
	Provenance     Provenance          `json:"provenance"`
}

// LiveItemCount counts non-deleted line items. The ItemCount field must
// always equal this value.
func (p *ExtractedWorkPackage) LiveItemCount() int {
	n := 0
	for i := range p.LineItems {
		if !p.LineItems[i].Deleted {
			n++
		}
	}
	return n
}

// NextOrderIndex returns the order index for a newly inserted item.
func (p *ExtractedWorkPackage) NextOrderIndex() int {
	max := -1
	for i := range p.LineItems {
		if p.LineItems[i].OrderIndex > max {
			max = p.LineItems[i].OrderIndex
		}
	}
	return max + 1
}
