package domain

// ResponseKind tags which strict envelope a model response must satisfy.
type ResponseKind string

const (
	KindExtraction  ResponseKind = "extraction"
	KindReview      ResponseKind = "review"
	KindCorrelation ResponseKind = "correlation"
)

// ExtractionResult is the strict internal form of one model response
// after envelope validation. Untyped model JSON never crosses the
// adapter boundary: it is coerced into this shape or degraded to an
// empty result with the raw text retained.
type ExtractionResult struct {
	ProjectName        string              `json:"project_name,omitempty"`
	ProjectDescription string              `json:"project_description,omitempty"`
	Packages           []ResultPackage     `json:"packages"`
	Observations       []ResultObservation `json:"observations,omitempty"`
	Confidence         ConfidenceLevel     `json:"extraction_confidence"`
	RawText            string              `json:"raw_text,omitempty"`
	Repaired           bool                `json:"repaired,omitempty"`
	DocumentID         string              `json:"document_id,omitempty"`
	PageNumber         int                 `json:"page_number,omitempty"`
}

// ResultPackage is one trade-scoped bundle inside a single response.
type ResultPackage struct {
	Name         string       `json:"name"`
	Trade        string       `json:"trade,omitempty"`
	DivisionCode string       `json:"division_code,omitempty"`
	SectionCode  string       `json:"section_code,omitempty"`
	Confidence   float64      `json:"confidence,omitempty"`
	Reasoning    string       `json:"reasoning,omitempty"`
	Complexity   string       `json:"complexity,omitempty"`
	Items        []ResultItem `json:"items"`
}

// ResultItem is one line item as reported by the model.
type ResultItem struct {
	ItemNumber     string  `json:"item_number,omitempty"`
	Description    string  `json:"description"`
	Action         string  `json:"action,omitempty"`
	Quantity       float64 `json:"quantity,omitempty"`
	Unit           string  `json:"unit,omitempty"`
	Specifications string  `json:"specifications,omitempty"`
	Notes          string  `json:"notes,omitempty"`
	SheetLabel     string  `json:"sheet_label,omitempty"`
	PageNumber     int     `json:"page_number,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
}

// ResultObservation is a flagged concern inside a review or
// correlation response.
type ResultObservation struct {
	Severity         string   `json:"severity"`
	Category         string   `json:"category,omitempty"`
	Title            string   `json:"title"`
	Insight          string   `json:"insight,omitempty"`
	AffectedPackages []string `json:"affected_packages,omitempty"`
	AffectedItems    []string `json:"affected_items,omitempty"`
	SuggestedActions []string `json:"suggested_actions,omitempty"`
}

// TokenUsage accounts for one model invocation.
type TokenUsage struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens,omitempty"`
	CacheCreationTokens int64 `json:"cache_creation_tokens,omitempty"`
}

func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheReadTokens += other.CacheReadTokens
	u.CacheCreationTokens += other.CacheCreationTokens
}

// DocumentResult is the per-document outcome of a fan-out pass. A
// failed document carries its error without cancelling siblings.
type DocumentResult struct {
	DocumentID string            `json:"document_id"`
	Result     *ExtractionResult `json:"result,omitempty"`
	Usage      TokenUsage        `json:"usage"`
	Err        error             `json:"-"`
	ErrMessage string            `json:"error,omitempty"`
}
