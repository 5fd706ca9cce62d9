package domain

type ClassificationMethod string

const (
	MethodPattern ClassificationMethod = "pattern"
	MethodContent ClassificationMethod = "content"
	MethodDefault ClassificationMethod = "default"
)

// PageClassification is the per-page output of the page classifier.
// Produced once, read-only thereafter.
type PageClassification struct {
	DocumentID      string               `json:"document_id"`
	PageNumber      int                  `json:"page_number"`
	SheetLabel      string               `json:"sheet_label,omitempty"`
	Trade           string               `json:"trade"`
	DivisionCode    string               `json:"division_code"`
	SectionCode     string               `json:"section_code,omitempty"`
	PageType        string               `json:"page_type,omitempty"`
	Confidence      float64              `json:"confidence"`
	Method          ClassificationMethod `json:"method"`
	MatchedKeywords []string             `json:"matched_keywords,omitempty"`
}

// TradeGroup scopes a set of pages that share a trade. Used for pass
// scoping and progress display only, never persisted.
type TradeGroup struct {
	Trade        string `json:"trade"`
	DivisionCode string `json:"division_code"`
	Pages        []int  `json:"pages"`
	Status       string `json:"status,omitempty"`
	ItemsFound   int    `json:"items_found"`
}

// DocumentClassification aggregates per-page results for one document.
type DocumentClassification struct {
	Classifications []PageClassification  `json:"classifications"`
	TradeGroups     []TradeGroup          `json:"trade_groups"`
	CSIGroups       map[string][]int      `json:"csi_groups"`
	Summary         ClassificationSummary `json:"summary"`
}

type ClassificationSummary struct {
	TotalPages     int      `json:"total_pages"`
	TradesFound    []string `json:"trades_found"`
	PatternMatched int      `json:"pattern_matched"`
	ContentMatched int      `json:"content_matched"`
	Defaulted      int      `json:"defaulted"`
	AvgConfidence  float64  `json:"avg_confidence"`
}
