package usecase

import (
	"sort"
	"strings"
	"unicode"

	"github.com/graymont/bidpipe/internal/core/domain"
)

// PageInput is one page as handed to the classifier: the sheet label
// when the source carries one, and whatever text could be pulled from
// the page.
type PageInput struct {
	DocumentID string
	PageNumber int
	SheetLabel string
	Text       string
}

type prefixRule struct {
	trade        string
	divisionCode string
	sectionCode  string
}

// Two-character prefixes are checked before one-character prefixes so
// that FP resolves to fire protection, not the F fallback.
var twoCharPrefixes = map[string]prefixRule{
	"FP": {trade: "Fire Protection", divisionCode: "21"},
	"FA": {trade: "Fire Alarm", divisionCode: "28"},
	"AV": {trade: "Audio Visual", divisionCode: "27", sectionCode: "27 41 00"},
	"EL": {trade: "Electrical", divisionCode: "26"},
	"ME": {trade: "Mechanical", divisionCode: "23"},
	"PL": {trade: "Plumbing", divisionCode: "22"},
	"SK": {trade: "Structural", divisionCode: "05"},
	"ID": {trade: "Interiors", divisionCode: "09"},
}

var oneCharPrefixes = map[string]prefixRule{
	"A": {trade: "Architectural", divisionCode: "06"},
	"S": {trade: "Structural", divisionCode: "05"},
	"M": {trade: "Mechanical", divisionCode: "23"},
	"E": {trade: "Electrical", divisionCode: "26"},
	"P": {trade: "Plumbing", divisionCode: "22"},
	"C": {trade: "Civil", divisionCode: "31"},
	"L": {trade: "Landscape", divisionCode: "32"},
	"F": {trade: "Fire Protection", divisionCode: "21"},
	"T": {trade: "Telecommunications", divisionCode: "27"},
	"G": {trade: "General", divisionCode: "01"},
	"D": {trade: "Demolition", divisionCode: "02"},
	"I": {trade: "Interiors", divisionCode: "09"},
	"Q": {trade: "Equipment", divisionCode: "11"},
}

var tradeKeywords = map[string]struct {
	divisionCode string
	keywords     []string
}{
	"Mechanical":      {"23", []string{"hvac", "ductwork", "air handler", "vav", "chiller", "diffuser", "exhaust fan", "rooftop unit"}},
	"Electrical":      {"26", []string{"panelboard", "conduit", "receptacle", "circuit", "lighting fixture", "switchgear", "transformer", "breaker"}},
	"Plumbing":        {"22", []string{"sanitary", "domestic water", "fixture", "water heater", "vent pipe", "floor drain", "backflow"}},
	"Fire Protection": {"21", []string{"sprinkler", "standpipe", "fire pump", "fdc", "wet pipe", "dry pipe"}},
	"Structural":      {"05", []string{"rebar", "steel beam", "footing", "column schedule", "shear wall", "joist", "baseplate"}},
	"Civil":           {"31", []string{"grading", "earthwork", "storm drain", "paving", "excavation", "site utility"}},
	"Architectural":   {"06", []string{"partition", "casework", "millwork", "door schedule", "finish schedule", "ceiling plan", "storefront"}},
	"Landscape":       {"32", []string{"irrigation", "planting", "hardscape", "sod", "tree protection"}},
}

// PageClassifier assigns each page a trade and classification code from
// its sheet-label prefix or, failing that, content keywords. It never
// returns an error: absence of a match degrades to a lower-confidence
// result.
type PageClassifier struct{}

func NewPageClassifier() *PageClassifier {
	return &PageClassifier{}
}

func (c *PageClassifier) Classify(page PageInput) domain.PageClassification {
	if cls, ok := c.classifyByPattern(page); ok {
		return cls
	}
	if cls, ok := c.classifyByContent(page); ok {
		return cls
	}
	return c.classifyByDefault(page)
}

func (c *PageClassifier) classifyByPattern(page PageInput) (domain.PageClassification, bool) {
	prefix := sheetPrefix(page.SheetLabel)
	if prefix == "" {
		return domain.PageClassification{}, false
	}

	if len(prefix) >= 2 {
		if rule, ok := twoCharPrefixes[prefix[:2]]; ok {
			return pageClassification(page, rule, 0.95, domain.MethodPattern, nil), true
		}
	}
	if rule, ok := oneCharPrefixes[prefix[:1]]; ok {
		return pageClassification(page, rule, 0.9, domain.MethodPattern, nil), true
	}
	return domain.PageClassification{}, false
}

// classifyByContent scans the page text for trade keyword sets. At
// least two distinct keyword hits are required to accept a trade.
func (c *PageClassifier) classifyByContent(page PageInput) (domain.PageClassification, bool) {
	text := strings.ToLower(page.Text)
	if text == "" {
		return domain.PageClassification{}, false
	}

	bestTrade := ""
	var bestHits []string
	for trade, set := range tradeKeywords {
		var hits []string
		for _, kw := range set.keywords {
			if strings.Contains(text, kw) {
				hits = append(hits, kw)
			}
		}
		if len(hits) < 2 {
			continue
		}
		if len(hits) > len(bestHits) || (len(hits) == len(bestHits) && trade < bestTrade) {
			bestTrade = trade
			bestHits = hits
		}
	}
	if bestTrade == "" {
		return domain.PageClassification{}, false
	}

	sort.Strings(bestHits)
	confidence := 0.5 + 0.1*float64(len(bestHits))
	if confidence > 0.85 {
		confidence = 0.85
	}
	rule := prefixRule{trade: bestTrade, divisionCode: tradeKeywords[bestTrade].divisionCode}
	return pageClassification(page, rule, confidence, domain.MethodContent, bestHits), true
}

// classifyByDefault is the last resort: a coarse content-length
// heuristic with confidence below 0.5.
func (c *PageClassifier) classifyByDefault(page PageInput) domain.PageClassification {
	cls := pageClassification(page, prefixRule{trade: "General", divisionCode: "01"}, 0.2, domain.MethodDefault, nil)
	cls.PageType = "drawing"
	if len(page.Text) > 1500 {
		cls.PageType = "specification"
		cls.Confidence = 0.3
	}
	return cls
}

// ClassifyDocument classifies every page and groups the results by
// trade and by classification code.
func (c *PageClassifier) ClassifyDocument(pages []PageInput) domain.DocumentClassification {
	out := domain.DocumentClassification{
		CSIGroups: make(map[string][]int),
	}

	groups := make(map[string]*domain.TradeGroup)
	var groupOrder []string
	var confidenceSum float64
	tradesSeen := make(map[string]bool)

	for _, page := range pages {
		cls := c.Classify(page)
		out.Classifications = append(out.Classifications, cls)
		confidenceSum += cls.Confidence

		switch cls.Method {
		case domain.MethodPattern:
			out.Summary.PatternMatched++
		case domain.MethodContent:
			out.Summary.ContentMatched++
		default:
			out.Summary.Defaulted++
		}

		group, ok := groups[cls.Trade]
		if !ok {
			group = &domain.TradeGroup{Trade: cls.Trade, DivisionCode: cls.DivisionCode}
			groups[cls.Trade] = group
			groupOrder = append(groupOrder, cls.Trade)
		}
		group.Pages = append(group.Pages, cls.PageNumber)
		out.CSIGroups[cls.DivisionCode] = append(out.CSIGroups[cls.DivisionCode], cls.PageNumber)

		if !tradesSeen[cls.Trade] {
			tradesSeen[cls.Trade] = true
			out.Summary.TradesFound = append(out.Summary.TradesFound, cls.Trade)
		}
	}

	for _, trade := range groupOrder {
		out.TradeGroups = append(out.TradeGroups, *groups[trade])
	}

	out.Summary.TotalPages = len(pages)
	if len(pages) > 0 {
		out.Summary.AvgConfidence = confidenceSum / float64(len(pages))
	}
	return out
}

// UnclassifiedPages filters already-computed classifications below a
// caller-supplied confidence threshold. It never reclassifies.
func (c *PageClassifier) UnclassifiedPages(classifications []domain.PageClassification, threshold float64) []domain.PageClassification {
	var out []domain.PageClassification
	for _, cls := range classifications {
		if cls.Confidence < threshold {
			out = append(out, cls)
		}
	}
	return out
}

func pageClassification(page PageInput, rule prefixRule, confidence float64, method domain.ClassificationMethod, keywords []string) domain.PageClassification {
	return domain.PageClassification{
		DocumentID:      page.DocumentID,
		PageNumber:      page.PageNumber,
		SheetLabel:      page.SheetLabel,
		Trade:           rule.trade,
		DivisionCode:    rule.divisionCode,
		SectionCode:     rule.sectionCode,
		Confidence:      confidence,
		Method:          method,
		MatchedKeywords: keywords,
	}
}

// sheetPrefix extracts the alphabetic lead characters of a sheet label,
// uppercased, tolerating separators like "-" or ".".
func sheetPrefix(label string) string {
	label = strings.TrimSpace(label)
	var b strings.Builder
	for _, r := range label {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		break
	}
	return b.String()
}
