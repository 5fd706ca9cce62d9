package usecase

import (
	"fmt"
	"strings"

	"github.com/graymont/bidpipe/internal/core/domain"
)

const extractionEnvelopeInstructions = `Respond with a single JSON object:
{
  "project_name": "string or null",
  "extraction_confidence": "high" | "medium" | "low",
  "packages": [
    {
      "name": "string",
      "trade": "string",
      "division_code": "two-digit CSI division",
      "confidence": 0.0-1.0,
      "items": [
        {
          "item_number": "string or omit",
          "description": "string",
          "action": "install | demolish | relocate | furnish or omit",
          "quantity": number or omit,
          "unit": "LF, SF, EA, CY, LS, ...",
          "sheet_label": "source sheet or omit",
          "page_number": number or omit,
          "confidence": 0.0-1.0
        }
      ]
    }
  ]
}
Return only the JSON object. If no bid information is present, return an
empty packages array with extraction_confidence "low".`

const observationEnvelopeInstructions = `Respond with a single JSON object:
{
  "extraction_confidence": "high" | "medium" | "low",
  "observations": [
    {
      "severity": "critical" | "warning" | "info",
      "category": "scope_conflict | missing_scope | quantity | coordination",
      "title": "short title",
      "insight": "what was found and why it matters",
      "affected_packages": ["package names"],
      "affected_items": ["line item descriptions or numbers"],
      "suggested_actions": ["actions"]
    }
  ]
}
Return only the JSON object.`

func buildExtractionPrompt(doc domain.ExtractionDocument, cls domain.DocumentClassification) string {
	var b strings.Builder
	b.WriteString("Analyze this construction document and extract every bid item, grouped into trade-scoped work packages.\n")
	fmt.Fprintf(&b, "Document: %s (%s)\n", doc.Name, doc.Type)

	if len(cls.TradeGroups) > 0 {
		b.WriteString("Pages have been pre-classified by trade; scope each package to its trade:\n")
		for _, group := range cls.TradeGroups {
			fmt.Fprintf(&b, "- %s (division %s): pages %v\n", group.Trade, group.DivisionCode, group.Pages)
		}
	}

	b.WriteString("\nExtract for every line item: description of work or material, quantity and unit when specified, item numbers, and relevant notes or specifications.\n\n")
	b.WriteString(extractionEnvelopeInstructions)
	return b.String()
}

func buildReviewPrompt(packages []domain.ExtractedWorkPackage) string {
	var b strings.Builder
	b.WriteString("Review your own extraction of this bid set for completeness and internal consistency. Flag missing scope, implausible quantities, and conflicts between packages.\n\n")
	writePackageSummary(&b, packages)
	b.WriteString("\n")
	b.WriteString(observationEnvelopeInstructions)
	return b.String()
}

func buildDeepDivePrompt(group domain.TradeGroup, packages []domain.ExtractedWorkPackage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deep dive on the %s trade (division %s). Re-read the source pages (%v) and extract any line items missed in the first pass. Do not repeat items already extracted.\n\n", group.Trade, group.DivisionCode, group.Pages)
	b.WriteString("Already extracted:\n")
	for _, pkg := range packages {
		if pkg.Trade != group.Trade {
			continue
		}
		for _, item := range pkg.LineItems {
			fmt.Fprintf(&b, "- %s\n", item.Description)
		}
	}
	b.WriteString("\n")
	b.WriteString(extractionEnvelopeInstructions)
	return b.String()
}

func buildCorrelationPrompt(documents []domain.ExtractionDocument, packages []domain.ExtractedWorkPackage) string {
	var b strings.Builder
	b.WriteString("Correlate the extracted bid data across all source documents. Flag scope that appears in one document but not another, addendum changes not reflected in the drawings, and duplicated scope between packages.\n\nDocuments:\n")
	for _, doc := range documents {
		fmt.Fprintf(&b, "- %s (%s)\n", doc.Name, doc.Type)
	}
	b.WriteString("\n")
	writePackageSummary(&b, packages)
	b.WriteString("\n")
	b.WriteString(observationEnvelopeInstructions)
	return b.String()
}

func buildValidationPrompt(packages []domain.ExtractedWorkPackage) string {
	var b strings.Builder
	b.WriteString("Final validation of the extracted bid package set. Confirm each package is complete and coherent; flag anything a human estimator must verify before this data is used for bidding.\n\n")
	writePackageSummary(&b, packages)
	b.WriteString("\n")
	b.WriteString(observationEnvelopeInstructions)
	return b.String()
}

func writePackageSummary(b *strings.Builder, packages []domain.ExtractedWorkPackage) {
	fmt.Fprintf(b, "Current work packages (%d):\n", len(packages))
	for _, pkg := range packages {
		fmt.Fprintf(b, "- %s [%s, division %s]: %d items\n", pkg.Name, pkg.Trade, pkg.Classification.DivisionCode, pkg.ItemCount)
		for i, item := range pkg.LineItems {
			if i >= 20 {
				fmt.Fprintf(b, "  ... %d more\n", len(pkg.LineItems)-i)
				break
			}
			if item.Quantity > 0 {
				fmt.Fprintf(b, "  - %s (%.4g %s)\n", item.Description, item.Quantity, item.Unit)
			} else {
				fmt.Fprintf(b, "  - %s\n", item.Description)
			}
		}
	}
}
