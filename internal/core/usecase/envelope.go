package usecase

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/graymont/bidpipe/internal/core/domain"
)

// Model responses are validated against one strict envelope per
// response kind before anything is coerced into domain structs.
// Untyped model JSON never travels past this point.

const extractionSchemaJSON = `{
  "type": "object",
  "properties": {
    "project_name": {"type": ["string", "null"]},
    "project_description": {"type": ["string", "null"]},
    "extraction_confidence": {"type": "string"},
    "packages": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["name", "items"],
        "properties": {
          "name": {"type": "string"},
          "trade": {"type": "string"},
          "division_code": {"type": "string"},
          "section_code": {"type": "string"},
          "confidence": {"type": "number"},
          "items": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["description"],
              "properties": {
                "description": {"type": "string"},
                "quantity": {"type": ["number", "null"]},
                "unit": {"type": ["string", "null"]},
                "confidence": {"type": "number"}
              }
            }
          }
        }
      }
    }
  }
}`

const reviewSchemaJSON = `{
  "type": "object",
  "properties": {
    "extraction_confidence": {"type": "string"},
    "packages": {"type": ["array", "null"]},
    "observations": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["severity", "title"],
        "properties": {
          "severity": {"type": "string", "enum": ["critical", "warning", "info"]},
          "category": {"type": "string"},
          "title": {"type": "string"},
          "insight": {"type": "string"},
          "affected_packages": {"type": "array", "items": {"type": "string"}},
          "affected_items": {"type": "array", "items": {"type": "string"}},
          "suggested_actions": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var (
	extractionSchema  = jsonschema.MustCompileString("extraction.json", extractionSchemaJSON)
	reviewSchema      = jsonschema.MustCompileString("review.json", reviewSchemaJSON)
	correlationSchema = jsonschema.MustCompileString("correlation.json", reviewSchemaJSON)
)

func schemaFor(kind domain.ResponseKind) *jsonschema.Schema {
	switch kind {
	case domain.KindReview:
		return reviewSchema
	case domain.KindCorrelation:
		return correlationSchema
	default:
		return extractionSchema
	}
}

func decodeEnvelope(payload string, kind domain.ResponseKind) (*domain.ExtractionResult, bool) {
	var untyped any
	if err := json.Unmarshal([]byte(payload), &untyped); err != nil {
		return nil, false
	}
	if err := schemaFor(kind).Validate(untyped); err != nil {
		return nil, false
	}

	var result domain.ExtractionResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, false
	}
	normalizeResult(&result)
	return &result, true
}

func normalizeResult(result *domain.ExtractionResult) {
	switch strings.ToLower(string(result.Confidence)) {
	case "high":
		result.Confidence = domain.ConfidenceHigh
	case "low":
		result.Confidence = domain.ConfidenceLow
	default:
		result.Confidence = domain.ConfidenceMedium
	}

	for i := range result.Packages {
		pkg := &result.Packages[i]
		pkg.Name = strings.TrimSpace(pkg.Name)
		pkg.Confidence = clamp01(pkg.Confidence)
		for j := range pkg.Items {
			pkg.Items[j].Confidence = clamp01(pkg.Items[j].Confidence)
		}
	}
	for i := range result.Observations {
		obs := &result.Observations[i]
		switch strings.ToLower(obs.Severity) {
		case string(domain.SeverityCritical), string(domain.SeverityWarning):
			obs.Severity = strings.ToLower(obs.Severity)
		default:
			obs.Severity = string(domain.SeverityInfo)
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
