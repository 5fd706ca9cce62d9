package usecase

import (
	"strings"

	"github.com/graymont/bidpipe/internal/core/domain"
)

const generalDivision = "00"
const generalPackageName = "GENERAL"

// mergeKey is the composite identity of a package across per-page
// results: classification code plus normalized name.
type mergeKey struct {
	division string
	name     string
}

func keyFor(pkg domain.ResultPackage) mergeKey {
	division := strings.TrimSpace(pkg.DivisionCode)
	if division == "" {
		division = generalDivision
	}
	return mergeKey{division: division, name: strings.ToLower(strings.TrimSpace(pkg.Name))}
}

// Combiner merges per-page or per-document extraction results into one
// coherent result.
type Combiner struct{}

func NewCombiner() *Combiner {
	return &Combiner{}
}

// Combine merges results by (classification code, package name).
// First-seen project name and description win; line items from every
// input are concatenated into the matching package, annotated with
// their source page. A single input passes through semantically
// unchanged, as a copy so the caller's value is never mutated. Zero
// inputs or zero packages yield a single GENERAL catch-all so
// downstream consumers never receive an empty collection.
func (c *Combiner) Combine(results []*domain.ExtractionResult) *domain.ExtractionResult {
	results = nonNil(results)

	if len(results) == 1 {
		out := *results[0]
		out.Packages = append([]domain.ResultPackage(nil), out.Packages...)
		if len(out.Packages) == 0 {
			out.Packages = []domain.ResultPackage{generalPackage()}
		}
		return &out
	}
	if len(results) == 0 {
		return &domain.ExtractionResult{
			Packages:   []domain.ResultPackage{generalPackage()},
			Confidence: domain.ConfidenceLow,
		}
	}

	merged := &domain.ExtractionResult{}

	// Insertion-order-preserving accumulator keyed by (division, name)
	// so combined output is deterministic.
	var order []mergeKey
	packages := make(map[mergeKey]*domain.ResultPackage)

	for _, result := range results {
		if merged.ProjectName == "" {
			merged.ProjectName = result.ProjectName
		}
		if merged.ProjectDescription == "" {
			merged.ProjectDescription = result.ProjectDescription
		}
		merged.Observations = append(merged.Observations, result.Observations...)
		if result.Repaired {
			merged.Repaired = true
		}

		for _, pkg := range result.Packages {
			key := keyFor(pkg)
			existing, ok := packages[key]
			if !ok {
				clone := pkg
				clone.Items = nil
				packages[key] = &clone
				order = append(order, key)
				existing = packages[key]
			}
			for _, item := range pkg.Items {
				if item.PageNumber == 0 {
					item.PageNumber = result.PageNumber
				}
				existing.Items = append(existing.Items, item)
			}
		}
	}

	for _, key := range order {
		merged.Packages = append(merged.Packages, *packages[key])
	}
	if len(merged.Packages) == 0 {
		merged.Packages = []domain.ResultPackage{generalPackage()}
	}

	merged.Confidence = aggregateConfidence(results)
	return merged
}

// aggregateConfidence is "high" only when every input reports high,
// "low" when any input reports low, otherwise "medium".
func aggregateConfidence(results []*domain.ExtractionResult) domain.ConfidenceLevel {
	allHigh := true
	for _, result := range results {
		switch result.Confidence {
		case domain.ConfidenceLow:
			return domain.ConfidenceLow
		case domain.ConfidenceHigh:
		default:
			allHigh = false
		}
	}
	if allHigh {
		return domain.ConfidenceHigh
	}
	return domain.ConfidenceMedium
}

func generalPackage() domain.ResultPackage {
	return domain.ResultPackage{
		Name:         generalPackageName,
		Trade:        "General",
		DivisionCode: generalDivision,
		Confidence:   0.3,
	}
}

func nonNil(results []*domain.ExtractionResult) []*domain.ExtractionResult {
	out := results[:0:0]
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
