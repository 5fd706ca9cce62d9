package usecase

import (
	"strings"

	"github.com/graymont/bidpipe/internal/core/ports"
)

// CSIMatch is the best taxonomy hit for a line-item description.
type CSIMatch struct {
	Code  string
	Title string
}

// CSIMatcher maps a free-text description to a best-matching
// classification code via ranked search over the taxonomy.
type CSIMatcher struct {
	index ports.TaxonomyIndex
}

func NewCSIMatcher(index ports.TaxonomyIndex) *CSIMatcher {
	return &CSIMatcher{index: index}
}

// Match returns the top-ranked taxonomy hit, pre-filtered to a
// division when a hint is available. An empty description returns
// no match without invoking search.
func (m *CSIMatcher) Match(description, divisionHint string) (*CSIMatch, bool) {
	if strings.TrimSpace(description) == "" {
		return nil, false
	}
	hits := m.index.Search(description, divisionHint, 1)
	if len(hits) == 0 {
		return nil, false
	}
	return &CSIMatch{Code: hits[0].Code, Title: hits[0].Title}, true
}
