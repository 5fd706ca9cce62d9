// Package csi provides ranked text search over an embedded MasterFormat
// taxonomy table. Search is deterministic and side-effect-free.
package csi

import (
	"sort"
	"strings"
	"unicode"

	"github.com/graymont/bidpipe/internal/core/ports"
)

type Index struct {
	entries []Entry
}

func NewIndex() *Index {
	return &Index{entries: entries}
}

// Search ranks taxonomy entries against a free-text description,
// optionally pre-filtered to a division. Score blends title token
// overlap with keyword hits; ties break by code so results are stable.
func (idx *Index) Search(query string, divisionHint string, limit int) []ports.TaxonomyHit {
	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return nil
	}
	division := strings.TrimSpace(divisionHint)

	var hits []ports.TaxonomyHit
	for _, entry := range idx.entries {
		if division != "" && entry.Division != division {
			continue
		}
		score := scoreEntry(queryTokens, strings.ToLower(query), entry)
		if score <= 0 {
			continue
		}
		hits = append(hits, ports.TaxonomyHit{Code: entry.Code, Title: entry.Title, Score: score})
	}

	// With a division hint and no hits inside it, fall back to the
	// whole table rather than returning nothing for a misfiled page.
	if len(hits) == 0 && division != "" {
		return idx.Search(query, "", limit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Code < hits[j].Code
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func scoreEntry(queryTokens map[string]struct{}, queryLower string, entry Entry) float64 {
	titleTokens := tokenSet(entry.Title)
	overlap := 0
	for token := range queryTokens {
		if _, ok := titleTokens[token]; ok {
			overlap++
		}
	}
	titleScore := 0.0
	if len(titleTokens) > 0 {
		titleScore = float64(overlap) / float64(len(titleTokens))
	}

	keywordHits := 0
	for _, kw := range entry.Keywords {
		if strings.Contains(queryLower, kw) {
			keywordHits++
		}
	}
	keywordScore := 0.0
	if len(entry.Keywords) > 0 {
		keywordScore = float64(keywordHits) / float64(len(entry.Keywords))
	}
	if overlap == 0 && keywordHits == 0 {
		return 0
	}

	return 0.45*titleScore + 0.55*keywordScore
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	var b strings.Builder
	flush := func() {
		if b.Len() >= 3 {
			out[strings.ToLower(b.String())] = struct{}{}
		}
		b.Reset()
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return out
}
