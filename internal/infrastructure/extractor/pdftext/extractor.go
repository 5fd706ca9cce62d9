// Package pdftext pulls per-page plain text out of stored documents for
// the page classifier and for text-mode model calls.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/graymont/bidpipe/internal/core/domain"
	"github.com/graymont/bidpipe/internal/core/ports"
)

type Extractor struct {
	store ports.DocumentStore
}

func New(store ports.DocumentStore) *Extractor {
	return &Extractor{store: store}
}

// ExtractPages returns one text entry per page. Image documents yield
// no text; classification falls through to its default path.
func (e *Extractor) ExtractPages(ctx context.Context, doc domain.ExtractionDocument) ([]string, error) {
	if strings.HasPrefix(doc.MimeType, "image/") {
		return nil, nil
	}

	reader, err := e.store.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", doc.Name, err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", doc.Name, err)
	}

	if doc.MimeType == "application/pdf" {
		return extractPDFPages(doc.Name, raw)
	}

	// Plain text documents split on form feeds when present.
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, nil
	}
	pages := strings.Split(text, "\f")
	out := make([]string, 0, len(pages))
	for _, page := range pages {
		out = append(out, strings.TrimSpace(page))
	}
	return out, nil
}

func extractPDFPages(name string, raw []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf %s: %w", name, err)
	}

	total := r.NumPage()
	out := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			out = append(out, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page degrades to empty text rather
			// than failing the whole document.
			out = append(out, "")
			continue
		}
		out = append(out, strings.TrimSpace(text))
	}
	return out, nil
}
