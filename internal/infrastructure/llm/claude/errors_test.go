package claude

import (
	"context"
	"errors"
	"testing"

	"github.com/graymont/bidpipe/internal/core/domain"
	"github.com/graymont/bidpipe/internal/core/ports"
)

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "dial tcp: connection refused" }
func (fakeNetError) Timeout() bool   { return false }
func (fakeNetError) Temporary() bool { return true }

func TestWrapCallErrorTagsTransientConditions(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		temporary bool
	}{
		{"deadline", context.DeadlineExceeded, true},
		{"network", fakeNetError{}, true},
		{"api rejection", errors.New("invalid_request_error"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := wrapCallError(domain.KindExtraction, tc.err)
			if got := domain.IsKind(wrapped, domain.ErrTemporary); got != tc.temporary {
				t.Errorf("IsKind(ErrTemporary) = %v, want %v (err %v)", got, tc.temporary, wrapped)
			}
			if !errors.Is(wrapped, tc.err) {
				t.Errorf("wrapped error lost its cause: %v", wrapped)
			}
		})
	}
}

func TestEncodeDocumentsRejectsNonImageBytes(t *testing.T) {
	_, err := encodeDocuments([]ports.ModelDocument{
		{Name: "plans.pdf", MimeType: "application/pdf", ImageData: []byte{0x25, 0x50}},
	})
	if err == nil {
		t.Fatal("expected rejection for binary payload without an image mime type")
	}
}

func TestEncodeDocumentsBuildsOneBlockPerDocument(t *testing.T) {
	blocks, err := encodeDocuments([]ports.ModelDocument{
		{Name: "plans.pdf", MimeType: "application/pdf", PageTexts: []string{"page one", "page two"}},
		{Name: "detail.png", MimeType: "image/png", ImageData: []byte{0x89, 0x50, 0x4e, 0x47}},
	})
	if err != nil {
		t.Fatalf("encodeDocuments: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}
}
