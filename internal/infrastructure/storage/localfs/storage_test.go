package localfs

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	payload := []byte("%PDF-1.7 fake drawing set")
	if err := store.Save(context.Background(), "d-1/plans.pdf", bytes.NewReader(payload)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reader, err := store.Open(context.Background(), "d-1/plans.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()

	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("read back %q, want %q", got, payload)
	}
}

func TestOpenMissingKeyFails(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := store.Open(context.Background(), "d-404/plans.pdf"); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestEscapingKeysAreRejected(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, key := range []string{"../outside", "/etc/passwd", ".", "d-1/../../escape"} {
		err := store.Save(context.Background(), key, strings.NewReader("x"))
		if err == nil || !strings.Contains(err.Error(), "invalid storage key") {
			t.Errorf("Save(%q) err = %v, want invalid storage key", key, err)
		}
		if _, err := store.Open(context.Background(), key); err == nil {
			t.Errorf("Open(%q) succeeded, want rejection", key)
		}
	}
}
