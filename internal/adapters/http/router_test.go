package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/graymont/bidpipe/internal/core/domain"
	"github.com/graymont/bidpipe/internal/core/ports"
)

type fakeExtractionService struct {
	startErr   error
	lastBatch  ports.BatchRequest
	statusErr  error
	resultsErr error
}

func (f *fakeExtractionService) StartBatch(_ context.Context, req ports.BatchRequest) (*domain.ExtractionSession, error) {
	f.lastBatch = req
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &domain.ExtractionSession{ID: "s-1", Documents: req.Documents, Status: domain.StatusInitializing}, nil
}

func (f *fakeExtractionService) Run(context.Context, string) error { return nil }

func (f *fakeExtractionService) GetStatus(_ context.Context, sessionID string) (*domain.StatusSnapshot, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &domain.StatusSnapshot{SessionID: sessionID, Status: domain.StatusPass1Extract, Progress: 10}, nil
}

func (f *fakeExtractionService) GetResults(_ context.Context, sessionID string) (*domain.SessionResults, error) {
	if f.resultsErr != nil {
		return nil, f.resultsErr
	}
	return &domain.SessionResults{SessionID: sessionID, Status: domain.StatusCompleted}, nil
}

type fakeCorrectionService struct {
	applyErr error
	applied  []domain.Correction
}

func (f *fakeCorrectionService) Apply(_ context.Context, _, _ string, correction domain.Correction) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, correction)
	return nil
}

func (f *fakeCorrectionService) ApplyBatch(_ context.Context, batch domain.CorrectionBatch) (*domain.BatchOutcome, error) {
	outcome := &domain.BatchOutcome{Applied: len(batch.Corrections)}
	for i := range batch.Corrections {
		outcome.Outcomes = append(outcome.Outcomes, domain.CorrectionOutcome{Index: i, Applied: true})
	}
	return outcome, nil
}

type memoryStore struct {
	saved map[string][]byte
}

func (m *memoryStore) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[key] = raw
	return nil
}

func (m *memoryStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.saved[key])), nil
}

func testRouter(extractions *fakeExtractionService, corrections *fakeCorrectionService) (*Router, *memoryStore) {
	store := &memoryStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(extractions, corrections, store, nil, logger, Options{}), store
}

func multipartBody(t *testing.T, config string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if config != "" {
		if err := writer.WriteField("config", config); err != nil {
			t.Fatalf("write config field: %v", err)
		}
	}
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestStartExtractionStoresFilesAndStartsBatch(t *testing.T) {
	extractions := &fakeExtractionService{}
	router, store := testRouter(extractions, &fakeCorrectionService{})

	body, contentType := multipartBody(t, `{"max_passes":3}`, map[string]string{
		"mechanical-specs.pdf": "pdf bytes",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/extractions", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	router.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", res.Code, res.Body.String())
	}
	if len(store.saved) != 1 {
		t.Fatalf("stored files = %d, want 1", len(store.saved))
	}
	if extractions.lastBatch.Config.MaxPasses != 3 {
		t.Fatalf("max passes = %d, want 3", extractions.lastBatch.Config.MaxPasses)
	}
	docs := extractions.lastBatch.Documents
	if len(docs) != 1 {
		t.Fatalf("documents = %d, want 1", len(docs))
	}
	if docs[0].Type != domain.DocTypeSpecs {
		t.Fatalf("document type = %q, want specifications", docs[0].Type)
	}
	if docs[0].ContentHash == "" {
		t.Fatalf("expected content hash to be set")
	}
}

func TestStartExtractionRequiresFiles(t *testing.T) {
	router, _ := testRouter(&fakeExtractionService{}, &fakeCorrectionService{})

	body, contentType := multipartBody(t, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/extractions", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	router.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestGetStatusReturnsSnapshot(t *testing.T) {
	router, _ := testRouter(&fakeExtractionService{}, &fakeCorrectionService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/extractions/s-1/status", nil)
	res := httptest.NewRecorder()
	router.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	var snapshot domain.StatusSnapshot
	if err := json.NewDecoder(res.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.SessionID != "s-1" || snapshot.Progress != 10 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestGetStatusMapsSessionNotFoundTo404(t *testing.T) {
	extractions := &fakeExtractionService{
		statusErr: domain.WrapError(domain.ErrSessionNotFound, "get status", domain.ErrSessionNotFound),
	}
	router, _ := testRouter(extractions, &fakeCorrectionService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/extractions/missing/status", nil)
	res := httptest.NewRecorder()
	router.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Code)
	}
}

func TestApplyCorrectionValidatesSessionID(t *testing.T) {
	router, _ := testRouter(&fakeExtractionService{}, &fakeCorrectionService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/corrections",
		strings.NewReader(`{"reviewer_id":"r-1","correction":{"kind":"field_correction"}}`))
	res := httptest.NewRecorder()
	router.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestApplyCorrectionBatchReportsOutcomes(t *testing.T) {
	corrections := &fakeCorrectionService{}
	router, _ := testRouter(&fakeExtractionService{}, corrections)

	payload := `{
		"session_id": "s-1",
		"reviewer_id": "r-1",
		"corrections": [
			{"kind":"field_correction","entity_type":"line_item","entity_id":"li-1","field":"description","corrected_value":"Replace RTU-2"},
			{"kind":"delete_line_item","entity_type":"line_item","entity_id":"li-2"}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/v1/corrections/batch", strings.NewReader(payload))
	res := httptest.NewRecorder()
	router.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", res.Code, res.Body.String())
	}
	var outcome domain.BatchOutcome
	if err := json.NewDecoder(res.Body).Decode(&outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome.Applied != 2 {
		t.Fatalf("applied = %d, want 2", outcome.Applied)
	}
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	router, _ := testRouter(&fakeExtractionService{}, &fakeCorrectionService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	res := httptest.NewRecorder()
	router.Handler().ServeHTTP(res, req)

	if got := res.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("request id header = %q, want req-42", got)
	}
}
