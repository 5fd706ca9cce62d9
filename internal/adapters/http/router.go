// Package httpadapter exposes the extraction pipeline over HTTP: batch
// submission, status polling, results, corrections and bid sheet
// export.
package httpadapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/graymont/bidpipe/internal/core/domain"
	"github.com/graymont/bidpipe/internal/core/ports"
)

// maxUploadBytes bounds a whole multipart submission.
const maxUploadBytes = 512 << 20

// BidSheetExporter renders a session as an XLSX workbook.
type BidSheetExporter interface {
	ExportBidSheet(ctx context.Context, sessionID string) ([]byte, error)
}

type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
	QueueWait      time.Duration
}

type Router struct {
	extractions ports.ExtractionService
	corrections ports.CorrectionService
	store       ports.DocumentStore
	exporter    BidSheetExporter
	logger      *slog.Logger
	options     Options
}

func NewRouter(
	extractions ports.ExtractionService,
	corrections ports.CorrectionService,
	store ports.DocumentStore,
	exporter BidSheetExporter,
	logger *slog.Logger,
	options Options,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		extractions: extractions,
		corrections: corrections,
		store:       store,
		exporter:    exporter,
		logger:      logger,
		options:     options,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/extractions", rt.startExtraction)
	mux.HandleFunc("/v1/extractions/", rt.extractionSubresource)
	mux.HandleFunc("/v1/corrections", rt.applyCorrection)
	mux.HandleFunc("/v1/corrections/batch", rt.applyCorrectionBatch)

	var handler http.Handler = mux
	if rt.options.MaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.options.MaxConcurrent, rt.options.QueueWait)
	}
	if rt.options.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.options.RateLimitRPS, rt.options.RateLimitBurst)
	}
	handler = accessLogMiddleware(handler, rt.logger)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// startExtraction accepts a multipart submission: one or more "files"
// parts plus an optional "config" JSON part.
func (rt *Router) startExtraction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form is required")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "at least one 'files' part is required")
		return
	}

	var cfg domain.SessionConfig
	if raw := r.FormValue("config"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid config json")
			return
		}
	}

	documents := make([]domain.ExtractionDocument, 0, len(files))
	for _, header := range files {
		doc, err := rt.storeUpload(r, header)
		if err != nil {
			rt.logger.Error("store upload failed", "file", header.Filename, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to store uploaded file")
			return
		}
		documents = append(documents, *doc)
	}

	session, err := rt.extractions.StartBatch(r.Context(), ports.BatchRequest{
		Documents: documents,
		Config:    cfg,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, session)
}

func (rt *Router) storeUpload(r *http.Request, header *multipart.FileHeader) (*domain.ExtractionDocument, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	docID := uuid.NewString()
	key := docID + "/" + filepath.Base(header.Filename)

	hasher := sha256.New()
	if err := rt.store.Save(r.Context(), key, io.TeeReader(file, hasher)); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	return &domain.ExtractionDocument{
		ID:          docID,
		Name:        header.Filename,
		Type:        documentTypeFor(header.Filename),
		StoragePath: key,
		MimeType:    mimeTypeFor(header),
		ContentHash: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (rt *Router) extractionSubresource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/extractions/")
	sessionID, action, _ := strings.Cut(rest, "/")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	switch action {
	case "status":
		snapshot, err := rt.extractions.GetStatus(r.Context(), sessionID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	case "results":
		results, err := rt.extractions.GetResults(r.Context(), sessionID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	case "export":
		rt.exportBidSheet(w, r, sessionID)
	default:
		writeError(w, http.StatusNotFound, "unknown resource")
	}
}

func (rt *Router) exportBidSheet(w http.ResponseWriter, r *http.Request, sessionID string) {
	if rt.exporter == nil {
		writeError(w, http.StatusNotImplemented, "export is not configured")
		return
	}
	workbook, err := rt.exporter.ExportBidSheet(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "bid-sheet-"+sessionID+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook)
}

func (rt *Router) applyCorrection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		SessionID  string            `json:"session_id"`
		ReviewerID string            `json:"reviewer_id"`
		Correction domain.Correction `json:"correction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if err := rt.corrections.Apply(r.Context(), req.SessionID, req.ReviewerID, req.Correction); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"applied": true})
}

func (rt *Router) applyCorrectionBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var batch domain.CorrectionBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(batch.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if len(batch.Corrections) == 0 {
		writeError(w, http.StatusBadRequest, "at least one correction is required")
		return
	}

	outcome, err := rt.corrections.ApplyBatch(r.Context(), batch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func documentTypeFor(filename string) domain.DocumentType {
	name := strings.ToLower(filename)
	switch {
	case strings.Contains(name, "spec"):
		return domain.DocTypeSpecs
	case strings.Contains(name, "addend"):
		return domain.DocTypeAddendum
	default:
		return domain.DocTypeDrawings
	}
}

func mimeTypeFor(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, mapErrorToHTTPStatus(err), err.Error())
}
