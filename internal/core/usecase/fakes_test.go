package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/graymont/bidpipe/internal/core/domain"
	"github.com/graymont/bidpipe/internal/core/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.ExtractionSession
	updates  int
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*domain.ExtractionSession)}
}

func (r *memSessionRepo) CreateSession(_ context.Context, session *domain.ExtractionSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *memSessionRepo) GetSession(_ context.Context, id string) (*domain.ExtractionSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("id %s", id))
	}
	copied := *session
	copied.Passes = append([]domain.PassRecord(nil), session.Passes...)
	return &copied, nil
}

func (r *memSessionRepo) UpdateSessionState(_ context.Context, session *domain.ExtractionSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return domain.WrapError(domain.ErrSessionNotFound, "update session", fmt.Errorf("id %s", session.ID))
	}
	copied := *session
	copied.Passes = append([]domain.PassRecord(nil), session.Passes...)
	r.sessions[session.ID] = &copied
	r.updates++
	return nil
}

func (r *memSessionRepo) stored(id string) *domain.ExtractionSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

func (r *memSessionRepo) drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

type memPackageRepo struct {
	mu       sync.Mutex
	packages map[string]*domain.ExtractedWorkPackage
	order    []string
	counts   map[string]int
	upserts  int
}

func newMemPackageRepo() *memPackageRepo {
	return &memPackageRepo{
		packages: make(map[string]*domain.ExtractedWorkPackage),
		counts:   make(map[string]int),
	}
}

func clonePackage(pkg *domain.ExtractedWorkPackage) *domain.ExtractedWorkPackage {
	copied := *pkg
	copied.LineItems = make([]domain.ExtractedLineItem, len(pkg.LineItems))
	for i, item := range pkg.LineItems {
		item.Corrections = append([]domain.CorrectionEntry(nil), item.Corrections...)
		copied.LineItems[i] = item
	}
	return &copied
}

func (r *memPackageRepo) seed(pkg domain.ExtractedWorkPackage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packages[pkg.ID] = clonePackage(&pkg)
	r.order = append(r.order, pkg.ID)
}

func (r *memPackageRepo) UpsertPackages(_ context.Context, sessionID string, packages []domain.ExtractedWorkPackage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	for i := range packages {
		pkg := packages[i]
		pkg.SessionID = sessionID
		if _, ok := r.packages[pkg.ID]; !ok {
			r.order = append(r.order, pkg.ID)
		}
		r.packages[pkg.ID] = clonePackage(&pkg)
	}
	return nil
}

func (r *memPackageRepo) ListBySession(_ context.Context, sessionID string) ([]domain.ExtractedWorkPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ExtractedWorkPackage
	for _, id := range r.order {
		if pkg := r.packages[id]; pkg.SessionID == sessionID {
			out = append(out, *clonePackage(pkg))
		}
	}
	return out, nil
}

func (r *memPackageRepo) GetPackage(_ context.Context, id string) (*domain.ExtractedWorkPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.packages[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrEntityNotFound, "get package", fmt.Errorf("id %s", id))
	}
	return clonePackage(pkg), nil
}

func (r *memPackageRepo) UpdatePackage(_ context.Context, pkg *domain.ExtractedWorkPackage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.packages[pkg.ID]; !ok {
		return domain.WrapError(domain.ErrEntityNotFound, "update package", fmt.Errorf("id %s", pkg.ID))
	}
	r.packages[pkg.ID] = clonePackage(pkg)
	return nil
}

func (r *memPackageRepo) GetLineItem(_ context.Context, id string) (*domain.ExtractedLineItem, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pkg := range r.packages {
		for i := range pkg.LineItems {
			if pkg.LineItems[i].ID == id {
				item := pkg.LineItems[i]
				item.Corrections = append([]domain.CorrectionEntry(nil), item.Corrections...)
				return &item, pkg.ID, nil
			}
		}
	}
	return nil, "", domain.WrapError(domain.ErrEntityNotFound, "get line item", fmt.Errorf("id %s", id))
}

func (r *memPackageRepo) UpdateLineItem(_ context.Context, packageID string, item *domain.ExtractedLineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.packages[packageID]
	if !ok {
		return domain.WrapError(domain.ErrEntityNotFound, "update line item", fmt.Errorf("package %s", packageID))
	}
	for i := range pkg.LineItems {
		if pkg.LineItems[i].ID == item.ID {
			copied := *item
			copied.Corrections = append([]domain.CorrectionEntry(nil), item.Corrections...)
			pkg.LineItems[i] = copied
			return nil
		}
	}
	return domain.WrapError(domain.ErrEntityNotFound, "update line item", fmt.Errorf("id %s", item.ID))
}

func (r *memPackageRepo) InsertLineItem(_ context.Context, packageID string, item *domain.ExtractedLineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.packages[packageID]
	if !ok {
		return domain.WrapError(domain.ErrEntityNotFound, "insert line item", fmt.Errorf("package %s", packageID))
	}
	copied := *item
	copied.Corrections = append([]domain.CorrectionEntry(nil), item.Corrections...)
	pkg.LineItems = append(pkg.LineItems, copied)
	return nil
}

func (r *memPackageRepo) SetItemCount(_ context.Context, packageID string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.packages[packageID]
	if !ok {
		return domain.WrapError(domain.ErrEntityNotFound, "set item count", fmt.Errorf("package %s", packageID))
	}
	pkg.ItemCount = count
	r.counts[packageID] = count
	return nil
}

func (r *memPackageRepo) item(packageID, itemID string) *domain.ExtractedLineItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.packages[packageID]
	if !ok {
		return nil
	}
	for i := range pkg.LineItems {
		if pkg.LineItems[i].ID == itemID {
			item := pkg.LineItems[i]
			return &item
		}
	}
	return nil
}

type memObservationRepo struct {
	mu           sync.Mutex
	observations map[string]*domain.AIObservation
	order        []string
}

func newMemObservationRepo() *memObservationRepo {
	return &memObservationRepo{observations: make(map[string]*domain.AIObservation)}
}

func (r *memObservationRepo) InsertObservations(_ context.Context, observations []domain.AIObservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range observations {
		obs := observations[i]
		if _, ok := r.observations[obs.ID]; !ok {
			r.order = append(r.order, obs.ID)
		}
		r.observations[obs.ID] = &obs
	}
	return nil
}

func (r *memObservationRepo) ListBySession(_ context.Context, sessionID string) ([]domain.AIObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AIObservation
	for _, id := range r.order {
		if obs := r.observations[id]; obs.SessionID == sessionID {
			out = append(out, *obs)
		}
	}
	return out, nil
}

func (r *memObservationRepo) GetObservation(_ context.Context, id string) (*domain.AIObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obs, ok := r.observations[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrEntityNotFound, "get observation", fmt.Errorf("id %s", id))
	}
	copied := *obs
	return &copied, nil
}

func (r *memObservationRepo) UpdateObservationState(_ context.Context, obs *domain.AIObservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.observations[obs.ID]; !ok {
		return domain.WrapError(domain.ErrEntityNotFound, "update observation", fmt.Errorf("id %s", obs.ID))
	}
	copied := *obs
	r.observations[obs.ID] = &copied
	return nil
}

type memLedger struct {
	mu      sync.Mutex
	records []domain.PredictionRecord
}

func (l *memLedger) AppendPrediction(_ context.Context, record *domain.PredictionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, *record)
	return nil
}

func (l *memLedger) all() []domain.PredictionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.PredictionRecord(nil), l.records...)
}

type memQueue struct {
	mu        sync.Mutex
	published []string
}

func (q *memQueue) PublishSessionQueued(_ context.Context, sessionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, sessionID)
	return nil
}

func (q *memQueue) SubscribeSessionQueued(context.Context, func(context.Context, string) error) error {
	return nil
}

type memDocStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemDocStore() *memDocStore {
	return &memDocStore{files: make(map[string][]byte)}
}

func (s *memDocStore) Save(_ context.Context, key string, data io.Reader) error {
	payload, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = payload
	return nil
}

func (s *memDocStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.files[key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", key)
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

// stubPages serves canned per-page text keyed by document id.
type stubPages struct {
	pages map[string][]string
	fail  map[string]error
}

func (p *stubPages) ExtractPages(_ context.Context, doc domain.ExtractionDocument) ([]string, error) {
	if err := p.fail[doc.ID]; err != nil {
		return nil, err
	}
	return p.pages[doc.ID], nil
}

// scriptModel answers model calls through a handler and records every
// request it saw.
type scriptModel struct {
	mu      sync.Mutex
	calls   []ports.ModelRequest
	handler func(ports.ModelRequest) (*ports.ModelResponse, error)
}

func (m *scriptModel) Extract(_ context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	return m.handler(req)
}

func (m *scriptModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type stubTaxonomy struct {
	hits []ports.TaxonomyHit
}

func (s *stubTaxonomy) Search(string, string, int) []ports.TaxonomyHit {
	return s.hits
}
