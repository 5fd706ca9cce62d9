package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/graymont/bidpipe/internal/core/domain"
	"github.com/graymont/bidpipe/internal/core/ports"
)

// ExtractionUseCase drives the multi-pass pipeline. One session has a
// single writer (the pass currently executing) and arbitrarily many
// status pollers, so the live-session map is guarded for concurrent
// reads.
type ExtractionUseCase struct {
	sessions     ports.SessionRepository
	packages     ports.PackageRepository
	observations ports.ObservationRepository
	queue        ports.MessageQueue
	store        ports.DocumentStore
	model        ports.DocumentModel
	synthetic    ports.DocumentModel
	pages        ports.PageTextExtractor
	classifier   *PageClassifier
	combiner     *Combiner
	matcher      *CSIMatcher
	logger       *slog.Logger

	mu   sync.RWMutex
	live map[string]*domain.ExtractionSession
}

func NewExtractionUseCase(
	sessions ports.SessionRepository,
	packages ports.PackageRepository,
	observations ports.ObservationRepository,
	queue ports.MessageQueue,
	store ports.DocumentStore,
	model ports.DocumentModel,
	synthetic ports.DocumentModel,
	pages ports.PageTextExtractor,
	classifier *PageClassifier,
	combiner *Combiner,
	matcher *CSIMatcher,
	logger *slog.Logger,
) *ExtractionUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionUseCase{
		sessions:     sessions,
		packages:     packages,
		observations: observations,
		queue:        queue,
		store:        store,
		model:        model,
		synthetic:    synthetic,
		pages:        pages,
		classifier:   classifier,
		combiner:     combiner,
		matcher:      matcher,
		logger:       logger,
		live:         make(map[string]*domain.ExtractionSession),
	}
}

// StartBatch validates the input set, creates a session, and queues it
// for the worker. Input errors are rejected before any session exists.
func (uc *ExtractionUseCase) StartBatch(ctx context.Context, req ports.BatchRequest) (*domain.ExtractionSession, error) {
	if len(req.Documents) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "start batch", errors.New("at least one document is required"))
	}
	for i := range req.Documents {
		doc := &req.Documents[i]
		if strings.TrimSpace(doc.Name) == "" || strings.TrimSpace(doc.StoragePath) == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "start batch",
				fmt.Errorf("document %d: name and storage path are required", i))
		}
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		if doc.Type == "" {
			doc.Type = domain.DocTypeDrawings
		}
	}

	session := &domain.ExtractionSession{
		ID:        uuid.NewString(),
		Documents: req.Documents,
		Config:    req.Config,
		Status:    domain.StatusInitializing,
		StartedAt: time.Now().UTC(),
		Metrics:   domain.SessionMetrics{ConfidenceHistogram: map[string]int{}},
	}

	if err := uc.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	uc.track(session)

	if err := uc.queue.PublishSessionQueued(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("publish session queued: %w", err)
	}
	return session, nil
}

type pipelinePass struct {
	number int
	name   string
	status domain.SessionStatus
	run    func(ctx context.Context, rs *runState) (int, error)
	skip   func(s *domain.ExtractionSession) bool
}

// runState is the per-run accumulator threaded through passes.
type runState struct {
	session         *domain.ExtractionSession
	classifications map[string]domain.DocumentClassification
	packages        []domain.ExtractedWorkPackage
	observations    []domain.AIObservation
}

// Run executes all configured passes for a queued session. Passes are
// strictly sequential; pass N+1 never starts before pass N's merge
// has been persisted.
func (uc *ExtractionUseCase) Run(ctx context.Context, sessionID string) error {
	session, err := uc.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session.Status.Terminal() {
		return nil
	}
	uc.track(session)

	rs := &runState{
		session:         session,
		classifications: make(map[string]domain.DocumentClassification),
	}

	passes := []pipelinePass{
		{1, "extract", domain.StatusPass1Extract, uc.passExtract, nil},
		{2, "self_review", domain.StatusPass2Review, uc.passReview, nil},
		{3, "trade_deep_dive", domain.StatusPass3DeepDive, uc.passDeepDive,
			func(s *domain.ExtractionSession) bool { return !s.Config.EnableDeepDive }},
		{4, "cross_document", domain.StatusPass4Validate, uc.passCorrelate,
			func(s *domain.ExtractionSession) bool {
				return !s.Config.EnableCrossDocument || len(s.Documents) < 2
			}},
		{5, "final_validation", domain.StatusPass5Final, uc.passFinalize, nil},
	}

	passCount := session.Config.PassCount()
	for _, pass := range passes[:passCount] {
		if pass.skip != nil && pass.skip(session) {
			uc.recordPass(session, domain.PassRecord{Number: pass.number, Name: pass.name, Skipped: true})
			continue
		}

		uc.enterPass(ctx, session, pass, passCount)
		started := time.Now().UTC()

		added, err := pass.run(ctx, rs)
		if err != nil {
			uc.fail(ctx, session, pass, err)
			return fmt.Errorf("pass %d (%s): %w", pass.number, pass.name, err)
		}

		uc.recordPass(session, domain.PassRecord{
			Number:     pass.number,
			Name:       pass.name,
			StartedAt:  started,
			FinishedAt: time.Now().UTC(),
			ItemsAdded: added,
		})
		uc.refreshMetrics(session, rs)
		uc.persistState(ctx, session)
	}

	uc.finish(ctx, session)
	return nil
}

func (uc *ExtractionUseCase) enterPass(ctx context.Context, s *domain.ExtractionSession, pass pipelinePass, passCount int) {
	s.Status = pass.status
	s.CurrentPass = pass.number
	s.Progress = (pass.number - 1) * 100 / passCount
	s.StatusMessage = fmt.Sprintf("running pass %d: %s", pass.number, pass.name)
	uc.persistState(ctx, s)
}

// fail freezes currentPass and progress at their last known values;
// session output accumulated so far remains readable.
func (uc *ExtractionUseCase) fail(ctx context.Context, s *domain.ExtractionSession, pass pipelinePass, err error) {
	s.Status = domain.StatusFailed
	s.StatusMessage = fmt.Sprintf("pass %d (%s) failed: %v", pass.number, pass.name, err)
	now := time.Now().UTC()
	s.CompletedAt = &now
	uc.persistState(ctx, s)
	uc.logger.Error("session_failed", "session_id", s.ID, "pass", pass.number, "error", err)
}

func (uc *ExtractionUseCase) finish(ctx context.Context, s *domain.ExtractionSession) {
	if s.Config.RequireHumanReview {
		s.Status = domain.StatusAwaitingReview
		s.StatusMessage = "extraction complete, awaiting human review"
	} else {
		s.Status = domain.StatusCompleted
		s.StatusMessage = "extraction complete"
		now := time.Now().UTC()
		s.CompletedAt = &now
	}
	s.Progress = 100
	uc.persistState(ctx, s)
	uc.logger.Info("session_finished", "session_id", s.ID, "status", s.Status,
		"packages", s.Metrics.TotalPackages, "line_items", s.Metrics.TotalLineItems)
}

// persistState writes session state through to the repository and the
// live map. A persistence failure must not discard computed work, so
// it is downgraded to a session warning.
func (uc *ExtractionUseCase) persistState(ctx context.Context, s *domain.ExtractionSession) {
	if err := uc.sessions.UpdateSessionState(ctx, s); err != nil {
		s.Warning = fmt.Sprintf("state persistence failed: %v", err)
		uc.logger.Warn("session_state_persist_failed", "session_id", s.ID, "error", err)
	}
	uc.track(s)
}

func (uc *ExtractionUseCase) recordPass(s *domain.ExtractionSession, record domain.PassRecord) {
	s.Passes = append(s.Passes, record)
}

// passExtract classifies every page, fans out one model call per
// document, and combines the per-document results into work packages.
// One document's failure does not cancel its siblings.
func (uc *ExtractionUseCase) passExtract(ctx context.Context, rs *runState) (int, error) {
	session := rs.session

	for _, doc := range session.Documents {
		rs.classifications[doc.ID] = uc.classifyDocument(ctx, doc)
	}

	results := make([]domain.DocumentResult, len(session.Documents))
	var wg sync.WaitGroup
	for i, doc := range session.Documents {
		wg.Add(1)
		go func(idx int, doc domain.ExtractionDocument) {
			defer wg.Done()
			results[idx] = uc.extractDocument(ctx, session, doc, rs.classifications[doc.ID])
		}(i, doc)
	}
	wg.Wait()

	var parsed []*domain.ExtractionResult
	failed := 0
	for _, res := range results {
		session.Metrics.InputTokens += res.Usage.InputTokens
		session.Metrics.OutputTokens += res.Usage.OutputTokens
		if res.Err != nil {
			failed++
			uc.logger.Warn("document_extraction_failed", "session_id", session.ID,
				"document_id", res.DocumentID, "error", res.Err)
			continue
		}
		parsed = append(parsed, res.Result)
	}
	session.Metrics.DocumentsProcessed = len(results) - failed
	session.Metrics.DocumentsFailed = failed

	if failed == len(results) {
		return 0, fmt.Errorf("all %d documents failed extraction", failed)
	}

	combined := uc.combiner.Combine(parsed)
	rs.packages = uc.materializePackages(session, combined, 1)

	uc.persistPackages(ctx, session, rs.packages)
	return countItems(rs.packages), nil
}

func (uc *ExtractionUseCase) classifyDocument(ctx context.Context, doc domain.ExtractionDocument) domain.DocumentClassification {
	texts, err := uc.pages.ExtractPages(ctx, doc)
	if err != nil {
		uc.logger.Warn("page_text_extract_failed", "document_id", doc.ID, "error", err)
	}

	inputs := make([]PageInput, 0, len(texts))
	for i, text := range texts {
		inputs = append(inputs, PageInput{
			DocumentID: doc.ID,
			PageNumber: i + 1,
			SheetLabel: detectSheetLabel(text),
			Text:       text,
		})
	}
	if len(inputs) == 0 {
		inputs = append(inputs, PageInput{DocumentID: doc.ID, PageNumber: 1})
	}
	return uc.classifier.ClassifyDocument(inputs)
}

func (uc *ExtractionUseCase) extractDocument(ctx context.Context, session *domain.ExtractionSession, doc domain.ExtractionDocument, cls domain.DocumentClassification) domain.DocumentResult {
	modelDoc := ports.ModelDocument{ID: doc.ID, Name: doc.Name, MimeType: doc.MimeType}

	if strings.HasPrefix(doc.MimeType, "image/") {
		reader, err := uc.store.Open(ctx, doc.StoragePath)
		if err != nil {
			return domain.DocumentResult{DocumentID: doc.ID, Err: fmt.Errorf("open document: %w", err), ErrMessage: err.Error()}
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			return domain.DocumentResult{DocumentID: doc.ID, Err: fmt.Errorf("read document: %w", err), ErrMessage: err.Error()}
		}
		modelDoc.ImageData = data
	} else {
		texts, err := uc.pages.ExtractPages(ctx, doc)
		if err != nil {
			return domain.DocumentResult{DocumentID: doc.ID, Err: fmt.Errorf("extract pages: %w", err), ErrMessage: err.Error()}
		}
		modelDoc.PageTexts = texts
	}

	resp, err := uc.modelFor(session).Extract(ctx, ports.ModelRequest{
		Kind:         domain.KindExtraction,
		Instructions: buildExtractionPrompt(doc, cls),
		Documents:    []ports.ModelDocument{modelDoc},
	})
	if err != nil {
		return domain.DocumentResult{DocumentID: doc.ID, Err: err, ErrMessage: err.Error()}
	}

	result := ParseExtractionResponse(resp.Text, domain.KindExtraction)
	result.DocumentID = doc.ID
	return domain.DocumentResult{DocumentID: doc.ID, Result: result, Usage: resp.Usage}
}

func (uc *ExtractionUseCase) passReview(ctx context.Context, rs *runState) (int, error) {
	result, err := uc.observationCall(ctx, rs, domain.KindReview, buildReviewPrompt(rs.packages), 2)
	if err != nil {
		return 0, err
	}
	added := uc.mergeAdditions(rs, result, 2)
	uc.persistPackages(ctx, rs.session, rs.packages)
	return added, nil
}

// passDeepDive re-extracts the three largest trade groups with the
// model scoped to a single trade, adding items the first pass missed.
func (uc *ExtractionUseCase) passDeepDive(ctx context.Context, rs *runState) (int, error) {
	groups := uc.aggregateTradeGroups(rs)
	if len(groups) > 3 {
		groups = groups[:3]
	}

	added := 0
	for _, group := range groups {
		resp, err := uc.modelFor(rs.session).Extract(ctx, ports.ModelRequest{
			Kind:         domain.KindExtraction,
			Instructions: buildDeepDivePrompt(group, rs.packages),
		})
		if err != nil {
			return added, fmt.Errorf("deep dive %s: %w", group.Trade, err)
		}
		rs.session.Metrics.InputTokens += resp.Usage.InputTokens
		rs.session.Metrics.OutputTokens += resp.Usage.OutputTokens

		result := ParseExtractionResponse(resp.Text, domain.KindExtraction)
		added += uc.mergeAdditions(rs, result, 3)
	}
	uc.persistPackages(ctx, rs.session, rs.packages)
	return added, nil
}

func (uc *ExtractionUseCase) passCorrelate(ctx context.Context, rs *runState) (int, error) {
	_, err := uc.observationCall(ctx, rs, domain.KindCorrelation,
		buildCorrelationPrompt(rs.session.Documents, rs.packages), 4)
	return 0, err
}

// passFinalize runs the validation call, then annotates every line
// item with its best CSI match.
func (uc *ExtractionUseCase) passFinalize(ctx context.Context, rs *runState) (int, error) {
	if _, err := uc.observationCall(ctx, rs, domain.KindReview, buildValidationPrompt(rs.packages), 5); err != nil {
		return 0, err
	}

	for p := range rs.packages {
		pkg := &rs.packages[p]
		for i := range pkg.LineItems {
			item := &pkg.LineItems[i]
			if item.CSICode != "" {
				continue
			}
			if match, ok := uc.matcher.Match(item.Description, pkg.Classification.DivisionCode); ok {
				item.CSICode = match.Code
				item.CSITitle = match.Title
			}
		}
	}

	uc.persistPackages(ctx, rs.session, rs.packages)
	return 0, nil
}

func (uc *ExtractionUseCase) observationCall(ctx context.Context, rs *runState, kind domain.ResponseKind, prompt string, pass int) (*domain.ExtractionResult, error) {
	resp, err := uc.modelFor(rs.session).Extract(ctx, ports.ModelRequest{
		Kind:         kind,
		Instructions: prompt,
	})
	if err != nil {
		return nil, err
	}
	rs.session.Metrics.InputTokens += resp.Usage.InputTokens
	rs.session.Metrics.OutputTokens += resp.Usage.OutputTokens

	result := ParseExtractionResponse(resp.Text, kind)
	observations := uc.materializeObservations(rs.session, result.Observations, pass)
	if len(observations) > 0 {
		rs.observations = append(rs.observations, observations...)
		if err := uc.observations.InsertObservations(ctx, observations); err != nil {
			rs.session.Warning = fmt.Sprintf("observation persistence failed: %v", err)
			uc.logger.Warn("observation_persist_failed", "session_id", rs.session.ID, "error", err)
		}
	}
	return result, nil
}

func (uc *ExtractionUseCase) modelFor(s *domain.ExtractionSession) ports.DocumentModel {
	if s.Config.UseSyntheticData {
		return uc.synthetic
	}
	return uc.model
}

// materializePackages turns a combined result into session-owned work
// packages with stable package ids.
func (uc *ExtractionUseCase) materializePackages(s *domain.ExtractionSession, combined *domain.ExtractionResult, pass int) []domain.ExtractedWorkPackage {
	now := time.Now().UTC()
	out := make([]domain.ExtractedWorkPackage, 0, len(combined.Packages))

	for _, rp := range combined.Packages {
		pkg := domain.ExtractedWorkPackage{
			ID:        uuid.NewString(),
			PackageID: packageSlug(rp),
			SessionID: s.ID,
			Name:      rp.Name,
			Trade:     rp.Trade,
			Classification: domain.Classification{
				DivisionCode: orDefault(rp.DivisionCode, generalDivision),
				SectionCode:  rp.SectionCode,
				Confidence:   rp.Confidence,
				Reasoning:    rp.Reasoning,
			},
			Complexity: rp.Complexity,
			Provenance: domain.Provenance{
				ExtractedBy:    uc.modelName(s),
				ExtractedAt:    now,
				Pass:           pass,
				RepairedOutput: combined.Repaired,
			},
		}
		for i, ri := range rp.Items {
			pkg.LineItems = append(pkg.LineItems, materializeItem(ri, combined.DocumentID, i))
		}
		pkg.ItemCount = pkg.LiveItemCount()
		pkg.Confidence = packageConfidence(pkg.LineItems, combined.Confidence)
		out = append(out, pkg)
	}
	return out
}

// mergeAdditions folds a later pass's packages into the accumulated
// set. Prior line items are never overwritten, only added to.
func (uc *ExtractionUseCase) mergeAdditions(rs *runState, result *domain.ExtractionResult, pass int) int {
	if result == nil || len(result.Packages) == 0 {
		return 0
	}

	index := make(map[mergeKey]int, len(rs.packages))
	for i, pkg := range rs.packages {
		index[mergeKey{division: pkg.Classification.DivisionCode, name: strings.ToLower(pkg.Name)}] = i
	}

	added := 0
	for _, rp := range result.Packages {
		key := keyFor(rp)
		if rp.Name == generalPackageName && len(rp.Items) == 0 {
			continue
		}
		if idx, ok := index[key]; ok {
			pkg := &rs.packages[idx]
			base := pkg.NextOrderIndex()
			for i, ri := range rp.Items {
				item := materializeItem(ri, result.DocumentID, base+i)
				pkg.LineItems = append(pkg.LineItems, item)
				added++
			}
			pkg.ItemCount = pkg.LiveItemCount()
			continue
		}

		materialized := uc.materializePackages(rs.session, &domain.ExtractionResult{
			Packages:   []domain.ResultPackage{rp},
			Confidence: result.Confidence,
			DocumentID: result.DocumentID,
			Repaired:   result.Repaired,
		}, pass)
		rs.packages = append(rs.packages, materialized...)
		index[key] = len(rs.packages) - 1
		added += countItems(materialized)
	}
	return added
}

func (uc *ExtractionUseCase) materializeObservations(s *domain.ExtractionSession, in []domain.ResultObservation, pass int) []domain.AIObservation {
	now := time.Now().UTC()
	out := make([]domain.AIObservation, 0, len(in))
	for _, ro := range in {
		out = append(out, domain.AIObservation{
			ID:               uuid.NewString(),
			SessionID:        s.ID,
			Severity:         domain.ObservationSeverity(ro.Severity),
			Category:         ro.Category,
			Title:            ro.Title,
			Insight:          ro.Insight,
			AffectedPackages: ro.AffectedPackages,
			AffectedItems:    ro.AffectedItems,
			SuggestedActions: ro.SuggestedActions,
			State:            domain.ObservationPending,
			CreatedAt:        now,
			Pass:             pass,
		})
	}
	return out
}

func (uc *ExtractionUseCase) persistPackages(ctx context.Context, s *domain.ExtractionSession, packages []domain.ExtractedWorkPackage) {
	if err := uc.packages.UpsertPackages(ctx, s.ID, packages); err != nil {
		s.Warning = fmt.Sprintf("result persistence failed: %v", err)
		uc.logger.Warn("package_persist_failed", "session_id", s.ID, "error", err)
	}
}

func (uc *ExtractionUseCase) refreshMetrics(s *domain.ExtractionSession, rs *runState) {
	m := &s.Metrics
	m.TotalPackages = len(rs.packages)
	m.TotalLineItems = countItems(rs.packages)
	m.TotalObservations = len(rs.observations)
	m.CriticalObservations = 0
	m.WarningObservations = 0
	for _, obs := range rs.observations {
		switch obs.Severity {
		case domain.SeverityCritical:
			m.CriticalObservations++
		case domain.SeverityWarning:
			m.WarningObservations++
		}
	}

	m.ConfidenceHistogram = map[string]int{}
	divisions := make(map[string]bool)
	for _, pkg := range rs.packages {
		m.ConfidenceHistogram[string(pkg.Confidence)]++
		divisions[pkg.Classification.DivisionCode] = true
	}
	m.DivisionsCovered = m.DivisionsCovered[:0]
	for division := range divisions {
		m.DivisionsCovered = append(m.DivisionsCovered, division)
	}
	sort.Strings(m.DivisionsCovered)
}

func (uc *ExtractionUseCase) aggregateTradeGroups(rs *runState) []domain.TradeGroup {
	merged := make(map[string]*domain.TradeGroup)
	var order []string
	for _, cls := range rs.classifications {
		for _, group := range cls.TradeGroups {
			existing, ok := merged[group.Trade]
			if !ok {
				clone := group
				merged[group.Trade] = &clone
				order = append(order, group.Trade)
				continue
			}
			existing.Pages = append(existing.Pages, group.Pages...)
		}
	}

	out := make([]domain.TradeGroup, 0, len(order))
	for _, trade := range order {
		out = append(out, *merged[trade])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Pages) != len(out[j].Pages) {
			return len(out[i].Pages) > len(out[j].Pages)
		}
		return out[i].Trade < out[j].Trade
	})
	return out
}

// GetStatus returns a snapshot of a session's state: live map first,
// repository fallback for sessions this process is not running.
func (uc *ExtractionUseCase) GetStatus(ctx context.Context, sessionID string) (*domain.StatusSnapshot, error) {
	uc.mu.RLock()
	session, ok := uc.live[sessionID]
	uc.mu.RUnlock()

	if !ok {
		loaded, err := uc.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		session = loaded
	}

	return &domain.StatusSnapshot{
		SessionID:     session.ID,
		Status:        session.Status,
		CurrentPass:   session.CurrentPass,
		Progress:      session.Progress,
		StatusMessage: session.StatusMessage,
		Metrics:       session.Metrics,
	}, nil
}

func (uc *ExtractionUseCase) GetResults(ctx context.Context, sessionID string) (*domain.SessionResults, error) {
	session, err := uc.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	packages, err := uc.packages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	observations, err := uc.observations.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}

	return &domain.SessionResults{
		SessionID:    session.ID,
		Status:       session.Status,
		WorkPackages: packages,
		Observations: observations,
		Metrics:      session.Metrics,
		Passes:       session.Passes,
		Warning:      session.Warning,
	}, nil
}

// track stores a defensive copy for pollers.
func (uc *ExtractionUseCase) track(s *domain.ExtractionSession) {
	copied := *s
	copied.Passes = append([]domain.PassRecord(nil), s.Passes...)
	copied.Metrics.ConfidenceHistogram = make(map[string]int, len(s.Metrics.ConfidenceHistogram))
	for k, v := range s.Metrics.ConfidenceHistogram {
		copied.Metrics.ConfidenceHistogram[k] = v
	}
	copied.Metrics.DivisionsCovered = append([]string(nil), s.Metrics.DivisionsCovered...)

	uc.mu.Lock()
	uc.live[s.ID] = &copied
	uc.mu.Unlock()
}

func (uc *ExtractionUseCase) modelName(s *domain.ExtractionSession) string {
	if s.Config.UseSyntheticData {
		return "synthetic"
	}
	return "claude"
}

func materializeItem(ri domain.ResultItem, documentID string, orderIndex int) domain.ExtractedLineItem {
	confidence := ri.Confidence
	if confidence == 0 {
		confidence = 0.7
	}
	return domain.ExtractedLineItem{
		ID:             uuid.NewString(),
		ItemNumber:     ri.ItemNumber,
		Description:    ri.Description,
		Action:         ri.Action,
		Quantity:       ri.Quantity,
		Unit:           ri.Unit,
		Specifications: ri.Specifications,
		Notes:          ri.Notes,
		Source: domain.SourceRef{
			DocumentID: documentID,
			SheetLabel: ri.SheetLabel,
			PageNumber: ri.PageNumber,
		},
		OrderIndex: orderIndex,
		Confidence: clamp01(confidence),
	}
}

func packageConfidence(items []domain.ExtractedLineItem, overall domain.ConfidenceLevel) domain.ConfidenceLevel {
	if overall == domain.ConfidenceLow || len(items) == 0 {
		return domain.ConfidenceLow
	}
	sum := 0.0
	for _, item := range items {
		sum += item.Confidence
	}
	avg := sum / float64(len(items))
	switch {
	case avg >= 0.85 && overall == domain.ConfidenceHigh:
		return domain.ConfidenceHigh
	case avg < 0.5:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceMedium
	}
}

func packageSlug(pkg domain.ResultPackage) string {
	division := orDefault(pkg.DivisionCode, generalDivision)
	name := strings.ToLower(strings.TrimSpace(pkg.Name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('-')
		}
	}
	return "pkg-" + division + "-" + strings.Trim(b.String(), "-")
}

func countItems(packages []domain.ExtractedWorkPackage) int {
	n := 0
	for i := range packages {
		n += packages[i].LiveItemCount()
	}
	return n
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// detectSheetLabel looks for a drawing sheet label (e.g. "A-101",
// "FP1.0") in the first few lines of page text.
func detectSheetLabel(text string) string {
	lines := strings.SplitN(text, "\n", 4)
	for _, line := range lines {
		for _, token := range strings.Fields(strings.TrimSpace(line)) {
			if isSheetLabel(token) {
				return token
			}
		}
	}
	return ""
}

func isSheetLabel(token string) bool {
	if len(token) < 2 || len(token) > 10 {
		return false
	}
	letters := 0
	for letters < len(token) && isASCIILetter(token[letters]) {
		letters++
	}
	if letters == 0 || letters > 2 {
		return false
	}
	rest := strings.TrimLeft(token[letters:], "-.")
	if rest == "" {
		return false
	}
	for i := 0; i < len(rest); i++ {
		ch := rest[i]
		if (ch < '0' || ch > '9') && ch != '.' && ch != '-' {
			return false
		}
	}
	return true
}

func isASCIILetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
