package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/graymont/bidpipe/internal/core/domain"
)

var reviewTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newCorrectionHarness(t *testing.T) (*CorrectionUseCase, *memPackageRepo, *memObservationRepo, *memLedger) {
	t.Helper()

	packages := newMemPackageRepo()
	packages.seed(domain.ExtractedWorkPackage{
		ID:        "wp-1",
		PackageID: "pkg-23-mechanical",
		SessionID: "s-1",
		Name:      "Mechanical",
		Trade:     "Mechanical",
		Classification: domain.Classification{
			DivisionCode: "23",
			Confidence:   0.82,
		},
		LineItems: []domain.ExtractedLineItem{
			{ID: "li-1", Description: "Install ductwork", Quantity: 4, Unit: "EA", OrderIndex: 0, Confidence: 0.8},
			{ID: "li-2", Description: "Install diffusers", OrderIndex: 3, Confidence: 0.6},
		},
		ItemCount:  2,
		Confidence: domain.ConfidenceMedium,
		Provenance: domain.Provenance{ExtractedBy: "claude-sonnet-4", Pass: 2},
	})

	observations := newMemObservationRepo()
	if err := observations.InsertObservations(context.Background(), []domain.AIObservation{{
		ID:        "obs-1",
		SessionID: "s-1",
		Severity:  domain.SeverityWarning,
		Title:     "Duct sizes missing on M-102",
		State:     domain.ObservationPending,
	}}); err != nil {
		t.Fatalf("seed observations: %v", err)
	}

	ledger := &memLedger{}
	uc := NewCorrectionUseCase(packages, observations, ledger, discardLogger())
	uc.now = func() time.Time { return reviewTime }
	return uc, packages, observations, ledger
}

func TestApplyFieldCorrectionRecordsHistoryAndPrediction(t *testing.T) {
	uc, packages, _, ledger := newCorrectionHarness(t)

	err := uc.Apply(context.Background(), "s-1", "rev-7", domain.Correction{
		EntityID:       "li-1",
		Field:          "description",
		CorrectedValue: "Install spiral ductwork",
		Reason:         "drawing note 4",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	item := packages.item("wp-1", "li-1")
	if item.Description != "Install spiral ductwork" {
		t.Fatalf("description = %q", item.Description)
	}
	if len(item.Corrections) != 1 {
		t.Fatalf("corrections = %d, want 1", len(item.Corrections))
	}
	entry := item.Corrections[0]
	if entry.Field != "description" || entry.Original != "Install ductwork" || entry.Corrected != "Install spiral ductwork" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.ReviewerID != "rev-7" || !entry.CorrectedAt.Equal(reviewTime) {
		t.Errorf("entry attribution = %+v", entry)
	}

	records := ledger.all()
	if len(records) != 1 {
		t.Fatalf("ledger = %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.WasCorrect {
		t.Error("WasCorrect = true for a changed value")
	}
	if rec.FinalSource != domain.SourceCorrection {
		t.Errorf("FinalSource = %q", rec.FinalSource)
	}
	if rec.EntityType != "line_item" || rec.EntityID != "li-1" || rec.Field != "description" {
		t.Errorf("record identity = %+v", rec)
	}
	if rec.PredictedValue != "Install ductwork" || rec.FinalValue != "Install spiral ductwork" {
		t.Errorf("record values = %+v", rec)
	}
	if rec.PredictedConfidence != 0.8 {
		t.Errorf("PredictedConfidence = %v", rec.PredictedConfidence)
	}
	if rec.PredictedByPass != 2 || rec.PredictedByModel != "claude-sonnet-4" {
		t.Errorf("record provenance = pass %d model %q, want pass 2 model claude-sonnet-4",
			rec.PredictedByPass, rec.PredictedByModel)
	}
}

func TestApplyAcceptedValueStillAppendsPrediction(t *testing.T) {
	uc, _, _, ledger := newCorrectionHarness(t)

	err := uc.Apply(context.Background(), "s-1", "rev-7", domain.Correction{
		Kind:           domain.KindFieldCorrection,
		EntityID:       "li-1",
		Field:          "description",
		CorrectedValue: "  Install ductwork  ",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	records := ledger.all()
	if len(records) != 1 {
		t.Fatalf("ledger = %d records, want 1", len(records))
	}
	if !records[0].WasCorrect {
		t.Error("WasCorrect = false for an unchanged value")
	}
	if records[0].FinalSource != domain.SourceAccepted {
		t.Errorf("FinalSource = %q", records[0].FinalSource)
	}
}

func TestApplyQuantityCorrectionRejectsNonNumeric(t *testing.T) {
	uc, packages, _, ledger := newCorrectionHarness(t)

	err := uc.Apply(context.Background(), "s-1", "rev-7", domain.Correction{
		EntityID:       "li-1",
		Field:          "quantity",
		CorrectedValue: "a lot",
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
	if got := packages.item("wp-1", "li-1").Quantity; got != 4 {
		t.Errorf("quantity = %v, want unchanged 4", got)
	}
	if len(ledger.all()) != 0 {
		t.Error("rejected correction must not reach the ledger")
	}
}

func TestApplyFieldCorrectionRequiresField(t *testing.T) {
	uc, _, _, _ := newCorrectionHarness(t)

	err := uc.Apply(context.Background(), "s-1", "rev-7", domain.Correction{
		EntityID:       "li-1",
		CorrectedValue: "anything",
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
}

func TestApplyUnknownItemFieldRejected(t *testing.T) {
	uc, _, _, _ := newCorrectionHarness(t)

	err := uc.Apply(context.Background(), "s-1", "rev-7", domain.Correction{
		EntityID:       "li-1",
		Field:          "color",
		CorrectedValue: "blue",
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
}

func TestApplyPackageFieldCorrectionMarksHumanReviewed(t *testing.T) {
	uc, packages, _, ledger := newCorrectionHarness(t)

	err := uc.Apply(context.Background(), "s-1", "rev-7", domain.Correction{
		EntityType:     domain.EntityWorkPackage,
		EntityID:       "wp-1",
		Field:          "trade",
		CorrectedValue: "HVAC",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	pkg, err := packages.GetPackage(context.Background(), "wp-1")
	if err != nil {
		t.Fatalf("GetPackage: %v", err)
	}
	if pkg.Trade != "HVAC" {
		t.Errorf("trade = %q", pkg.Trade)
	}
	if !pkg.Provenance.HumanReviewed {
		t.Error("HumanReviewed not set")
	}

	records := ledger.all()
	if len(records) != 1 {
		t.Fatalf("ledger = %d records, want 1", len(records))
	}
	if records[0].EntityType != "work_package" || records[0].PredictedConfidence != 0.82 {
		t.Errorf("record = %+v", records[0])
	}
	if records[0].PredictedByPass != 2 || records[0].PredictedByModel != "claude-sonnet-4" {
		t.Errorf("record provenance = %+v", records[0])
	}
}

func TestApplyAddLineItemUsesNextOrderIndex(t *testing.T) {
	uc, packages, _, ledger := newCorrectionHarness(t)

	err := uc.Apply(context.Background(), "s-1", "rev-7", domain.Correction{
		Kind:      domain.KindAddLineItem,
		PackageID: "wp-1",
		NewItem:   &domain.ResultItem{Description: "Seismic bracing at mains", Unit: "LF", Quantity: 60},
		Reason:    "missed on A-500",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	pkg, err := packages.GetPackage(context.Background(), "wp-1")
	if err != nil {
		t.Fatalf("GetPackage: %v", err)
	}
	if len(pkg.LineItems) != 3 {
		t.Fatalf("line items = %d, want 3", len(pkg.LineItems))
	}
	added := pkg.LineItems[2]
	if added.Description != "Seismic bracing at mains" {
		t.Errorf("description = %q", added.Description)
	}
	if added.OrderIndex != 4 {
		t.Errorf("order index = %d, want 4 (after existing max 3)", added.OrderIndex)
	}
	if len(added.Corrections) != 1 || added.Corrections[0].Field != "line_item" {
		t.Errorf("provenance entry = %+v", added.Corrections)
	}
	if packages.counts["wp-1"] != 3 {
		t.Errorf("item count = %d, want 3", packages.counts["wp-1"])
	}

	records := ledger.all()
	if len(records) != 1 {
		t.Fatalf("ledger = %d records, want 1", len(records))
	}
	if records[0].Context != "added by reviewer" || records[0].WasCorrect {
		t.Errorf("record = %+v", records[0])
	}
	if records[0].PredictedByPass != 0 || records[0].PredictedByModel != "" {
		t.Errorf("reviewer-added item must carry no predicting pass or model, got %+v", records[0])
	}
}

func TestApplyAddLineItemRequiresDescription(t *testing.T) {
	uc, _, _, _ := newCorrectionHarness(t)

	err := uc.Apply(context.Background(), "s-1", "rev-7", domain.Correction{
		Kind:      domain.KindAddLineItem,
		PackageID: "wp-1",
		NewItem:   &domain.ResultItem{Description: "   "},
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
}

func TestApplyDeleteLineItemIsSoftAndNotRepeatable(t *testing.T) {
	uc, packages, _, ledger := newCorrectionHarness(t)

	err := uc.Apply(context.Background(), "s-1", "rev-7", domain.Correction{
		Kind:     domain.KindDeleteLineItem,
		EntityID: "li-2",
		Reason:   "duplicate of li-1",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	item := packages.item("wp-1", "li-2")
	if item == nil || !item.Deleted {
		t.Fatal("item must remain in history with Deleted set")
	}
	if len(item.Corrections) != 1 || item.Corrections[0].Field != "deleted" || item.Corrections[0].Corrected != "true" {
		t.Errorf("deletion entry = %+v", item.Corrections)
	}
	if packages.counts["wp-1"] != 1 {
		t.Errorf("item count = %d, want 1", packages.counts["wp-1"])
	}
	if len(ledger.all()) != 1 {
		t.Fatalf("ledger = %d records, want 1", len(ledger.all()))
	}
	if rec := ledger.all()[0]; rec.PredictedByPass != 2 || rec.PredictedByModel != "claude-sonnet-4" {
		t.Errorf("record provenance = %+v", rec)
	}

	err = uc.Apply(context.Background(), "s-1", "rev-7", domain.Correction{
		Kind:     domain.KindDeleteLineItem,
		EntityID: "li-2",
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("repeat delete err = %v, want invalid input", err)
	}
	if !strings.Contains(err.Error(), "already deleted") {
		t.Errorf("repeat delete err = %v", err)
	}
	if len(ledger.all()) != 1 {
		t.Error("repeat delete must not append a second record")
	}
}

func TestApplyObservationDispositionValidatesState(t *testing.T) {
	uc, _, observations, _ := newCorrectionHarness(t)

	err := uc.Apply(context.Background(), "s-1", "rev-7", domain.Correction{
		Kind:        domain.KindObservationState,
		EntityID:    "obs-1",
		Disposition: "ignored",
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}

	err = uc.Apply(context.Background(), "s-1", "rev-7", domain.Correction{
		Kind:        domain.KindObservationState,
		EntityID:    "obs-1",
		Disposition: domain.ObservationResponded,
		Response:    "sizes confirmed with engineer",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	obs, err := observations.GetObservation(context.Background(), "obs-1")
	if err != nil {
		t.Fatalf("GetObservation: %v", err)
	}
	if obs.State != domain.ObservationResponded {
		t.Errorf("state = %q", obs.State)
	}
	if obs.Response != "sizes confirmed with engineer" || obs.ResponderID != "rev-7" {
		t.Errorf("observation = %+v", obs)
	}
	if obs.RespondedAt == nil || !obs.RespondedAt.Equal(reviewTime) {
		t.Errorf("RespondedAt = %v", obs.RespondedAt)
	}
}

func TestApplyRejectsUnknownKind(t *testing.T) {
	uc, _, _, _ := newCorrectionHarness(t)

	err := uc.Apply(context.Background(), "s-1", "rev-7", domain.Correction{
		Kind:     "merge_packages",
		EntityID: "wp-1",
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
}

func TestApplyBatchIsolatesFailures(t *testing.T) {
	uc, _, _, ledger := newCorrectionHarness(t)

	outcome, err := uc.ApplyBatch(context.Background(), domain.CorrectionBatch{
		SessionID:  "s-1",
		ReviewerID: "rev-7",
		Corrections: []domain.Correction{
			{EntityID: "li-1", Field: "unit", CorrectedValue: "LF"},
			{EntityID: "li-1", Field: "quantity", CorrectedValue: "not a number"},
			{Kind: domain.KindDeleteLineItem, EntityID: "li-2"},
		},
	})
	if err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	if outcome.Applied != 2 || outcome.Failed != 1 {
		t.Fatalf("applied/failed = %d/%d, want 2/1", outcome.Applied, outcome.Failed)
	}
	if len(outcome.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcome.Outcomes))
	}
	if outcome.Outcomes[0].Applied != true || outcome.Outcomes[2].Applied != true {
		t.Errorf("outcomes = %+v", outcome.Outcomes)
	}
	bad := outcome.Outcomes[1]
	if bad.Applied || bad.Error == "" || bad.Index != 1 {
		t.Errorf("failed outcome = %+v", bad)
	}
	if len(ledger.all()) != 2 {
		t.Errorf("ledger = %d records, want 2", len(ledger.all()))
	}
}

func TestApplyBatchRejectsEmptyBatch(t *testing.T) {
	uc, _, _, _ := newCorrectionHarness(t)

	_, err := uc.ApplyBatch(context.Background(), domain.CorrectionBatch{SessionID: "s-1"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
}
