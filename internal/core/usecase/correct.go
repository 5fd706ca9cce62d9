package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/graymont/bidpipe/internal/core/domain"
	"github.com/graymont/bidpipe/internal/core/ports"
)

// CorrectionUseCase records human edits against prior predictions:
// every applied correction updates the live entity, appends to its
// correction history, and appends one PredictionRecord for supervised
// feedback.
type CorrectionUseCase struct {
	packages     ports.PackageRepository
	observations ports.ObservationRepository
	ledger       ports.PredictionLedger
	logger       *slog.Logger
	now          func() time.Time
}

func NewCorrectionUseCase(
	packages ports.PackageRepository,
	observations ports.ObservationRepository,
	ledger ports.PredictionLedger,
	logger *slog.Logger,
) *CorrectionUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &CorrectionUseCase{
		packages:     packages,
		observations: observations,
		ledger:       ledger,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Apply applies one correction. Kind defaults to a plain field
// correction for the single-correction form.
func (uc *CorrectionUseCase) Apply(ctx context.Context, sessionID, reviewerID string, c domain.Correction) error {
	if c.Kind == "" {
		c.Kind = domain.KindFieldCorrection
	}
	switch c.Kind {
	case domain.KindFieldCorrection:
		return uc.applyFieldCorrection(ctx, sessionID, reviewerID, c)
	case domain.KindAddLineItem:
		return uc.applyAddLineItem(ctx, sessionID, reviewerID, c)
	case domain.KindDeleteLineItem:
		return uc.applyDeleteLineItem(ctx, sessionID, reviewerID, c)
	case domain.KindObservationState:
		return uc.applyObservationDisposition(ctx, reviewerID, c)
	default:
		return domain.WrapError(domain.ErrInvalidInput, "apply correction", fmt.Errorf("unknown kind %q", c.Kind))
	}
}

// ApplyBatch applies many corrections, each atomically on its own: one
// failing item never aborts the others.
func (uc *CorrectionUseCase) ApplyBatch(ctx context.Context, batch domain.CorrectionBatch) (*domain.BatchOutcome, error) {
	if len(batch.Corrections) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "apply batch", errors.New("empty correction batch"))
	}

	out := &domain.BatchOutcome{}
	for i, c := range batch.Corrections {
		outcome := domain.CorrectionOutcome{Index: i, EntityID: c.EntityID, Applied: true}
		if err := uc.Apply(ctx, batch.SessionID, batch.ReviewerID, c); err != nil {
			outcome.Applied = false
			outcome.Error = err.Error()
			out.Failed++
			uc.logger.Warn("correction_failed", "session_id", batch.SessionID, "index", i, "error", err)
		} else {
			out.Applied++
		}
		out.Outcomes = append(out.Outcomes, outcome)
	}
	return out, nil
}

func (uc *CorrectionUseCase) applyFieldCorrection(ctx context.Context, sessionID, reviewerID string, c domain.Correction) error {
	if strings.TrimSpace(c.Field) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "field correction", errors.New("field is required"))
	}

	switch c.EntityType {
	case domain.EntityWorkPackage:
		return uc.correctPackageField(ctx, sessionID, reviewerID, c)
	case domain.EntityLineItem, "":
		return uc.correctItemField(ctx, sessionID, reviewerID, c)
	default:
		return domain.WrapError(domain.ErrInvalidInput, "field correction", fmt.Errorf("unsupported entity type %q", c.EntityType))
	}
}

func (uc *CorrectionUseCase) correctItemField(ctx context.Context, sessionID, reviewerID string, c domain.Correction) error {
	item, packageID, err := uc.packages.GetLineItem(ctx, c.EntityID)
	if err != nil {
		return fmt.Errorf("load line item: %w", err)
	}
	pkg, err := uc.packages.GetPackage(ctx, packageID)
	if err != nil {
		return fmt.Errorf("load work package: %w", err)
	}

	original, err := applyItemField(item, c.Field, c.CorrectedValue)
	if err != nil {
		return err
	}

	item.Corrections = append(item.Corrections, domain.CorrectionEntry{
		Field:       c.Field,
		Original:    original,
		Corrected:   c.CorrectedValue,
		Reason:      c.Reason,
		ReviewerID:  reviewerID,
		CorrectedAt: uc.now(),
	})

	if err := uc.packages.UpdateLineItem(ctx, packageID, item); err != nil {
		return fmt.Errorf("update line item: %w", err)
	}

	return uc.appendPrediction(ctx, sessionID, string(domain.EntityLineItem), item.ID, c.Field,
		original, c.CorrectedValue, item.Confidence, c.Reason, pkg.Provenance)
}

func (uc *CorrectionUseCase) correctPackageField(ctx context.Context, sessionID, reviewerID string, c domain.Correction) error {
	pkg, err := uc.packages.GetPackage(ctx, c.EntityID)
	if err != nil {
		return fmt.Errorf("load work package: %w", err)
	}

	original, err := applyPackageField(pkg, c.Field, c.CorrectedValue)
	if err != nil {
		return err
	}
	pkg.Provenance.HumanReviewed = true

	if err := uc.packages.UpdatePackage(ctx, pkg); err != nil {
		return fmt.Errorf("update work package: %w", err)
	}

	return uc.appendPrediction(ctx, sessionID, string(domain.EntityWorkPackage), pkg.ID, c.Field,
		original, c.CorrectedValue, pkg.Classification.Confidence, c.Reason, pkg.Provenance)
}

// applyAddLineItem inserts a reviewer-authored line item at the next
// order index and increments the package item count.
func (uc *CorrectionUseCase) applyAddLineItem(ctx context.Context, sessionID, reviewerID string, c domain.Correction) error {
	if c.NewItem == nil || strings.TrimSpace(c.NewItem.Description) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "add line item", errors.New("new item with a description is required"))
	}
	packageID := c.PackageID
	if packageID == "" {
		packageID = c.EntityID
	}

	pkg, err := uc.packages.GetPackage(ctx, packageID)
	if err != nil {
		return fmt.Errorf("load work package: %w", err)
	}

	item := materializeItem(*c.NewItem, "", pkg.NextOrderIndex())
	item.Corrections = []domain.CorrectionEntry{{
		Field:       "line_item",
		Corrected:   item.Description,
		Reason:      c.Reason,
		ReviewerID:  reviewerID,
		CorrectedAt: uc.now(),
	}}

	if err := uc.packages.InsertLineItem(ctx, pkg.ID, &item); err != nil {
		return fmt.Errorf("insert line item: %w", err)
	}
	if err := uc.packages.SetItemCount(ctx, pkg.ID, pkg.LiveItemCount()+1); err != nil {
		return fmt.Errorf("update item count: %w", err)
	}

	// Reviewer-authored items have no predicting pass or model.
	return uc.appendPrediction(ctx, sessionID, string(domain.EntityLineItem), item.ID, "description",
		"", item.Description, item.Confidence, "added by reviewer", domain.Provenance{})
}

// applyDeleteLineItem soft-deletes: the item stays in history with a
// deletion reason, and the package count never drops below zero.
func (uc *CorrectionUseCase) applyDeleteLineItem(ctx context.Context, sessionID, reviewerID string, c domain.Correction) error {
	item, packageID, err := uc.packages.GetLineItem(ctx, c.EntityID)
	if err != nil {
		return fmt.Errorf("load line item: %w", err)
	}
	if item.Deleted {
		return domain.WrapError(domain.ErrInvalidInput, "delete line item", fmt.Errorf("line item %s already deleted", item.ID))
	}

	item.Deleted = true
	item.Corrections = append(item.Corrections, domain.CorrectionEntry{
		Field:       "deleted",
		Original:    "false",
		Corrected:   "true",
		Reason:      c.Reason,
		ReviewerID:  reviewerID,
		CorrectedAt: uc.now(),
	})

	if err := uc.packages.UpdateLineItem(ctx, packageID, item); err != nil {
		return fmt.Errorf("update line item: %w", err)
	}

	pkg, err := uc.packages.GetPackage(ctx, packageID)
	if err != nil {
		return fmt.Errorf("load work package: %w", err)
	}
	count := pkg.LiveItemCount()
	if count < 0 {
		count = 0
	}
	if err := uc.packages.SetItemCount(ctx, pkg.ID, count); err != nil {
		return fmt.Errorf("update item count: %w", err)
	}

	return uc.appendPrediction(ctx, sessionID, string(domain.EntityLineItem), item.ID, "deleted",
		"false", "true", item.Confidence, c.Reason, pkg.Provenance)
}

func (uc *CorrectionUseCase) applyObservationDisposition(ctx context.Context, reviewerID string, c domain.Correction) error {
	switch c.Disposition {
	case domain.ObservationAcknowledged, domain.ObservationDismissed, domain.ObservationResponded:
	default:
		return domain.WrapError(domain.ErrInvalidInput, "observation disposition", fmt.Errorf("invalid disposition %q", c.Disposition))
	}

	obs, err := uc.observations.GetObservation(ctx, c.EntityID)
	if err != nil {
		return fmt.Errorf("load observation: %w", err)
	}

	now := uc.now()
	obs.State = c.Disposition
	obs.Response = c.Response
	obs.ResponderID = reviewerID
	obs.RespondedAt = &now

	if err := uc.observations.UpdateObservationState(ctx, obs); err != nil {
		return fmt.Errorf("update observation: %w", err)
	}
	return nil
}

// appendPrediction records predicted-vs-final even when the reviewer
// confirmed the predicted value unchanged; an accepted prediction is a
// positive training signal.
func (uc *CorrectionUseCase) appendPrediction(ctx context.Context, sessionID, entityType, entityID, field, original, final string, confidence float64, reason string, prov domain.Provenance) error {
	wasCorrect := strings.TrimSpace(original) == strings.TrimSpace(final)
	source := domain.SourceCorrection
	if wasCorrect {
		source = domain.SourceAccepted
	}

	record := &domain.PredictionRecord{
		ID:                  uuid.NewString(),
		SessionID:           sessionID,
		EntityType:          entityType,
		EntityID:            entityID,
		Field:               field,
		PredictedValue:      original,
		PredictedConfidence: confidence,
		PredictedByPass:     prov.Pass,
		PredictedByModel:    prov.ExtractedBy,
		FinalValue:          final,
		FinalSource:         source,
		WasCorrect:          wasCorrect,
		Context:             reason,
		RecordedAt:          uc.now(),
	}
	if err := uc.ledger.AppendPrediction(ctx, record); err != nil {
		return fmt.Errorf("append prediction record: %w", err)
	}
	return nil
}

func applyItemField(item *domain.ExtractedLineItem, field, value string) (string, error) {
	switch field {
	case "description":
		original := item.Description
		item.Description = value
		return original, nil
	case "item_number":
		original := item.ItemNumber
		item.ItemNumber = value
		return original, nil
	case "action":
		original := item.Action
		item.Action = value
		return original, nil
	case "quantity":
		original := strconv.FormatFloat(item.Quantity, 'f', -1, 64)
		qty, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return "", domain.WrapError(domain.ErrInvalidInput, "field correction", fmt.Errorf("quantity %q is not numeric", value))
		}
		item.Quantity = qty
		return original, nil
	case "unit":
		original := item.Unit
		item.Unit = value
		return original, nil
	case "specifications":
		original := item.Specifications
		item.Specifications = value
		return original, nil
	case "notes":
		original := item.Notes
		item.Notes = value
		return original, nil
	case "csi_code":
		original := item.CSICode
		item.CSICode = value
		return original, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "field correction", fmt.Errorf("unknown line item field %q", field))
	}
}

func applyPackageField(pkg *domain.ExtractedWorkPackage, field, value string) (string, error) {
	switch field {
	case "name":
		original := pkg.Name
		pkg.Name = value
		return original, nil
	case "trade":
		original := pkg.Trade
		pkg.Trade = value
		return original, nil
	case "division_code":
		original := pkg.Classification.DivisionCode
		pkg.Classification.DivisionCode = value
		return original, nil
	case "complexity":
		original := pkg.Complexity
		pkg.Complexity = value
		return original, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "field correction", fmt.Errorf("unknown work package field %q", field))
	}
}
