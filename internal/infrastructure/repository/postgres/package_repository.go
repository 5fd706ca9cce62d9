package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/graymont/bidpipe/internal/core/domain"
)

type PackageRepository struct {
	db *sql.DB
}

func NewPackageRepository(db *sql.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

// UpsertPackages writes a full set of packages and their line items in
// one transaction. Re-running a pass overwrites prior rows in place so
// package identity is stable across passes.
func (r *PackageRepository) UpsertPackages(ctx context.Context, sessionID string, packages []domain.ExtractedWorkPackage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert packages: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := range packages {
		pkg := &packages[i]
		if err := upsertPackage(ctx, tx, sessionID, pkg); err != nil {
			return err
		}
		for j := range pkg.LineItems {
			if err := upsertLineItem(ctx, tx, pkg.ID, &pkg.LineItems[j]); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert packages: %w", err)
	}
	return nil
}

func upsertPackage(ctx context.Context, tx *sql.Tx, sessionID string, pkg *domain.ExtractedWorkPackage) error {
	classification, err := json.Marshal(pkg.Classification)
	if err != nil {
		return fmt.Errorf("marshal package classification: %w", err)
	}
	keyDocuments, err := json.Marshal(pkg.KeyDocuments)
	if err != nil {
		return fmt.Errorf("marshal package key documents: %w", err)
	}
	provenance, err := json.Marshal(pkg.Provenance)
	if err != nil {
		return fmt.Errorf("marshal package provenance: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO work_packages (id, package_id, session_id, name, trade, classification, item_count, complexity, key_documents, confidence, provenance)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name, trade = EXCLUDED.trade, classification = EXCLUDED.classification,
    item_count = EXCLUDED.item_count, complexity = EXCLUDED.complexity, key_documents = EXCLUDED.key_documents,
    confidence = EXCLUDED.confidence, provenance = EXCLUDED.provenance
`, pkg.ID, pkg.PackageID, sessionID, pkg.Name, pkg.Trade, classification, pkg.ItemCount,
		pkg.Complexity, keyDocuments, string(pkg.Confidence), provenance)
	if err != nil {
		return fmt.Errorf("upsert package: %w", err)
	}
	return nil
}

func upsertLineItem(ctx context.Context, tx *sql.Tx, packageID string, item *domain.ExtractedLineItem) error {
	source, err := json.Marshal(item.Source)
	if err != nil {
		return fmt.Errorf("marshal item source: %w", err)
	}
	corrections, err := json.Marshal(item.Corrections)
	if err != nil {
		return fmt.Errorf("marshal item corrections: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO line_items (id, package_id, item_number, description, action, quantity, unit, specifications, notes, source, order_index, confidence, csi_code, csi_title, deleted, corrections)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (id) DO UPDATE
SET item_number = EXCLUDED.item_number, description = EXCLUDED.description, action = EXCLUDED.action,
    quantity = EXCLUDED.quantity, unit = EXCLUDED.unit, specifications = EXCLUDED.specifications,
    notes = EXCLUDED.notes, source = EXCLUDED.source, order_index = EXCLUDED.order_index,
    confidence = EXCLUDED.confidence, csi_code = EXCLUDED.csi_code, csi_title = EXCLUDED.csi_title,
    deleted = EXCLUDED.deleted, corrections = EXCLUDED.corrections
`, item.ID, packageID, item.ItemNumber, item.Description, item.Action, item.Quantity, item.Unit,
		item.Specifications, item.Notes, source, item.OrderIndex, item.Confidence,
		item.CSICode, item.CSITitle, item.Deleted, corrections)
	if err != nil {
		return fmt.Errorf("upsert line item: %w", err)
	}
	return nil
}

func (r *PackageRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.ExtractedWorkPackage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, package_id, session_id, name, trade, classification, item_count, complexity, key_documents, confidence, provenance
FROM work_packages
WHERE session_id = $1
ORDER BY classification->>'division_code', name
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ExtractedWorkPackage, 0)
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate packages: %w", err)
	}

	for i := range out {
		items, err := r.listLineItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].LineItems = items
	}
	return out, nil
}

func (r *PackageRepository) GetPackage(ctx context.Context, id string) (*domain.ExtractedWorkPackage, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, package_id, session_id, name, trade, classification, item_count, complexity, key_documents, confidence, provenance
FROM work_packages
WHERE id = $1
`, id)

	pkg, err := scanPackage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrEntityNotFound, "get package", err)
		}
		return nil, fmt.Errorf("get package: %w", err)
	}
	items, err := r.listLineItems(ctx, pkg.ID)
	if err != nil {
		return nil, err
	}
	pkg.LineItems = items
	return pkg, nil
}

func (r *PackageRepository) UpdatePackage(ctx context.Context, pkg *domain.ExtractedWorkPackage) error {
	classification, err := json.Marshal(pkg.Classification)
	if err != nil {
		return fmt.Errorf("marshal package classification: %w", err)
	}
	keyDocuments, err := json.Marshal(pkg.KeyDocuments)
	if err != nil {
		return fmt.Errorf("marshal package key documents: %w", err)
	}
	provenance, err := json.Marshal(pkg.Provenance)
	if err != nil {
		return fmt.Errorf("marshal package provenance: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE work_packages
SET name = $2, trade = $3, classification = $4, item_count = $5, complexity = $6, key_documents = $7, confidence = $8, provenance = $9
WHERE id = $1
`, pkg.ID, pkg.Name, pkg.Trade, classification, pkg.ItemCount, pkg.Complexity,
		keyDocuments, string(pkg.Confidence), provenance)
	if err != nil {
		return fmt.Errorf("update package: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update package rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrEntityNotFound, "update package", sql.ErrNoRows)
	}
	return nil
}

func (r *PackageRepository) GetLineItem(ctx context.Context, id string) (*domain.ExtractedLineItem, string, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, package_id, item_number, description, action, quantity, unit, specifications, notes, source, order_index, confidence, csi_code, csi_title, deleted, corrections
FROM line_items
WHERE id = $1
`, id)

	item, packageID, err := scanLineItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", domain.WrapError(domain.ErrEntityNotFound, "get line item", err)
		}
		return nil, "", fmt.Errorf("get line item: %w", err)
	}
	return item, packageID, nil
}

func (r *PackageRepository) UpdateLineItem(ctx context.Context, packageID string, item *domain.ExtractedLineItem) error {
	source, err := json.Marshal(item.Source)
	if err != nil {
		return fmt.Errorf("marshal item source: %w", err)
	}
	corrections, err := json.Marshal(item.Corrections)
	if err != nil {
		return fmt.Errorf("marshal item corrections: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE line_items
SET item_number = $3, description = $4, action = $5, quantity = $6, unit = $7, specifications = $8, notes = $9, source = $10, order_index = $11, confidence = $12, csi_code = $13, csi_title = $14, deleted = $15, corrections = $16
WHERE id = $1 AND package_id = $2
`, item.ID, packageID, item.ItemNumber, item.Description, item.Action, item.Quantity, item.Unit,
		item.Specifications, item.Notes, source, item.OrderIndex, item.Confidence,
		item.CSICode, item.CSITitle, item.Deleted, corrections)
	if err != nil {
		return fmt.Errorf("update line item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update line item rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrEntityNotFound, "update line item", sql.ErrNoRows)
	}
	return nil
}

func (r *PackageRepository) InsertLineItem(ctx context.Context, packageID string, item *domain.ExtractedLineItem) error {
	source, err := json.Marshal(item.Source)
	if err != nil {
		return fmt.Errorf("marshal item source: %w", err)
	}
	corrections, err := json.Marshal(item.Corrections)
	if err != nil {
		return fmt.Errorf("marshal item corrections: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO line_items (id, package_id, item_number, description, action, quantity, unit, specifications, notes, source, order_index, confidence, csi_code, csi_title, deleted, corrections)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`, item.ID, packageID, item.ItemNumber, item.Description, item.Action, item.Quantity, item.Unit,
		item.Specifications, item.Notes, source, item.OrderIndex, item.Confidence,
		item.CSICode, item.CSITitle, item.Deleted, corrections)
	if err != nil {
		return fmt.Errorf("insert line item: %w", err)
	}
	return nil
}

func (r *PackageRepository) SetItemCount(ctx context.Context, packageID string, count int) error {
	if count < 0 {
		count = 0
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE work_packages
SET item_count = $2
WHERE id = $1
`, packageID, count)
	if err != nil {
		return fmt.Errorf("set item count: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set item count rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrEntityNotFound, "set item count", sql.ErrNoRows)
	}
	return nil
}

func (r *PackageRepository) listLineItems(ctx context.Context, packageID string) ([]domain.ExtractedLineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, package_id, item_number, description, action, quantity, unit, specifications, notes, source, order_index, confidence, csi_code, csi_title, deleted, corrections
FROM line_items
WHERE package_id = $1
ORDER BY order_index
`, packageID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ExtractedLineItem, 0)
	for rows.Next() {
		item, _, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line items: %w", err)
	}
	return out, nil
}

func scanPackage(row rowScanner) (*domain.ExtractedWorkPackage, error) {
	var (
		pkg            domain.ExtractedWorkPackage
		classification []byte
		keyDocuments   []byte
		confidence     string
		provenance     []byte
	)
	err := row.Scan(&pkg.ID, &pkg.PackageID, &pkg.SessionID, &pkg.Name, &pkg.Trade, &classification,
		&pkg.ItemCount, &pkg.Complexity, &keyDocuments, &confidence, &provenance)
	if err != nil {
		return nil, err
	}
	pkg.Confidence = domain.ConfidenceLevel(confidence)
	if err := json.Unmarshal(classification, &pkg.Classification); err != nil {
		return nil, fmt.Errorf("unmarshal package classification: %w", err)
	}
	if err := json.Unmarshal(keyDocuments, &pkg.KeyDocuments); err != nil {
		return nil, fmt.Errorf("unmarshal package key documents: %w", err)
	}
	if err := json.Unmarshal(provenance, &pkg.Provenance); err != nil {
		return nil, fmt.Errorf("unmarshal package provenance: %w", err)
	}
	return &pkg, nil
}

func scanLineItem(row rowScanner) (*domain.ExtractedLineItem, string, error) {
	var (
		item        domain.ExtractedLineItem
		packageID   string
		source      []byte
		corrections []byte
	)
	err := row.Scan(&item.ID, &packageID, &item.ItemNumber, &item.Description, &item.Action,
		&item.Quantity, &item.Unit, &item.Specifications, &item.Notes, &source,
		&item.OrderIndex, &item.Confidence, &item.CSICode, &item.CSITitle, &item.Deleted, &corrections)
	if err != nil {
		return nil, "", err
	}
	if err := json.Unmarshal(source, &item.Source); err != nil {
		return nil, "", fmt.Errorf("unmarshal item source: %w", err)
	}
	if err := json.Unmarshal(corrections, &item.Corrections); err != nil {
		return nil, "", fmt.Errorf("unmarshal item corrections: %w", err)
	}
	return &item, packageID, nil
}
