// Package excel renders a session's extracted bid scope as an XLSX
// workbook: one summary sheet plus one sheet per work package.
package excel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/graymont/bidpipe/internal/core/domain"
	"github.com/graymont/bidpipe/internal/core/ports"
)

type Exporter struct {
	sessions SessionReader
	packages ports.PackageRepository
	logger   *slog.Logger
}

// SessionReader is the subset of session persistence the exporter needs.
type SessionReader interface {
	GetSession(ctx context.Context, id string) (*domain.ExtractionSession, error)
}

func NewExporter(sessions SessionReader, packages ports.PackageRepository, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{sessions: sessions, packages: packages, logger: logger}
}

// ExportBidSheet returns the workbook bytes for a session. Deleted line
// items are excluded.
func (e *Exporter) ExportBidSheet(ctx context.Context, sessionID string) ([]byte, error) {
	start := time.Now()

	session, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	packages, err := e.packages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := writeSummarySheet(f, session, packages); err != nil {
		return nil, err
	}
	for i := range packages {
		if err := writePackageSheet(f, i, &packages[i]); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("bid sheet exported",
		"session_id", sessionID,
		"packages", len(packages),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, session *domain.ExtractionSession, packages []domain.ExtractedWorkPackage) error {
	const sheet = "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}

	setCell(f, sheet, 1, 1, "Session")
	setCell(f, sheet, 2, 1, session.ID)
	setCell(f, sheet, 1, 2, "Status")
	setCell(f, sheet, 2, 2, string(session.Status))
	setCell(f, sheet, 1, 3, "Documents")
	setCell(f, sheet, 2, 3, len(session.Documents))

	headers := []string{"Division", "Package", "Trade", "Items", "Confidence", "Complexity"}
	const headerRow = 5
	for i, h := range headers {
		setCell(f, sheet, i+1, headerRow, h)
	}

	row := headerRow + 1
	for i := range packages {
		pkg := &packages[i]
		setCell(f, sheet, 1, row, pkg.Classification.DivisionCode)
		setCell(f, sheet, 2, row, pkg.Name)
		setCell(f, sheet, 3, row, pkg.Trade)
		setCell(f, sheet, 4, row, pkg.LiveItemCount())
		setCell(f, sheet, 5, row, string(pkg.Confidence))
		setCell(f, sheet, 6, row, pkg.Complexity)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 10)
	_ = f.SetColWidth(sheet, "B", "B", 32)
	_ = f.SetColWidth(sheet, "C", "C", 20)
	_ = f.SetColWidth(sheet, "D", "F", 12)
	return nil
}

func writePackageSheet(f *excelize.File, index int, pkg *domain.ExtractedWorkPackage) error {
	sheet := sheetName(index, pkg)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create package sheet: %w", err)
	}

	headers := []string{"#", "Description", "Action", "Qty", "Unit", "CSI Section", "Sheet", "Notes", "Confidence"}
	for i, h := range headers {
		setCell(f, sheet, i+1, 1, h)
	}

	row := 2
	for i := range pkg.LineItems {
		item := &pkg.LineItems[i]
		if item.Deleted {
			continue
		}
		setCell(f, sheet, 1, row, item.ItemNumber)
		setCell(f, sheet, 2, row, item.Description)
		setCell(f, sheet, 3, row, item.Action)
		if item.Quantity != 0 {
			setCell(f, sheet, 4, row, item.Quantity)
		}
		setCell(f, sheet, 5, row, item.Unit)
		setCell(f, sheet, 6, row, item.CSICode)
		setCell(f, sheet, 7, row, item.Source.SheetLabel)
		setCell(f, sheet, 8, row, item.Notes)
		setCell(f, sheet, 9, row, item.Confidence)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "B", 50)
	_ = f.SetColWidth(sheet, "C", "E", 10)
	_ = f.SetColWidth(sheet, "F", "F", 14)
	_ = f.SetColWidth(sheet, "G", "G", 10)
	_ = f.SetColWidth(sheet, "H", "H", 40)
	return nil
}

// Excel rejects these characters anywhere in a sheet name.
var sheetCharReplacer = strings.NewReplacer(
	"[", " ", "]", " ", ":", " ", "*", " ", "?", " ", "/", " ", "\\", " ",
)

// sheetName keeps within excelize's 31-character sheet name limit,
// strips characters Excel forbids, and guarantees uniqueness via the
// division prefix and index.
func sheetName(index int, pkg *domain.ExtractedWorkPackage) string {
	name := strings.TrimSpace(sheetCharReplacer.Replace(pkg.Name))
	if len(name) > 22 {
		name = strings.TrimSpace(name[:22])
	}
	div := pkg.Classification.DivisionCode
	if div == "" {
		div = "00"
	}
	if name == "" {
		return fmt.Sprintf("%s-%d", div, index+1)
	}
	return fmt.Sprintf("%s-%d %s", div, index+1, name)
}

func setCell(f *excelize.File, sheet string, col, row int, value any) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = f.SetCellValue(sheet, cell, value)
}
