// Package exporter produces the administrative license-history reports.
// These are local bookkeeping surfaces for the person selling licenses;
// verification never reads them.
package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"zapcatalog/internal/license"
	"zapcatalog/pkg/contracts/domain"
)

// historyHeader is the fixed column layout of the export.
var historyHeader = []string{"Name", "Email", "Key", "IssuedDate", "ValidityDays", "Status", "ExpiresDate"}

// HistoryExporter renders issued-license records to CSV and XLSX.
type HistoryExporter struct {
	dir    string
	logger *slog.Logger

	// now feeds the Status column; swapped out by tests.
	now func() time.Time
}

// NewHistoryExporter creates an exporter writing under dir.
func NewHistoryExporter(dir string, logger *slog.Logger) *HistoryExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryExporter{
		dir:    dir,
		logger: logger.With(slog.String("component", "history_exporter")),
		now:    time.Now,
	}
}

// CSV renders the records as CSV bytes, optionally prefixed with a UTF-8
// BOM so Excel opens it correctly.
func (e *HistoryExporter) CSV(records []domain.LicenseHistoryRecord, bom bool) ([]byte, error) {
	var buf bytes.Buffer
	if bom {
		buf.Write([]byte{0xEF, 0xBB, 0xBF})
	}

	w := csv.NewWriter(&buf)
	if err := w.Write(historyHeader); err != nil {
		return nil, fmt.Errorf("exporter: write header: %w", err)
	}
	for i, record := range records {
		if err := w.Write(e.row(record)); err != nil {
			return nil, fmt.Errorf("exporter: write record %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("exporter: flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSX renders the records as an Excel workbook.
func (e *HistoryExporter) XLSX(records []domain.LicenseHistoryRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Licenses"
	f.SetSheetName("Sheet1", sheet)

	for col, title := range historyHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("exporter: header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, fmt.Errorf("exporter: write header: %w", err)
		}
	}

	for i, record := range records {
		for col, value := range e.row(record) {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("exporter: record cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("exporter: write record %d: %w", i, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("exporter: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteCSVFile renders the records and writes them under the export dir.
func (e *HistoryExporter) WriteCSVFile(name string, records []domain.LicenseHistoryRecord) (string, error) {
	data, err := e.CSV(records, true)
	if err != nil {
		return "", err
	}
	return e.writeFile(name, data)
}

// WriteXLSXFile renders the workbook and writes it under the export dir.
func (e *HistoryExporter) WriteXLSXFile(name string, records []domain.LicenseHistoryRecord) (string, error) {
	data, err := e.XLSX(records)
	if err != nil {
		return "", err
	}
	return e.writeFile(name, data)
}

func (e *HistoryExporter) writeFile(name string, data []byte) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("exporter: create export dir: %w", err)
	}
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("exporter: write %s: %w", name, err)
	}
	e.logger.Info("history exported",
		slog.String("path", path),
		slog.Int("size_bytes", len(data)))
	return path, nil
}

// row flattens a record, deriving Status and ExpiresDate from the expiry
// embedded in the key itself.
func (e *HistoryExporter) row(record domain.LicenseHistoryRecord) []string {
	status := "unknown"
	expires := ""
	if expiry, err := license.TokenExpiry(record.Token); err == nil {
		expires = expiry.UTC().Format("2006-01-02")
		if e.now().After(expiry) {
			status = "expired"
		} else {
			status = "active"
		}
	}
	return []string{
		record.Name,
		record.Email,
		record.Token,
		record.IssuedAt.UTC().Format("2006-01-02"),
		fmt.Sprintf("%d", record.ValidityDays),
		status,
		expires,
	}
}
