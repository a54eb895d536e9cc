// Package export produces XLSX workbooks from completed extraction
// jobs, one row per contract.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bankdocs/contract-extractor/constants"
	"github.com/bankdocs/contract-extractor/internal/repository"
)

// Service is a tiny façade over the job repository that produces XLSX
// bytes for exports.
type Service struct {
	jobs   repository.ExtractJobRepository
	logger *slog.Logger
}

func NewService(jobs repository.ExtractJobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportContractsXLSX returns an XLSX workbook (as bytes) with one row
// per completed job: the extracted contract fields followed by job
// metadata. Fields the model returned as null stay as empty cells.
func (s *Service) ExportContractsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	jobs, err := s.jobs.ListCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Contracts"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := append(append([]string{}, constants.ContractFieldNames...),
		"filename", "pages_total", "pages_direct", "pages_ocr", "job_id", "finished_at")
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, j := range jobs {
		var fields map[string]any
		if len(j.ExtractedJSON) > 0 {
			if err := json.Unmarshal(j.ExtractedJSON, &fields); err != nil {
				s.logger.Warn("export.xlsx.bad_row", "job_id", j.ID, "error", err)
			}
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		col := 1
		for _, name := range constants.ContractFieldNames {
			if v, ok := fields[name]; ok && v != nil {
				write(col, v)
			}
			col++
		}
		write(col, j.Filename)
		write(col+1, j.PagesTotal)
		write(col+2, j.PagesDirect)
		write(col+3, j.PagesOCR)
		write(col+4, j.ID.String())
		if j.FinishedAt != nil {
			write(col+5, j.FinishedAt.UTC().Format("2006-01-02 15:04:05"))
		}
		row++
	}

	// Widen the text-heavy columns.
	_ = f.SetColWidth(sheet, "A", "C", 16) // number, dates
	_ = f.SetColWidth(sheet, "D", "D", 36) // counterparty
	_ = f.SetColWidth(sheet, "E", "H", 14) // country, amount, currencies
	_ = f.SetColWidth(sheet, "I", "I", 32) // filename
	_ = f.SetColWidth(sheet, "M", "N", 38) // job id, finished at

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(jobs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
