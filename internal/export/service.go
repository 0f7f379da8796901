package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sitevoice/fieldreport/constants"
	"github.com/sitevoice/fieldreport/internal/entity"
	"github.com/sitevoice/fieldreport/internal/repository"
)

// Service is a tiny façade over the report store that produces XLSX bytes
// for office review.
type Service struct {
	reports repository.ReportRepository
	logger  *slog.Logger
}

func NewService(reports repository.ReportRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{reports: reports, logger: logger}
}

// ExportReportsXLSX returns an XLSX workbook (as bytes) for the given date
// window. If only from is provided -> from..today (inclusive). If neither is
// provided -> all reports.
func (s *Service) ExportReportsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}

	reports, err := s.reports.List(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Reports"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// drop the default sheet excelize creates
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Report Date",
		"Site",
		"Status",
		"Subcontractors",
		"Total Crew",
		"Deliveries",
		"Delays",
		"Safety Notes",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range reports {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.CreatedAt.UTC().Format("2006-01-02"))
		write(2, r.SiteName)
		write(3, string(r.Status))

		if r.Status == constants.StatusReady && r.Extracted != nil {
			write(4, subcontractorList(r.Extracted))
			write(5, totalCrew(r.Extracted))
			write(6, len(r.Extracted.Deliveries))
			write(7, len(r.Extracted.Delays))
			if r.Extracted.SafetyNotes != nil {
				write(8, *r.Extracted.SafetyNotes)
			} else {
				write(8, "None")
			}
		}
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.reports.ok",
		"rows", row-2,
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func subcontractorList(data *entity.ExtractedData) string {
	seen := make(map[string]struct{})
	var names []string
	for _, w := range data.WorkPerformed {
		if w.Subcontractor == nil {
			continue
		}
		if _, dup := seen[*w.Subcontractor]; dup {
			continue
		}
		seen[*w.Subcontractor] = struct{}{}
		names = append(names, *w.Subcontractor)
	}
	return strings.Join(names, ", ")
}

func totalCrew(data *entity.ExtractedData) int {
	total := 0
	for _, w := range data.WorkPerformed {
		if w.CrewSize != nil {
			total += *w.CrewSize
		}
	}
	return total
}
