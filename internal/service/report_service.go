package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"strata-violations/internal/model"
	"strata-violations/internal/notification"
	"strata-violations/internal/repository"
)

const (
	monthLayout     = "2006-01"
	maxExportRows   = 10000
	exportSheetName = "Violations"
)

var exportHeader = []string{
	"ID",
	"Reference",
	"Unit",
	"Type",
	"Date",
	"Time",
	"Status",
	"Fine",
	"Bylaw",
	"Description",
	"Attachments",
	"Created At",
}

type ReportService struct {
	reportRepo    *repository.ReportRepository
	violationRepo *repository.ViolationRepository
	now           func() time.Time
}

func NewReportService(reportRepo *repository.ReportRepository, violationRepo *repository.ViolationRepository) *ReportService {
	return &ReportService{
		reportRepo:    reportRepo,
		violationRepo: violationRepo,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// dateRange defaults to the twelve months ending today.
func (s *ReportService) dateRange(from, to *time.Time) (time.Time, time.Time, error) {
	end := s.now().Truncate(24 * time.Hour)
	if to != nil {
		end = *to
	}
	start := end.AddDate(-1, 0, 0)
	if from != nil {
		start = *from
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fieldError("from", "must not be after to")
	}
	return start, end, nil
}

func (s *ReportService) Stats(ctx context.Context, principal model.Principal, from, to *time.Time) (*model.ViolationStats, error) {
	if !principal.CanAdjudicate() {
		return nil, ErrPermissionDenied
	}
	start, end, err := s.dateRange(from, to)
	if err != nil {
		return nil, err
	}

	byStatus, err := s.reportRepo.CountByStatus(ctx, start, end)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.reportRepo.CountByCategory(ctx, start, end)
	if err != nil {
		return nil, err
	}
	dates, err := s.reportRepo.ViolationDates(ctx, start, end)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, row := range byStatus {
		total += row.Count
	}

	return &model.ViolationStats{
		From:       start,
		To:         end,
		Total:      total,
		ByStatus:   byStatus,
		ByCategory: byCategory,
		ByMonth:    bucketByMonth(start, end, dates),
	}, nil
}

// bucketByMonth counts dates per calendar month, including empty months.
func bucketByMonth(start, end time.Time, dates []time.Time) []model.MonthCount {
	counts := make(map[string]int64, len(dates))
	for _, d := range dates {
		counts[d.UTC().Format(monthLayout)]++
	}

	var months []model.MonthCount
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(last) {
		key := cursor.Format(monthLayout)
		months = append(months, model.MonthCount{Month: key, Count: counts[key]})
		cursor = cursor.AddDate(0, 1, 0)
	}
	return months
}

func (s *ReportService) RepeatUnits(ctx context.Context, principal model.Principal, minCount int, from, to *time.Time) ([]model.RepeatUnit, error) {
	if !principal.CanAdjudicate() {
		return nil, ErrPermissionDenied
	}
	if minCount <= 0 {
		minCount = 2
	}
	start, end, err := s.dateRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.reportRepo.RepeatUnits(ctx, minCount, start, end)
}

// Export renders the filtered violation list as an xlsx workbook.
func (s *ReportService) Export(ctx context.Context, principal model.Principal, opts ListViolationsOptions) ([]byte, error) {
	if !principal.CanAdjudicate() {
		return nil, ErrPermissionDenied
	}

	filter, err := buildFilter(opts)
	if err != nil {
		return nil, err
	}
	filter.Limit = maxExportRows
	filter.Offset = 0

	violations, _, err := s.violationRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(exportHeader), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportSheetName, "A1", lastHeader, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, v := range violations {
		unit := ""
		if v.Unit != nil {
			unit = v.Unit.UnitNumber
		}
		fine := ""
		if v.FineAmount != nil {
			fine = notification.FormatCents(*v.FineAmount)
		}
		row := []interface{}{
			v.ID,
			v.ReferenceNumber.String(),
			unit,
			v.ViolationType,
			v.ViolationDate.Format(violationDateLayout),
			v.ViolationTime,
			string(v.Status),
			fine,
			v.BylawReference,
			v.Description,
			len(v.Attachments),
			v.CreatedAt.Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(exportSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
