package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"strata-violations/internal/model"
)

// ReportRepository runs read-only aggregate queries over violations.
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) inRange(ctx context.Context, from, to time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Violation{}).
		Where("violations.violation_date >= ? AND violations.violation_date <= ?", from, to)
}

func (r *ReportRepository) CountByStatus(ctx context.Context, from, to time.Time) ([]model.StatusCount, error) {
	var rows []model.StatusCount
	if err := r.inRange(ctx, from, to).
		Select("violations.status AS status, COUNT(*) AS count").
		Group("violations.status").
		Order("violations.status ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ReportRepository) CountByCategory(ctx context.Context, from, to time.Time) ([]model.CategoryCount, error) {
	var rows []model.CategoryCount
	if err := r.inRange(ctx, from, to).
		Select("violations.category_id AS category_id, COALESCE(c.name, violations.violation_type) AS category_name, COUNT(*) AS count").
		Joins("LEFT JOIN violation_categories c ON c.id = violations.category_id").
		Group("violations.category_id, COALESCE(c.name, violations.violation_type)").
		Order("count DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ViolationDates returns the violation date of every row in range; callers
// bucket them so the query stays portable across databases.
func (r *ReportRepository) ViolationDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	var dates []time.Time
	if err := r.inRange(ctx, from, to).
		Order("violations.violation_date ASC").
		Pluck("violations.violation_date", &dates).Error; err != nil {
		return nil, err
	}
	return dates, nil
}

// RepeatUnits returns units with at least minCount violations in range.
func (r *ReportRepository) RepeatUnits(ctx context.Context, minCount int, from, to time.Time) ([]model.RepeatUnit, error) {
	type row struct {
		UnitID     int64
		UnitNumber string
		Count      int64
	}
	var rows []row
	if err := r.inRange(ctx, from, to).
		Select("violations.unit_id AS unit_id, u.unit_number AS unit_number, COUNT(*) AS count").
		Joins("JOIN property_units u ON u.id = violations.unit_id").
		Group("violations.unit_id, u.unit_number").
		Having("COUNT(*) >= ?", minCount).
		Order("count DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]model.RepeatUnit, 0, len(rows))
	for _, row := range rows {
		var last model.Violation
		if err := r.inRange(ctx, from, to).
			Where("violations.unit_id = ?", row.UnitID).
			Order("violations.violation_date DESC").
			First(&last).Error; err != nil {
			return nil, err
		}
		result = append(result, model.RepeatUnit{
			UnitID:     row.UnitID,
			UnitNumber: row.UnitNumber,
			Count:      row.Count,
			LastAt:     last.ViolationDate,
		})
	}
	return result, nil
}
