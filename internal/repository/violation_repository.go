package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"strata-violations/internal/model"
)

var (
	// ErrStaleStatus means the violation left the expected status before the update landed.
	ErrStaleStatus = errors.New("violation status changed concurrently")
	// ErrLinkConsumed means the access link was already used or does not exist.
	ErrLinkConsumed = errors.New("access link already consumed")
)

type ViolationRepository struct {
	db *gorm.DB
}

func NewViolationRepository(db *gorm.DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

var sortColumns = map[string]string{
	"id":            "violations.id",
	"createdAt":     "violations.created_at",
	"violationDate": "violations.violation_date",
	"status":        "violations.status",
	"fineAmount":    "violations.fine_amount",
	"violationType": "violations.violation_type",
	"unit":          "violations.unit_id",
}

// SortColumnAllowed reports whether ListViolations can sort by key.
func SortColumnAllowed(key string) bool {
	_, ok := sortColumns[key]
	return ok
}

type ViolationFilter struct {
	Statuses   []model.ViolationStatus
	UnitID     *int64
	CategoryID *int64
	DateFrom   *time.Time
	DateTo     *time.Time
	Search     string
	SortBy     string
	SortDesc   bool
	Limit      int
	Offset     int
}

func (r *ViolationRepository) List(ctx context.Context, filter ViolationFilter) ([]model.Violation, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Violation{})

	if len(filter.Statuses) > 0 {
		query = query.Where("violations.status IN ?", filter.Statuses)
	}
	if filter.UnitID != nil {
		query = query.Where("violations.unit_id = ?", *filter.UnitID)
	}
	if filter.CategoryID != nil {
		query = query.Where("violations.category_id = ?", *filter.CategoryID)
	}
	if filter.DateFrom != nil {
		query = query.Where("violations.violation_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("violations.violation_date <= ?", *filter.DateTo)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"(LOWER(violations.description) LIKE ? OR LOWER(violations.violation_type) LIKE ? OR LOWER(violations.incident_area) LIKE ?)",
			search, search, search,
		)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = sortColumns["createdAt"]
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	} else {
		query = query.Limit(200)
	}

	var violations []model.Violation
	if err := query.
		Order(fmt.Sprintf("%s %s", column, direction)).
		Order("violations.id " + direction).
		Preload("Unit").
		Preload("Category").
		Find(&violations).Error; err != nil {
		return nil, 0, err
	}

	return violations, total, nil
}

func (r *ViolationRepository) Recent(ctx context.Context, limit int) ([]model.Violation, error) {
	var violations []model.Violation
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Preload("Unit").
		Preload("Category").
		Find(&violations).Error; err != nil {
		return nil, err
	}
	return violations, nil
}

func (r *ViolationRepository) GetByID(ctx context.Context, id int64) (*model.Violation, error) {
	var violation model.Violation
	if err := r.db.WithContext(ctx).
		Preload("Unit").
		Preload("Category").
		First(&violation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &violation, nil
}

func (r *ViolationRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*model.Violation, error) {
	var violation model.Violation
	if err := r.db.WithContext(ctx).
		Preload("Unit").
		Preload("Category").
		First(&violation, "uuid = ?", id).Error; err != nil {
		return nil, err
	}
	return &violation, nil
}

// Create stores a new violation together with its creation history row, the
// public access links and the outbox jobs announcing it.
func (r *ViolationRepository) Create(
	ctx context.Context,
	violation *model.Violation,
	entry *model.ViolationHistory,
	links []model.ViolationAccessLink,
	jobs []model.NotificationJob,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(violation).Error; err != nil {
			return err
		}

		entry.ViolationID = violation.ID
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		if len(links) > 0 {
			for i := range links {
				links[i].ViolationID = violation.ID
				links[i].ViolationUUID = violation.UUID
			}
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}

		return enqueue(tx, jobs)
	})
}

// StatusChange describes one lifecycle transition applied atomically.
type StatusChange struct {
	ViolationID int64
	From        model.ViolationStatus
	To          model.ViolationStatus
	// FineAmount, when set, is written in the same statement as the status.
	FineAmount *int64
	History    []model.ViolationHistory
	Jobs       []model.NotificationJob
	// ConsumeLink marks this access link used as part of the transition.
	ConsumeLink *uuid.UUID
}

// ApplyStatusChange moves a violation from change.From to change.To. The
// update only matches while the row is still in change.From, so concurrent
// transitions cannot both succeed.
func (r *ViolationRepository) ApplyStatusChange(ctx context.Context, change StatusChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status": change.To,
		}
		if change.FineAmount != nil {
			updates["fine_amount"] = *change.FineAmount
		}

		result := tx.Model(&model.Violation{}).
			Where("id = ? AND status = ?", change.ViolationID, change.From).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleStatus
		}

		if change.ConsumeLink != nil {
			consumed := tx.Model(&model.ViolationAccessLink{}).
				Where("token = ? AND violation_id = ? AND used_at IS NULL", *change.ConsumeLink, change.ViolationID).
				Update("used_at", time.Now().UTC())
			if consumed.Error != nil {
				return consumed.Error
			}
			if consumed.RowsAffected == 0 {
				return ErrLinkConsumed
			}
		}

		for i := range change.History {
			change.History[i].ViolationID = change.ViolationID
		}
		if len(change.History) > 0 {
			if err := tx.Create(&change.History).Error; err != nil {
				return err
			}
		}

		return enqueue(tx, change.Jobs)
	})
}

// SetFine writes the fine amount and its history row. Status is untouched.
func (r *ViolationRepository) SetFine(ctx context.Context, violationID int64, amount int64, entry *model.ViolationHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Violation{}).
			Where("id = ?", violationID).
			Update("fine_amount", amount)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		entry.ViolationID = violationID
		return tx.Create(entry).Error
	})
}

func (r *ViolationRepository) AddHistory(ctx context.Context, entry *model.ViolationHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ViolationRepository) History(ctx context.Context, violationID int64) ([]model.ViolationHistory, error) {
	var entries []model.ViolationHistory
	if err := r.db.WithContext(ctx).
		Where("violation_id = ?", violationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes a violation and everything scoped to it.
func (r *ViolationRepository) Delete(ctx context.Context, violationID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("violation_id = ?", violationID).Delete(&model.ViolationHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("violation_id = ?", violationID).Delete(&model.ViolationAccessLink{}).Error; err != nil {
			return err
		}
		if err := tx.Where("violation_id = ?", violationID).Delete(&model.EmailVerificationCode{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Violation{}, violationID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func enqueue(tx *gorm.DB, jobs []model.NotificationJob) error {
	if len(jobs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range jobs {
		if jobs[i].NextAttemptAt.IsZero() {
			jobs[i].NextAttemptAt = now
		}
	}
	return tx.Create(&jobs).Error
}
