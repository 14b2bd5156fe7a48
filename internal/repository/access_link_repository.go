package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"strata-violations/internal/model"
)

// AccessLinkRepository stores public access links and the email codes that
// gate them.
type AccessLinkRepository struct {
	db *gorm.DB
}

func NewAccessLinkRepository(db *gorm.DB) *AccessLinkRepository {
	return &AccessLinkRepository{db: db}
}

func (r *AccessLinkRepository) GetByToken(ctx context.Context, token uuid.UUID) (*model.ViolationAccessLink, error) {
	var link model.ViolationAccessLink
	if err := r.db.WithContext(ctx).First(&link, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *AccessLinkRepository) ListByViolation(ctx context.Context, violationID int64) ([]model.ViolationAccessLink, error) {
	var links []model.ViolationAccessLink
	if err := r.db.WithContext(ctx).
		Where("violation_id = ?", violationID).
		Order("id ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (r *AccessLinkRepository) CreateCode(ctx context.Context, code *model.EmailVerificationCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *AccessLinkRepository) DeleteCode(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.EmailVerificationCode{}, id).Error
}

// UsableCodes returns unexpired, unused codes for the pair, newest first.
func (r *AccessLinkRepository) UsableCodes(ctx context.Context, personID, violationID int64, now time.Time) ([]model.EmailVerificationCode, error) {
	var codes []model.EmailVerificationCode
	if err := r.db.WithContext(ctx).
		Where("person_id = ? AND violation_id = ? AND used_at IS NULL AND expires_at > ?", personID, violationID, now).
		Order("created_at DESC").
		Order("id DESC").
		Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// MarkCodeUsed consumes a code. It reports false when the code was already used.
func (r *AccessLinkRepository) MarkCodeUsed(ctx context.Context, id int64, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.EmailVerificationCode{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
