package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"strata-violations/internal/model"
)

// OutboxRepository manages pending notification jobs.
type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, jobs ...model.NotificationJob) error {
	return enqueue(r.db.WithContext(ctx), jobs)
}

// Due returns undelivered jobs whose next attempt is at or before now.
func (r *OutboxRepository) Due(ctx context.Context, now time.Time, limit int) ([]model.NotificationJob, error) {
	var jobs []model.NotificationJob
	if err := r.db.WithContext(ctx).
		Where("sent_at IS NULL AND failed_at IS NULL AND next_attempt_at <= ?", now).
		Order("next_attempt_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id int64, attempts int, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.NotificationJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sent_at":    now,
			"attempts":   attempts,
			"last_error": "",
		}).Error
}

func (r *OutboxRepository) MarkRetry(ctx context.Context, id int64, attempts int, lastErr string, next time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.NotificationJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":        attempts,
			"last_error":      lastErr,
			"next_attempt_at": next,
		}).Error
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, attempts int, lastErr string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.NotificationJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   attempts,
			"last_error": lastErr,
			"failed_at":  now,
		}).Error
}

func (r *OutboxRepository) ListByRecipient(ctx context.Context, recipient string) ([]model.NotificationJob, error) {
	var jobs []model.NotificationJob
	if err := r.db.WithContext(ctx).
		Where("recipient = ?", recipient).
		Order("id ASC").
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
