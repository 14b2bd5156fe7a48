package model

import "time"

type NotificationTemplate string

const (
	TemplateViolationReported        NotificationTemplate = "violation_reported"
	TemplateViolationPendingApproval NotificationTemplate = "violation_pending_approval"
	TemplateViolationApproved        NotificationTemplate = "violation_approved"
	TemplateViolationRejected        NotificationTemplate = "violation_rejected"
	TemplateViolationDisputed        NotificationTemplate = "violation_disputed"
	TemplateVerificationCode         NotificationTemplate = "verification_code"
)

// NotificationJob is an outbox row. It is written in the same transaction as
// the state change that caused it and delivered later by the worker.
type NotificationJob struct {
	ID            int64                `gorm:"primaryKey" json:"id"`
	Template      NotificationTemplate `gorm:"type:varchar(64);not null" json:"template"`
	Recipient     string               `gorm:"type:varchar(255);not null" json:"recipient"`
	Payload       map[string]string    `gorm:"type:jsonb;serializer:json" json:"payload"`
	Attempts      int                  `gorm:"not null;default:0" json:"attempts"`
	LastError     string               `gorm:"type:text" json:"lastError"`
	NextAttemptAt time.Time            `gorm:"not null;index" json:"nextAttemptAt"`
	SentAt        *time.Time           `gorm:"index" json:"sentAt"`
	FailedAt      *time.Time           `json:"failedAt"`
	CreatedAt     time.Time            `gorm:"autoCreateTime" json:"createdAt"`
}

func (NotificationJob) TableName() string {
	return "notification_jobs"
}

// AllModels lists every persisted type, in dependency order.
func AllModels() []any {
	return []any{
		&PropertyUnit{},
		&Person{},
		&UnitPersonRole{},
		&User{},
		&ViolationCategory{},
		&Violation{},
		&ViolationHistory{},
		&ViolationAccessLink{},
		&EmailVerificationCode{},
		&AuditLog{},
		&NotificationJob{},
	}
}
