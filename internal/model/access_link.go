package model

import (
	"time"

	"github.com/google/uuid"
)

type AccessLinkStatus string

const (
	AccessLinkValid   AccessLinkStatus = "valid"
	AccessLinkUsed    AccessLinkStatus = "used"
	AccessLinkExpired AccessLinkStatus = "expired"
	AccessLinkInvalid AccessLinkStatus = "invalid"
)

// ViolationAccessLink is a single-use, time-limited public link to a violation.
type ViolationAccessLink struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	ViolationID    int64      `gorm:"not null;index" json:"violationId"`
	ViolationUUID  uuid.UUID  `gorm:"column:violation_uuid;type:uuid;not null" json:"violationUuid"`
	PersonID       *int64     `json:"personId"`
	RecipientEmail string     `gorm:"type:varchar(255);not null" json:"recipientEmail"`
	Token          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"token"`
	ExpiresAt      time.Time  `gorm:"not null" json:"expiresAt"`
	UsedAt         *time.Time `json:"usedAt"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (ViolationAccessLink) TableName() string {
	return "violation_access_links"
}

// StatusAt resolves the link state at now. Expiry wins over use.
func (l ViolationAccessLink) StatusAt(now time.Time) AccessLinkStatus {
	if !now.Before(l.ExpiresAt) {
		return AccessLinkExpired
	}
	if l.UsedAt != nil {
		return AccessLinkUsed
	}
	return AccessLinkValid
}

type EmailVerificationCode struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	PersonID    int64      `gorm:"not null;index:idx_verification_person_violation" json:"personId"`
	ViolationID int64      `gorm:"not null;index:idx_verification_person_violation" json:"violationId"`
	CodeHash    string     `gorm:"type:varchar(255);not null" json:"-"`
	ExpiresAt   time.Time  `gorm:"not null" json:"expiresAt"`
	UsedAt      *time.Time `json:"usedAt"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (EmailVerificationCode) TableName() string {
	return "email_verification_codes"
}
