package model

import (
	"fmt"
	"time"
)

const (
	HistoryActionCreated = "Violation reported"
	HistoryActionComment = "comment"
	HistoryActionFineSet = "fine_set"
)

// StatusChangedAction is the history label written for a transition into status.
func StatusChangedAction(status ViolationStatus) string {
	return fmt.Sprintf("Status changed to %s", status)
}

// HistoryDetails is the free-form JSON payload of a history row.
type HistoryDetails map[string]any

// ViolationHistory is append-only; rows are never updated.
type ViolationHistory struct {
	ID              int64          `gorm:"primaryKey" json:"id"`
	ViolationID     int64          `gorm:"not null;index" json:"violationId"`
	UserID          *int64         `json:"userId"`
	Action          string         `gorm:"type:varchar(255);not null" json:"action"`
	Details         HistoryDetails `gorm:"type:jsonb;serializer:json" json:"details"`
	RejectionReason *string        `gorm:"type:text" json:"rejectionReason"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

func (ViolationHistory) TableName() string {
	return "violation_history"
}

// AuditLog records every state-changing action across the service.
type AuditLog struct {
	ID         int64          `gorm:"primaryKey" json:"id"`
	UserID     *int64         `gorm:"index" json:"userId"`
	Action     string         `gorm:"type:varchar(64);not null;index" json:"action"`
	EntityType string         `gorm:"type:varchar(64);not null" json:"entityType"`
	EntityID   string         `gorm:"type:varchar(64);not null;index" json:"entityId"`
	Details    HistoryDetails `gorm:"type:jsonb;serializer:json" json:"details"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

const (
	AuditActionViolationCreated       = "violation_created"
	AuditActionViolationApproved      = "violation_approved"
	AuditActionViolationRejected      = "violation_rejected"
	AuditActionViolationDisputed      = "violation_disputed"
	AuditActionViolationStatusChanged = "violation_status_changed"
	AuditActionViolationFineSet       = "violation_fine_set"
	AuditActionViolationCommented     = "violation_commented"
	AuditActionViolationDeleted       = "violation_deleted"
	AuditActionVerificationCodeSent   = "verification_code_sent"
	AuditActionVerificationSucceeded  = "verification_succeeded"
)

// AuditActionForStatus derives the audit action for a transition into status.
func AuditActionForStatus(status ViolationStatus) string {
	switch status {
	case ViolationStatusApproved:
		return AuditActionViolationApproved
	case ViolationStatusRejected:
		return AuditActionViolationRejected
	case ViolationStatusDisputed:
		return AuditActionViolationDisputed
	default:
		return AuditActionViolationStatusChanged
	}
}
