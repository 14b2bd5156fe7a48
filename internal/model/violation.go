package model

import (
	"time"

	"github.com/google/uuid"
)

type ViolationStatus string

const (
	ViolationStatusNew             ViolationStatus = "new"
	ViolationStatusPendingApproval ViolationStatus = "pending_approval"
	ViolationStatusApproved        ViolationStatus = "approved"
	ViolationStatusDisputed        ViolationStatus = "disputed"
	ViolationStatusRejected        ViolationStatus = "rejected"
)

var violationStatuses = []ViolationStatus{
	ViolationStatusNew,
	ViolationStatusPendingApproval,
	ViolationStatusApproved,
	ViolationStatusDisputed,
	ViolationStatusRejected,
}

func ViolationStatuses() []ViolationStatus {
	out := make([]ViolationStatus, len(violationStatuses))
	copy(out, violationStatuses)
	return out
}

func (s ViolationStatus) Valid() bool {
	for _, known := range violationStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Attachments holds stored attachment filenames in upload order.
type Attachments []string

type Violation struct {
	ID               int64           `gorm:"primaryKey" json:"id"`
	UUID             uuid.UUID       `gorm:"column:uuid;type:uuid;not null;uniqueIndex" json:"uuid"`
	ReferenceNumber  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"referenceNumber"`
	UnitID           int64           `gorm:"not null;index" json:"unitId"`
	ReportedByID     int64           `gorm:"not null" json:"reportedById"`
	CategoryID       *int64          `json:"categoryId"`
	ViolationType    string          `gorm:"type:varchar(255);not null" json:"violationType"`
	ViolationDate    time.Time       `gorm:"type:date;not null" json:"violationDate"`
	ViolationTime    string          `gorm:"type:varchar(8)" json:"violationTime"`
	Description      string          `gorm:"type:text;not null" json:"description"`
	BylawReference   string          `gorm:"type:varchar(255)" json:"bylawReference"`
	Status           ViolationStatus `gorm:"type:varchar(32);not null;index" json:"status"`
	FineAmount       *int64          `json:"fineAmount"`
	Attachments      Attachments     `gorm:"type:jsonb;serializer:json" json:"attachments"`
	IncidentArea     string          `gorm:"type:text" json:"incidentArea"`
	ConciergeName    string          `gorm:"type:varchar(255)" json:"conciergeName"`
	PeopleInvolved   string          `gorm:"type:text" json:"peopleInvolved"`
	NoticedBy        string          `gorm:"type:varchar(255)" json:"noticedBy"`
	DamageToProperty bool            `gorm:"not null;default:false" json:"damageToProperty"`
	DamageDetails    string          `gorm:"type:text" json:"damageDetails"`
	PoliceInvolved   bool            `gorm:"not null;default:false" json:"policeInvolved"`
	PoliceDetails    string          `gorm:"type:text" json:"policeDetails"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`

	Unit     *PropertyUnit      `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	Category *ViolationCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (Violation) TableName() string {
	return "violations"
}

type ViolationCategory struct {
	ID                int64     `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"type:varchar(255);not null" json:"name"`
	Description       string    `gorm:"type:text" json:"description"`
	BylawReference    string    `gorm:"type:varchar(255)" json:"bylawReference"`
	DefaultFineAmount *int64    `json:"defaultFineAmount"`
	Active            bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (ViolationCategory) TableName() string {
	return "violation_categories"
}
