package model

import (
	"time"

	"github.com/google/uuid"
)

type UnitBrief struct {
	ID         int64  `json:"id"`
	UnitNumber string `json:"unitNumber"`
}

type CategoryBrief struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	DefaultFineAmount *int64 `json:"defaultFineAmount"`
}

// ViolationRecord is the read model returned by the admin API.
type ViolationRecord struct {
	Violation
	UnitNumber          string            `json:"unitNumber"`
	CategoryName        string            `json:"categoryName,omitempty"`
	SuggestedFineAmount *int64            `json:"suggestedFineAmount"`
	AllowedTransitions  []ViolationStatus `json:"allowedTransitions"`
}

func NewViolationRecord(v Violation) ViolationRecord {
	record := ViolationRecord{
		Violation:          v,
		AllowedTransitions: NextStatuses(v.Status),
	}
	if v.Unit != nil {
		record.UnitNumber = v.Unit.UnitNumber
	}
	if v.Category != nil {
		record.CategoryName = v.Category.Name
		record.SuggestedFineAmount = v.Category.DefaultFineAmount
	}
	return record
}

// NotifiablePerson is shown to an unauthenticated caller choosing who they are.
type NotifiablePerson struct {
	PersonID int64      `json:"personId"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Role     PersonRole `json:"role"`
}

// PublicViolation is the subset of a violation an access-link holder may see.
type PublicViolation struct {
	UUID            uuid.UUID          `json:"uuid"`
	ReferenceNumber uuid.UUID          `json:"referenceNumber"`
	UnitNumber      string             `json:"unitNumber"`
	ViolationType   string             `json:"violationType"`
	ViolationDate   time.Time          `json:"violationDate"`
	ViolationTime   string             `json:"violationTime"`
	Description     string             `json:"description"`
	BylawReference  string             `json:"bylawReference"`
	Status          ViolationStatus    `json:"status"`
	FineAmount      *int64             `json:"fineAmount"`
	Persons         []NotifiablePerson `json:"persons"`
}

type StatusCount struct {
	Status ViolationStatus `json:"status"`
	Count  int64           `json:"count"`
}

type CategoryCount struct {
	CategoryID   *int64 `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Count        int64  `json:"count"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

type ViolationStats struct {
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	Total      int64           `json:"total"`
	ByStatus   []StatusCount   `json:"byStatus"`
	ByCategory []CategoryCount `json:"byCategory"`
	ByMonth    []MonthCount    `json:"byMonth"`
}

type RepeatUnit struct {
	UnitID     int64     `json:"unitId"`
	UnitNumber string    `json:"unitNumber"`
	Count      int64     `json:"count"`
	LastAt     time.Time `json:"lastAt"`
}
