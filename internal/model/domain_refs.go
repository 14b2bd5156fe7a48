package model

import (
	"time"
)

type PropertyUnit struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	UnitNumber string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"unitNumber"`
	Floor      string    `gorm:"type:varchar(16)" json:"floor"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (PropertyUnit) TableName() string {
	return "property_units"
}

type Person struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	FullName  string    `gorm:"type:varchar(255);not null" json:"fullName"`
	Email     string    `gorm:"type:varchar(255);not null" json:"email"`
	Phone     string    `gorm:"type:varchar(32)" json:"phone"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Person) TableName() string {
	return "persons"
}

type PersonRole string

const (
	PersonRoleOwner  PersonRole = "owner"
	PersonRoleTenant PersonRole = "tenant"
)

type UnitPersonRole struct {
	ID                        int64      `gorm:"primaryKey" json:"id"`
	UnitID                    int64      `gorm:"not null;index" json:"unitId"`
	PersonID                  int64      `gorm:"not null;index" json:"personId"`
	Role                      PersonRole `gorm:"type:varchar(16);not null" json:"role"`
	ReceiveEmailNotifications bool       `gorm:"not null;default:true" json:"receiveEmailNotifications"`
	CreatedAt                 time.Time  `gorm:"autoCreateTime" json:"createdAt"`

	Person *Person `gorm:"foreignKey:PersonID" json:"person,omitempty"`
}

func (UnitPersonRole) TableName() string {
	return "unit_person_roles"
}

// User is a staff account able to sign in to the admin API.
type User struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	FullName  string    `gorm:"type:varchar(255);not null" json:"fullName"`
	Role      UserRole  `gorm:"type:varchar(16);not null" json:"role"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (User) TableName() string {
	return "users"
}
