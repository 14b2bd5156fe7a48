// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"strata-violations/internal/db"
	"strata-violations/internal/model"
)

var dbSeq atomic.Int64

// NewDB opens a private shared-cache in-memory SQLite database with the full
// schema. A single connection keeps every query on the same database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", dbSeq.Add(1))

	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  db.NewGormLogger(zerolog.Nop(), "test"),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(model.AllModels()...))
	return database
}

// Fixture is a minimal building with one unit, two occupants and staff.
type Fixture struct {
	Unit       model.PropertyUnit
	Owner      model.Person
	Tenant     model.Person
	OptedOut   model.Person
	Admin      model.User
	Council    model.User
	Resident   model.User
	Category   model.ViolationCategory
	DefaultFee int64
}

// Seed inserts a Fixture. The owner and tenant receive notifications; a
// third occupant has opted out.
func Seed(t *testing.T, database *gorm.DB) Fixture {
	t.Helper()

	f := Fixture{DefaultFee: 10000}
	f.Unit = model.PropertyUnit{UnitNumber: "1204", Floor: "12"}
	require.NoError(t, database.Create(&f.Unit).Error)

	f.Owner = model.Person{FullName: "Olivia Owner", Email: "olivia@example.com"}
	f.Tenant = model.Person{FullName: "Theo Tenant", Email: "theo@example.com"}
	f.OptedOut = model.Person{FullName: "Quinn Quiet", Email: "quinn@example.com"}
	require.NoError(t, database.Create(&f.Owner).Error)
	require.NoError(t, database.Create(&f.Tenant).Error)
	require.NoError(t, database.Create(&f.OptedOut).Error)

	roles := []model.UnitPersonRole{
		{UnitID: f.Unit.ID, PersonID: f.Owner.ID, Role: model.PersonRoleOwner, ReceiveEmailNotifications: true},
		{UnitID: f.Unit.ID, PersonID: f.Tenant.ID, Role: model.PersonRoleTenant, ReceiveEmailNotifications: true},
		{UnitID: f.Unit.ID, PersonID: f.OptedOut.ID, Role: model.PersonRoleTenant, ReceiveEmailNotifications: true},
	}
	require.NoError(t, database.Create(&roles).Error)
	// gorm skips zero-value bools on create when a default is declared.
	require.NoError(t, database.Model(&model.UnitPersonRole{}).
		Where("person_id = ?", f.OptedOut.ID).
		Update("receive_email_notifications", false).Error)

	f.Admin = model.User{Email: "admin@example.com", FullName: "Ada Admin", Role: model.UserRoleAdmin, IsActive: true}
	f.Council = model.User{Email: "council@example.com", FullName: "Cal Council", Role: model.UserRoleCouncil, IsActive: true}
	f.Resident = model.User{Email: "resident@example.com", FullName: "Rae Resident", Role: model.UserRoleResident, IsActive: true}
	require.NoError(t, database.Create(&f.Admin).Error)
	require.NoError(t, database.Create(&f.Council).Error)
	require.NoError(t, database.Create(&f.Resident).Error)

	fee := f.DefaultFee
	f.Category = model.ViolationCategory{
		Name:              "Noise",
		Description:       "Excessive noise after quiet hours",
		BylawReference:    "Bylaw 4.2",
		DefaultFineAmount: &fee,
		Active:            true,
	}
	require.NoError(t, database.Create(&f.Category).Error)

	return f
}

func (f Fixture) AdminPrincipal() model.Principal {
	return model.Principal{UserID: f.Admin.ID, Email: f.Admin.Email, Role: model.UserRoleAdmin}
}

func (f Fixture) CouncilPrincipal() model.Principal {
	return model.Principal{UserID: f.Council.ID, Email: f.Council.Email, Role: model.UserRoleCouncil}
}

func (f Fixture) ResidentPrincipal() model.Principal {
	return model.Principal{UserID: f.Resident.ID, Email: f.Resident.Email, Role: model.UserRoleResident}
}
