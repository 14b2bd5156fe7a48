package repository

import (
	"context"

	"gorm.io/gorm"

	"strata-violations/internal/model"
)

// UnitRepository reads units, their occupants and the staff directory.
type UnitRepository struct {
	db *gorm.DB
}

func NewUnitRepository(db *gorm.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

func (r *UnitRepository) GetUnit(ctx context.Context, id int64) (*model.PropertyUnit, error) {
	var unit model.PropertyUnit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// NotifiableOccupants returns the unit's persons who opted in to email.
func (r *UnitRepository) NotifiableOccupants(ctx context.Context, unitID int64) ([]model.UnitPersonRole, error) {
	var roles []model.UnitPersonRole
	if err := r.db.WithContext(ctx).
		Where("unit_id = ? AND receive_email_notifications = ?", unitID, true).
		Order("id ASC").
		Preload("Person").
		Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *UnitRepository) NotifiableOccupant(ctx context.Context, unitID, personID int64) (*model.UnitPersonRole, error) {
	var role model.UnitPersonRole
	if err := r.db.WithContext(ctx).
		Where("unit_id = ? AND person_id = ? AND receive_email_notifications = ?", unitID, personID, true).
		Preload("Person").
		First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// Approvers lists active admin and council users.
func (r *UnitRepository) Approvers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).
		Where("role IN ? AND is_active = ?", []model.UserRole{model.UserRoleAdmin, model.UserRoleCouncil}, true).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*model.ViolationCategory, error) {
	var category model.ViolationCategory
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *CategoryRepository) ListActive(ctx context.Context) ([]model.ViolationCategory, error) {
	var categories []model.ViolationCategory
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}
