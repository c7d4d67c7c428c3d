package repository

import (
	"context"
	"errors"
	"fmt"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VehicleRepository is the Vehicle/Type Registry boundary: it supplies the
// vehicle type (and its threshold override) the policy consumes at creation.
type VehicleRepository interface {
	CreateVehicle(ctx context.Context, v *model.Vehicle) error
	CreateType(ctx context.Context, vt *model.VehicleType) error
	FindVehicleWithType(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
	ListVehicles(ctx context.Context, page, limit int) ([]model.Vehicle, int64, error)
	ListTypes(ctx context.Context) ([]model.VehicleType, error)
}

type vehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) CreateVehicle(ctx context.Context, v *model.Vehicle) error {
	return GetDB(ctx, r.db).Create(v).Error
}

func (r *vehicleRepository) CreateType(ctx context.Context, vt *model.VehicleType) error {
	return GetDB(ctx, r.db).Create(vt).Error
}

func (r *vehicleRepository) FindVehicleWithType(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	var v model.Vehicle
	if err := GetDB(ctx, r.db).Preload("Type").First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("vehicle %s not found: %w", id, err)
		}
		return nil, err
	}
	return &v, nil
}

func (r *vehicleRepository) ListVehicles(ctx context.Context, page, limit int) ([]model.Vehicle, int64, error) {
	var vehicles []model.Vehicle
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Vehicle{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Type").Order("created_at DESC").Offset(offset).Limit(limit).Find(&vehicles).Error; err != nil {
		return nil, 0, err
	}

	return vehicles, total, nil
}

func (r *vehicleRepository) ListTypes(ctx context.Context) ([]model.VehicleType, error) {
	var types []model.VehicleType
	if err := GetDB(ctx, r.db).Order("label ASC").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}
