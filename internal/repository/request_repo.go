package repository

import (
	"context"
	"errors"
	"fmt"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FuelRequestRepository is the Request Store contract. UpdateStatusCAS is the
// critical operation: a compare-and-swap on (id, expectedStatus) that fails
// with ErrStaleState when the stored status no longer matches, which is what
// lets the transition engine stay correct without a global lock.
type FuelRequestRepository interface {
	Create(ctx context.Context, req *model.FuelRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.FuelRequest, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.FuelRequest, error)
	List(ctx context.Context, status string, page, limit int) ([]model.FuelRequest, int64, error)
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, expectedStatus string, fields map[string]interface{}) error
}

type fuelRequestRepository struct {
	db *gorm.DB
}

func NewFuelRequestRepository(db *gorm.DB) FuelRequestRepository {
	return &fuelRequestRepository{db: db}
}

func (r *fuelRequestRepository) Create(ctx context.Context, req *model.FuelRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *fuelRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.FuelRequest, error) {
	var req model.FuelRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrRequestNotFound, id)
		}
		return nil, err
	}
	return &req, nil
}

func (r *fuelRequestRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.FuelRequest, error) {
	var req model.FuelRequest
	err := GetDB(ctx, r.db).
		Preload("Requester").
		Preload("Vehicle").
		Preload("Vehicle.Type").
		First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrRequestNotFound, id)
		}
		return nil, err
	}
	return &req, nil
}

func (r *fuelRequestRepository) List(ctx context.Context, status string, page, limit int) ([]model.FuelRequest, int64, error) {
	var requests []model.FuelRequest
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.FuelRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Preload("Requester").Preload("Vehicle")
	if status != "" {
		fetchQuery = fetchQuery.Where("status = ?", status)
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// UpdateStatusCAS applies fields (which must include the new status) only if
// the stored status still equals expectedStatus. Zero rows affected means a
// concurrent transition won the race.
func (r *fuelRequestRepository) UpdateStatusCAS(ctx context.Context, id uuid.UUID, expectedStatus string, fields map[string]interface{}) error {
	res := GetDB(ctx, r.db).
		Model(&model.FuelRequest{}).
		Where("id = ? AND status = ?", id, expectedStatus).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: expected status %s on %s", model.ErrStaleState, expectedStatus, id)
	}
	return nil
}
