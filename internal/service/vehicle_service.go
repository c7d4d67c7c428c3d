package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateVehicleDTO struct {
	Registration string `json:"registration" binding:"required"`
	TypeID       string `json:"type_id" binding:"required"`
}

type CreateVehicleTypeDTO struct {
	Label           string          `json:"label" binding:"required"`
	ThresholdLiters decimal.Decimal `json:"threshold_liters"` // 0 = use configured default
}

type VehicleResponse struct {
	ID           string `json:"id"`
	Registration string `json:"registration"`
	TypeID       string `json:"type_id"`
	TypeLabel    string `json:"type_label,omitempty"`
	Active       bool   `json:"active"`
	CreatedAt    string `json:"created_at"`
}

type VehicleTypeResponse struct {
	ID              string `json:"id"`
	Label           string `json:"label"`
	ThresholdLiters string `json:"threshold_liters"`
	CreatedAt       string `json:"created_at"`
}

// --- Interface ---

// VehicleService manages the vehicle/type registry consumed by the approval policy
type VehicleService interface {
	CreateVehicle(ctx context.Context, actorID string, dto CreateVehicleDTO) (VehicleResponse, error)
	CreateVehicleType(ctx context.Context, actorID string, dto CreateVehicleTypeDTO) (VehicleTypeResponse, error)
	ListVehicles(ctx context.Context, page, limit int) ([]VehicleResponse, int64, error)
	ListVehicleTypes(ctx context.Context) ([]VehicleTypeResponse, error)
}

type vehicleService struct {
	vehicles repository.VehicleRepository
	audit    repository.AuditRepository
	txm      repository.TransactionManager
}

func NewVehicleService(vehicles repository.VehicleRepository, audit repository.AuditRepository, txm repository.TransactionManager) VehicleService {
	return &vehicleService{vehicles: vehicles, audit: audit, txm: txm}
}

// --- Implementation ---

func (s *vehicleService) CreateVehicle(ctx context.Context, actorID string, dto CreateVehicleDTO) (VehicleResponse, error) {
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return VehicleResponse{}, fmt.Errorf("invalid user id: %w", err)
	}
	typeID, err := uuid.Parse(dto.TypeID)
	if err != nil {
		return VehicleResponse{}, fmt.Errorf("invalid vehicle type id: %w", err)
	}

	vehicle := &model.Vehicle{
		Registration: dto.Registration,
		TypeID:       typeID,
		Active:       true,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.vehicles.CreateVehicle(txCtx, vehicle); createErr != nil {
			return fmt.Errorf("failed to create vehicle: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"registration": dto.Registration,
			"type_id":      dto.TypeID,
		})
		audit := &model.AuditLog{
			UserID:     &actor,
			Action:     model.ActionCreateVehicle,
			EntityID:   vehicle.ID.String(),
			EntityName: dto.Registration,
			Details:    string(details),
		}
		if auditErr := s.audit.Create(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return VehicleResponse{}, err
	}

	reloaded, err := s.vehicles.FindVehicleWithType(ctx, vehicle.ID)
	if err != nil {
		return VehicleResponse{}, fmt.Errorf("failed to reload vehicle: %w", err)
	}
	return toVehicleResponse(reloaded), nil
}

func (s *vehicleService) CreateVehicleType(ctx context.Context, actorID string, dto CreateVehicleTypeDTO) (VehicleTypeResponse, error) {
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return VehicleTypeResponse{}, fmt.Errorf("invalid user id: %w", err)
	}
	if dto.ThresholdLiters.IsNegative() {
		return VehicleTypeResponse{}, fmt.Errorf("threshold must not be negative")
	}

	vt := &model.VehicleType{
		Label:           dto.Label,
		ThresholdLiters: dto.ThresholdLiters,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.vehicles.CreateType(txCtx, vt); createErr != nil {
			return fmt.Errorf("failed to create vehicle type: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"label":            dto.Label,
			"threshold_liters": dto.ThresholdLiters.String(),
		})
		audit := &model.AuditLog{
			UserID:     &actor,
			Action:     model.ActionCreateVehicleType,
			EntityID:   vt.ID.String(),
			EntityName: dto.Label,
			Details:    string(details),
		}
		if auditErr := s.audit.Create(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return VehicleTypeResponse{}, err
	}

	return toVehicleTypeResponse(vt), nil
}

func (s *vehicleService) ListVehicles(ctx context.Context, page, limit int) ([]VehicleResponse, int64, error) {
	vehicles, total, err := s.vehicles.ListVehicles(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch vehicles: %w", err)
	}

	result := make([]VehicleResponse, 0, len(vehicles))
	for i := range vehicles {
		result = append(result, toVehicleResponse(&vehicles[i]))
	}
	return result, total, nil
}

func (s *vehicleService) ListVehicleTypes(ctx context.Context) ([]VehicleTypeResponse, error) {
	types, err := s.vehicles.ListTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vehicle types: %w", err)
	}

	result := make([]VehicleTypeResponse, 0, len(types))
	for i := range types {
		result = append(result, toVehicleTypeResponse(&types[i]))
	}
	return result, nil
}

// --- Helpers ---

func toVehicleResponse(v *model.Vehicle) VehicleResponse {
	resp := VehicleResponse{
		ID:           v.ID.String(),
		Registration: v.Registration,
		TypeID:       v.TypeID.String(),
		Active:       v.Active,
		CreatedAt:    v.CreatedAt.Format(time.RFC3339),
	}
	if v.Type != nil {
		resp.TypeLabel = v.Type.Label
	}
	return resp
}

func toVehicleTypeResponse(vt *model.VehicleType) VehicleTypeResponse {
	return VehicleTypeResponse{
		ID:              vt.ID.String(),
		Label:           vt.Label,
		ThresholdLiters: vt.ThresholdLiters.String(),
		CreatedAt:       vt.CreatedAt.Format(time.RFC3339),
	}
}
