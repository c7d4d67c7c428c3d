package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/policy"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- DTOs ---

type CreateFuelRequestDTO struct {
	VehicleID         string          `json:"vehicle_id" binding:"required"`
	OdometerReading   int64           `json:"odometer_reading" binding:"gte=0"`
	QuantityRequested decimal.Decimal `json:"quantity_requested" binding:"required"`
	Reason            string          `json:"reason" binding:"required"`
	Mission           string          `json:"mission" binding:"required"`
	Site              string          `json:"site" binding:"required"`
}

type FuelRequestResponse struct {
	ID                string   `json:"id"`
	RequesterID       string   `json:"requester_id"`
	RequesterName     string   `json:"requester_name,omitempty"`
	VehicleID         string   `json:"vehicle_id"`
	VehicleReg        string   `json:"vehicle_registration,omitempty"`
	OdometerReading   int64    `json:"odometer_reading"`
	QuantityRequested string   `json:"quantity_requested"`
	QuantityServed    *string  `json:"quantity_served"`
	Reason            string   `json:"reason"`
	Mission           string   `json:"mission"`
	Site              string   `json:"site"`
	Status            string   `json:"status"`
	RequiredPath      []string `json:"required_path"`
	CreatedAt         string   `json:"created_at"`
	LastModifiedAt    string   `json:"last_modified_at"`
}

type ValidationEntryResponse struct {
	ID        string `json:"id"`
	RequestID string `json:"request_id"`
	Level     int    `json:"level"`
	Decision  string `json:"decision"`
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name,omitempty"`
	Comment   string `json:"comment"`
	DecidedAt string `json:"decided_at"`
}

// --- Interface ---

type FuelRequestService interface {
	CreateRequest(ctx context.Context, requesterID, requesterRole string, dto CreateFuelRequestDTO) (FuelRequestResponse, error)
	GetRequest(ctx context.Context, id string) (FuelRequestResponse, error)
	ListRequests(ctx context.Context, status string, page, limit int) ([]FuelRequestResponse, int64, error)
	GetLedger(ctx context.Context, requestID string) ([]ValidationEntryResponse, error)
}

type fuelRequestService struct {
	requests repository.FuelRequestRepository
	ledger   repository.ValidationLedger
	vehicles repository.VehicleRepository
	audit    repository.AuditRepository
	txm      repository.TransactionManager
	cfg      policy.Config
	logger   *zap.Logger
}

func NewFuelRequestService(
	requests repository.FuelRequestRepository,
	ledger repository.ValidationLedger,
	vehicles repository.VehicleRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	cfg policy.Config,
	logger *zap.Logger,
) FuelRequestService {
	return &fuelRequestService{
		requests: requests,
		ledger:   ledger,
		vehicles: vehicles,
		audit:    audit,
		txm:      txm,
		cfg:      cfg,
		logger:   logger,
	}
}

// --- Implementation ---

// CreateRequest validates the attributes, computes the approval path from the
// effective threshold and pins it to the new request. No record is created
// when validation fails.
func (s *fuelRequestService) CreateRequest(ctx context.Context, requesterID, requesterRole string, dto CreateFuelRequestDTO) (FuelRequestResponse, error) {
	requester, err := uuid.Parse(requesterID)
	if err != nil {
		return FuelRequestResponse{}, fmt.Errorf("%w: invalid requester id", model.ErrInvalidRequestAttributes)
	}

	vehicleID, err := uuid.Parse(dto.VehicleID)
	if err != nil {
		return FuelRequestResponse{}, fmt.Errorf("%w: invalid vehicle id %q", model.ErrInvalidRequestAttributes, dto.VehicleID)
	}

	if dto.OdometerReading < 0 {
		return FuelRequestResponse{}, fmt.Errorf("%w: odometer reading must not be negative", model.ErrInvalidRequestAttributes)
	}

	vehicle, err := s.vehicles.FindVehicleWithType(ctx, vehicleID)
	if err != nil {
		return FuelRequestResponse{}, fmt.Errorf("%w: %v", model.ErrInvalidRequestAttributes, err)
	}
	if !vehicle.Active {
		return FuelRequestResponse{}, fmt.Errorf("%w: vehicle %s is inactive", model.ErrInvalidRequestAttributes, vehicle.Registration)
	}
	if vehicle.Type == nil {
		return FuelRequestResponse{}, fmt.Errorf("%w: vehicle %s has no recognized type", model.ErrInvalidRequestAttributes, vehicle.Registration)
	}

	threshold := s.cfg.EffectiveThreshold(vehicle.Type)
	path, err := policy.RequiredPath(dto.QuantityRequested, threshold, requesterRole)
	if err != nil {
		return FuelRequestResponse{}, err
	}
	encodedPath, err := policy.EncodePath(path)
	if err != nil {
		return FuelRequestResponse{}, err
	}

	request := &model.FuelRequest{
		RequesterID:       requester,
		VehicleID:         vehicleID,
		OdometerReading:   dto.OdometerReading,
		QuantityRequested: dto.QuantityRequested,
		Reason:            dto.Reason,
		Mission:           dto.Mission,
		Site:              dto.Site,
		Status:            model.StatusPending,
		RequiredPath:      encodedPath,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.requests.Create(txCtx, request); createErr != nil {
			return fmt.Errorf("failed to create fuel request: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"vehicle_id":         vehicleID.String(),
			"quantity_requested": dto.QuantityRequested.String(),
			"threshold":          threshold.String(),
			"required_path":      path,
		})
		auditEntry := &model.AuditLog{
			UserID:     &requester,
			Action:     model.ActionCreateFuelRequest,
			EntityID:   request.ID.String(),
			EntityName: dto.Mission,
			Details:    string(details),
		}
		if auditErr := s.audit.Create(txCtx, auditEntry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return FuelRequestResponse{}, err
	}

	created, err := s.requests.FindByIDWithRelations(ctx, request.ID)
	if err != nil {
		return FuelRequestResponse{}, fmt.Errorf("failed to reload fuel request: %w", err)
	}
	return toFuelRequestResponse(created)
}

func (s *fuelRequestService) GetRequest(ctx context.Context, id string) (FuelRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return FuelRequestResponse{}, fmt.Errorf("%w: invalid request id %q", model.ErrRequestNotFound, id)
	}

	request, err := s.requests.FindByIDWithRelations(ctx, requestID)
	if err != nil {
		return FuelRequestResponse{}, err
	}
	return toFuelRequestResponse(request)
}

func (s *fuelRequestService) ListRequests(ctx context.Context, status string, page, limit int) ([]FuelRequestResponse, int64, error) {
	if status != "" && !model.ValidStatus(status) {
		return nil, 0, fmt.Errorf("%w: unknown status %q", model.ErrInvalidRequestAttributes, status)
	}

	requests, total, err := s.requests.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch fuel requests: %w", err)
	}

	result := make([]FuelRequestResponse, 0, len(requests))
	for i := range requests {
		resp, mapErr := toFuelRequestResponse(&requests[i])
		if mapErr != nil {
			return nil, 0, mapErr
		}
		result = append(result, resp)
	}
	return result, total, nil
}

func (s *fuelRequestService) GetLedger(ctx context.Context, requestID string) ([]ValidationEntryResponse, error) {
	reqID, err := uuid.Parse(requestID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid request id %q", model.ErrRequestNotFound, requestID)
	}

	// Existence check so unknown ids surface as NotFound, not an empty ledger
	if _, err := s.requests.FindByID(ctx, reqID); err != nil {
		return nil, err
	}

	entries, err := s.ledger.ListByRequest(ctx, reqID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch validations: %w", err)
	}

	result := make([]ValidationEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := ValidationEntryResponse{
			ID:        e.ID.String(),
			RequestID: e.RequestID.String(),
			Level:     e.Level,
			Decision:  e.Decision,
			ActorID:   e.ActorID.String(),
			Comment:   e.Comment,
			DecidedAt: e.DecidedAt.Format(time.RFC3339),
		}
		if e.Actor != nil {
			resp.ActorName = e.Actor.FullName
		}
		result = append(result, resp)
	}
	return result, nil
}

// --- Helpers ---

func toFuelRequestResponse(r *model.FuelRequest) (FuelRequestResponse, error) {
	path, err := policy.DecodePath(r.RequiredPath)
	if err != nil {
		return FuelRequestResponse{}, err
	}

	resp := FuelRequestResponse{
		ID:                r.ID.String(),
		RequesterID:       r.RequesterID.String(),
		VehicleID:         r.VehicleID.String(),
		OdometerReading:   r.OdometerReading,
		QuantityRequested: r.QuantityRequested.String(),
		Reason:            r.Reason,
		Mission:           r.Mission,
		Site:              r.Site,
		Status:            r.Status,
		RequiredPath:      path,
		CreatedAt:         r.CreatedAt.Format(time.RFC3339),
		LastModifiedAt:    r.LastModifiedAt.Format(time.RFC3339),
	}
	if r.QuantityServed != nil {
		served := r.QuantityServed.String()
		resp.QuantityServed = &served
	}
	if r.Requester != nil {
		resp.RequesterName = r.Requester.FullName
	}
	if r.Vehicle != nil {
		resp.VehicleReg = r.Vehicle.Registration
	}
	return resp, nil
}
