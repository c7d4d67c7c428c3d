package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"backend/internal/model"
	"backend/internal/policy"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeVehicleRepository serves a fixed vehicle registry from memory
type fakeVehicleRepository struct {
	vehicles map[uuid.UUID]*model.Vehicle
}

func newFakeVehicleRepository() *fakeVehicleRepository {
	return &fakeVehicleRepository{vehicles: make(map[uuid.UUID]*model.Vehicle)}
}

func (r *fakeVehicleRepository) add(registration string, active bool, vt *model.VehicleType) *model.Vehicle {
	v := &model.Vehicle{
		ID:           uuid.New(),
		Registration: registration,
		Active:       active,
		Type:         vt,
	}
	if vt != nil {
		v.TypeID = vt.ID
	}
	r.vehicles[v.ID] = v
	return v
}

func (r *fakeVehicleRepository) CreateVehicle(ctx context.Context, v *model.Vehicle) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	r.vehicles[v.ID] = v
	return nil
}

func (r *fakeVehicleRepository) CreateType(ctx context.Context, vt *model.VehicleType) error {
	if vt.ID == uuid.Nil {
		vt.ID = uuid.New()
	}
	return nil
}

func (r *fakeVehicleRepository) FindVehicleWithType(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	v, ok := r.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("vehicle %s not found", id)
	}
	return v, nil
}

func (r *fakeVehicleRepository) ListVehicles(ctx context.Context, page, limit int) ([]model.Vehicle, int64, error) {
	var out []model.Vehicle
	for _, v := range r.vehicles {
		out = append(out, *v)
	}
	return out, int64(len(out)), nil
}

func (r *fakeVehicleRepository) ListTypes(ctx context.Context) ([]model.VehicleType, error) {
	return nil, nil
}

type requestFixture struct {
	store    *repository.MemoryRequestStore
	ledger   *repository.MemoryLedger
	vehicles *fakeVehicleRepository
	audit    *repository.MemoryAuditRepository
	service  FuelRequestService
}

func newRequestFixture(t *testing.T, cfg policy.Config) *requestFixture {
	t.Helper()
	store := repository.NewMemoryRequestStore()
	ledger := repository.NewMemoryLedger()
	vehicles := newFakeVehicleRepository()
	audit := repository.NewMemoryAuditRepository()
	svc := NewFuelRequestService(store, ledger, vehicles, audit, repository.NopTransactionManager{}, cfg, zap.NewNop())
	return &requestFixture{store: store, ledger: ledger, vehicles: vehicles, audit: audit, service: svc}
}

func standardType() *model.VehicleType {
	return &model.VehicleType{ID: uuid.New(), Label: "pickup"}
}

func validDTO(vehicleID string, quantity decimal.Decimal) CreateFuelRequestDTO {
	return CreateFuelRequestDTO{
		VehicleID:         vehicleID,
		OdometerReading:   120500,
		QuantityRequested: quantity,
		Reason:            "tank below quarter",
		Mission:           "material transport",
		Site:              "east quarry",
	}
}

func TestCreateRequestPinsApprovalPath(t *testing.T) {
	f := newRequestFixture(t, policy.NewConfig(decimal.NewFromInt(30)))
	ctx := context.Background()
	vehicle := f.vehicles.add("AB-123-CD", true, standardType())

	t.Run("small quantity gets two-level path", func(t *testing.T) {
		resp, err := f.service.CreateRequest(ctx, uuid.NewString(), model.RoleDriver, validDTO(vehicle.ID.String(), decimal.NewFromInt(20)))
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, resp.Status)
		assert.Equal(t, []string{model.RoleSupervisor, model.RolePumpOperator}, resp.RequiredPath)
		assert.Nil(t, resp.QuantityServed)
	})

	t.Run("large quantity inserts director", func(t *testing.T) {
		resp, err := f.service.CreateRequest(ctx, uuid.NewString(), model.RoleDriver, validDTO(vehicle.ID.String(), decimal.NewFromInt(45)))
		require.NoError(t, err)
		assert.Equal(t, []string{model.RoleSupervisor, model.RoleDirector, model.RolePumpOperator}, resp.RequiredPath)
	})
}

func TestCreateRequestHonorsTypeThresholdOverride(t *testing.T) {
	f := newRequestFixture(t, policy.NewConfig(decimal.NewFromInt(30)))
	ctx := context.Background()

	heavy := &model.VehicleType{ID: uuid.New(), Label: "heavy truck", ThresholdLiters: decimal.NewFromInt(80)}
	vehicle := f.vehicles.add("HV-900-XK", true, heavy)

	// 45L would need director under the 30L default, but the type allows 80L
	resp, err := f.service.CreateRequest(ctx, uuid.NewString(), model.RoleDriver, validDTO(vehicle.ID.String(), decimal.NewFromInt(45)))
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleSupervisor, model.RolePumpOperator}, resp.RequiredPath)

	resp, err = f.service.CreateRequest(ctx, uuid.NewString(), model.RoleDriver, validDTO(vehicle.ID.String(), decimal.NewFromInt(90)))
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleSupervisor, model.RoleDirector, model.RolePumpOperator}, resp.RequiredPath)
}

func TestCreateRequestValidation(t *testing.T) {
	f := newRequestFixture(t, policy.NewConfig(decimal.NewFromInt(30)))
	ctx := context.Background()
	vehicle := f.vehicles.add("AB-123-CD", true, standardType())
	inactive := f.vehicles.add("ZZ-000-ZZ", false, standardType())
	untyped := f.vehicles.add("NT-111-NT", true, nil)

	tests := []struct {
		name      string
		requester string
		role      string
		dto       CreateFuelRequestDTO
	}{
		{
			name:      "zero quantity",
			requester: uuid.NewString(),
			role:      model.RoleDriver,
			dto:       validDTO(vehicle.ID.String(), decimal.Zero),
		},
		{
			name:      "negative quantity",
			requester: uuid.NewString(),
			role:      model.RoleDriver,
			dto:       validDTO(vehicle.ID.String(), decimal.NewFromInt(-3)),
		},
		{
			name:      "unknown vehicle",
			requester: uuid.NewString(),
			role:      model.RoleDriver,
			dto:       validDTO(uuid.NewString(), decimal.NewFromInt(20)),
		},
		{
			name:      "malformed vehicle id",
			requester: uuid.NewString(),
			role:      model.RoleDriver,
			dto:       validDTO("garbage", decimal.NewFromInt(20)),
		},
		{
			name:      "malformed requester id",
			requester: "garbage",
			role:      model.RoleDriver,
			dto:       validDTO(vehicle.ID.String(), decimal.NewFromInt(20)),
		},
		{
			name:      "unknown requester role",
			requester: uuid.NewString(),
			role:      "mechanic",
			dto:       validDTO(vehicle.ID.String(), decimal.NewFromInt(20)),
		},
		{
			name:      "inactive vehicle",
			requester: uuid.NewString(),
			role:      model.RoleDriver,
			dto:       validDTO(inactive.ID.String(), decimal.NewFromInt(20)),
		},
		{
			name:      "vehicle without type",
			requester: uuid.NewString(),
			role:      model.RoleDriver,
			dto:       validDTO(untyped.ID.String(), decimal.NewFromInt(20)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateRequest(ctx, tt.requester, tt.role, tt.dto)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrInvalidRequestAttributes), "got: %v", err)
		})
	}

	// Failed creations leave no request behind
	_, total, err := f.service.ListRequests(ctx, "", 1, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestCreateRequestWritesAuditEntry(t *testing.T) {
	f := newRequestFixture(t, policy.NewConfig(decimal.NewFromInt(30)))
	ctx := context.Background()
	vehicle := f.vehicles.add("AB-123-CD", true, standardType())

	_, err := f.service.CreateRequest(ctx, uuid.NewString(), model.RoleDriver, validDTO(vehicle.ID.String(), decimal.NewFromInt(20)))
	require.NoError(t, err)

	logs, total, err := f.audit.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.ActionCreateFuelRequest, logs[0].Action)
}

func TestThresholdEditNeverTouchesInFlightRequests(t *testing.T) {
	f := newRequestFixture(t, policy.NewConfig(decimal.NewFromInt(30)))
	ctx := context.Background()
	vehicle := f.vehicles.add("AB-123-CD", true, standardType())

	created, err := f.service.CreateRequest(ctx, uuid.NewString(), model.RoleDriver, validDTO(vehicle.ID.String(), decimal.NewFromInt(45)))
	require.NoError(t, err)
	require.Equal(t, []string{model.RoleSupervisor, model.RoleDirector, model.RolePumpOperator}, created.RequiredPath)

	// Raising the type's threshold after the fact changes nothing: the path
	// was snapshotted at creation.
	vehicle.Type.ThresholdLiters = decimal.NewFromInt(100)

	fetched, err := f.service.GetRequest(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.RequiredPath, fetched.RequiredPath)
}

func TestListRequestsFiltersByStatus(t *testing.T) {
	f := newRequestFixture(t, policy.NewConfig(decimal.NewFromInt(30)))
	ctx := context.Background()
	vehicle := f.vehicles.add("AB-123-CD", true, standardType())

	for i := 0; i < 3; i++ {
		_, err := f.service.CreateRequest(ctx, uuid.NewString(), model.RoleDriver, validDTO(vehicle.ID.String(), decimal.NewFromInt(20)))
		require.NoError(t, err)
	}

	pending, total, err := f.service.ListRequests(ctx, model.StatusPending, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, pending, 3)

	fulfilled, total, err := f.service.ListRequests(ctx, model.StatusFulfilled, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.Empty(t, fulfilled)

	_, _, err = f.service.ListRequests(ctx, "NOT_A_STATUS", 1, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidRequestAttributes))
}

func TestGetLedgerOnUnknownRequest(t *testing.T) {
	f := newRequestFixture(t, policy.NewConfig(decimal.NewFromInt(30)))
	ctx := context.Background()

	_, err := f.service.GetLedger(ctx, uuid.NewString())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrRequestNotFound))
}

func TestGetRequestOnUnknownID(t *testing.T) {
	f := newRequestFixture(t, policy.NewConfig(decimal.NewFromInt(30)))
	ctx := context.Background()

	_, err := f.service.GetRequest(ctx, uuid.NewString())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrRequestNotFound))

	_, err = f.service.GetRequest(ctx, "not-a-uuid")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrRequestNotFound))
}
