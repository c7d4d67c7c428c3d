package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"backend/internal/model"
	"backend/internal/notifier"
	"backend/internal/policy"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type decisionFixture struct {
	store   *repository.MemoryRequestStore
	ledger  *repository.MemoryLedger
	audit   *repository.MemoryAuditRepository
	service DecisionService
}

func newDecisionFixture(t *testing.T) *decisionFixture {
	t.Helper()
	store := repository.NewMemoryRequestStore()
	ledger := repository.NewMemoryLedger()
	audit := repository.NewMemoryAuditRepository()
	svc := NewDecisionService(store, ledger, audit, repository.NopTransactionManager{}, notifier.NopSink{}, zap.NewNop())
	return &decisionFixture{store: store, ledger: ledger, audit: audit, service: svc}
}

// seedRequest stores a pending request whose path is derived from quantity vs
// the default 30L threshold, mirroring what creation does.
func (f *decisionFixture) seedRequest(t *testing.T, quantity decimal.Decimal) *model.FuelRequest {
	t.Helper()

	path, err := policy.RequiredPath(quantity, policy.DefaultThresholdLiters, model.RoleDriver)
	require.NoError(t, err)
	encoded, err := policy.EncodePath(path)
	require.NoError(t, err)

	req := &model.FuelRequest{
		RequesterID:       uuid.New(),
		VehicleID:         uuid.New(),
		QuantityRequested: quantity,
		Reason:            "low tank",
		Mission:           "site delivery",
		Site:              "north depot",
		Status:            model.StatusPending,
		RequiredPath:      encoded,
	}
	require.NoError(t, f.store.Create(context.Background(), req))
	return req
}

func approve(comment string) SubmitDecisionDTO {
	return SubmitDecisionDTO{Decision: model.DecisionApproved, Comment: comment}
}

func approveServing(qty string) SubmitDecisionDTO {
	served := decimal.RequireFromString(qty)
	return SubmitDecisionDTO{Decision: model.DecisionApproved, QuantityServed: &served}
}

func TestTwoLevelApprovalToFulfilled(t *testing.T) {
	f := newDecisionFixture(t)
	ctx := context.Background()

	// 20L against a 30L threshold: supervisor then pump operator only
	req := f.seedRequest(t, decimal.NewFromInt(20))
	supervisor := uuid.NewString()
	pumpOperator := uuid.NewString()

	resp, err := f.service.SubmitDecision(ctx, req.ID.String(), supervisor, model.RoleSupervisor, approve("ok"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusApprovedSupervisor, resp.Status)
	assert.Equal(t, []string{model.RoleSupervisor, model.RolePumpOperator}, resp.RequiredPath)

	resp, err = f.service.SubmitDecision(ctx, req.ID.String(), pumpOperator, model.RolePumpOperator, approveServing("18"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusFulfilled, resp.Status)
	require.NotNil(t, resp.QuantityServed)
	assert.Equal(t, "18", *resp.QuantityServed)

	entries, err := f.ledger.ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Level)
	assert.Equal(t, 2, entries[1].Level)
	assert.Equal(t, model.DecisionApproved, entries[0].Decision)
	assert.Equal(t, model.DecisionApproved, entries[1].Decision)
}

func TestDirectorRejectionFinalizesRequest(t *testing.T) {
	f := newDecisionFixture(t)
	ctx := context.Background()

	// 45L exceeds the 30L threshold: supervisor, director, pump operator
	req := f.seedRequest(t, decimal.NewFromInt(45))

	_, err := f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RoleSupervisor, approve(""))
	require.NoError(t, err)

	resp, err := f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RoleDirector,
		SubmitDecisionDTO{Decision: model.DecisionRejected, Comment: "budget exceeded"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, resp.Status)

	// A rejected request accepts no further decisions
	_, err = f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RolePumpOperator, approveServing("45"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrRequestFinalized))

	entries, err := f.ledger.ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.DecisionRejected, entries[1].Decision)
	assert.Equal(t, "budget exceeded", entries[1].Comment)
}

func TestActorAheadOfTurnIsUnauthorized(t *testing.T) {
	f := newDecisionFixture(t)
	ctx := context.Background()

	req := f.seedRequest(t, decimal.NewFromInt(45))

	// Director cannot act while the request is still at supervisor level
	_, err := f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RoleDirector, approve(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUnauthorizedForLevel))

	// Neither can the pump operator
	_, err = f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RolePumpOperator, approveServing("45"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUnauthorizedForLevel))

	entries, err := f.ledger.ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRoleOffThePathIsUnauthorized(t *testing.T) {
	f := newDecisionFixture(t)
	ctx := context.Background()

	// 20L path has no director level at all
	req := f.seedRequest(t, decimal.NewFromInt(20))

	_, err := f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RoleDirector, approve(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUnauthorizedForLevel))
}

func TestRetryAfterConsumedLevelStaysConflict(t *testing.T) {
	f := newDecisionFixture(t)
	ctx := context.Background()

	req := f.seedRequest(t, decimal.NewFromInt(45))
	supervisor := uuid.NewString()

	_, err := f.service.SubmitDecision(ctx, req.ID.String(), supervisor, model.RoleSupervisor, approve(""))
	require.NoError(t, err)

	// The same (or another) supervisor retrying gets a stable conflict answer
	_, err = f.service.SubmitDecision(ctx, req.ID.String(), supervisor, model.RoleSupervisor, approve(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrLevelAlreadyDecided))

	// Even after the request moves further along
	_, err = f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RoleDirector, approve(""))
	require.NoError(t, err)

	_, err = f.service.SubmitDecision(ctx, req.ID.String(), supervisor, model.RoleSupervisor, approve(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrLevelAlreadyDecided))
}

func TestConcurrentDecisionsOnSameLevel(t *testing.T) {
	f := newDecisionFixture(t)
	ctx := context.Background()

	req := f.seedRequest(t, decimal.NewFromInt(20))

	const racers = 16
	errs := make([]error, racers)
	var wg sync.WaitGroup
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RoleSupervisor, approve(""))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		conflict := errors.Is(err, model.ErrLevelAlreadyDecided) || errors.Is(err, model.ErrStaleState)
		assert.True(t, conflict, "unexpected race error: %v", err)
	}
	assert.Equal(t, 1, winners, "exactly one racer must win the level")

	entries, err := f.ledger.ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the level must be decided exactly once")

	updated, err := f.store.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApprovedSupervisor, updated.Status)
}

func TestFinalApprovalRequiresQuantityServed(t *testing.T) {
	f := newDecisionFixture(t)
	ctx := context.Background()

	req := f.seedRequest(t, decimal.NewFromInt(20))
	_, err := f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RoleSupervisor, approve(""))
	require.NoError(t, err)

	t.Run("missing quantity", func(t *testing.T) {
		_, err := f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RolePumpOperator, approve(""))
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrInvalidRequestAttributes))
	})

	t.Run("negative quantity", func(t *testing.T) {
		served := decimal.NewFromInt(-1)
		_, err := f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RolePumpOperator,
			SubmitDecisionDTO{Decision: model.DecisionApproved, QuantityServed: &served})
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrInvalidRequestAttributes))
	})

	// Failed final approvals leave no ledger trace and the request open
	entries, err := f.ledger.ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	updated, err := f.store.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApprovedSupervisor, updated.Status)
}

func TestOverDispenseIsAllowedAndRecorded(t *testing.T) {
	f := newDecisionFixture(t)
	ctx := context.Background()

	req := f.seedRequest(t, decimal.NewFromInt(20))
	_, err := f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RoleSupervisor, approve(""))
	require.NoError(t, err)

	resp, err := f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RolePumpOperator, approveServing("25"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusFulfilled, resp.Status)
	require.NotNil(t, resp.QuantityServed)
	assert.Equal(t, "25", *resp.QuantityServed)
}

func TestZeroQuantityServedIsAccepted(t *testing.T) {
	f := newDecisionFixture(t)
	ctx := context.Background()

	req := f.seedRequest(t, decimal.NewFromInt(20))
	_, err := f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RoleSupervisor, approve(""))
	require.NoError(t, err)

	resp, err := f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RolePumpOperator, approveServing("0"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusFulfilled, resp.Status)
}

func TestDecisionOnUnknownRequest(t *testing.T) {
	f := newDecisionFixture(t)
	ctx := context.Background()

	_, err := f.service.SubmitDecision(ctx, uuid.NewString(), uuid.NewString(), model.RoleSupervisor, approve(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrRequestNotFound))

	_, err = f.service.SubmitDecision(ctx, "not-a-uuid", uuid.NewString(), model.RoleSupervisor, approve(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrRequestNotFound))
}

func TestFulfilledRequestAcceptsNoDecisions(t *testing.T) {
	f := newDecisionFixture(t)
	ctx := context.Background()

	req := f.seedRequest(t, decimal.NewFromInt(20))
	_, err := f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RoleSupervisor, approve(""))
	require.NoError(t, err)
	_, err = f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RolePumpOperator, approveServing("20"))
	require.NoError(t, err)

	_, err = f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RolePumpOperator, approveServing("20"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrRequestFinalized))
}

func TestDecisionsWriteAuditTrail(t *testing.T) {
	f := newDecisionFixture(t)
	ctx := context.Background()

	req := f.seedRequest(t, decimal.NewFromInt(20))
	_, err := f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RoleSupervisor, approve(""))
	require.NoError(t, err)
	_, err = f.service.SubmitDecision(ctx, req.ID.String(), uuid.NewString(), model.RolePumpOperator, approveServing("20"))
	require.NoError(t, err)

	logs, total, err := f.audit.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, model.ActionApproveLevel, logs[0].Action)
	assert.Equal(t, model.ActionFulfillRequest, logs[1].Action)
}
