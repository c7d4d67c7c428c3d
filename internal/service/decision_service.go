package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/notifier"
	"backend/internal/policy"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SubmitDecisionDTO is the payload for acting on a fuel request.
// QuantityServed is consumed only at the final (dispensing) level.
type SubmitDecisionDTO struct {
	Decision       string           `json:"decision" binding:"required,oneof=APPROVED REJECTED"`
	Comment        string           `json:"comment"`
	QuantityServed *decimal.Decimal `json:"quantity_served"`
}

// DecisionService is the transition engine: the single entry point through
// which a fuel request ever changes state after creation.
type DecisionService interface {
	SubmitDecision(ctx context.Context, requestID, actorID, actorRole string, dto SubmitDecisionDTO) (FuelRequestResponse, error)
}

type decisionService struct {
	requests repository.FuelRequestRepository
	ledger   repository.ValidationLedger
	audit    repository.AuditRepository
	txm      repository.TransactionManager
	sink     notifier.Sink
	logger   *zap.Logger
}

func NewDecisionService(
	requests repository.FuelRequestRepository,
	ledger repository.ValidationLedger,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	sink notifier.Sink,
	logger *zap.Logger,
) DecisionService {
	return &decisionService{
		requests: requests,
		ledger:   ledger,
		audit:    audit,
		txm:      txm,
		sink:     sink,
		logger:   logger,
	}
}

// SubmitDecision validates the actor against the request's fixed approval
// path and applies the decision atomically: ledger append, compare-and-swap
// status update and audit write commit or roll back together. Under a race on
// the same level exactly one caller succeeds; the others get
// ErrLevelAlreadyDecided (or ErrStaleState) and nothing is applied.
func (s *decisionService) SubmitDecision(ctx context.Context, requestID, actorID, actorRole string, dto SubmitDecisionDTO) (FuelRequestResponse, error) {
	reqID, err := uuid.Parse(requestID)
	if err != nil {
		return FuelRequestResponse{}, fmt.Errorf("%w: invalid request id %q", model.ErrRequestNotFound, requestID)
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return FuelRequestResponse{}, fmt.Errorf("invalid actor id: %w", err)
	}

	var event notifier.TransitionEvent
	var overDispensed bool

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		req, findErr := s.requests.FindByID(txCtx, reqID)
		if findErr != nil {
			return findErr
		}

		if req.IsTerminal() {
			return fmt.Errorf("%w: request %s is %s", model.ErrRequestFinalized, req.ID, req.Status)
		}

		path, pathErr := policy.DecodePath(req.RequiredPath)
		if pathErr != nil {
			return pathErr
		}

		completed, lvlErr := policy.CompletedLevels(req.Status)
		if lvlErr != nil {
			return fmt.Errorf("%w: %s", model.ErrRequestFinalized, req.Status)
		}
		expectedLevel := completed + 1
		if expectedLevel > len(path) {
			return fmt.Errorf("request %s status %s exceeds its %d-level path", req.ID, req.Status, len(path))
		}

		// An actor whose level was already consumed gets the same conflict
		// error on every retry, regardless of how far the request has moved
		// since; only acting ahead of turn is an authorization failure.
		actorLevel := levelForRole(path, actorRole)
		switch {
		case actorLevel == 0:
			return fmt.Errorf("%w: role %s is not on the approval path", model.ErrUnauthorizedForLevel, actorRole)
		case actorLevel < expectedLevel:
			return fmt.Errorf("%w: request %s level %d", model.ErrLevelAlreadyDecided, req.ID, actorLevel)
		case actorLevel > expectedLevel:
			return fmt.Errorf("%w: level %d is not yet reached (current level %d requires %s)",
				model.ErrUnauthorizedForLevel, actorLevel, expectedLevel, path[expectedLevel-1])
		}

		now := time.Now()
		approved := dto.Decision == model.DecisionApproved
		finalLevel := expectedLevel == len(path)

		newStatus := model.StatusRejected
		if approved {
			newStatus, err = policy.StatusAfterApproval(actorRole)
			if err != nil {
				return err
			}
		}

		fields := map[string]interface{}{
			"status":           newStatus,
			"last_modified_at": now,
		}

		if approved && finalLevel {
			if dto.QuantityServed == nil {
				return fmt.Errorf("%w: quantity_served is required when dispensing", model.ErrInvalidRequestAttributes)
			}
			if dto.QuantityServed.IsNegative() {
				return fmt.Errorf("%w: quantity_served must not be negative", model.ErrInvalidRequestAttributes)
			}
			overDispensed = dto.QuantityServed.GreaterThan(req.QuantityRequested)
			fields["quantity_served"] = *dto.QuantityServed
		}

		// Append before the status swap: the (request_id, level) unique
		// constraint decides same-level races, and a failed swap rolls the
		// entry back with the rest of the transaction.
		entry := &model.ValidationEntry{
			RequestID: req.ID,
			Level:     expectedLevel,
			Decision:  dto.Decision,
			ActorID:   actor,
			Comment:   dto.Comment,
			DecidedAt: now,
		}
		if appendErr := s.ledger.Append(txCtx, entry); appendErr != nil {
			return appendErr
		}

		if casErr := s.requests.UpdateStatusCAS(txCtx, req.ID, req.Status, fields); casErr != nil {
			return casErr
		}

		action := model.ActionApproveLevel
		switch {
		case !approved:
			action = model.ActionRejectRequest
		case finalLevel:
			action = model.ActionFulfillRequest
		}

		auditDetails := map[string]interface{}{
			"level":      expectedLevel,
			"decision":   dto.Decision,
			"old_status": req.Status,
			"new_status": newStatus,
		}
		if approved && finalLevel {
			auditDetails["quantity_served"] = dto.QuantityServed.String()
			auditDetails["over_dispensed"] = overDispensed
		}
		details, _ := json.Marshal(auditDetails)
		auditEntry := &model.AuditLog{
			UserID:     &actor,
			Action:     action,
			EntityID:   req.ID.String(),
			EntityName: req.Mission,
			Details:    string(details),
		}
		if auditErr := s.audit.Create(txCtx, auditEntry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		event = notifier.TransitionEvent{
			RequestID: req.ID,
			OldStatus: req.Status,
			NewStatus: newStatus,
			ActorID:   actor,
			Timestamp: now,
		}
		return nil
	})

	if err != nil {
		return FuelRequestResponse{}, err
	}

	if overDispensed {
		s.logger.Warn("quantity served exceeds quantity requested",
			zap.String("request_id", reqID.String()),
			zap.String("actor_id", actorID))
	}

	// Fire-and-forget: sink unavailability never fails the transition
	s.sink.Publish(event)

	updated, err := s.requests.FindByIDWithRelations(ctx, reqID)
	if err != nil {
		return FuelRequestResponse{}, fmt.Errorf("failed to reload fuel request: %w", err)
	}
	return toFuelRequestResponse(updated)
}

// levelForRole returns the 1-based level a role occupies on the path, 0 if absent
func levelForRole(path []string, role string) int {
	for i, r := range path {
		if r == role {
			return i + 1
		}
	}
	return 0
}
