// Package policy holds the pure decision logic of the approval workflow:
// which role levels a fuel request must pass through, and which status
// transitions the engine may apply. It never touches the store.
package policy

import (
	"encoding/json"
	"fmt"

	"backend/internal/model"

	"github.com/shopspring/decimal"
)

// DefaultThresholdLiters is the quantity above which director approval is
// required, unless the vehicle type overrides it.
var DefaultThresholdLiters = decimal.NewFromInt(30)

// Config carries the threshold configuration resolved at startup. Requests
// snapshot the resulting path at creation, so editing the threshold later
// never changes an in-flight request.
type Config struct {
	DefaultThresholdLiters decimal.Decimal
}

// NewConfig returns a Config, falling back to DefaultThresholdLiters when the
// given value is not positive.
func NewConfig(defaultThreshold decimal.Decimal) Config {
	if !defaultThreshold.IsPositive() {
		defaultThreshold = DefaultThresholdLiters
	}
	return Config{DefaultThresholdLiters: defaultThreshold}
}

// EffectiveThreshold resolves the director threshold for a vehicle type,
// honoring the per-type override when set.
func (c Config) EffectiveThreshold(vt *model.VehicleType) decimal.Decimal {
	if vt != nil && vt.ThresholdLiters.IsPositive() {
		return vt.ThresholdLiters
	}
	return c.DefaultThresholdLiters
}

// RequiredPath computes the ordered sequence of approver roles for a request.
// Every request ends with pump-operator dispensing confirmation; quantities
// above the threshold insert director approval between supervisor and pump
// operator. Pure: same inputs always yield the same path.
func RequiredPath(quantity, threshold decimal.Decimal, requesterRole string) ([]string, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive, got %s", model.ErrInvalidRequestAttributes, quantity)
	}
	if !model.ValidRole(requesterRole) {
		return nil, fmt.Errorf("%w: unknown requester role %q", model.ErrInvalidRequestAttributes, requesterRole)
	}

	path := []string{model.RoleSupervisor}
	if quantity.GreaterThan(threshold) {
		path = append(path, model.RoleDirector)
	}
	path = append(path, model.RolePumpOperator)
	return path, nil
}

// EncodePath serializes a path for storage on the request row
func EncodePath(path []string) (string, error) {
	raw, err := json.Marshal(path)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodePath parses a stored path
func DecodePath(encoded string) ([]string, error) {
	var path []string
	if err := json.Unmarshal([]byte(encoded), &path); err != nil {
		return nil, fmt.Errorf("corrupt required path %q: %w", encoded, err)
	}
	return path, nil
}

// CompletedLevels maps a status to the number of approval levels already
// passed. The next expected level is always CompletedLevels+1.
func CompletedLevels(status string) (int, error) {
	switch status {
	case model.StatusPending:
		return 0, nil
	case model.StatusApprovedSupervisor:
		return 1, nil
	case model.StatusApprovedDirector:
		return 2, nil
	default:
		return 0, fmt.Errorf("status %q has no pending level", status)
	}
}

// StatusAfterApproval returns the status a request enters once the given role
// approves its level.
func StatusAfterApproval(role string) (string, error) {
	switch role {
	case model.RoleSupervisor:
		return model.StatusApprovedSupervisor, nil
	case model.RoleDirector:
		return model.StatusApprovedDirector, nil
	case model.RolePumpOperator:
		return model.StatusFulfilled, nil
	default:
		return "", fmt.Errorf("role %q cannot approve a level", role)
	}
}

// allowedTransitions is the authoritative edge set of the state machine.
// Terminal states have no outgoing edges.
var allowedTransitions = map[string][]string{
	model.StatusPending:            {model.StatusApprovedSupervisor, model.StatusRejected},
	model.StatusApprovedSupervisor: {model.StatusApprovedDirector, model.StatusFulfilled, model.StatusRejected},
	model.StatusApprovedDirector:   {model.StatusFulfilled, model.StatusRejected},
	model.StatusFulfilled:          {},
	model.StatusRejected:           {},
}

// CanTransition checks if a status transition follows an edge of the state machine
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the permitted next statuses for a given status
func AllowedTransitions(from string) []string {
	return allowedTransitions[from]
}
