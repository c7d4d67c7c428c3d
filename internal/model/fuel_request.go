package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FuelRequest status enum constants
const (
	StatusPending            = "PENDING"
	StatusApprovedSupervisor = "APPROVED_SUPERVISOR"
	StatusApprovedDirector   = "APPROVED_DIRECTOR"
	StatusFulfilled          = "FULFILLED"
	StatusRejected           = "REJECTED"
)

// FuelRequest represents a driver's request for fuel against a vehicle.
// The approval path is computed once at creation and stored on the row, so
// later threshold changes never affect in-flight requests. Status is the
// authoritative current stage; the validation ledger holds the history.
type FuelRequest struct {
	ID                uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequesterID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester         *User            `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	VehicleID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	Vehicle           *Vehicle         `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	OdometerReading   int64            `gorm:"not null" json:"odometer_reading"`
	QuantityRequested decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"quantity_requested"`
	QuantityServed    *decimal.Decimal `gorm:"type:numeric(10,2)" json:"quantity_served"`
	Reason            string           `gorm:"type:text;not null" json:"reason"`
	Mission           string           `gorm:"type:varchar(255);not null" json:"mission"`
	Site              string           `gorm:"type:varchar(255);not null" json:"site"`
	Status            string           `gorm:"type:varchar(30);not null;default:'PENDING';index" json:"status"`
	RequiredPath      string           `gorm:"type:jsonb;not null" json:"required_path"` // JSON array of role names, one per level
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	LastModifiedAt    time.Time        `gorm:"autoUpdateTime" json:"last_modified_at"`
}

// IsTerminal reports whether no further transitions are permitted
func (r *FuelRequest) IsTerminal() bool {
	return r.Status == StatusFulfilled || r.Status == StatusRejected
}

// ValidStatus checks a status filter value against the known enum
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusApprovedSupervisor, StatusApprovedDirector, StatusFulfilled, StatusRejected:
		return true
	}
	return false
}
