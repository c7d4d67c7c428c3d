package model

import (
	"time"

	"github.com/google/uuid"
)

// Validation decision enum constants
const (
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)

// ValidationEntry is one approval/rejection decision on a fuel request.
// The ledger is append-only: entries are never updated or deleted, and the
// composite unique index on (request_id, level) is the database-level
// backstop against two actors deciding the same level.
type ValidationEntry struct {
	ID        uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_validations_request_level" json:"request_id"`
	Request   *FuelRequest `gorm:"foreignKey:RequestID" json:"-"`
	Level     int          `gorm:"not null;uniqueIndex:idx_validations_request_level" json:"level"` // 1-based position in the approval path
	Decision  string       `gorm:"type:varchar(20);not null" json:"decision"`
	ActorID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"actor_id"`
	Actor     *User        `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Comment   string       `gorm:"type:text" json:"comment"`
	DecidedAt time.Time    `gorm:"autoCreateTime" json:"decided_at"`
}
