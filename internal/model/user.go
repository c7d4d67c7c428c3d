package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role enum constants — the five fixed role variants of the workflow
const (
	RoleDriver       = "driver"
	RoleSupervisor   = "supervisor"
	RoleDirector     = "director"
	RolePumpOperator = "pump_operator"
	RoleAdmin        = "admin"
)

// ValidRole checks a role string against the known enum
func ValidRole(role string) bool {
	switch role {
	case RoleDriver, RoleSupervisor, RoleDirector, RolePumpOperator, RoleAdmin:
		return true
	}
	return false
}

// RoleLabel returns the human-readable label for a role
func RoleLabel(role string) string {
	switch role {
	case RoleDriver:
		return "Driver"
	case RoleSupervisor:
		return "Supervisor"
	case RoleDirector:
		return "Director"
	case RolePumpOperator:
		return "Pump Operator"
	case RoleAdmin:
		return "Administrator"
	default:
		return "Unknown"
	}
}

// User represents the central user entity for logic and database structure
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username  string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName  string         `gorm:"type:varchar(255);not null" json:"full_name"`
	Password  string         `gorm:"type:varchar(255);not null" json:"-"`   // Omit password from JSON requests/responses
	Role      string         `gorm:"type:varchar(50);not null" json:"role"` // driver, supervisor, director, pump_operator, admin
	Active    bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
