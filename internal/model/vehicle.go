package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VehicleType groups vehicles and optionally overrides the director-approval
// threshold for requests made against them. A zero threshold means "use the
// configured default".
type VehicleType struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Label           string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"label"`
	ThresholdLiters decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"threshold_liters"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// Vehicle is a fleet vehicle fuel requests are made against
type Vehicle struct {
	ID           uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Registration string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"registration"`
	TypeID       uuid.UUID    `gorm:"type:uuid;not null;index" json:"type_id"`
	Type         *VehicleType `gorm:"foreignKey:TypeID" json:"type,omitempty"`
	Active       bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
}
