package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Driver is a registered route driver. ExternalRef carries the identity the
// route-optimization provider uses in its telemetry feed.
type Driver struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DisplayName string          `gorm:"column:display_name;not null"`
	Phone       *string         `gorm:"column:phone"`
	Rating      decimal.Decimal `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	Active      bool            `gorm:"column:active;not null;default:true"`
	ExternalRef *string         `gorm:"column:external_ref;uniqueIndex"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
