package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/curbsideops/dispatch-backend/pkg/enums"
)

// Property is a serviced customer address. PickupDay and ApprovalState are
// written by the auto-assignment evaluator or by manual operator review.
type Property struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID    uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	Line1         string              `gorm:"column:line1;not null"`
	Line2         *string             `gorm:"column:line2"`
	City          string              `gorm:"column:city;not null"`
	State         string              `gorm:"column:state;not null"`
	PostalCode    string              `gorm:"column:postal_code;not null"`
	Lat           float64             `gorm:"column:lat;not null"`
	Lng           float64             `gorm:"column:lng;not null"`
	ZoneID        *uuid.UUID          `gorm:"column:zone_id;type:uuid"`
	PickupDay     *string             `gorm:"column:pickup_day"`
	ApprovalState enums.ApprovalState `gorm:"column:approval_state;type:approval_state;not null;default:'pending_review'"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
