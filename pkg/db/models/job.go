package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/curbsideops/dispatch-backend/pkg/enums"
)

// Job is one dispatchable unit of pickup work for a single driver on a single
// day. ActualPay and AssignedDriverID are written together by assignment only;
// one being set without the other is an invariant violation.
type Job struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title            string           `gorm:"column:title;not null"`
	JobType          enums.JobType    `gorm:"column:job_type;type:job_type;not null"`
	Status           enums.JobStatus  `gorm:"column:status;type:job_status;not null;default:'draft'"`
	ScheduledDate    time.Time        `gorm:"column:scheduled_date;type:date;not null"`
	WindowStart      *time.Time       `gorm:"column:window_start"`
	WindowEnd        *time.Time       `gorm:"column:window_end"`
	EstimatedStops   int              `gorm:"column:estimated_stops;not null;default:0"`
	EstimatedHours   decimal.Decimal  `gorm:"column:estimated_hours;type:numeric(6,2);not null;default:0"`
	BasePay          decimal.Decimal  `gorm:"column:base_pay;type:numeric(10,2);not null;default:0"`
	ActualPay        *decimal.Decimal `gorm:"column:actual_pay;type:numeric(10,2)"`
	AssignedDriverID *uuid.UUID       `gorm:"column:assigned_driver_id;type:uuid"`
	ZoneID           *uuid.UUID       `gorm:"column:zone_id;type:uuid"`
	CancelledAt      *time.Time       `gorm:"column:cancelled_at"`
	Pickups          []Pickup         `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
	Bids             []Bid            `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
