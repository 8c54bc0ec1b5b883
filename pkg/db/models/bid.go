package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is a driver's priced offer to perform a job. Rows are immutable once
// the job leaves its biddable state; losing bids stay stored for audit.
// The (job_id, driver_id) pair is unique while the bid is active.
type Bid struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	JobID             uuid.UUID       `gorm:"column:job_id;type:uuid;not null;uniqueIndex:idx_bids_job_driver"`
	DriverID          uuid.UUID       `gorm:"column:driver_id;type:uuid;not null;uniqueIndex:idx_bids_job_driver"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(10,2);not null"`
	DriverRatingAtBid decimal.Decimal `gorm:"column:driver_rating_at_bid;type:numeric(3,2);not null"`
	Message           *string         `gorm:"column:message"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
