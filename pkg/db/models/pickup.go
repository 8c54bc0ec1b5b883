package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/curbsideops/dispatch-backend/pkg/enums"
)

// Pickup is one address-visit obligation attached to a job. Rows are never
// deleted; removing a stop from a job sets DetachedAt. SequenceNumber stays
// nil until an optimization run orders the job's stops.
type Pickup struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	JobID          uuid.UUID          `gorm:"column:job_id;type:uuid;not null"`
	PropertyID     uuid.UUID          `gorm:"column:property_id;type:uuid;not null"`
	CustomerID     uuid.UUID          `gorm:"column:customer_id;type:uuid;not null"`
	PickupType     enums.PickupType   `gorm:"column:pickup_type;type:pickup_type;not null;default:'routine'"`
	SequenceNumber *int               `gorm:"column:sequence_number"`
	Status         enums.PickupStatus `gorm:"column:status;type:pickup_status;not null;default:'pending'"`
	ExternalStopID *string            `gorm:"column:external_stop_id"`
	DetachedAt     *time.Time         `gorm:"column:detached_at"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
