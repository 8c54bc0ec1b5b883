package jobs

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
)

// CreateInput carries the fields an operator supplies when creating a job.
type CreateInput struct {
	Title          string
	JobType        enums.JobType
	ScheduledDate  time.Time
	WindowStart    *time.Time
	WindowEnd      *time.Time
	EstimatedHours decimal.Decimal
	BasePay        decimal.Decimal
	ZoneID         *uuid.UUID
	// PublishNow skips the draft stage and creates the job directly open.
	PublishNow bool
}

// DirectAssignInput assigns a driver without going through the auction.
type DirectAssignInput struct {
	JobID    uuid.UUID
	DriverID uuid.UUID
	Pay      decimal.Decimal
}

// JobList is one page of jobs plus the cursor for the next page.
type JobList struct {
	Jobs       []models.Job `json:"jobs"`
	NextCursor *string      `json:"next_cursor,omitempty"`
}
