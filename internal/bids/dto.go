package bids

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/curbsideops/dispatch-backend/pkg/db/models"
)

// SubmitInput is a driver's offer on a biddable job.
type SubmitInput struct {
	JobID    uuid.UUID
	DriverID uuid.UUID
	Amount   decimal.Decimal
	Message  *string
}

// UpdateInput revises an existing bid. Re-submission is always explicit; a
// second insert for the same (job, driver) pair is rejected.
type UpdateInput struct {
	BidID    uuid.UUID
	DriverID uuid.UUID
	Amount   decimal.Decimal
	Message  *string
}

// AcceptResult reports the winning bid and the job it assigned.
type AcceptResult struct {
	Bid *models.Bid `json:"bid"`
	Job *models.Job `json:"job"`
}
