package pickups

import (
	"github.com/google/uuid"

	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
)

// AttachInput is a batch of properties to attach to one job.
type AttachInput struct {
	JobID       uuid.UUID
	PropertyIDs []uuid.UUID
	PickupType  enums.PickupType
}

// Skip reasons reported per property in a partial-success batch.
const (
	SkipReasonNotFound       = "property not found"
	SkipReasonDuplicateBatch = "property listed twice in batch"
	SkipReasonAlreadyOnJob   = "property already attached to this job"
	SkipReasonClaimed        = "property attached to another active job"
)

// SkippedProperty names one rejected batch item and why it was rejected.
type SkippedProperty struct {
	PropertyID uuid.UUID `json:"property_id"`
	Reason     string    `json:"reason"`
}

// AttachResult carries the partial-success report for an attach batch.
// A batch with every item skipped is still a successful call.
type AttachResult struct {
	Attached       []models.Pickup   `json:"attached"`
	Skipped        []SkippedProperty `json:"skipped"`
	EstimatedStops int               `json:"estimated_stops"`
}

// RouteSyncResult reports how a day's provider stops mapped onto pickups.
type RouteSyncResult struct {
	Routes    int `json:"routes"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
}

// DetachResult reports the detached pickup and the job's refreshed aggregate.
type DetachResult struct {
	Pickup         *models.Pickup `json:"pickup"`
	EstimatedStops int            `json:"estimated_stops"`
}
