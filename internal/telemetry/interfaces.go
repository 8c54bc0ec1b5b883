package telemetry

import (
	"context"

	"github.com/google/uuid"

	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
	"github.com/curbsideops/dispatch-backend/pkg/routing"
)

// Repository persists feed cursors and resolves the provider's driver refs.
type Repository interface {
	GetCursor(ctx context.Context, name string) (string, error)
	SaveCursor(ctx context.Context, name, cursor string) error
	FindDriverByExternalRef(ctx context.Context, externalRef string) (*models.Driver, error)
}

// Feed is the slice of the provider client the ingestor consumes.
type Feed interface {
	PollEvents(ctx context.Context, cursor string) (*routing.EventBatch, error)
}

// Lock coordinates a single active poller across process instances.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// pickupStore persists per-stop outcomes onto pickup rows.
type pickupStore interface {
	UpdateStatusByExternalRef(ctx context.Context, stopRef string, status enums.PickupStatus) (bool, error)
}

// jobLifecycle is the system-triggered slice of the jobs service.
type jobLifecycle interface {
	MarkInProgress(ctx context.Context, jobID uuid.UUID) error
	MarkCompleted(ctx context.Context, jobID uuid.UUID) error
}

// assignedJobFinder locates the jobs a driver is currently executing.
type assignedJobFinder interface {
	FindByAssignedDriver(ctx context.Context, driverID uuid.UUID, statuses []enums.JobStatus) ([]models.Job, error)
}
