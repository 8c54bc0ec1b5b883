package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
	"github.com/curbsideops/dispatch-backend/pkg/pagination"
)

// Repository defines persistence operations for the jobs table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, job *models.Job) (*models.Job, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	FindByAssignedDriver(ctx context.Context, driverID uuid.UUID, statuses []enums.JobStatus) ([]models.Job, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*JobList, error)
	// UpdateStatusIf applies updates only while the job status is one of
	// from; it reports whether a row was written. This is the single
	// check-and-set primitive every lifecycle transition goes through.
	UpdateStatusIf(ctx context.Context, jobID uuid.UUID, from []enums.JobStatus, updates map[string]any) (bool, error)
}

// Filters narrows job listings.
type Filters struct {
	Statuses      []enums.JobStatus
	JobType       *enums.JobType
	ScheduledDate *time.Time
	ZoneID        *uuid.UUID
}
