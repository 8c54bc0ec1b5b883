package bids

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
)

// Repository defines persistence operations for the bids table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, bid *models.Bid) (*models.Bid, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	FindByJobAndDriver(ctx context.Context, jobID, driverID uuid.UUID) (*models.Bid, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Bid, error)
	ListByDriver(ctx context.Context, driverID uuid.UUID) ([]models.Bid, error)
	UpdateWhileBiddable(ctx context.Context, bidID uuid.UUID, updates map[string]any) (bool, error)
	FindDriver(ctx context.Context, driverID uuid.UUID) (*models.Driver, error)
}

// jobStore is the slice of the jobs repository the auction needs: the current
// job row and the conditional status write. jobs.Repository satisfies it.
type jobStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateStatusIf(ctx context.Context, jobID uuid.UUID, from []enums.JobStatus, updates map[string]any) (bool, error)
}
