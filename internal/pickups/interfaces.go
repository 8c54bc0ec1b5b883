package pickups

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
)

// Repository defines persistence for pickups plus the narrow job and property
// reads the attach/detach flow needs. Keeping them on one repository lets the
// whole batch run inside a single transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pickup *models.Pickup) (*models.Pickup, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Pickup, error)
	// FindActiveByProperty returns the live pickup for a property whose
	// parent job is still active, or gorm.ErrRecordNotFound.
	FindActiveByProperty(ctx context.Context, propertyID uuid.UUID) (*models.Pickup, error)
	ListByJob(ctx context.Context, jobID uuid.UUID, includeDetached bool) ([]models.Pickup, error)
	// ListActiveByScheduledDate returns the live pickups across every
	// non-terminal job scheduled for the given calendar date.
	ListActiveByScheduledDate(ctx context.Context, date string) ([]models.Pickup, error)
	MarkDetached(ctx context.Context, pickupID uuid.UUID, at time.Time) error
	CountActiveByJob(ctx context.Context, jobID uuid.UUID) (int64, error)
	// UpdateStatusByExternalRef persists a stop outcome reported by the
	// telemetry feed; it reports whether a live pickup matched the ref.
	UpdateStatusByExternalRef(ctx context.Context, stopRef string, status enums.PickupStatus) (bool, error)
	SetSequence(ctx context.Context, pickupID uuid.UUID, sequence int, stopRef *string) error
	FindProperty(ctx context.Context, propertyID uuid.UUID) (*models.Property, error)
	FindJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	SetJobAggregates(ctx context.Context, jobID uuid.UUID, stops int, hours decimal.Decimal) error
}
