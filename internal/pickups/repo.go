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

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pickups repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, pickup *models.Pickup) (*models.Pickup, error) {
	if err := r.db.WithContext(ctx).Create(pickup).Error; err != nil {
		return nil, err
	}
	return pickup, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Pickup, error) {
	var pickup models.Pickup
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&pickup).Error
	if err != nil {
		return nil, err
	}
	return &pickup, nil
}

func (r *repository) FindActiveByProperty(ctx context.Context, propertyID uuid.UUID) (*models.Pickup, error) {
	var pickup models.Pickup
	err := r.db.WithContext(ctx).
		Joins("JOIN jobs ON jobs.id = pickups.job_id").
		Where("pickups.property_id = ?", propertyID).
		Where("pickups.detached_at IS NULL").
		Where("jobs.status NOT IN ?", []enums.JobStatus{enums.JobStatusCompleted, enums.JobStatusCancelled}).
		First(&pickup).Error
	if err != nil {
		return nil, err
	}
	return &pickup, nil
}

func (r *repository) ListActiveByScheduledDate(ctx context.Context, date string) ([]models.Pickup, error) {
	var pickups []models.Pickup
	err := r.db.WithContext(ctx).
		Joins("JOIN jobs ON jobs.id = pickups.job_id").
		Where("pickups.detached_at IS NULL").
		Where("jobs.scheduled_date = ?", date).
		Where("jobs.status NOT IN ?", []enums.JobStatus{enums.JobStatusCompleted, enums.JobStatusCancelled}).
		Order("pickups.created_at ASC").
		Find(&pickups).Error
	if err != nil {
		return nil, err
	}
	return pickups, nil
}

func (r *repository) ListByJob(ctx context.Context, jobID uuid.UUID, includeDetached bool) ([]models.Pickup, error) {
	var pickups []models.Pickup
	query := r.db.WithContext(ctx).Where("job_id = ?", jobID)
	if !includeDetached {
		query = query.Where("detached_at IS NULL")
	}
	err := query.
		Order("sequence_number ASC NULLS LAST").
		Order("created_at ASC").
		Find(&pickups).Error
	if err != nil {
		return nil, err
	}
	return pickups, nil
}

func (r *repository) MarkDetached(ctx context.Context, pickupID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Pickup{}).
		Where("id = ? AND detached_at IS NULL", pickupID).
		Update("detached_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CountActiveByJob(ctx context.Context, jobID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Pickup{}).
		Where("job_id = ? AND detached_at IS NULL", jobID).
		Count(&count).Error
	return count, err
}

func (r *repository) UpdateStatusByExternalRef(ctx context.Context, stopRef string, status enums.PickupStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Pickup{}).
		Where("external_stop_id = ? AND detached_at IS NULL", stopRef).
		Update("status", status)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) SetSequence(ctx context.Context, pickupID uuid.UUID, sequence int, stopRef *string) error {
	updates := map[string]any{"sequence_number": sequence}
	if stopRef != nil {
		updates["external_stop_id"] = *stopRef
	}
	return r.db.WithContext(ctx).
		Model(&models.Pickup{}).
		Where("id = ?", pickupID).
		Updates(updates).Error
}

func (r *repository) FindProperty(ctx context.Context, propertyID uuid.UUID) (*models.Property, error) {
	var property models.Property
	err := r.db.WithContext(ctx).
		Where("id = ?", propertyID).
		First(&property).Error
	if err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *repository) FindJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Where("id = ?", jobID).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) SetJobAggregates(ctx context.Context, jobID uuid.UUID, stops int, hours decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"estimated_stops": stops,
			"estimated_hours": hours,
		}).Error
}
