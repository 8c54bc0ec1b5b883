package autoassign

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an auto-assignment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
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

func (r *repository) SetPlacement(ctx context.Context, propertyID uuid.UUID, day *string, state enums.ApprovalState) error {
	return r.db.WithContext(ctx).
		Model(&models.Property{}).
		Where("id = ?", propertyID).
		Updates(map[string]any{
			"pickup_day":     day,
			"approval_state": state,
		}).Error
}
