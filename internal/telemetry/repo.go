package telemetry

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/curbsideops/dispatch-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a telemetry repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetCursor(ctx context.Context, name string) (string, error) {
	var cursor models.FeedCursor
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&cursor).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return cursor.Cursor, nil
}

func (r *repository) SaveCursor(ctx context.Context, name, cursor string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"cursor", "updated_at"}),
		}).
		Create(&models.FeedCursor{Name: name, Cursor: cursor}).Error
}

func (r *repository) FindDriverByExternalRef(ctx context.Context, externalRef string) (*models.Driver, error) {
	var driver models.Driver
	err := r.db.WithContext(ctx).
		Where("external_ref = ?", externalRef).
		First(&driver).Error
	if err != nil {
		return nil, err
	}
	return &driver, nil
}
