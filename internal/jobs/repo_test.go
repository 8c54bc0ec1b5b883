package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
	"github.com/curbsideops/dispatch-backend/pkg/pagination"
)

func setupJobsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  job_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  scheduled_date DATETIME NOT NULL,
  window_start DATETIME,
  window_end DATETIME,
  estimated_stops INTEGER NOT NULL DEFAULT 0,
  estimated_hours TEXT NOT NULL DEFAULT '0',
  base_pay TEXT NOT NULL DEFAULT '0',
  actual_pay TEXT,
  assigned_driver_id TEXT,
  zone_id TEXT,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func seedJob(t *testing.T, db *gorm.DB, status enums.JobStatus, createdAt time.Time) *models.Job {
	t.Helper()

	job := &models.Job{
		ID:            uuid.New(),
		Title:         "seeded route",
		JobType:       enums.JobTypeDailyRoute,
		Status:        status,
		ScheduledDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		BasePay:       decimal.RequireFromString("120.00"),
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	require.NoError(t, db.Create(job).Error)
	return job
}

func TestUpdateStatusIfMovesMatchingRow(t *testing.T) {
	db := setupJobsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	job := seedJob(t, db, enums.JobStatusOpen, time.Now().UTC())

	moved, err := repo.UpdateStatusIf(ctx, job.ID,
		[]enums.JobStatus{enums.JobStatusOpen, enums.JobStatusBidding},
		map[string]any{"status": enums.JobStatusAssigned})
	require.NoError(t, err)
	assert.True(t, moved)

	reloaded, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.JobStatusAssigned, reloaded.Status)
}

func TestUpdateStatusIfSkipsWrongStatus(t *testing.T) {
	db := setupJobsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	job := seedJob(t, db, enums.JobStatusCompleted, time.Now().UTC())

	moved, err := repo.UpdateStatusIf(ctx, job.ID,
		[]enums.JobStatus{enums.JobStatusOpen, enums.JobStatusBidding},
		map[string]any{"status": enums.JobStatusAssigned})
	require.NoError(t, err)
	assert.False(t, moved)

	reloaded, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.JobStatusCompleted, reloaded.Status)
}

func TestListFiltersByStatus(t *testing.T) {
	db := setupJobsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	seedJob(t, db, enums.JobStatusDraft, base)
	open := seedJob(t, db, enums.JobStatusOpen, base.Add(time.Second))
	bidding := seedJob(t, db, enums.JobStatusBidding, base.Add(2*time.Second))

	page, err := repo.List(ctx, pagination.Params{}, Filters{
		Statuses: []enums.JobStatus{enums.JobStatusOpen, enums.JobStatusBidding},
	})
	require.NoError(t, err)
	require.Len(t, page.Jobs, 2)
	assert.Equal(t, bidding.ID, page.Jobs[0].ID)
	assert.Equal(t, open.ID, page.Jobs[1].ID)
	assert.Nil(t, page.NextCursor)
}

func TestListPaginatesWithCursor(t *testing.T) {
	db := setupJobsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		seedJob(t, db, enums.JobStatusOpen, base.Add(time.Duration(i)*time.Second))
	}

	first, err := repo.List(ctx, pagination.Params{Limit: 2}, Filters{})
	require.NoError(t, err)
	require.Len(t, first.Jobs, 2)
	require.NotNil(t, first.NextCursor)

	second, err := repo.List(ctx, pagination.Params{Limit: 2, Cursor: *first.NextCursor}, Filters{})
	require.NoError(t, err)
	require.Len(t, second.Jobs, 1)
	assert.Nil(t, second.NextCursor)
}

func TestFindByAssignedDriver(t *testing.T) {
	db := setupJobsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	driverID := uuid.New()
	job := seedJob(t, db, enums.JobStatusAssigned, time.Now().UTC())
	require.NoError(t, db.Model(&models.Job{}).
		Where("id = ?", job.ID).
		Update("assigned_driver_id", driverID).Error)
	seedJob(t, db, enums.JobStatusAssigned, time.Now().UTC())

	found, err := repo.FindByAssignedDriver(ctx, driverID, []enums.JobStatus{enums.JobStatusAssigned})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, job.ID, found[0].ID)
}
