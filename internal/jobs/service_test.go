package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
	"github.com/curbsideops/dispatch-backend/pkg/pagination"
)

type stubJobsRepo struct {
	job            *models.Job
	lastUpdates    map[string]any
	updateCalls    int
	updateStatusIf func(ctx context.Context, jobID uuid.UUID, from []enums.JobStatus, updates map[string]any) (bool, error)
	listFilters    Filters
}

func (s *stubJobsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubJobsRepo) Create(ctx context.Context, job *models.Job) (*models.Job, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	s.job = job
	return job, nil
}

func (s *stubJobsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	if s.job == nil || s.job.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.job
	return &copied, nil
}

func (s *stubJobsRepo) FindByAssignedDriver(ctx context.Context, driverID uuid.UUID, statuses []enums.JobStatus) ([]models.Job, error) {
	if s.job == nil || s.job.AssignedDriverID == nil || *s.job.AssignedDriverID != driverID {
		return nil, nil
	}
	return []models.Job{*s.job}, nil
}

func (s *stubJobsRepo) List(ctx context.Context, params pagination.Params, filters Filters) (*JobList, error) {
	s.listFilters = filters
	return &JobList{}, nil
}

func (s *stubJobsRepo) UpdateStatusIf(ctx context.Context, jobID uuid.UUID, from []enums.JobStatus, updates map[string]any) (bool, error) {
	s.updateCalls++
	if s.updateStatusIf != nil {
		return s.updateStatusIf(ctx, jobID, from, updates)
	}
	if s.job == nil || s.job.ID != jobID {
		return false, nil
	}
	matched := false
	for _, st := range from {
		if s.job.Status == st {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	s.lastUpdates = updates
	for key, value := range updates {
		switch key {
		case "status":
			if v, ok := value.(enums.JobStatus); ok {
				s.job.Status = v
			}
		case "assigned_driver_id":
			if value == nil {
				s.job.AssignedDriverID = nil
			} else if v, ok := value.(uuid.UUID); ok {
				s.job.AssignedDriverID = &v
			}
		case "actual_pay":
			if value == nil {
				s.job.ActualPay = nil
			} else if v, ok := value.(decimal.Decimal); ok {
				s.job.ActualPay = &v
			}
		case "cancelled_at":
			if v, ok := value.(time.Time); ok {
				s.job.CancelledAt = &v
			}
		}
	}
	return true, nil
}

func futureDate() time.Time {
	return time.Now().UTC().AddDate(0, 0, 3).Truncate(24 * time.Hour)
}

func TestCreateRequiresScheduledDate(t *testing.T) {
	repo := &stubJobsRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	_, err = svc.Create(context.Background(), CreateInput{
		Title:   "Tuesday residential route",
		JobType: enums.JobTypeDailyRoute,
		BasePay: decimal.NewFromInt(180),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCreateDraftByDefault(t *testing.T) {
	repo := &stubJobsRepo{}
	svc, _ := NewService(repo)

	job, err := svc.Create(context.Background(), CreateInput{
		Title:         "Bulk pickup sweep",
		JobType:       enums.JobTypeBulkPickup,
		ScheduledDate: futureDate(),
		BasePay:       decimal.NewFromInt(220),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if job.Status != enums.JobStatusDraft {
		t.Fatalf("expected draft got %s", job.Status)
	}
}

func TestCreatePublishNow(t *testing.T) {
	repo := &stubJobsRepo{}
	svc, _ := NewService(repo)

	job, err := svc.Create(context.Background(), CreateInput{
		Title:         "Bulk pickup sweep",
		JobType:       enums.JobTypeBulkPickup,
		ScheduledDate: futureDate(),
		BasePay:       decimal.NewFromInt(220),
		PublishNow:    true,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if job.Status != enums.JobStatusOpen {
		t.Fatalf("expected open got %s", job.Status)
	}
}

func TestPublishDraft(t *testing.T) {
	jobID := uuid.New()
	repo := &stubJobsRepo{job: &models.Job{ID: jobID, Status: enums.JobStatusDraft}}
	svc, _ := NewService(repo)

	job, err := svc.Publish(context.Background(), jobID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if job.Status != enums.JobStatusOpen {
		t.Fatalf("expected open got %s", job.Status)
	}
}

func TestPublishNonDraftConflicts(t *testing.T) {
	jobID := uuid.New()
	repo := &stubJobsRepo{job: &models.Job{ID: jobID, Status: enums.JobStatusAssigned}}
	svc, _ := NewService(repo)

	_, err := svc.Publish(context.Background(), jobID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCancelSetsTimestamp(t *testing.T) {
	jobID := uuid.New()
	repo := &stubJobsRepo{job: &models.Job{ID: jobID, Status: enums.JobStatusBidding}}
	svc, _ := NewService(repo)

	job, err := svc.Cancel(context.Background(), jobID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if job.Status != enums.JobStatusCancelled {
		t.Fatalf("expected cancelled got %s", job.Status)
	}
	if job.CancelledAt == nil {
		t.Fatal("expected cancelled_at to be set")
	}
}

func TestCancelIdempotent(t *testing.T) {
	jobID := uuid.New()
	repo := &stubJobsRepo{job: &models.Job{ID: jobID, Status: enums.JobStatusCancelled}}
	svc, _ := NewService(repo)

	job, err := svc.Cancel(context.Background(), jobID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if job.Status != enums.JobStatusCancelled {
		t.Fatalf("expected cancelled got %s", job.Status)
	}
}

func TestCancelAssignedJobClearsDriverAndPay(t *testing.T) {
	jobID := uuid.New()
	driverID := uuid.New()
	pay := decimal.NewFromInt(150)
	repo := &stubJobsRepo{job: &models.Job{
		ID:               jobID,
		Status:           enums.JobStatusAssigned,
		AssignedDriverID: &driverID,
		ActualPay:        &pay,
	}}
	svc, _ := NewService(repo)

	job, err := svc.Cancel(context.Background(), jobID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if job.Status != enums.JobStatusCancelled {
		t.Fatalf("expected cancelled got %s", job.Status)
	}
	if job.AssignedDriverID != nil {
		t.Fatal("cancelled job must not retain an assigned driver")
	}
	if job.ActualPay != nil {
		t.Fatal("cancelled job must not retain actual pay")
	}
	if v, ok := repo.lastUpdates["assigned_driver_id"]; !ok || v != nil {
		t.Fatal("expected the cancel write to null out assigned_driver_id")
	}
	if v, ok := repo.lastUpdates["actual_pay"]; !ok || v != nil {
		t.Fatal("expected the cancel write to null out actual_pay")
	}
}

func TestCancelCompletedConflicts(t *testing.T) {
	jobID := uuid.New()
	repo := &stubJobsRepo{job: &models.Job{ID: jobID, Status: enums.JobStatusCompleted}}
	svc, _ := NewService(repo)

	_, err := svc.Cancel(context.Background(), jobID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDirectAssignSetsDriverAndPayTogether(t *testing.T) {
	jobID := uuid.New()
	driverID := uuid.New()
	repo := &stubJobsRepo{job: &models.Job{ID: jobID, Status: enums.JobStatusOpen}}
	svc, _ := NewService(repo)

	job, err := svc.DirectAssign(context.Background(), DirectAssignInput{
		JobID:    jobID,
		DriverID: driverID,
		Pay:      decimal.NewFromInt(250),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if job.Status != enums.JobStatusAssigned {
		t.Fatalf("expected assigned got %s", job.Status)
	}
	if job.AssignedDriverID == nil || *job.AssignedDriverID != driverID {
		t.Fatal("expected assigned driver to be set")
	}
	if job.ActualPay == nil || !job.ActualPay.Equal(decimal.NewFromInt(250)) {
		t.Fatal("expected actual pay to be set with the assignment")
	}
	if _, ok := repo.lastUpdates["actual_pay"]; !ok {
		t.Fatal("expected pay and driver in the same write")
	}
	if _, ok := repo.lastUpdates["assigned_driver_id"]; !ok {
		t.Fatal("expected pay and driver in the same write")
	}
}

func TestDirectAssignRaceLoserConflicts(t *testing.T) {
	jobID := uuid.New()
	repo := &stubJobsRepo{job: &models.Job{ID: jobID, Status: enums.JobStatusOpen}}
	// Job reads as open, but the conditional write loses the race.
	repo.updateStatusIf = func(ctx context.Context, id uuid.UUID, from []enums.JobStatus, updates map[string]any) (bool, error) {
		return false, nil
	}
	svc, _ := NewService(repo)

	_, err := svc.DirectAssign(context.Background(), DirectAssignInput{
		JobID:    jobID,
		DriverID: uuid.New(),
		Pay:      decimal.NewFromInt(250),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConcurrency {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDirectAssignNonBiddableConflicts(t *testing.T) {
	jobID := uuid.New()
	repo := &stubJobsRepo{job: &models.Job{ID: jobID, Status: enums.JobStatusAssigned}}
	svc, _ := NewService(repo)

	_, err := svc.DirectAssign(context.Background(), DirectAssignInput{
		JobID:    jobID,
		DriverID: uuid.New(),
		Pay:      decimal.NewFromInt(250),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestMarkInProgressFromAssigned(t *testing.T) {
	jobID := uuid.New()
	driverID := uuid.New()
	repo := &stubJobsRepo{job: &models.Job{ID: jobID, Status: enums.JobStatusAssigned, AssignedDriverID: &driverID}}
	svc, _ := NewService(repo)

	if err := svc.MarkInProgress(context.Background(), jobID); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.job.Status != enums.JobStatusInProgress {
		t.Fatalf("expected in_progress got %s", repo.job.Status)
	}
}

func TestMarkInProgressIdempotent(t *testing.T) {
	jobID := uuid.New()
	repo := &stubJobsRepo{job: &models.Job{ID: jobID, Status: enums.JobStatusInProgress}}
	svc, _ := NewService(repo)

	if err := svc.MarkInProgress(context.Background(), jobID); err != nil {
		t.Fatalf("expected idempotent success got %v", err)
	}
	if repo.job.Status != enums.JobStatusInProgress {
		t.Fatalf("status changed unexpectedly to %s", repo.job.Status)
	}
}

func TestMarkInProgressBeforeAssignmentConflicts(t *testing.T) {
	jobID := uuid.New()
	repo := &stubJobsRepo{job: &models.Job{ID: jobID, Status: enums.JobStatusOpen}}
	svc, _ := NewService(repo)

	err := svc.MarkInProgress(context.Background(), jobID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestMarkCompletedSkipsInProgress(t *testing.T) {
	// A driver can complete a job the platform never saw start.
	jobID := uuid.New()
	repo := &stubJobsRepo{job: &models.Job{ID: jobID, Status: enums.JobStatusAssigned}}
	svc, _ := NewService(repo)

	if err := svc.MarkCompleted(context.Background(), jobID); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.job.Status != enums.JobStatusCompleted {
		t.Fatalf("expected completed got %s", repo.job.Status)
	}
}

func TestMarkCompletedIdempotent(t *testing.T) {
	jobID := uuid.New()
	repo := &stubJobsRepo{job: &models.Job{ID: jobID, Status: enums.JobStatusCompleted}}
	svc, _ := NewService(repo)

	if err := svc.MarkCompleted(context.Background(), jobID); err != nil {
		t.Fatalf("expected idempotent success got %v", err)
	}
}

func TestListOpenBoardExcludesDrafts(t *testing.T) {
	repo := &stubJobsRepo{}
	svc, _ := NewService(repo)

	if _, err := svc.ListOpenBoard(context.Background(), pagination.Params{Limit: 20}); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	for _, st := range repo.listFilters.Statuses {
		if st == enums.JobStatusDraft {
			t.Fatal("driver board must never include drafts")
		}
	}
	if len(repo.listFilters.Statuses) != 2 {
		t.Fatalf("expected open and bidding filters, got %v", repo.listFilters.Statuses)
	}
}

func TestCanTransitionTable(t *testing.T) {
	cases := []struct {
		from enums.JobStatus
		to   enums.JobStatus
		want bool
	}{
		{enums.JobStatusDraft, enums.JobStatusOpen, true},
		{enums.JobStatusDraft, enums.JobStatusAssigned, false},
		{enums.JobStatusOpen, enums.JobStatusBidding, true},
		{enums.JobStatusBidding, enums.JobStatusAssigned, true},
		{enums.JobStatusAssigned, enums.JobStatusCompleted, true},
		{enums.JobStatusCompleted, enums.JobStatusCancelled, false},
		{enums.JobStatusCancelled, enums.JobStatusOpen, false},
		{enums.JobStatusInProgress, enums.JobStatusCancelled, true},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("transition %s -> %s: got %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
