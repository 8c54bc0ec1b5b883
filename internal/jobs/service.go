package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
	"github.com/curbsideops/dispatch-backend/pkg/pagination"
)

// Service owns the job lifecycle: creation, publication, assignment,
// telemetry-driven progress, and cancellation.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Job, error)
	Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*JobList, error)
	// ListOpenBoard is the driver-facing listing: only biddable jobs,
	// drafts never included.
	ListOpenBoard(ctx context.Context, params pagination.Params) (*JobList, error)
	Publish(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	Cancel(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	DirectAssign(ctx context.Context, input DirectAssignInput) (*models.Job, error)
	MarkInProgress(ctx context.Context, jobID uuid.UUID) error
	MarkCompleted(ctx context.Context, jobID uuid.UUID) error
}

// lifecycle is the closed transition table. Cancelled is reachable from every
// non-terminal state and is handled by cancellableStatuses below; bidding and
// open form one biddable superstate.
var lifecycle = map[enums.JobStatus][]enums.JobStatus{
	enums.JobStatusDraft:      {enums.JobStatusOpen},
	enums.JobStatusOpen:       {enums.JobStatusBidding, enums.JobStatusAssigned},
	enums.JobStatusBidding:    {enums.JobStatusOpen, enums.JobStatusAssigned},
	enums.JobStatusAssigned:   {enums.JobStatusInProgress, enums.JobStatusCompleted},
	enums.JobStatusInProgress: {enums.JobStatusCompleted},
}

var cancellableStatuses = []enums.JobStatus{
	enums.JobStatusDraft,
	enums.JobStatusOpen,
	enums.JobStatusBidding,
	enums.JobStatusAssigned,
	enums.JobStatusInProgress,
}

// CanTransition reports whether the lifecycle table permits from -> to.
func CanTransition(from, to enums.JobStatus) bool {
	if to == enums.JobStatusCancelled {
		return !from.IsTerminal()
	}
	for _, next := range lifecycle[from] {
		if next == to {
			return true
		}
	}
	return false
}

type service struct {
	repo Repository
}

// NewService builds the job lifecycle service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("jobs repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Job, error) {
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if !input.JobType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job type is invalid")
	}
	if input.ScheduledDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled date is required")
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if input.ScheduledDate.Before(today) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled date cannot be in the past")
	}
	if input.BasePay.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base pay cannot be negative")
	}

	status := enums.JobStatusDraft
	if input.PublishNow {
		status = enums.JobStatusOpen
	}

	job := &models.Job{
		Title:          input.Title,
		JobType:        input.JobType,
		Status:         status,
		ScheduledDate:  input.ScheduledDate,
		WindowStart:    input.WindowStart,
		WindowEnd:      input.WindowEnd,
		EstimatedHours: input.EstimatedHours,
		BasePay:        input.BasePay,
		ZoneID:         input.ZoneID,
	}
	created, err := s.repo.Create(ctx, job)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create job")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return s.load(ctx, jobID)
}

func (s *service) List(ctx context.Context, params pagination.Params, filters Filters) (*JobList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list jobs")
	}
	return list, nil
}

func (s *service) ListOpenBoard(ctx context.Context, params pagination.Params) (*JobList, error) {
	filters := Filters{Statuses: []enums.JobStatus{enums.JobStatusOpen, enums.JobStatusBidding}}
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open board")
	}
	return list, nil
}

func (s *service) Publish(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	if jobID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job id required")
	}

	moved, err := s.repo.UpdateStatusIf(ctx, jobID,
		[]enums.JobStatus{enums.JobStatusDraft},
		map[string]any{"status": enums.JobStatusOpen})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish job")
	}
	if !moved {
		job, err := s.load(ctx, jobID)
		if err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only draft jobs can be published").
			WithDetails(map[string]any{"current_status": job.Status})
	}
	return s.load(ctx, jobID)
}

func (s *service) Cancel(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	if jobID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job id required")
	}

	now := time.Now().UTC()
	// A cancelled job holds no assignment: driver and pay go back to NULL
	// in the same conditional write that flips the status.
	moved, err := s.repo.UpdateStatusIf(ctx, jobID, cancellableStatuses, map[string]any{
		"status":             enums.JobStatusCancelled,
		"cancelled_at":       now,
		"assigned_driver_id": nil,
		"actual_pay":         nil,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel job")
	}
	if !moved {
		job, err := s.load(ctx, jobID)
		if err != nil {
			return nil, err
		}
		// Cancelling an already-cancelled job is a no-op success.
		if job.Status == enums.JobStatusCancelled {
			return job, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "completed jobs cannot be cancelled").
			WithDetails(map[string]any{"current_status": job.Status})
	}
	return s.load(ctx, jobID)
}

func (s *service) DirectAssign(ctx context.Context, input DirectAssignInput) (*models.Job, error) {
	if input.JobID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job id required")
	}
	if input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	if !input.Pay.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pay must be positive")
	}

	job, err := s.load(ctx, input.JobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.IsBiddable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "job is not open for assignment").
			WithDetails(map[string]any{"current_status": job.Status})
	}

	// Driver, pay and status move in one conditional write; losing the race
	// against a concurrent acceptance surfaces as a concurrency conflict.
	moved, err := s.repo.UpdateStatusIf(ctx, input.JobID,
		[]enums.JobStatus{enums.JobStatusOpen, enums.JobStatusBidding},
		map[string]any{
			"status":             enums.JobStatusAssigned,
			"assigned_driver_id": input.DriverID,
			"actual_pay":         input.Pay,
		})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign job")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeConcurrency, "job was assigned concurrently")
	}
	return s.load(ctx, input.JobID)
}

func (s *service) MarkInProgress(ctx context.Context, jobID uuid.UUID) error {
	moved, err := s.repo.UpdateStatusIf(ctx, jobID,
		[]enums.JobStatus{enums.JobStatusAssigned},
		map[string]any{"status": enums.JobStatusInProgress})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark job in progress")
	}
	if moved {
		return nil
	}
	job, err := s.load(ctx, jobID)
	if err != nil {
		return err
	}
	switch job.Status {
	case enums.JobStatusInProgress, enums.JobStatusCompleted, enums.JobStatusCancelled:
		// Telemetry replays the same transition; repeated marks succeed.
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "job has no assigned driver yet").
			WithDetails(map[string]any{"current_status": job.Status})
	}
}

func (s *service) MarkCompleted(ctx context.Context, jobID uuid.UUID) error {
	moved, err := s.repo.UpdateStatusIf(ctx, jobID,
		[]enums.JobStatus{enums.JobStatusAssigned, enums.JobStatusInProgress},
		map[string]any{"status": enums.JobStatusCompleted})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark job completed")
	}
	if moved {
		return nil
	}
	job, err := s.load(ctx, jobID)
	if err != nil {
		return err
	}
	switch job.Status {
	case enums.JobStatusCompleted, enums.JobStatusCancelled:
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "job cannot complete before assignment").
			WithDetails(map[string]any{"current_status": job.Status})
	}
}

func (s *service) load(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
	}
	return job, nil
}
