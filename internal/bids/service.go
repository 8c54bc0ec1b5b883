package bids

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/curbsideops/dispatch-backend/pkg/db"
	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
	"github.com/curbsideops/dispatch-backend/pkg/logger"
)

// Service runs the auction: bid submission, explicit revision, and the
// atomic acceptance that assigns the job. No ranking is imposed; acceptance
// is always an explicit operator choice.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Bid, error)
	Update(ctx context.Context, input UpdateInput) (*models.Bid, error)
	Accept(ctx context.Context, jobID, bidID uuid.UUID) (*AcceptResult, error)
	ListForJob(ctx context.Context, jobID uuid.UUID) ([]models.Bid, error)
	ListForDriver(ctx context.Context, driverID uuid.UUID) ([]models.Bid, error)
}

type service struct {
	repo Repository
	jobs jobStore
	logg *logger.Logger
}

// NewService builds the bidding service.
func NewService(repo Repository, jobs jobStore, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bids repository required")
	}
	if jobs == nil {
		return nil, fmt.Errorf("job store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, jobs: jobs, logg: logg}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Bid, error) {
	if input.JobID == uuid.Nil || input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job id and driver id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be positive")
	}

	job, err := s.loadJob(ctx, input.JobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.IsBiddable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "job is not open for bidding").
			WithDetails(map[string]any{"current_status": job.Status})
	}

	driver, err := s.repo.FindDriver(ctx, input.DriverID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
	}

	existing, err := s.repo.FindByJobAndDriver(ctx, input.JobID, input.DriverID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing bid")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "driver already has a bid on this job").
			WithDetails(map[string]any{"bid_id": existing.ID})
	}

	bid := &models.Bid{
		JobID:    input.JobID,
		DriverID: input.DriverID,
		Amount:   input.Amount,
		// Frozen at submission time; later rating changes never rewrite
		// why a bid looked attractive.
		DriverRatingAtBid: driver.Rating,
		Message:           input.Message,
	}
	created, err := s.repo.Create(ctx, bid)
	if err != nil {
		// The unique index backstops the read-then-insert race.
		if pkgdb.IsUniqueViolation(err, "idx_bids_job_driver") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "driver already has a bid on this job")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bid")
	}

	// The first bid annotates the job as bidding. The label is advisory,
	// not a gate, so losing the write never voids the bid just created.
	if _, err := s.jobs.UpdateStatusIf(ctx, input.JobID,
		[]enums.JobStatus{enums.JobStatusOpen},
		map[string]any{"status": enums.JobStatusBidding}); err != nil {
		s.logg.Error(s.logg.WithJobID(ctx, input.JobID.String()), "flag job as bidding", err)
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Bid, error) {
	if input.BidID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be positive")
	}

	bid, err := s.loadBid(ctx, input.BidID)
	if err != nil {
		return nil, err
	}
	if input.DriverID != uuid.Nil && bid.DriverID != input.DriverID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid belongs to a different driver")
	}

	job, err := s.loadJob(ctx, bid.JobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.IsBiddable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "bids are frozen once the job leaves bidding").
			WithDetails(map[string]any{"current_status": job.Status})
	}

	updates := map[string]any{"amount": input.Amount}
	if input.Message != nil {
		updates["message"] = *input.Message
	}
	// The conditional write re-checks the job status, so a revision racing
	// an acceptance loses even when the read above saw a biddable job.
	moved, err := s.repo.UpdateWhileBiddable(ctx, input.BidID, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bid")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "bids are frozen once the job leaves bidding")
	}
	return s.loadBid(ctx, input.BidID)
}

func (s *service) Accept(ctx context.Context, jobID, bidID uuid.UUID) (*AcceptResult, error) {
	if jobID == uuid.Nil || bidID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job id and bid id required")
	}

	bid, err := s.loadBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.JobID != jobID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid does not belong to this job")
	}

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.IsBiddable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "job is no longer accepting bids").
			WithDetails(map[string]any{"current_status": job.Status})
	}

	// Driver, pay and status land in one conditional write. Every other bid
	// on the job stays stored but stops being actionable the moment the job
	// leaves its biddable state.
	moved, err := s.jobs.UpdateStatusIf(ctx, jobID,
		[]enums.JobStatus{enums.JobStatusOpen, enums.JobStatusBidding},
		map[string]any{
			"status":             enums.JobStatusAssigned,
			"assigned_driver_id": bid.DriverID,
			"actual_pay":         bid.Amount,
		})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept bid")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeConcurrency, "another acceptance won the race")
	}

	// A revision may have committed between the bid read and the job write.
	// Re-read the bid and settle actual_pay to the committed amount; once
	// the job is assigned no further revisions pass the biddable check.
	latest, err := s.loadBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if !latest.Amount.Equal(bid.Amount) {
		if _, err := s.jobs.UpdateStatusIf(ctx, jobID,
			[]enums.JobStatus{enums.JobStatusAssigned},
			map[string]any{"actual_pay": latest.Amount}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle accepted amount")
		}
	}

	assigned, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &AcceptResult{Bid: latest, Job: assigned}, nil
}

func (s *service) ListForJob(ctx context.Context, jobID uuid.UUID) ([]models.Bid, error) {
	bids, err := s.repo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bids")
	}
	return bids, nil
}

func (s *service) ListForDriver(ctx context.Context, driverID uuid.UUID) ([]models.Bid, error) {
	bids, err := s.repo.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list driver bids")
	}
	return bids, nil
}

func (s *service) loadBid(ctx context.Context, bidID uuid.UUID) (*models.Bid, error) {
	bid, err := s.repo.FindByID(ctx, bidID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bid not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid")
	}
	return bid, nil
}

func (s *service) loadJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
	}
	return job, nil
}
