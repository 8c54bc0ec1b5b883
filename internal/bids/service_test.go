package bids

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
	"github.com/curbsideops/dispatch-backend/pkg/logger"
)

type stubBidsRepo struct {
	bids    map[uuid.UUID]*models.Bid
	drivers map[uuid.UUID]*models.Driver
	// frozen makes the conditional revision write report that the parent
	// job is no longer biddable.
	frozen bool
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newStubBidsRepo() *stubBidsRepo {
	return &stubBidsRepo{
		bids:    make(map[uuid.UUID]*models.Bid),
		drivers: make(map[uuid.UUID]*models.Driver),
	}
}

func (s *stubBidsRepo) addDriver(rating string) uuid.UUID {
	id := uuid.New()
	s.drivers[id] = &models.Driver{ID: id, DisplayName: "driver", Rating: decimal.RequireFromString(rating), Active: true}
	return id
}

func (s *stubBidsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubBidsRepo) Create(ctx context.Context, bid *models.Bid) (*models.Bid, error) {
	if bid.ID == uuid.Nil {
		bid.ID = uuid.New()
	}
	s.bids[bid.ID] = bid
	return bid, nil
}

func (s *stubBidsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	bid, ok := s.bids[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *bid
	return &copied, nil
}

func (s *stubBidsRepo) FindByJobAndDriver(ctx context.Context, jobID, driverID uuid.UUID) (*models.Bid, error) {
	for _, bid := range s.bids {
		if bid.JobID == jobID && bid.DriverID == driverID {
			copied := *bid
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubBidsRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Bid, error) {
	var out []models.Bid
	for _, bid := range s.bids {
		if bid.JobID == jobID {
			out = append(out, *bid)
		}
	}
	return out, nil
}

func (s *stubBidsRepo) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]models.Bid, error) {
	var out []models.Bid
	for _, bid := range s.bids {
		if bid.DriverID == driverID {
			out = append(out, *bid)
		}
	}
	return out, nil
}

func (s *stubBidsRepo) UpdateWhileBiddable(ctx context.Context, bidID uuid.UUID, updates map[string]any) (bool, error) {
	bid, ok := s.bids[bidID]
	if !ok || s.frozen {
		return false, nil
	}
	for key, value := range updates {
		switch key {
		case "amount":
			if v, ok := value.(decimal.Decimal); ok {
				bid.Amount = v
			}
		case "message":
			if v, ok := value.(string); ok {
				bid.Message = &v
			}
		}
	}
	return true, nil
}

func (s *stubBidsRepo) FindDriver(ctx context.Context, driverID uuid.UUID) (*models.Driver, error) {
	driver, ok := s.drivers[driverID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return driver, nil
}

type stubJobStore struct {
	job            *models.Job
	updateStatusIf func(ctx context.Context, jobID uuid.UUID, from []enums.JobStatus, updates map[string]any) (bool, error)
}

func (s *stubJobStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	if s.job == nil || s.job.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.job
	return &copied, nil
}

func (s *stubJobStore) UpdateStatusIf(ctx context.Context, jobID uuid.UUID, from []enums.JobStatus, updates map[string]any) (bool, error) {
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
	for key, value := range updates {
		switch key {
		case "status":
			if v, ok := value.(enums.JobStatus); ok {
				s.job.Status = v
			}
		case "assigned_driver_id":
			if v, ok := value.(uuid.UUID); ok {
				s.job.AssignedDriverID = &v
			}
		case "actual_pay":
			if v, ok := value.(decimal.Decimal); ok {
				s.job.ActualPay = &v
			}
		}
	}
	return true, nil
}

func TestSubmitSnapshotsDriverRating(t *testing.T) {
	repo := newStubBidsRepo()
	driverID := repo.addDriver("4.70")
	jobs := &stubJobStore{job: &models.Job{ID: uuid.New(), Status: enums.JobStatusOpen}}
	svc, err := NewService(repo, jobs, testLogger())
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	bid, err := svc.Submit(context.Background(), SubmitInput{
		JobID:    jobs.job.ID,
		DriverID: driverID,
		Amount:   decimal.NewFromInt(150),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !bid.DriverRatingAtBid.Equal(decimal.RequireFromString("4.70")) {
		t.Fatalf("expected rating snapshot 4.70 got %s", bid.DriverRatingAtBid)
	}

	// Later rating changes must not alter the stored snapshot.
	repo.drivers[driverID].Rating = decimal.RequireFromString("2.00")
	stored, _ := repo.FindByID(context.Background(), bid.ID)
	if !stored.DriverRatingAtBid.Equal(decimal.RequireFromString("4.70")) {
		t.Fatalf("rating snapshot changed retroactively: %s", stored.DriverRatingAtBid)
	}
}

func TestSubmitFlipsOpenToBidding(t *testing.T) {
	repo := newStubBidsRepo()
	driverID := repo.addDriver("4.00")
	jobs := &stubJobStore{job: &models.Job{ID: uuid.New(), Status: enums.JobStatusOpen}}
	svc, _ := NewService(repo, jobs, testLogger())

	_, err := svc.Submit(context.Background(), SubmitInput{
		JobID:    jobs.job.ID,
		DriverID: driverID,
		Amount:   decimal.NewFromInt(120),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if jobs.job.Status != enums.JobStatusBidding {
		t.Fatalf("expected bidding got %s", jobs.job.Status)
	}
}

func TestSubmitOnNonBiddableJobConflicts(t *testing.T) {
	repo := newStubBidsRepo()
	driverID := repo.addDriver("4.00")
	jobs := &stubJobStore{job: &models.Job{ID: uuid.New(), Status: enums.JobStatusDraft}}
	svc, _ := NewService(repo, jobs, testLogger())

	_, err := svc.Submit(context.Background(), SubmitInput{
		JobID:    jobs.job.ID,
		DriverID: driverID,
		Amount:   decimal.NewFromInt(120),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestSubmitDuplicateRejected(t *testing.T) {
	repo := newStubBidsRepo()
	driverID := repo.addDriver("4.00")
	jobs := &stubJobStore{job: &models.Job{ID: uuid.New(), Status: enums.JobStatusOpen}}
	svc, _ := NewService(repo, jobs, testLogger())

	input := SubmitInput{JobID: jobs.job.ID, DriverID: driverID, Amount: decimal.NewFromInt(120)}
	if _, err := svc.Submit(context.Background(), input); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	_, err := svc.Submit(context.Background(), input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestAcceptAssignsDriverAndPay(t *testing.T) {
	repo := newStubBidsRepo()
	driverID := repo.addDriver("4.50")
	jobs := &stubJobStore{job: &models.Job{ID: uuid.New(), Status: enums.JobStatusOpen}}
	svc, _ := NewService(repo, jobs, testLogger())

	bid, err := svc.Submit(context.Background(), SubmitInput{
		JobID:    jobs.job.ID,
		DriverID: driverID,
		Amount:   decimal.NewFromInt(150),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	result, err := svc.Accept(context.Background(), jobs.job.ID, bid.ID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.Job.Status != enums.JobStatusAssigned {
		t.Fatalf("expected assigned got %s", result.Job.Status)
	}
	if result.Job.AssignedDriverID == nil || *result.Job.AssignedDriverID != driverID {
		t.Fatal("expected assigned driver to match the bid")
	}
	if result.Job.ActualPay == nil || !result.Job.ActualPay.Equal(decimal.NewFromInt(150)) {
		t.Fatal("expected actual pay to equal the bid amount")
	}
}

func TestAcceptSecondBidAfterAssignment(t *testing.T) {
	repo := newStubBidsRepo()
	driverA := repo.addDriver("4.00")
	driverB := repo.addDriver("4.20")
	driverC := repo.addDriver("3.80")
	jobs := &stubJobStore{job: &models.Job{ID: uuid.New(), Status: enums.JobStatusOpen}}
	svc, _ := NewService(repo, jobs, testLogger())

	var bidIDs []uuid.UUID
	for i, driverID := range []uuid.UUID{driverA, driverB, driverC} {
		bid, err := svc.Submit(context.Background(), SubmitInput{
			JobID:    jobs.job.ID,
			DriverID: driverID,
			Amount:   decimal.NewFromInt(int64(100 + i*10)),
		})
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		bidIDs = append(bidIDs, bid.ID)
	}

	if _, err := svc.Accept(context.Background(), jobs.job.ID, bidIDs[1]); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	// Losing bids stay stored but are no longer actionable.
	stored, err := svc.ListForJob(context.Background(), jobs.job.ID)
	if err != nil || len(stored) != 3 {
		t.Fatalf("expected 3 stored bids, got %d (%v)", len(stored), err)
	}
	_, err = svc.Accept(context.Background(), jobs.job.ID, bidIDs[0])
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestAcceptRaceLoserGetsConcurrencyConflict(t *testing.T) {
	repo := newStubBidsRepo()
	driverID := repo.addDriver("4.00")
	jobs := &stubJobStore{job: &models.Job{ID: uuid.New(), Status: enums.JobStatusBidding}}
	svc, _ := NewService(repo, jobs, testLogger())

	bid, err := repo.Create(context.Background(), &models.Bid{
		JobID:             jobs.job.ID,
		DriverID:          driverID,
		Amount:            decimal.NewFromInt(90),
		DriverRatingAtBid: decimal.RequireFromString("4.00"),
	})
	if err != nil {
		t.Fatalf("seed bid failed: %v", err)
	}

	// Job reads as biddable, but the conditional write loses the race.
	jobs.updateStatusIf = func(ctx context.Context, id uuid.UUID, from []enums.JobStatus, updates map[string]any) (bool, error) {
		return false, nil
	}
	_, err = svc.Accept(context.Background(), jobs.job.ID, bid.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConcurrency {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestAcceptBidFromOtherJobRejected(t *testing.T) {
	repo := newStubBidsRepo()
	driverID := repo.addDriver("4.00")
	jobs := &stubJobStore{job: &models.Job{ID: uuid.New(), Status: enums.JobStatusOpen}}
	svc, _ := NewService(repo, jobs, testLogger())

	bid, _ := repo.Create(context.Background(), &models.Bid{
		JobID:    uuid.New(), // different job
		DriverID: driverID,
		Amount:   decimal.NewFromInt(90),
	})
	_, err := svc.Accept(context.Background(), jobs.job.ID, bid.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestUpdateFrozenAfterAssignment(t *testing.T) {
	repo := newStubBidsRepo()
	driverID := repo.addDriver("4.00")
	jobs := &stubJobStore{job: &models.Job{ID: uuid.New(), Status: enums.JobStatusOpen}}
	svc, _ := NewService(repo, jobs, testLogger())

	bid, err := svc.Submit(context.Background(), SubmitInput{
		JobID:    jobs.job.ID,
		DriverID: driverID,
		Amount:   decimal.NewFromInt(150),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	jobs.job.Status = enums.JobStatusAssigned

	_, err = svc.Update(context.Background(), UpdateInput{
		BidID:    bid.ID,
		DriverID: driverID,
		Amount:   decimal.NewFromInt(140),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestSubmitSurvivesBiddingAnnotationFailure(t *testing.T) {
	repo := newStubBidsRepo()
	driverID := repo.addDriver("4.00")
	jobs := &stubJobStore{job: &models.Job{ID: uuid.New(), Status: enums.JobStatusOpen}}
	jobs.updateStatusIf = func(ctx context.Context, id uuid.UUID, from []enums.JobStatus, updates map[string]any) (bool, error) {
		return false, errors.New("connection reset")
	}
	svc, _ := NewService(repo, jobs, testLogger())

	bid, err := svc.Submit(context.Background(), SubmitInput{
		JobID:    jobs.job.ID,
		DriverID: driverID,
		Amount:   decimal.NewFromInt(110),
	})
	if err != nil {
		t.Fatalf("a failed status annotation must not void the bid: %v", err)
	}
	if bid == nil || bid.ID == uuid.Nil {
		t.Fatal("expected the created bid back")
	}
	if _, ok := repo.bids[bid.ID]; !ok {
		t.Fatal("expected the bid row to be stored")
	}
}

func TestAcceptSettlesRacedRevision(t *testing.T) {
	repo := newStubBidsRepo()
	driverID := repo.addDriver("4.00")
	jobs := &stubJobStore{job: &models.Job{ID: uuid.New(), Status: enums.JobStatusBidding}}
	svc, _ := NewService(repo, jobs, testLogger())

	bid, err := repo.Create(context.Background(), &models.Bid{
		JobID:             jobs.job.ID,
		DriverID:          driverID,
		Amount:            decimal.NewFromInt(100),
		DriverRatingAtBid: decimal.RequireFromString("4.00"),
	})
	if err != nil {
		t.Fatalf("seed bid failed: %v", err)
	}

	// A revision commits between the acceptance's bid read and its job
	// write.
	jobs.updateStatusIf = func(ctx context.Context, id uuid.UUID, from []enums.JobStatus, updates map[string]any) (bool, error) {
		repo.bids[bid.ID].Amount = decimal.NewFromInt(120)
		jobs.updateStatusIf = nil
		jobs.job.Status = enums.JobStatusAssigned
		driver := driverID
		jobs.job.AssignedDriverID = &driver
		if pay, ok := updates["actual_pay"].(decimal.Decimal); ok {
			jobs.job.ActualPay = &pay
		}
		return true, nil
	}

	result, err := svc.Accept(context.Background(), jobs.job.ID, bid.ID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !result.Bid.Amount.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected the committed revision back, got %s", result.Bid.Amount)
	}
	if result.Job.ActualPay == nil || !result.Job.ActualPay.Equal(decimal.NewFromInt(120)) {
		t.Fatal("actual pay must settle to the committed bid amount")
	}
}

func TestUpdateLosesRaceWithAcceptance(t *testing.T) {
	repo := newStubBidsRepo()
	driverID := repo.addDriver("4.00")
	jobs := &stubJobStore{job: &models.Job{ID: uuid.New(), Status: enums.JobStatusBidding}}
	svc, _ := NewService(repo, jobs, testLogger())

	bid, err := repo.Create(context.Background(), &models.Bid{
		JobID:             jobs.job.ID,
		DriverID:          driverID,
		Amount:            decimal.NewFromInt(100),
		DriverRatingAtBid: decimal.RequireFromString("4.00"),
	})
	if err != nil {
		t.Fatalf("seed bid failed: %v", err)
	}

	// The job read sees bidding, but the acceptance lands first and the
	// conditional write finds the auction closed.
	repo.frozen = true
	_, err = svc.Update(context.Background(), UpdateInput{
		BidID:    bid.ID,
		DriverID: driverID,
		Amount:   decimal.NewFromInt(95),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}
	if !repo.bids[bid.ID].Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatal("losing revision must not change the stored amount")
	}
}

func TestUpdateRevisesAmount(t *testing.T) {
	repo := newStubBidsRepo()
	driverID := repo.addDriver("4.00")
	jobs := &stubJobStore{job: &models.Job{ID: uuid.New(), Status: enums.JobStatusBidding}}
	svc, _ := NewService(repo, jobs, testLogger())

	bid, err := svc.Submit(context.Background(), SubmitInput{
		JobID:    jobs.job.ID,
		DriverID: driverID,
		Amount:   decimal.NewFromInt(150),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	updated, err := svc.Update(context.Background(), UpdateInput{
		BidID:    bid.ID,
		DriverID: driverID,
		Amount:   decimal.NewFromInt(135),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !updated.Amount.Equal(decimal.NewFromInt(135)) {
		t.Fatalf("expected amount 135 got %s", updated.Amount)
	}
	if !updated.DriverRatingAtBid.Equal(decimal.RequireFromString("4.00")) {
		t.Fatalf("rating snapshot must not change on update, got %s", updated.DriverRatingAtBid)
	}
}
