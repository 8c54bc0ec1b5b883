package pickups

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
	"github.com/curbsideops/dispatch-backend/pkg/routing"
)

// minutesPerStop is the planning estimate used to derive estimated_hours
// from the live stop count.
const minutesPerStop = 10

// maxStopMatchKM bounds how far a provider stop may sit from a property
// and still count as the same location when syncing routes.
const maxStopMatchKM = 0.05

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// routePlanner is the slice of the routing client the sync flow needs.
type routePlanner interface {
	RoutesForDay(ctx context.Context, date string) ([]routing.DriverRoute, error)
}

// Service manages the stops attached to a job. Attach and detach recompute
// the job's estimated_stops and estimated_hours in the same transaction, so
// the aggregates always match the count of live pickups.
type Service interface {
	Attach(ctx context.Context, input AttachInput) (*AttachResult, error)
	Detach(ctx context.Context, pickupID uuid.UUID) (*DetachResult, error)
	ListForJob(ctx context.Context, jobID uuid.UUID) ([]models.Pickup, error)
	SyncRouteStops(ctx context.Context, day time.Time) (*RouteSyncResult, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	routes routePlanner
}

// NewService builds the pickup assignment service.
func NewService(repo Repository, tx txRunner, routes routePlanner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pickups repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if routes == nil {
		return nil, fmt.Errorf("route planner required")
	}
	return &service{repo: repo, tx: tx, routes: routes}, nil
}

func (s *service) Attach(ctx context.Context, input AttachInput) (*AttachResult, error) {
	if input.JobID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job id required")
	}
	if len(input.PropertyIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one property required")
	}
	pickupType := input.PickupType
	if pickupType == "" {
		pickupType = enums.PickupTypeRoutine
	}
	if !pickupType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup type is invalid")
	}

	job, err := s.loadJob(ctx, s.repo, input.JobID)
	if err != nil {
		return nil, err
	}
	if !attachableStatus(job.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "stops cannot be added once execution has started").
			WithDetails(map[string]any{"current_status": job.Status})
	}

	result := &AttachResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		seen := make(map[uuid.UUID]bool, len(input.PropertyIDs))
		for _, propertyID := range input.PropertyIDs {
			if seen[propertyID] {
				result.Skipped = append(result.Skipped, SkippedProperty{PropertyID: propertyID, Reason: SkipReasonDuplicateBatch})
				continue
			}
			seen[propertyID] = true

			property, err := repo.FindProperty(ctx, propertyID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					result.Skipped = append(result.Skipped, SkippedProperty{PropertyID: propertyID, Reason: SkipReasonNotFound})
					continue
				}
				return err
			}

			existing, err := repo.FindActiveByProperty(ctx, propertyID)
			if err != nil && err != gorm.ErrRecordNotFound {
				return err
			}
			if existing != nil {
				reason := SkipReasonClaimed
				if existing.JobID == input.JobID {
					reason = SkipReasonAlreadyOnJob
				}
				result.Skipped = append(result.Skipped, SkippedProperty{PropertyID: propertyID, Reason: reason})
				continue
			}

			pickup, err := repo.Create(ctx, &models.Pickup{
				JobID:      input.JobID,
				PropertyID: propertyID,
				CustomerID: property.CustomerID,
				PickupType: pickupType,
				Status:     enums.PickupStatusPending,
			})
			if err != nil {
				return err
			}
			result.Attached = append(result.Attached, *pickup)
		}

		stops, err := s.recomputeAggregates(ctx, repo, input.JobID)
		if err != nil {
			return err
		}
		result.EstimatedStops = stops
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach pickups")
	}
	return result, nil
}

func (s *service) Detach(ctx context.Context, pickupID uuid.UUID) (*DetachResult, error) {
	if pickupID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup id required")
	}

	pickup, err := s.repo.FindByID(ctx, pickupID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pickup not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pickup")
	}

	job, err := s.loadJob(ctx, s.repo, pickup.JobID)
	if err != nil {
		return nil, err
	}

	// Detaching an already-detached pickup is a no-op success.
	if pickup.DetachedAt != nil {
		return &DetachResult{Pickup: pickup, EstimatedStops: job.EstimatedStops}, nil
	}

	if job.Status == enums.JobStatusInProgress || job.Status == enums.JobStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "stops cannot be pulled mid-execution").
			WithDetails(map[string]any{"current_status": job.Status})
	}

	result := &DetachResult{}
	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.MarkDetached(ctx, pickupID, now); err != nil {
			return err
		}
		stops, err := s.recomputeAggregates(ctx, repo, pickup.JobID)
		if err != nil {
			return err
		}
		result.EstimatedStops = stops
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach pickup")
	}
	pickup.DetachedAt = &now
	result.Pickup = pickup
	return result, nil
}

// SyncRouteStops pulls the provider's computed routes for a day and writes
// each stop's sequence and external ref onto the matching pickup. The match
// is by proximity: a stop claims the nearest unclaimed pickup whose property
// sits within maxStopMatchKM. Stop refs written here are what lets later
// feed events land on the pickup row.
func (s *service) SyncRouteStops(ctx context.Context, day time.Time) (*RouteSyncResult, error) {
	if day.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "day required")
	}
	date := day.Format("2006-01-02")

	routes, err := s.routes.RoutesForDay(ctx, date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch provider routes")
	}

	active, err := s.repo.ListActiveByScheduledDate(ctx, date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pickups for day")
	}

	type candidate struct {
		pickup   models.Pickup
		lat, lng float64
		claimed  bool
	}
	candidates := make([]*candidate, 0, len(active))
	for _, pickup := range active {
		property, err := s.repo.FindProperty(ctx, pickup.PropertyID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pickup property")
		}
		candidates = append(candidates, &candidate{pickup: pickup, lat: property.Lat, lng: property.Lng})
	}

	result := &RouteSyncResult{Routes: len(routes)}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, route := range routes {
			for idx, stop := range route.Stops {
				best := -1
				bestKM := maxStopMatchKM
				for i, cand := range candidates {
					if cand.claimed {
						continue
					}
					if d := routing.HaversineKM(stop.Lat, stop.Lng, cand.lat, cand.lng); d <= bestKM {
						best, bestKM = i, d
					}
				}
				if best < 0 {
					result.Unmatched++
					continue
				}
				cand := candidates[best]
				cand.claimed = true
				var ref *string
				if stop.StopID != "" {
					id := stop.StopID
					ref = &id
				}
				if err := repo.SetSequence(ctx, cand.pickup.ID, idx+1, ref); err != nil {
					return err
				}
				result.Matched++
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync route stops")
	}
	return result, nil
}

func (s *service) ListForJob(ctx context.Context, jobID uuid.UUID) ([]models.Pickup, error) {
	pickups, err := s.repo.ListByJob(ctx, jobID, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pickups")
	}
	return pickups, nil
}

// recomputeAggregates rewrites the job's derived stop count and hours from
// the live pickup rows inside the caller's transaction.
func (s *service) recomputeAggregates(ctx context.Context, repo Repository, jobID uuid.UUID) (int, error) {
	count, err := repo.CountActiveByJob(ctx, jobID)
	if err != nil {
		return 0, err
	}
	stops := int(count)
	hours := decimal.NewFromInt(int64(stops * minutesPerStop)).
		Div(decimal.NewFromInt(60)).
		Round(2)
	if err := repo.SetJobAggregates(ctx, jobID, stops, hours); err != nil {
		return 0, err
	}
	return stops, nil
}

func (s *service) loadJob(ctx context.Context, repo Repository, jobID uuid.UUID) (*models.Job, error) {
	job, err := repo.FindJob(ctx, jobID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
	}
	return job, nil
}

func attachableStatus(status enums.JobStatus) bool {
	switch status {
	case enums.JobStatusDraft, enums.JobStatusOpen, enums.JobStatusBidding, enums.JobStatusAssigned:
		return true
	default:
		return false
	}
}
