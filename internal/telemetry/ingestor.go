package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/curbsideops/dispatch-backend/pkg/config"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
	"github.com/curbsideops/dispatch-backend/pkg/logger"
	"github.com/curbsideops/dispatch-backend/pkg/metrics"
	"github.com/curbsideops/dispatch-backend/pkg/routing"
)

const (
	loopName            = "event-feed"
	defaultPollInterval = 15 * time.Second
	defaultBufferSize   = 200
)

// IngestorParams configure the event feed ingestor.
type IngestorParams struct {
	Logger  *logger.Logger
	Feed    Feed
	Repo    Repository
	Pickups pickupStore
	Jobs    jobLifecycle
	Finder  assignedJobFinder
	Lock    Lock
	Metrics *metrics.PollerMetrics
	Config  config.FeedConfig
}

// Ingestor runs the single polling loop over the external driver-event feed.
// It is the sole writer of the status projections; readers take snapshots.
// Poll failures are logged and retried on the next tick with the cursor
// unchanged; they never escalate past the loop.
type Ingestor struct {
	logg    *logger.Logger
	feed    Feed
	repo    Repository
	pickups pickupStore
	jobs    jobLifecycle
	finder  assignedJobFinder
	lock    Lock
	metrics *metrics.PollerMetrics
	cfg     config.FeedConfig

	mu         sync.RWMutex
	projection *Projection
	buffer     *eventBuffer
	cursor     string
}

// NewIngestor builds the feed ingestor.
func NewIngestor(params IngestorParams) (*Ingestor, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Feed == nil {
		return nil, fmt.Errorf("event feed required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("telemetry repository required")
	}

	cfg := params.Config
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}

	return &Ingestor{
		logg:       params.Logger,
		feed:       params.Feed,
		repo:       params.Repo,
		pickups:    params.Pickups,
		jobs:       params.Jobs,
		finder:     params.Finder,
		lock:       params.Lock,
		metrics:    params.Metrics,
		cfg:        cfg,
		projection: NewProjection(),
		buffer:     newEventBuffer(cfg.BufferSize),
		cursor:     cfg.InitialCursor,
	}, nil
}

// Run polls the feed until the context is canceled. A stopped ingestor
// resumes from the last persisted cursor when restarted.
func (i *Ingestor) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = i.logg.WithField(ctx, "loop", loopName)

	i.runCycle(ctx)
	ticker := time.NewTicker(i.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			i.logg.Info(ctx, "event feed loop stopped")
			return ctx.Err()
		case <-ticker.C:
			// The ticker serializes cycles; a new poll never starts
			// while a previous one is outstanding.
			i.runCycle(ctx)
		}
	}
}

func (i *Ingestor) runCycle(ctx context.Context) {
	if i.lock != nil {
		locked, err := i.lock.Acquire(ctx)
		if err != nil {
			i.logg.Error(ctx, "feed lock acquire failed", err)
			return
		}
		if !locked {
			return
		}
		defer func() {
			if err := i.lock.Release(ctx); err != nil {
				i.logg.Error(ctx, "failed to release feed lock", err)
			}
		}()
	}

	start := time.Now()
	// Leadership may have moved between cycles. Adopt whatever cursor the
	// last leader persisted so the feed never replays from a stale local
	// position.
	if stored, err := i.repo.GetCursor(ctx, i.cfg.CursorName); err != nil {
		i.logg.Error(ctx, "failed to load persisted cursor; using local position", err)
	} else if stored != "" {
		i.mu.Lock()
		i.cursor = stored
		i.mu.Unlock()
	}

	cursor := i.Cursor()
	batch, err := i.feed.PollEvents(ctx, cursor)
	if err != nil {
		// Transient provider failure: keep the cursor, retry next tick.
		i.logg.Error(ctx, "event feed poll failed", err)
		if i.metrics != nil {
			i.metrics.IncFailure(loopName)
		}
		return
	}

	i.mu.Lock()
	for _, event := range batch.Events {
		i.projection.Apply(event)
		i.buffer.Append(event)
	}
	i.cursor = batch.Cursor
	i.mu.Unlock()

	for _, event := range batch.Events {
		i.persistStopOutcome(ctx, event)
	}
	i.triggerJobTransitions(ctx, batch.Events)

	if err := i.repo.SaveCursor(ctx, i.cfg.CursorName, batch.Cursor); err != nil {
		i.logg.Error(ctx, "failed to persist feed cursor", err)
	}

	if i.metrics != nil {
		i.metrics.ObserveDuration(loopName, time.Since(start))
		i.metrics.IncSuccess(loopName)
		i.metrics.AddEvents(loopName, len(batch.Events))
	}
}

// persistStopOutcome writes terminal stop events through to the pickup row.
func (i *Ingestor) persistStopOutcome(ctx context.Context, event routing.DriverEvent) {
	if i.pickups == nil || event.StopRef == "" {
		return
	}
	var status enums.PickupStatus
	switch enums.DriverEventKind(event.Kind) {
	case enums.DriverEventSuccess:
		status = enums.PickupStatusCompleted
	case enums.DriverEventFailed, enums.DriverEventRejected:
		status = enums.PickupStatusFailed
	default:
		return
	}
	matched, err := i.pickups.UpdateStatusByExternalRef(ctx, event.StopRef, status)
	if err != nil {
		i.logg.Error(ctx, "failed to persist stop outcome", err)
		return
	}
	if !matched {
		i.logg.Warn(i.logg.WithField(ctx, "stop_ref", event.StopRef), "stop event matched no live pickup")
	}
}

// triggerJobTransitions folds the batch's driver activity into job lifecycle
// marks. The marks are idempotent, so re-deriving the same transition on a
// replayed event is harmless.
func (i *Ingestor) triggerJobTransitions(ctx context.Context, events []routing.DriverEvent) {
	if i.jobs == nil || i.finder == nil {
		return
	}

	touched := make(map[string]bool)
	for _, event := range events {
		if event.DriverRef != "" {
			touched[event.DriverRef] = true
		}
	}

	for driverRef := range touched {
		i.mu.RLock()
		status := i.projection.DriverStatus(driverRef)
		i.mu.RUnlock()
		if status != enums.DriverRouteInProgress && status != enums.DriverRouteCompleted {
			continue
		}

		driverCtx := i.logg.WithField(ctx, "driver_ref", driverRef)
		driver, err := i.repo.FindDriverByExternalRef(ctx, driverRef)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				i.logg.Warn(driverCtx, "feed driver ref not registered")
			} else {
				i.logg.Error(driverCtx, "failed to resolve driver ref", err)
			}
			continue
		}

		switch status {
		case enums.DriverRouteInProgress:
			jobs, err := i.finder.FindByAssignedDriver(ctx, driver.ID, []enums.JobStatus{enums.JobStatusAssigned})
			if err != nil {
				i.logg.Error(driverCtx, "failed to list assigned jobs", err)
				continue
			}
			for _, job := range jobs {
				if err := i.jobs.MarkInProgress(ctx, job.ID); err != nil {
					i.logg.Error(i.logg.WithJobID(driverCtx, job.ID.String()), "failed to mark job in progress", err)
				}
			}
		case enums.DriverRouteCompleted:
			jobs, err := i.finder.FindByAssignedDriver(ctx, driver.ID,
				[]enums.JobStatus{enums.JobStatusAssigned, enums.JobStatusInProgress})
			if err != nil {
				i.logg.Error(driverCtx, "failed to list active jobs", err)
				continue
			}
			for _, job := range jobs {
				if err := i.jobs.MarkCompleted(ctx, job.ID); err != nil {
					i.logg.Error(i.logg.WithJobID(driverCtx, job.ID.String()), "failed to mark job completed", err)
				}
			}
		}
	}
}

// Snapshot returns a deep copy of the current driver and stop projections.
func (i *Ingestor) Snapshot() Snapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.projection.Snapshot()
}

// RecentEvents returns the retained raw events, oldest first.
func (i *Ingestor) RecentEvents() []routing.DriverEvent {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.buffer.Recent()
}

// Cursor returns the last successfully applied feed position.
func (i *Ingestor) Cursor() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.cursor
}
