package optimization

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/curbsideops/dispatch-backend/pkg/enums"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
	"github.com/curbsideops/dispatch-backend/pkg/logger"
	"github.com/curbsideops/dispatch-backend/pkg/metrics"
	"github.com/curbsideops/dispatch-backend/pkg/routing"
)

const (
	watchLoopName       = "plan-watch"
	defaultPollInterval = 2 * time.Second
)

// planControl is the slice of the provider client the coordinator consumes.
type planControl interface {
	StartPlan(ctx context.Context, params routing.PlanParams) (string, error)
	PlanStatus(ctx context.Context, runID string) (*routing.PlanProgress, error)
	StopPlan(ctx context.Context, runID string) error
}

// StartInput configures an optimization run submission.
type StartInput struct {
	Date       string
	Balancing  string
	BalanceBy  string
	SeedMode   string
	Clustering bool
}

// Progress is one observed step of a run, with the provider state parsed.
type Progress struct {
	RunID   string             `json:"run_id"`
	Percent int                `json:"percent"`
	State   enums.PlanRunState `json:"state"`
	Code    string             `json:"code,omitempty"`
}

// Service coordinates asynchronous optimization runs: non-blocking start,
// on-demand polling, a watch loop for callers that want progress streamed,
// and best-effort cancellation.
type Service interface {
	Start(ctx context.Context, input StartInput) (string, error)
	Poll(ctx context.Context, runID string) (*Progress, error)
	// Watch polls the run on the configured interval and sends each
	// observation until a terminal state or context cancellation. The
	// returned channel closes when watching ends.
	Watch(ctx context.Context, runID string) <-chan Progress
	Stop(ctx context.Context, runID string) error
}

// ServiceParams configure the coordinator.
type ServiceParams struct {
	Logger       *logger.Logger
	Provider     planControl
	Metrics      *metrics.PollerMetrics
	PollInterval time.Duration
}

type service struct {
	logg     *logger.Logger
	provider planControl
	metrics  *metrics.PollerMetrics
	interval time.Duration
}

// NewService builds the route optimization coordinator.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("plan provider required")
	}
	interval := params.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &service{
		logg:     params.Logger,
		provider: params.Provider,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

func (s *service) Start(ctx context.Context, input StartInput) (string, error) {
	date := strings.TrimSpace(input.Date)
	if date == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "plan date is required")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "plan date must be YYYY-MM-DD")
	}

	// A failed submission surfaces synchronously with the provider's code;
	// failures after this point are only observable through polling.
	runID, err := s.provider.StartPlan(ctx, routing.PlanParams{
		Date:       date,
		Balancing:  input.Balancing,
		BalanceBy:  input.BalanceBy,
		SeedMode:   input.SeedMode,
		Clustering: input.Clustering,
	})
	if err != nil {
		return "", err
	}
	return runID, nil
}

func (s *service) Poll(ctx context.Context, runID string) (*Progress, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "run id is required")
	}
	raw, err := s.provider.PlanStatus(ctx, runID)
	if err != nil {
		return nil, err
	}
	state, err := enums.ParsePlanRunState(raw.State)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "provider returned unknown run state")
	}
	return &Progress{
		RunID:   raw.RunID,
		Percent: raw.Percent,
		State:   state,
		Code:    raw.Code,
	}, nil
}

func (s *service) Watch(ctx context.Context, runID string) <-chan Progress {
	updates := make(chan Progress, 1)

	go func() {
		defer close(updates)
		watchCtx := s.logg.WithField(ctx, "run_id", runID)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			start := time.Now()
			progress, err := s.Poll(ctx, runID)
			if s.metrics != nil {
				s.metrics.ObserveDuration(watchLoopName, time.Since(start))
			}
			if err != nil {
				// Transient provider failure; keep watching until the
				// context gives up.
				s.logg.Error(watchCtx, "plan status poll failed", err)
				if s.metrics != nil {
					s.metrics.IncFailure(watchLoopName)
				}
			} else {
				if s.metrics != nil {
					s.metrics.IncSuccess(watchLoopName)
				}
				select {
				case updates <- *progress:
				case <-ctx.Done():
					return
				}
				if progress.State.IsTerminal() {
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return updates
}

// Stop requests cancellation. The run may still finish if cancellation loses
// the race, so watchers must treat a later finished state as valid.
func (s *service) Stop(ctx context.Context, runID string) error {
	if strings.TrimSpace(runID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "run id is required")
	}
	return s.provider.StopPlan(ctx, runID)
}
