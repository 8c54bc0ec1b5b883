package autoassign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curbsideops/dispatch-backend/pkg/config"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
)

// Evaluation is the placement decision for one candidate address.
type Evaluation struct {
	PropertyID    uuid.UUID           `json:"property_id"`
	AssignedDay   *string             `json:"assigned_day,omitempty"`
	Cost          *DayCost            `json:"cost,omitempty"`
	ApprovalState enums.ApprovalState `json:"approval_state"`
	AutoApproved  bool                `json:"auto_approved"`
	Reason        string              `json:"reason,omitempty"`
}

// Service decides which pickup day a newly registered address joins, and
// whether the placement is approved automatically or held for review.
type Service interface {
	Evaluate(ctx context.Context, propertyID uuid.UUID) (*Evaluation, error)
}

type service struct {
	repo   Repository
	routes routeHistory
	cfg    config.AutoAssignConfig
	metric Metric
}

// NewService builds the auto-assignment evaluator.
func NewService(repo Repository, routes routeHistory, cfg config.AutoAssignConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("autoassign repository required")
	}
	if routes == nil {
		return nil, fmt.Errorf("route history provider required")
	}
	metric, err := ParseMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}
	if cfg.HistoryWindowDays <= 0 {
		cfg.HistoryWindowDays = 14
	}
	return &service{repo: repo, routes: routes, cfg: cfg, metric: metric}, nil
}

func (s *service) Evaluate(ctx context.Context, propertyID uuid.UUID) (*Evaluation, error) {
	if propertyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "property id required")
	}

	property, err := s.repo.FindProperty(ctx, propertyID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property")
	}

	evaluation := &Evaluation{
		PropertyID:    propertyID,
		ApprovalState: enums.ApprovalStatePendingReview,
	}

	// With auto-assignment off, addresses are always left unplaced for a
	// human to review.
	if !s.cfg.Enabled {
		evaluation.Reason = "auto-assignment disabled"
		if err := s.repo.SetPlacement(ctx, propertyID, nil, enums.ApprovalStatePendingReview); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist placement")
		}
		return evaluation, nil
	}

	best, err := s.bestDay(ctx, property.Lat, property.Lng)
	if err != nil {
		return nil, err
	}
	if best == nil {
		evaluation.Reason = "no route history in window"
		if err := s.repo.SetPlacement(ctx, propertyID, nil, enums.ApprovalStatePendingReview); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist placement")
		}
		return evaluation, nil
	}

	evaluation.AssignedDay = &best.Day
	evaluation.Cost = best
	if s.cfg.AutoApprove && withinThresholds(*best, s.cfg.MaxExtraDistanceKM, s.cfg.MaxExtraMinutes) {
		evaluation.ApprovalState = enums.ApprovalStateApproved
		evaluation.AutoApproved = true
	} else {
		evaluation.Reason = s.reviewReason(*best)
	}

	if err := s.repo.SetPlacement(ctx, propertyID, evaluation.AssignedDay, evaluation.ApprovalState); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist placement")
	}
	return evaluation, nil
}

// bestDay scans the configured history window and returns the cheapest
// insertion among the recognized pickup days, or nil when the window holds
// no usable routes.
func (s *service) bestDay(ctx context.Context, lat, lng float64) (*DayCost, error) {
	today := time.Now().UTC()
	byDay := make(map[string]DayCost)

	for offset := 1; offset <= s.cfg.HistoryWindowDays; offset++ {
		date := today.AddDate(0, 0, -offset)
		routes, err := s.routes.RoutesForDay(ctx, date.Format("2006-01-02"))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch route history")
		}
		for _, route := range routes {
			day := strings.ToLower(strings.TrimSpace(route.Day))
			if day == "" {
				day = strings.ToLower(date.Weekday().String())
			}
			extraKM, ok := insertionCostKM(route, lat, lng)
			if !ok {
				continue
			}
			cost := DayCost{
				Day:          day,
				ExtraKM:      extraKM,
				ExtraMinutes: extraKM / defaultTravelSpeedKMH * 60,
			}
			if existing, seen := byDay[day]; !seen || cost.score(s.metric) < existing.score(s.metric) {
				byDay[day] = cost
			}
		}
	}

	var best *DayCost
	for _, cost := range byDay {
		cost := cost
		if best == nil || cost.score(s.metric) < best.score(s.metric) {
			best = &cost
		}
	}
	return best, nil
}

func (s *service) reviewReason(cost DayCost) string {
	if s.cfg.MaxExtraDistanceKM > 0 && cost.ExtraKM > s.cfg.MaxExtraDistanceKM {
		return "insertion distance exceeds threshold"
	}
	if s.cfg.MaxExtraMinutes > 0 && cost.ExtraMinutes > s.cfg.MaxExtraMinutes {
		return "insertion time exceeds threshold"
	}
	return "auto-approve disabled"
}
