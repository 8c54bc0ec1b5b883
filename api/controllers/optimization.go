package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/curbsideops/dispatch-backend/api/responses"
	"github.com/curbsideops/dispatch-backend/api/validators"
	"github.com/curbsideops/dispatch-backend/internal/optimization"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
	"github.com/curbsideops/dispatch-backend/pkg/logger"
)

type startPlanPayload struct {
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Balancing  string `json:"balancing,omitempty"`
	BalanceBy  string `json:"balance_by,omitempty"`
	SeedMode   string `json:"seed_mode,omitempty"`
	Clustering bool   `json:"clustering,omitempty"`
}

// StartPlan kicks off an optimization run and returns its id without
// waiting for the run to progress.
func StartPlan(svc optimization.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "optimization service unavailable"))
			return
		}

		var payload startPlanPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		runID, err := svc.Start(ctx, optimization.StartInput{
			Date:       payload.Date,
			Balancing:  payload.Balancing,
			BalanceBy:  payload.BalanceBy,
			SeedMode:   payload.SeedMode,
			Clustering: payload.Clustering,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"run_id": runID})
	}
}

// PlanStatus reports a single observation of a run's progress.
func PlanStatus(svc optimization.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		runID, err := planRunID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		progress, err := svc.Poll(ctx, runID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, progress)
	}
}

// StopPlan requests cancellation of a running plan. The run may still
// finish if the provider already completed it.
func StopPlan(svc optimization.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		runID, err := planRunID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Stop(ctx, runID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"run_id": runID, "status": "stop_requested"})
	}
}

func planRunID(r *http.Request) (string, error) {
	runID := strings.TrimSpace(chi.URLParam(r, "runID"))
	if runID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "run id is required")
	}
	return runID, nil
}
