package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/curbsideops/dispatch-backend/api/responses"
	"github.com/curbsideops/dispatch-backend/api/validators"
	"github.com/curbsideops/dispatch-backend/internal/jobs"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
	"github.com/curbsideops/dispatch-backend/pkg/logger"
	"github.com/curbsideops/dispatch-backend/pkg/pagination"
)

type createJobPayload struct {
	Title          string  `json:"title" validate:"required"`
	JobType        string  `json:"job_type" validate:"required"`
	ScheduledDate  string  `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	WindowStart    *string `json:"window_start,omitempty"`
	WindowEnd      *string `json:"window_end,omitempty"`
	EstimatedHours string  `json:"estimated_hours,omitempty"`
	BasePay        string  `json:"base_pay,omitempty"`
	ZoneID         *string `json:"zone_id,omitempty" validate:"omitempty,uuid4"`
	PublishNow     bool    `json:"publish_now,omitempty"`
}

type directAssignPayload struct {
	DriverID string `json:"driver_id" validate:"required,uuid4"`
	Pay      string `json:"pay" validate:"required"`
}

// CreateJob creates a route job, as a draft by default or directly open
// when publish_now is set.
func CreateJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}

		var payload createJobPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		job, err := svc.Create(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, job)
	}
}

func (p createJobPayload) toInput() (jobs.CreateInput, error) {
	jobType, err := enums.ParseJobType(p.JobType)
	if err != nil {
		return jobs.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job_type")
	}
	scheduled, err := time.Parse("2006-01-02", p.ScheduledDate)
	if err != nil {
		return jobs.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "scheduled_date must be YYYY-MM-DD")
	}

	input := jobs.CreateInput{
		Title:         strings.TrimSpace(p.Title),
		JobType:       jobType,
		ScheduledDate: scheduled,
		PublishNow:    p.PublishNow,
	}
	if p.WindowStart != nil {
		start, err := time.Parse(time.RFC3339, *p.WindowStart)
		if err != nil {
			return jobs.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "window_start must be RFC3339")
		}
		input.WindowStart = &start
	}
	if p.WindowEnd != nil {
		end, err := time.Parse(time.RFC3339, *p.WindowEnd)
		if err != nil {
			return jobs.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "window_end must be RFC3339")
		}
		input.WindowEnd = &end
	}
	if p.EstimatedHours != "" {
		hours, err := decimal.NewFromString(p.EstimatedHours)
		if err != nil {
			return jobs.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid estimated_hours")
		}
		input.EstimatedHours = hours
	}
	if p.BasePay != "" {
		pay, err := decimal.NewFromString(p.BasePay)
		if err != nil {
			return jobs.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid base_pay")
		}
		input.BasePay = pay
	}
	if p.ZoneID != nil {
		zoneID, err := uuid.Parse(*p.ZoneID)
		if err != nil {
			return jobs.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid zone_id")
		}
		input.ZoneID = &zoneID
	}
	return input, nil
}

// GetJob fetches a single job by id.
func GetJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		jobID, err := validators.ParseURLUUID(r, "jobID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		job, err := svc.Get(ctx, jobID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

// ListJobs is the operator listing with status, type, date, and zone filters.
func ListJobs(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filters, err := jobFilters(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.List(ctx, params, filters)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// DriverBoard is the driver-facing job board: biddable jobs only.
func DriverBoard(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		page, err := svc.ListOpenBoard(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// PublishJob opens a draft for bidding.
func PublishJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return jobTransition(svc, logg, func(svc jobs.Service, r *http.Request, jobID uuid.UUID) (any, error) {
		return svc.Publish(r.Context(), jobID)
	})
}

// CancelJob cancels a job from any non-terminal status.
func CancelJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return jobTransition(svc, logg, func(svc jobs.Service, r *http.Request, jobID uuid.UUID) (any, error) {
		return svc.Cancel(r.Context(), jobID)
	})
}

// StartJob moves an assigned job into execution.
func StartJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return jobTransition(svc, logg, func(svc jobs.Service, r *http.Request, jobID uuid.UUID) (any, error) {
		if err := svc.MarkInProgress(r.Context(), jobID); err != nil {
			return nil, err
		}
		return svc.Get(r.Context(), jobID)
	})
}

// CompleteJob closes out an assigned or in-progress job.
func CompleteJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return jobTransition(svc, logg, func(svc jobs.Service, r *http.Request, jobID uuid.UUID) (any, error) {
		if err := svc.MarkCompleted(r.Context(), jobID); err != nil {
			return nil, err
		}
		return svc.Get(r.Context(), jobID)
	})
}

// DirectAssignJob assigns a driver and pay without an auction.
func DirectAssignJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		jobID, err := validators.ParseURLUUID(r, "jobID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload directAssignPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		driverID, err := uuid.Parse(payload.DriverID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid driver_id"))
			return
		}
		pay, err := decimal.NewFromString(payload.Pay)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pay"))
			return
		}

		job, err := svc.DirectAssign(ctx, jobs.DirectAssignInput{
			JobID:    jobID,
			DriverID: driverID,
			Pay:      pay,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

func jobTransition(svc jobs.Service, logg *logger.Logger, do func(jobs.Service, *http.Request, uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}
		jobID, err := validators.ParseURLUUID(r, "jobID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := do(svc, r, jobID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func paginationParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func jobFilters(r *http.Request) (jobs.Filters, error) {
	var filters jobs.Filters
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := enums.ParseJobStatus(strings.TrimSpace(part))
			if err != nil {
				return jobs.Filters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
			}
			filters.Statuses = append(filters.Statuses, status)
		}
	}
	if raw := strings.TrimSpace(query.Get("job_type")); raw != "" {
		jobType, err := enums.ParseJobType(raw)
		if err != nil {
			return jobs.Filters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job_type filter")
		}
		filters.JobType = &jobType
	}
	if raw := strings.TrimSpace(query.Get("scheduled_date")); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return jobs.Filters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "scheduled_date must be YYYY-MM-DD")
		}
		filters.ScheduledDate = &date
	}
	if raw := strings.TrimSpace(query.Get("zone_id")); raw != "" {
		zoneID, err := uuid.Parse(raw)
		if err != nil {
			return jobs.Filters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid zone_id filter")
		}
		filters.ZoneID = &zoneID
	}
	return filters, nil
}
