package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/curbsideops/dispatch-backend/internal/jobs"
	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
	"github.com/curbsideops/dispatch-backend/pkg/pagination"
)

type stubJobService struct {
	job     *models.Job
	list    *jobs.JobList
	err     error
	created *jobs.CreateInput
	filters *jobs.Filters
}

func (s *stubJobService) Create(_ context.Context, input jobs.CreateInput) (*models.Job, error) {
	s.created = &input
	return s.job, s.err
}

func (s *stubJobService) Get(context.Context, uuid.UUID) (*models.Job, error) {
	return s.job, s.err
}

func (s *stubJobService) List(_ context.Context, _ pagination.Params, filters jobs.Filters) (*jobs.JobList, error) {
	s.filters = &filters
	return s.list, s.err
}

func (s *stubJobService) ListOpenBoard(context.Context, pagination.Params) (*jobs.JobList, error) {
	return s.list, s.err
}

func (s *stubJobService) Publish(context.Context, uuid.UUID) (*models.Job, error) {
	return s.job, s.err
}

func (s *stubJobService) Cancel(context.Context, uuid.UUID) (*models.Job, error) {
	return s.job, s.err
}

func (s *stubJobService) DirectAssign(context.Context, jobs.DirectAssignInput) (*models.Job, error) {
	return s.job, s.err
}

func (s *stubJobService) MarkInProgress(context.Context, uuid.UUID) error { return s.err }
func (s *stubJobService) MarkCompleted(context.Context, uuid.UUID) error  { return s.err }

func withJobID(req *http.Request, jobID uuid.UUID) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("jobID", jobID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func TestCreateJobReturnsCreated(t *testing.T) {
	job := &models.Job{ID: uuid.New(), Status: enums.JobStatusDraft}
	svc := &stubJobService{job: job}
	handler := CreateJob(svc, nil)

	body, _ := json.Marshal(map[string]any{
		"title":          "Tuesday north loop",
		"job_type":       "daily_route",
		"scheduled_date": time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		"base_pay":       "180.00",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.created == nil {
		t.Fatal("expected service to receive create input")
	}
	if svc.created.JobType != enums.JobTypeDailyRoute {
		t.Fatalf("expected daily_route got %s", svc.created.JobType)
	}
	if !svc.created.BasePay.Equal(decimal.RequireFromString("180.00")) {
		t.Fatalf("expected base pay 180.00 got %s", svc.created.BasePay)
	}
}

func TestCreateJobRejectsBadJobType(t *testing.T) {
	handler := CreateJob(&stubJobService{}, nil)

	body, _ := json.Marshal(map[string]any{
		"title":          "Tuesday north loop",
		"job_type":       "helicopter_route",
		"scheduled_date": "2026-09-01",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestListJobsParsesStatusFilter(t *testing.T) {
	svc := &stubJobService{list: &jobs.JobList{}}
	handler := ListJobs(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs?status=open,bidding&job_type=daily_route", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.filters == nil || len(svc.filters.Statuses) != 2 {
		t.Fatalf("expected two status filters, got %+v", svc.filters)
	}
	if svc.filters.JobType == nil || *svc.filters.JobType != enums.JobTypeDailyRoute {
		t.Fatalf("expected daily_route filter, got %+v", svc.filters.JobType)
	}
}

func TestListJobsRejectsInvalidStatus(t *testing.T) {
	handler := ListJobs(&stubJobService{list: &jobs.JobList{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs?status=sideways", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCancelJobStateConflictMapsTo422(t *testing.T) {
	svc := &stubJobService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "job already completed")}
	handler := CancelJob(svc, nil)

	req := withJobID(httptest.NewRequest(http.MethodPost, "/api/v1/jobs/x/cancel", nil), uuid.New())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestDirectAssignJobInvalidPayRejected(t *testing.T) {
	handler := DirectAssignJob(&stubJobService{}, nil)

	body, _ := json.Marshal(map[string]any{
		"driver_id": uuid.New().String(),
		"pay":       "a-lot",
	})
	req := withJobID(httptest.NewRequest(http.MethodPost, "/api/v1/jobs/x/assign", bytes.NewReader(body)), uuid.New())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestGetJobRejectsMalformedID(t *testing.T) {
	handler := GetJob(&stubJobService{}, nil)

	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("jobID", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/not-a-uuid", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
