package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/curbsideops/dispatch-backend/internal/bids"
	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
)

type stubBidService struct {
	bid    *models.Bid
	accept *bids.AcceptResult
	list   []models.Bid
	err    error
}

func (s stubBidService) Submit(context.Context, bids.SubmitInput) (*models.Bid, error) {
	return s.bid, s.err
}

func (s stubBidService) Update(context.Context, bids.UpdateInput) (*models.Bid, error) {
	return s.bid, s.err
}

func (s stubBidService) Accept(context.Context, uuid.UUID, uuid.UUID) (*bids.AcceptResult, error) {
	return s.accept, s.err
}

func (s stubBidService) ListForJob(context.Context, uuid.UUID) ([]models.Bid, error) {
	return s.list, s.err
}

func (s stubBidService) ListForDriver(context.Context, uuid.UUID) ([]models.Bid, error) {
	return s.list, s.err
}

func withJobAndBidID(req *http.Request, jobID, bidID uuid.UUID) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("jobID", jobID.String())
	ctx.URLParams.Add("bidID", bidID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func TestSubmitBidReturnsCreated(t *testing.T) {
	bid := &models.Bid{ID: uuid.New()}
	handler := SubmitBid(stubBidService{bid: bid}, nil)

	body, _ := json.Marshal(map[string]any{
		"driver_id": uuid.New().String(),
		"amount":    "150.00",
	})
	req := withJobID(httptest.NewRequest(http.MethodPost, "/api/v1/jobs/x/bids", bytes.NewReader(body)), uuid.New())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitBidDuplicateMapsTo409(t *testing.T) {
	svc := stubBidService{err: pkgerrors.New(pkgerrors.CodeConflict, "driver already has a bid on this job")}
	handler := SubmitBid(svc, nil)

	body, _ := json.Marshal(map[string]any{
		"driver_id": uuid.New().String(),
		"amount":    "150.00",
	})
	req := withJobID(httptest.NewRequest(http.MethodPost, "/api/v1/jobs/x/bids", bytes.NewReader(body)), uuid.New())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
}

func TestAcceptBidReturnsJobAndBid(t *testing.T) {
	result := &bids.AcceptResult{
		Bid: &models.Bid{ID: uuid.New()},
		Job: &models.Job{ID: uuid.New()},
	}
	handler := AcceptBid(stubBidService{accept: result}, nil)

	req := withJobAndBidID(httptest.NewRequest(http.MethodPost, "/api/v1/jobs/x/bids/y/accept", nil), uuid.New(), uuid.New())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data bids.AcceptResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Bid == nil || envelope.Data.Bid.ID != result.Bid.ID {
		t.Fatalf("expected bid %s in response", result.Bid.ID)
	}
}

func TestAcceptBidRaceLoserMapsTo409(t *testing.T) {
	svc := stubBidService{err: pkgerrors.New(pkgerrors.CodeConcurrency, "another acceptance won the race")}
	handler := AcceptBid(svc, nil)

	req := withJobAndBidID(httptest.NewRequest(http.MethodPost, "/api/v1/jobs/x/bids/y/accept", nil), uuid.New(), uuid.New())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
}

func TestSubmitBidMissingAmountRejected(t *testing.T) {
	handler := SubmitBid(stubBidService{}, nil)

	body, _ := json.Marshal(map[string]any{
		"driver_id": uuid.New().String(),
	})
	req := withJobID(httptest.NewRequest(http.MethodPost, "/api/v1/jobs/x/bids", bytes.NewReader(body)), uuid.New())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
