package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/curbsideops/dispatch-backend/api/responses"
	"github.com/curbsideops/dispatch-backend/api/validators"
	"github.com/curbsideops/dispatch-backend/internal/bids"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
	"github.com/curbsideops/dispatch-backend/pkg/logger"
)

type submitBidPayload struct {
	DriverID string  `json:"driver_id" validate:"required,uuid4"`
	Amount   string  `json:"amount" validate:"required"`
	Message  *string `json:"message,omitempty" validate:"omitempty,max=500"`
}

type updateBidPayload struct {
	DriverID string  `json:"driver_id" validate:"required,uuid4"`
	Amount   string  `json:"amount" validate:"required"`
	Message  *string `json:"message,omitempty" validate:"omitempty,max=500"`
}

// SubmitBid places a driver's bid on an open or bidding job.
func SubmitBid(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bid service unavailable"))
			return
		}

		jobID, err := validators.ParseURLUUID(r, "jobID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload submitBidPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		driverID, err := uuid.Parse(payload.DriverID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid driver_id"))
			return
		}
		amount, err := decimal.NewFromString(payload.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		bid, err := svc.Submit(ctx, bids.SubmitInput{
			JobID:    jobID,
			DriverID: driverID,
			Amount:   amount,
			Message:  payload.Message,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bid)
	}
}

// UpdateBid revises the amount or message of an existing bid while the
// job is still biddable.
func UpdateBid(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		bidID, err := validators.ParseURLUUID(r, "bidID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateBidPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		driverID, err := uuid.Parse(payload.DriverID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid driver_id"))
			return
		}
		amount, err := decimal.NewFromString(payload.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		bid, err := svc.Update(ctx, bids.UpdateInput{
			BidID:    bidID,
			DriverID: driverID,
			Amount:   amount,
			Message:  payload.Message,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, bid)
	}
}

// AcceptBid awards the job to the bidding driver at the bid amount.
func AcceptBid(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		jobID, err := validators.ParseURLUUID(r, "jobID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		bidID, err := validators.ParseURLUUID(r, "bidID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Accept(ctx, jobID, bidID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListJobBids returns every bid on a job in submission order.
func ListJobBids(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		jobID, err := validators.ParseURLUUID(r, "jobID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		list, err := svc.ListForJob(ctx, jobID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"bids": list})
	}
}

// ListDriverBids returns a driver's bid history, newest first.
func ListDriverBids(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		driverID, err := validators.ParseURLUUID(r, "driverID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		list, err := svc.ListForDriver(ctx, driverID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"bids": list})
	}
}
