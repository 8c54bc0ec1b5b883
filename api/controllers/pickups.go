package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/curbsideops/dispatch-backend/api/responses"
	"github.com/curbsideops/dispatch-backend/api/validators"
	"github.com/curbsideops/dispatch-backend/internal/pickups"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
	"github.com/curbsideops/dispatch-backend/pkg/logger"
)

type attachPickupsPayload struct {
	PropertyIDs []string `json:"property_ids" validate:"required,min=1,max=200,dive,uuid4"`
	PickupType  string   `json:"pickup_type,omitempty"`
}

// AttachPickups adds a batch of properties to a job as stops. The batch
// is partial-success: valid properties attach, the rest come back with a
// per-property reason.
func AttachPickups(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pickup service unavailable"))
			return
		}

		jobID, err := validators.ParseURLUUID(r, "jobID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload attachPickupsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		propertyIDs := make([]uuid.UUID, 0, len(payload.PropertyIDs))
		for _, raw := range payload.PropertyIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid property id"))
				return
			}
			propertyIDs = append(propertyIDs, id)
		}

		pickupType := enums.PickupTypeRoutine
		if payload.PickupType != "" {
			parsed, err := enums.ParsePickupType(payload.PickupType)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pickup_type"))
				return
			}
			pickupType = parsed
		}

		result, err := svc.Attach(ctx, pickups.AttachInput{
			JobID:       jobID,
			PropertyIDs: propertyIDs,
			PickupType:  pickupType,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// DetachPickup removes a stop from its job. Jobs already in execution
// refuse the detach.
func DetachPickup(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		pickupID, err := validators.ParseURLUUID(r, "pickupID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.Detach(ctx, pickupID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type syncRouteStopsPayload struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// SyncRouteStops maps a day's provider route stops onto pickups, writing
// sequence numbers and the external stop refs the event feed reports against.
func SyncRouteStops(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var payload syncRouteStopsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		day, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date"))
			return
		}
		result, err := svc.SyncRouteStops(ctx, day)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListJobPickups returns a job's stops in route order.
func ListJobPickups(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
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
		responses.WriteSuccess(w, map[string]any{"pickups": list})
	}
}
