package controllers

import (
	"net/http"

	"github.com/curbsideops/dispatch-backend/api/responses"
	"github.com/curbsideops/dispatch-backend/api/validators"
	"github.com/curbsideops/dispatch-backend/internal/autoassign"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
	"github.com/curbsideops/dispatch-backend/pkg/logger"
)

// EvaluateAddress runs pickup-day placement for a property against recent
// route history and persists the resulting approval state.
func EvaluateAddress(svc autoassign.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auto-assignment service unavailable"))
			return
		}

		propertyID, err := validators.ParseURLUUID(r, "propertyID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		evaluation, err := svc.Evaluate(ctx, propertyID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, evaluation)
	}
}
