package controllers

import (
	"net/http"

	"github.com/curbsideops/dispatch-backend/api/responses"
	"github.com/curbsideops/dispatch-backend/internal/telemetry"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
	"github.com/curbsideops/dispatch-backend/pkg/logger"
	"github.com/curbsideops/dispatch-backend/pkg/routing"
)

// liveFeed is the read surface of the event ingestor. *telemetry.Ingestor
// satisfies it.
type liveFeed interface {
	Snapshot() telemetry.Snapshot
	RecentEvents() []routing.DriverEvent
	Cursor() string
}

type liveStatusResponse struct {
	Drivers map[string]string     `json:"drivers"`
	Stops   map[string]string     `json:"stops"`
	Events  []routing.DriverEvent `json:"events"`
	Cursor  string                `json:"cursor"`
}

// LiveStatus exposes the in-memory projection of the route day: derived
// driver statuses, stop outcomes, and the retained raw event window.
func LiveStatus(feed liveFeed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if feed == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event feed unavailable"))
			return
		}

		snap := feed.Snapshot()
		drivers := make(map[string]string, len(snap.Drivers))
		for ref, status := range snap.Drivers {
			drivers[ref] = string(status)
		}

		responses.WriteSuccess(w, liveStatusResponse{
			Drivers: drivers,
			Stops:   snap.Stops,
			Events:  feed.RecentEvents(),
			Cursor:  feed.Cursor(),
		})
	}
}
