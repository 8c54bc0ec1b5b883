package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/curbsideops/dispatch-backend/api/controllers"
	"github.com/curbsideops/dispatch-backend/api/middleware"
	"github.com/curbsideops/dispatch-backend/internal/autoassign"
	"github.com/curbsideops/dispatch-backend/internal/bids"
	"github.com/curbsideops/dispatch-backend/internal/jobs"
	"github.com/curbsideops/dispatch-backend/internal/optimization"
	"github.com/curbsideops/dispatch-backend/internal/pickups"
	"github.com/curbsideops/dispatch-backend/internal/telemetry"
	"github.com/curbsideops/dispatch-backend/pkg/config"
	"github.com/curbsideops/dispatch-backend/pkg/logger"
	"github.com/curbsideops/dispatch-backend/pkg/routing"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// liveFeed matches the ingestor's read surface so the API can serve the
// projection without owning the poller.
type liveFeed interface {
	Snapshot() telemetry.Snapshot
	RecentEvents() []routing.DriverEvent
	Cursor() string
}

// NewRouter wires every HTTP surface behind the shared middleware chain.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP pinger,
	redisP pinger,
	jobService jobs.Service,
	pickupService pickups.Service,
	bidService bids.Service,
	feed liveFeed,
	autoAssignService autoassign.Service,
	planService optimization.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", controllers.CreateJob(jobService, logg))
			r.Get("/", controllers.ListJobs(jobService, logg))
			r.Get("/board", controllers.DriverBoard(jobService, logg))

			r.Route("/{jobID}", func(r chi.Router) {
				r.Get("/", controllers.GetJob(jobService, logg))
				r.Post("/publish", controllers.PublishJob(jobService, logg))
				r.Post("/cancel", controllers.CancelJob(jobService, logg))
				r.Post("/assign", controllers.DirectAssignJob(jobService, logg))
				r.Post("/start", controllers.StartJob(jobService, logg))
				r.Post("/complete", controllers.CompleteJob(jobService, logg))

				r.Route("/pickups", func(r chi.Router) {
					r.Get("/", controllers.ListJobPickups(pickupService, logg))
					r.Post("/", controllers.AttachPickups(pickupService, logg))
				})

				r.Route("/bids", func(r chi.Router) {
					r.Get("/", controllers.ListJobBids(bidService, logg))
					r.Post("/", controllers.SubmitBid(bidService, logg))
					r.Post("/{bidID}/accept", controllers.AcceptBid(bidService, logg))
				})
			})
		})

		r.Route("/bids", func(r chi.Router) {
			r.Put("/{bidID}", controllers.UpdateBid(bidService, logg))
		})

		r.Get("/drivers/{driverID}/bids", controllers.ListDriverBids(bidService, logg))

		r.Delete("/pickups/{pickupID}", controllers.DetachPickup(pickupService, logg))
		r.Post("/routes/sync", controllers.SyncRouteStops(pickupService, logg))

		r.Get("/status/live", controllers.LiveStatus(feed, logg))

		r.Post("/addresses/{propertyID}/evaluate", controllers.EvaluateAddress(autoAssignService, logg))

		r.Route("/plans", func(r chi.Router) {
			r.Post("/", controllers.StartPlan(planService, logg))
			r.Get("/{runID}", controllers.PlanStatus(planService, logg))
			r.Delete("/{runID}", controllers.StopPlan(planService, logg))
		})
	})

	return r
}
