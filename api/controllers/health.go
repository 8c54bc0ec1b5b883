package controllers

import (
	"context"
	"net/http"

	"github.com/curbsideops/dispatch-backend/api/responses"
	"github.com/curbsideops/dispatch-backend/pkg/config"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
	"github.com/curbsideops/dispatch-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness only. It never touches dependencies.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Curbside-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the datastore and cache are reachable before
// reporting ready. Any failed dependency turns into a 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Curbside-Env", cfg.App.Env)

		checks := map[string]pinger{
			"postgres": db,
			"redis":    cache,
		}
		statuses := make(map[string]string, len(checks))
		healthy := true
		for name, dep := range checks {
			if dep == nil {
				statuses[name] = "skipped"
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				healthy = false
				statuses[name] = "unreachable"
				if logg != nil {
					ctx := logg.WithField(r.Context(), "dependency", name)
					logg.Error(ctx, "readiness check failed", err)
				}
				continue
			}
			statuses[name] = "ok"
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "dependencies": statuses})
	}
}
