package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/lucidrepo/lucid-backend/api/responses"
	"github.com/lucidrepo/lucid-backend/pkg/config"
	"github.com/lucidrepo/lucid-backend/pkg/logger"
	"github.com/lucidrepo/lucid-backend/pkg/types"
)

const readinessTimeout = 3 * time.Second

// Pinger is any dependency that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Lucid-Env", cfg.App.Env)
		responses.WriteSuccess(w, types.StatusBody{Status: "live"})
	}
}

// HealthReady pings each named dependency. Nil pingers are skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Lucid-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		body := types.StatusBody{Status: "ready", Checks: map[string]string{}}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				body.Status = "unavailable"
				body.Checks[name] = "error"
				if logg != nil {
					logg.WarnErr(logg.WithField(ctx, "dependency", name), "health.ready.failed", err)
				}
				continue
			}
			body.Checks[name] = "ok"
		}

		if body.Status != "ready" {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, body)
			return
		}
		responses.WriteSuccess(w, body)
	}
}
