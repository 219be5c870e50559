package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/craftlane/craftlane-backend/api/responses"
	"github.com/craftlane/craftlane-backend/pkg/config"
	"github.com/craftlane/craftlane-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

const readyCheckTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live", "env": cfg.App.Env})
	}
}

// HealthReady reports per-dependency readiness. Any failed dependency flips
// the overall status without hiding the healthy ones.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		components := map[string]string{}
		healthy := true
		for name, p := range map[string]pinger{"db": db, "redis": redis} {
			if p == nil {
				components[name] = "not_configured"
				continue
			}
			if err := p.Ping(ctx); err != nil {
				components[name] = "down"
				healthy = false
				if logg != nil {
					logg.Error(logg.WithField(ctx, "component", name), "readiness check failed", err)
				}
				continue
			}
			components[name] = "ok"
		}

		status := "ready"
		code := http.StatusOK
		if !healthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, code, map[string]any{
			"status":     status,
			"env":        cfg.App.Env,
			"components": components,
		})
	}
}
