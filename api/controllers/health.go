package controllers

import (
	"net/http"

	"github.com/cashlinkhq/cashlink-backend/api/responses"
	"github.com/cashlinkhq/cashlink-backend/pkg/config"
	"github.com/cashlinkhq/cashlink-backend/pkg/db"
	pkgerrors "github.com/cashlinkhq/cashlink-backend/pkg/errors"
	"github.com/cashlinkhq/cashlink-backend/pkg/logger"
)

const envHeader = "X-CashLink-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency and reports per-dependency status.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]string{}
		healthy := true
		for name, pinger := range deps {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(r.Context()); err != nil {
				checks[name] = "down"
				healthy = false
				if logg != nil {
					logg.Error(logg.WithField(r.Context(), "dependency", name), "readiness check failed", err)
				}
				continue
			}
			checks[name] = "ok"
		}

		if !healthy {
			responses.WriteError(r.Context(), nil, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
