package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cashlinkhq/cashlink-backend/api/controllers"
	"github.com/cashlinkhq/cashlink-backend/api/middleware"
	"github.com/cashlinkhq/cashlink-backend/internal/gateway"
	"github.com/cashlinkhq/cashlink-backend/pkg/config"
	"github.com/cashlinkhq/cashlink-backend/pkg/db"
	"github.com/cashlinkhq/cashlink-backend/pkg/logger"
)

// NewRouter builds the gateway's HTTP surface: health probes, prometheus
// metrics, and the websocket upgrade endpoint.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]db.Pinger,
	wsServer *gateway.Server,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Handle("/metrics", promhttp.Handler())

	if wsServer != nil {
		r.Get("/ws", wsServer.HandleWS)
	}

	return r
}
