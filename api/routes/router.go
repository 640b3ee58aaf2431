package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rameshsbr/webmanagement-p2p-sub000/api/controllers"
	"github.com/rameshsbr/webmanagement-p2p-sub000/api/middleware"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/config"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/logger"
)

// NewRouter builds the ops surface: liveness, readiness, and metrics.
// The back office exposes no payment endpoints over HTTP; mutations go
// through the service layer.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	gatherer prometheus.Gatherer,
	deps map[string]controllers.Pinger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Get("/readyz", controllers.HealthReady(cfg, logg, deps))

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
