package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lucidrepo/lucid-backend/api/controllers"
	"github.com/lucidrepo/lucid-backend/api/middleware"
	"github.com/lucidrepo/lucid-backend/internal/dreamvideo"
	"github.com/lucidrepo/lucid-backend/pkg/auth/session"
	"github.com/lucidrepo/lucid-backend/pkg/config"
	"github.com/lucidrepo/lucid-backend/pkg/logger"
)

const generateDreamVideoPath = "/generate-dream-video"

// RouterParams groups what the HTTP surface needs.
type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	Sessions     session.AccessSessionChecker
	DreamVideo   dreamvideo.Service
	Dependencies map[string]controllers.Pinger
	Gatherer     prometheus.Gatherer
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Dependencies))
	})

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/functions/v1", func(r chi.Router) {
		r.Options(generateDreamVideoPath, controllers.Preflight())
		r.With(middleware.Auth(cfg.JWT, p.Sessions, logg)).
			Post(generateDreamVideoPath, controllers.GenerateDreamVideo(p.DreamVideo, logg))
	})

	return r
}
