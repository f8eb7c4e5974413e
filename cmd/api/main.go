package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/lucidrepo/lucid-backend/api/controllers"
	"github.com/lucidrepo/lucid-backend/api/routes"
	"github.com/lucidrepo/lucid-backend/internal/dreams"
	"github.com/lucidrepo/lucid-backend/internal/dreamvideo"
	"github.com/lucidrepo/lucid-backend/internal/entitlements"
	"github.com/lucidrepo/lucid-backend/pkg/auth/session"
	"github.com/lucidrepo/lucid-backend/pkg/config"
	"github.com/lucidrepo/lucid-backend/pkg/db"
	"github.com/lucidrepo/lucid-backend/pkg/google/serviceaccount"
	"github.com/lucidrepo/lucid-backend/pkg/instance"
	"github.com/lucidrepo/lucid-backend/pkg/logger"
	"github.com/lucidrepo/lucid-backend/pkg/metrics"
	"github.com/lucidrepo/lucid-backend/pkg/migrate"
	"github.com/lucidrepo/lucid-backend/pkg/redis"
	"github.com/lucidrepo/lucid-backend/pkg/storage/gcs"
	"github.com/lucidrepo/lucid-backend/pkg/veo"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "gcs", err)

	creds, err := serviceaccount.Load(cfg.GCP)
	requireResource(ctx, logg, "service account credentials", err)

	providerHTTP := &http.Client{Timeout: cfg.Veo.HTTPTimeout}
	veoClient, err := veo.NewClient(cfg.Veo, cfg.GCP.ProjectID, creds, providerHTTP)
	requireResource(ctx, logg, "veo client", err)

	entitlementService, err := entitlements.NewService(entitlements.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "entitlements service", err)

	dreamVideoService, err := dreamvideo.NewService(dreamvideo.ServiceParams{
		Entitlements: entitlementService,
		Dreams:       dreams.NewRepository(dbClient.DB()),
		Provider:     veoClient,
		Storage:      gcsClient,
		Limiter:      redisClient,
		Metrics:      metrics.NewVideoJobMetrics(prometheus.DefaultRegisterer),
		Logger:       logg,
		Veo:          cfg.Veo,
		Limits:       cfg.VideoLimits,
		HTTPClient:   providerHTTP,
	})
	requireResource(ctx, logg, "dream video service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:     cfg,
			Logger:     logg,
			Sessions:   sessionManager,
			DreamVideo: dreamVideoService,
			Dependencies: map[string]controllers.Pinger{
				"db":    dbClient,
				"redis": redisClient,
				"gcs":   gcsClient,
			},
			Gatherer: prometheus.DefaultGatherer,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(runCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logg.Info(runCtx, "shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	closeErr := multierr.Combine(
		server.Shutdown(shutdownCtx),
		gcsClient.Close(),
		redisClient.Close(),
		dbClient.Close(),
	)
	if closeErr != nil {
		logg.Error(runCtx, "shutdown completed with errors", closeErr)
		exitCode = 1
	} else {
		logg.Info(runCtx, "shutdown complete")
	}

	stop()
	os.Exit(exitCode)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
