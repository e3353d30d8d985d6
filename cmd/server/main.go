package main

import (
	"context"
	"errors"
	"field-route-service/internal/adapters/cache"
	"field-route-service/internal/adapters/distance"
	"field-route-service/internal/adapters/queue"
	"field-route-service/internal/adapters/repositories"
	"field-route-service/internal/api"
	"field-route-service/internal/config"
	"field-route-service/internal/platform/db"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"field-route-service/internal/services"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, ORS, Redis) behind ports and starts the HTTP server and job workers.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := obs.NewLogger(cfg.LogLevel, cfg.LogFormat, "field-route-service")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(cfg); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := repositories.InitSchema(ctx, database); err != nil {
		return err
	}

	provider, err := newProvider(cfg, database)
	if err != nil {
		return err
	}

	jobQueue, closeQueue, err := newQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeQueue()

	garages := repositories.NewPostgresGarageRepository(database)
	tickets := repositories.NewPostgresTicketRepository(database)
	estimates := repositories.NewPostgresWorkEstimateRepository(database)
	jobRepo := repositories.NewPostgresJobRepository(database)

	defaults := services.PlanDefaults{
		StartTime:      cfg.DefaultStartTime,
		MaxPerRoute:    cfg.DefaultMaxPerRoute,
		ServiceMinutes: cfg.DefaultServiceMinutes,
		FallbackTravel: cfg.FallbackTravelMinutes,
		Location:       cfg.Location(),
	}

	optimizer := services.NewOptimizer(garages, tickets, estimates, provider, defaults, cfg.ProviderConcurrency)
	jobs := services.NewJobManager(jobRepo, jobQueue, optimizer, services.JobManagerConfig{
		Workers:       cfg.JobWorkers,
		JobTimeout:    cfg.JobTimeout,
		Lease:         cfg.JobLease,
		SweepInterval: cfg.SweepInterval,
		PendingGrace:  cfg.PendingGrace,
		PopWait:       cfg.QueuePopWait,
	})

	router := api.NewRouter(api.Deps{
		Optimizer:   optimizer,
		Jobs:        jobs,
		Calculator:  services.NewCalculator(garages, tickets, estimates, provider, defaults),
		Estimates:   services.NewWorkEstimates(tickets, estimates),
		SyncTimeout: cfg.SyncTimeout,
		JWTSecret:   cfg.AuthJWTSecret,
	})
	if cfg.AuthJWTSecret == "" {
		zap.L().Warn("AUTH_JWT_SECRET is empty; authorization is disabled")
	}

	workersDone := make(chan error, 1)
	go func() { workersDone <- jobs.Run(ctx) }()

	// Timeouts are tuned for cold-cache route planning (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.SyncTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zap.L().Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down", zap.Duration("grace", cfg.ShutdownPeriod))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("http shutdown incomplete", zap.Error(err))
	}

	select {
	case err := <-workersDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			zap.L().Warn("job workers stopped with error", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		zap.L().Warn("job workers did not stop before the grace period ended")
	}

	return nil
}

// newProvider picks ORS when a key is configured and the straight-line estimate otherwise.
// Either way all callers share one in-flight bound.
func newProvider(cfg *config.Config, database *sqlx.DB) (ports.TravelTimeProvider, error) {
	if cfg.ORSAPIKey == "" {
		zap.L().Warn("ORS_API_KEY is empty; using straight-line travel estimates")
		return distance.NewBoundedProvider(distance.NewStraightLineProvider(0), cfg.ProviderConcurrency), nil
	}

	ors, err := distance.NewORSProvider(cfg.ORSAPIKey, cache.NewSQLTravelCache(database), distance.ORSOptions{
		BaseURL:     cfg.ORSBaseURL,
		Profile:     cfg.ORSProfile,
		RatePerSec:  cfg.ProviderRatePerSec,
		MaxAttempts: cfg.ProviderMaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return distance.NewBoundedProvider(ors, cfg.ProviderConcurrency), nil
}

// newQueue connects to Redis when REDIS_ADDR is set; otherwise jobs stay in process.
func newQueue(ctx context.Context, cfg *config.Config) (ports.JobQueue, func(), error) {
	if cfg.RedisAddr == "" {
		zap.L().Info("REDIS_ADDR is empty; using in-process job queue")
		return queue.NewChannelQueue(1024), func() {}, nil
	}

	client, err := queue.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return queue.NewRedisQueue(client, queue.DefaultKey), func() { _ = client.Close() }, nil
}
