// Package main is the entrypoint for the Pulse ingestion API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nextchamp-saqib/pulse/internal/cache"
	"github.com/nextchamp-saqib/pulse/internal/config"
	"github.com/nextchamp-saqib/pulse/internal/deadletter"
	"github.com/nextchamp-saqib/pulse/internal/handler"
	"github.com/nextchamp-saqib/pulse/internal/hotstore"
	"github.com/nextchamp-saqib/pulse/internal/ingest"
	"github.com/nextchamp-saqib/pulse/internal/introspection"
	"github.com/nextchamp-saqib/pulse/internal/metrics"
	"github.com/nextchamp-saqib/pulse/internal/middleware"
	"github.com/nextchamp-saqib/pulse/internal/model"
	"github.com/nextchamp-saqib/pulse/internal/processor"
	"github.com/nextchamp-saqib/pulse/internal/repository"
	"github.com/nextchamp-saqib/pulse/internal/scheduler"
	"github.com/nextchamp-saqib/pulse/internal/server"
	"github.com/nextchamp-saqib/pulse/internal/streamlog"
	"github.com/nextchamp-saqib/pulse/internal/warehouse"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	settings, err := repo.GetSettings(ctx)
	if err != nil {
		logger.Error("failed to load settings", "error", sanitizeError(err))
		os.Exit(1)
	}
	tenants := settings.Tenants
	if len(tenants) == 0 {
		tenants = []string{"default"}
	}

	hotStore, err := hotstore.Open(cfg.HotStorePath, logger)
	if err != nil {
		logger.Error("failed to open hot event store", "error", err)
		os.Exit(1)
	}
	defer hotStore.Close()

	warehouseTarget, err := warehouse.OpenTarget(cfg.WarehousePath, logger)
	if err != nil {
		logger.Error("failed to open warehouse target", "error", err)
		os.Exit(1)
	}
	defer warehouseTarget.Close()

	metricsRecorder := metrics.NewPrometheus()

	maxStreamLength := settings.MaxStreamLength
	if maxStreamLength <= 0 {
		maxStreamLength = cfg.StreamMaxLength
	}

	publisher := ingest.NewPublisher(cacheClient.Client(), cfg.DefaultStreamName, cfg.ConsumerGroup, cfg.WorkerID(), maxStreamLength, logger)
	processors := buildProcessors(cacheClient, cfg, tenants, hotStore, maxStreamLength, logger)
	syncer := warehouse.NewSyncer(warehouseTarget, repo, os.TempDir(), logger)

	sched := scheduler.New(logger)
	sched.Every("process", cfg.ProcessInterval, func(ctx context.Context) {
		runProcessTick(ctx, processors, metricsRecorder, logger)
	})
	sched.Every("warehouse_sync", cfg.SyncInterval, func(ctx context.Context) {
		runSyncTick(ctx, repo, syncer, hotStore, metricsRecorder, logger)
	})
	sched.Start()

	statsLog := streamlog.New(cacheClient.Client(), tenants[0], cfg.DefaultStreamName, cfg.ConsumerGroup, cfg.WorkerID(), maxStreamLength, logger)
	stats := introspection.New(statsLog, hotStore)

	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	ingestHandler := handler.NewIngestHandler(publisher, logger)
	introspectionHandler := handler.NewIntrospectionHandler(stats, cfg.LogFilePath)

	r := setupRouter(h, healthHandler, ingestHandler, introspectionHandler, repo, cacheClient, settings, cfg, logger)

	srv := server.New(r, cfg.AppPort, cfg.ReadTimeout, cfg.WriteTimeout, cfg.ShutdownTimeout, logger)
	srv.OnShutdown("scheduler", func(ctx context.Context) error {
		sched.Stop(ctx)
		return nil
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"tenants", tenants,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// buildProcessors constructs one Processor per tenant, each draining its
// own tenant-scoped stream into the shared hot store. The dead-letter sink
// is likewise tenant-scoped, on the stream key "<tenant>:<stream>:dlq".
// maxStreamLength comes from the operator-editable Settings row rather than
// the env-only Config so an operator's max_stream_length update takes effect
// without a redeploy.
func buildProcessors(cacheClient *cache.Cache, cfg *config.Config, tenants []string, hotStore *hotstore.Store, maxStreamLength int64, logger *slog.Logger) map[string]*processor.Processor {
	result := make(map[string]*processor.Processor, len(tenants))
	for _, tenant := range tenants {
		log := streamlog.New(cacheClient.Client(), tenant, cfg.DefaultStreamName, cfg.ConsumerGroup, cfg.WorkerID(), maxStreamLength, logger)
		dlqLog := streamlog.New(cacheClient.Client(), tenant, cfg.DefaultStreamName+":dlq", cfg.ConsumerGroup+"_dlq", cfg.WorkerID(), maxStreamLength, logger)
		dlq := deadletter.NewStreamSink(dlqLog, logger)
		result[tenant] = processor.New(log, hotStore, dlq, maxStreamLength/2, cfg.PendingMinIdle, logger)
	}
	return result
}

// runProcessTick drains every tenant's processor once.
func runProcessTick(ctx context.Context, processors map[string]*processor.Processor, recorder metrics.Recorder, logger *slog.Logger) {
	for tenant, p := range processors {
		start := time.Now()
		result := p.Process(ctx)
		recorder.ObserveProcessDuration(time.Since(start))
		recorder.ObserveProcessBatchSize(result.Processed + result.Discarded + result.Failed)
		for i := 0; i < result.Processed; i++ {
			recorder.IncProcessedEvent("accepted")
		}
		for i := 0; i < result.Discarded; i++ {
			recorder.IncProcessedEvent("discarded")
		}
		for i := 0; i < result.Failed; i++ {
			recorder.IncProcessedEvent("failed")
		}
		if result.Processed+result.Discarded+result.Failed > 0 {
			logger.Debug("processed tenant tick", "tenant", tenant, "result", result)
		}
	}
}

// runSyncTick drains every enabled warehouse sync config once.
func runSyncTick(ctx context.Context, repo *repository.Repository, syncer *warehouse.Syncer, hotStore *hotstore.Store, recorder metrics.Recorder, logger *slog.Logger) {
	configs, err := repo.ListEnabledSyncConfigs(ctx)
	if err != nil {
		logger.Error("failed to list warehouse sync configs", "error", err)
		return
	}
	for i := range configs {
		cfg := configs[i]
		source := warehouse.NewRowStoreSource(hotStore)
		start := time.Now()
		run, err := syncer.Run(ctx, &cfg, source)
		recorder.ObserveSyncDuration(time.Since(start))
		if err != nil {
			logger.Error("warehouse sync run failed", "config_id", cfg.ID, "error", err)
			continue
		}
		recorder.IncSyncRun(string(run.Status))
		recorder.ObserveSyncBatchRows(run.TotalInserted)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	ingestHandler *handler.IngestHandler,
	introspectionHandler *handler.IntrospectionHandler,
	repo *repository.Repository,
	cacheClient *cache.Cache,
	settings *model.Settings,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      cfg.IsDevelopment(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/", h.Hello)

	authCfg := middleware.AuthConfig{
		Logger:     logger,
		Repository: repo,
		Cache:      cacheClient,
	}
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  logger,
		Cache:   cacheClient,
		PerHour: settings.RateLimit,
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitIngest(rateLimitCfg))

		r.Post("/ingest", ingestHandler.Ingest)
		r.Post("/bulk_ingest", ingestHandler.BulkIngest)

		r.Get("/stats", introspectionHandler.Stats)
		r.Get("/logs", introspectionHandler.Logs)
		r.Get("/consumers", introspectionHandler.Consumers)
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
