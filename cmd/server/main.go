package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Past-Tang/x/internal/api"
	"github.com/Past-Tang/x/internal/config"
	"github.com/Past-Tang/x/internal/database"
	"github.com/Past-Tang/x/internal/logging"
	"github.com/Past-Tang/x/internal/metrics"
	"github.com/Past-Tang/x/internal/pipeline"
	"github.com/Past-Tang/x/internal/pool"
	"github.com/Past-Tang/x/internal/scheduler"
	"github.com/Past-Tang/x/internal/selection"
	"github.com/Past-Tang/x/internal/server"
	"github.com/Past-Tang/x/internal/settings"
	"github.com/Past-Tang/x/internal/social"
	"github.com/Past-Tang/x/internal/vault"
	"log/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting autoreach")

	ctx := context.Background()

	logger.Info("connecting to database")
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.Database.URL
	db, err := database.Connect(ctx, dbCfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	// Run pending migrations (non-fatal to allow app to start even if migrations fail)
	if err := database.RunMigrations(db, "./migrations", logger); err != nil {
		logger.Warn("failed to run migrations, continuing anyway", "error", err)
	}

	// Create repositories
	accountRepo := database.NewPostgresAccountRepository(db)
	targetRepo := database.NewPostgresTargetRepository(db)
	templateRepo := database.NewPostgresTemplateRepository(db)
	contentRepo := database.NewPostgresContentRepository(db)
	jobRepo := database.NewPostgresJobRepository(db)
	replyLedger := database.NewPostgresReplyLedger(db)
	logRepo := database.NewPostgresExecutionLogRepository(db)
	settingRepo := database.NewPostgresSettingRepository(db)

	// Account tokens are sealed at rest; without the key nothing can act
	tokens, err := vault.New(cfg.Vault.EncryptionKey)
	if err != nil {
		logger.Error("failed to init token vault, set TOKEN_ENCRYPTION_KEY", "error", err)
		os.Exit(1)
	}

	// Seed missing setting rows, then resolve the runtime snapshot once
	if err := settings.Seed(ctx, settingRepo, cfg); err != nil {
		logger.Warn("failed to seed settings, continuing anyway", "error", err)
	}
	runtime, err := settings.Resolve(ctx, settingRepo, cfg, logger)
	if err != nil {
		logger.Error("failed to resolve settings", "error", err)
		os.Exit(1)
	}
	logger.Info("settings resolved",
		"hourly_limit", runtime.AccountHourlyLimit,
		"failure_threshold", runtime.AccountFailureThreshold,
		"account_strategy", runtime.AccountStrategy,
	)

	collector, err := metrics.NewHTTPCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}
	pipelineCollector, err := metrics.NewPipelineCollector(collector)
	if err != nil {
		logger.Error("failed to init pipeline metrics", "error", err)
		os.Exit(1)
	}

	accountPool := pool.New(accountRepo, runtime.AccountHourlyLimit, runtime.AccountFailureThreshold, pipelineCollector, logging.Component(logger, "pool"))
	engine := selection.NewEngine(selection.NewCursorStore())
	client := social.NewGatewayClient(
		runtime.GatewayBaseURL,
		runtime.GatewayAPIKey,
		runtime.MinRandomDelaySeconds,
		runtime.MaxRandomDelaySeconds,
		logging.Component(logger, "gateway"),
	)

	monitor := pipeline.NewMonitor(targetRepo, templateRepo, replyLedger, logRepo, accountPool, engine, client, tokens, runtime, pipelineCollector, logging.Component(logger, "monitor"))
	post := pipeline.NewPost(jobRepo, contentRepo, logRepo, accountPool, engine, client, tokens, runtime, pipelineCollector, logging.Component(logger, "post"))

	// Start the tick drivers
	schedCtx, cancelSchedulers := context.WithCancel(ctx)
	defer cancelSchedulers()

	var monitorScheduler *scheduler.MonitorScheduler
	var postScheduler *scheduler.PostScheduler
	if cfg.Scheduler.Enabled {
		monitorScheduler = scheduler.NewMonitorScheduler(targetRepo, monitor, cfg.Scheduler.CheckInterval, logging.Component(logger, "monitor_scheduler"))
		postScheduler = scheduler.NewPostScheduler(jobRepo, post, cfg.Scheduler.CheckInterval, logging.Component(logger, "post_scheduler"))
		go monitorScheduler.Start(schedCtx)
		go postScheduler.Start(schedCtx)
	} else {
		logger.Info("schedulers disabled, pipelines run on manual triggers only")
	}

	// Setup HTTP routes
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.HealthCheck(r.Context(), db); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Service info endpoint
	mux.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"autoreach","status":"ready","version":"0.1.0"}`))
	})

	mux.Handle("/metrics", collector.Handler())

	logger.Info("setting up REST API")
	api.SetupRoutes(mux, api.Deps{
		Accounts:  accountRepo,
		Targets:   targetRepo,
		Templates: templateRepo,
		Contents:  contentRepo,
		Jobs:      jobRepo,
		Logs:      logRepo,
		Settings:  settingRepo,
		Pool:      accountPool,
		Vault:     tokens,
		Monitor:   monitor,
		Post:      post,
		Logger:    logging.Component(logger, "api"),
	})

	// Serve the admin UI for everything the API does not claim
	handler := server.SPAMiddleware(collector.InstrumentHandler(mux), "./web/dist", "./web/dist/index.html")

	srv := server.New(cfg.Server, logger, handler)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received signal", "signal", sig.String())
	case err := <-errChan:
		if err != nil {
			logger.Error("server error", "error", err)
		}
	}

	cancelSchedulers()
	if monitorScheduler != nil {
		monitorScheduler.Stop()
	}
	if postScheduler != nil {
		postScheduler.Stop()
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("stopped")
}
