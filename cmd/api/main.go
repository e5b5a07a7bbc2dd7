package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cam_backend/internal/auth"
	"cam_backend/internal/bootstrap"
	"cam_backend/internal/campaigns"
	apphttp "cam_backend/internal/http"
	"cam_backend/internal/http/router"
	"cam_backend/internal/leads"
	leadrepo "cam_backend/internal/leads/repository"
	"cam_backend/internal/ledger"
	"cam_backend/internal/orchestrator"
	"cam_backend/internal/pipeline"
	"cam_backend/internal/replies"
	"cam_backend/internal/review"
	"cam_backend/internal/sources"
	"cam_backend/platform/config"
	"cam_backend/platform/db"
	"cam_backend/platform/events"
	"cam_backend/platform/logger"
	"cam_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting api server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// ========================================================================
	// Persistence
	// ========================================================================

	campaignRepo := campaigns.New(pool)
	leadStore := leadrepo.New(pool)
	ledgerStore := ledger.NewPostgres(pool)
	reviewTasks := review.NewRepository(pool)

	// ========================================================================
	// Pipeline Wiring
	// ========================================================================

	manualSource := sources.NewManualSource()
	leadSources := bootstrap.LeadSources(ctx, cfg, log, manualSource)

	limiter := bootstrap.Limiter(cfg, log)
	sequences := bootstrap.Sequences(cfg, log)
	renderer, err := pipeline.NewTemplateRenderer(pipeline.DefaultTemplateLibrary())
	if err != nil {
		log.Error("failed to parse message templates", "error", err)
		panic("failed to parse message templates: " + err.Error())
	}

	reviewModule := review.NewModule(leadStore, reviewTasks, eventBus, val, log)

	processors := bootstrap.Processors(cfg, log, bootstrap.ProcessorDeps{
		Leads:     leadStore,
		Sources:   leadSources,
		Limiter:   limiter,
		Sequences: sequences,
		Renderer:  renderer,
		Reviews:   reviewModule.Service(),
		Bus:       eventBus,
	})

	engine := orchestrator.NewEngine(ledgerStore, leadStore, campaignRepo, processors, eventBus, log, cfg.GetMaxLeadsPerRun())

	activity := orchestrator.NewActivityLog()
	activity.Register(eventBus)
	dashboard := orchestrator.NewDashboard(leadStore, ledgerStore, reviewTasks, activity, orchestrator.DefaultSchedules())

	ingestor := bootstrap.Ingestor(ctx, cfg, log, leadStore, eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			auth.NewModule(cfg, val),
			campaigns.NewModule(campaignRepo, val),
			leads.NewModule(leadStore, manualSource, val),
			orchestrator.NewModule(engine, dashboard, nil),
			reviewModule,
			replies.NewModule(ingestor),
		},
	}

	ginEngine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- ginEngine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return lastErr
}
