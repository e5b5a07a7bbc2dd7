// The orchestrator binary runs the continuous side of the pipeline: the tick
// loop that dispatches due job windows, the asynq worker that executes them,
// and the background reply ingestion sync.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cam_backend/internal/bootstrap"
	"cam_backend/internal/campaigns"
	leadrepo "cam_backend/internal/leads/repository"
	"cam_backend/internal/ledger"
	"cam_backend/internal/orchestrator"
	"cam_backend/internal/pipeline"
	"cam_backend/internal/review"
	"cam_backend/internal/sources"
	"cam_backend/platform/config"
	"cam_backend/platform/db"
	"cam_backend/platform/events"
	"cam_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting orchestrator", "env", cfg.Env, "tick", cfg.GetTickInterval().String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	campaignRepo := campaigns.New(pool)
	leadStore := leadrepo.New(pool)
	ledgerStore := ledger.NewPostgres(pool)
	reviewTasks := review.NewRepository(pool)

	limiter := bootstrap.Limiter(cfg, log)
	sequences := bootstrap.Sequences(cfg, log)
	renderer, err := pipeline.NewTemplateRenderer(pipeline.DefaultTemplateLibrary())
	if err != nil {
		log.Error("failed to parse message templates", "error", err)
		panic("failed to parse message templates: " + err.Error())
	}

	reviewService := review.NewService(leadStore, reviewTasks, eventBus, log)

	processors := bootstrap.Processors(cfg, log, bootstrap.ProcessorDeps{
		Leads:     leadStore,
		Sources:   bootstrap.LeadSources(ctx, cfg, log, sources.NewManualSource()),
		Limiter:   limiter,
		Sequences: sequences,
		Renderer:  renderer,
		Reviews:   reviewService,
		Bus:       eventBus,
	})

	engine := orchestrator.NewEngine(ledgerStore, leadStore, campaignRepo, processors, eventBus, log, cfg.GetMaxLeadsPerRun())

	dispatcher, err := orchestrator.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize job dispatcher", "error", err)
		panic("failed to initialize job dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()

	worker, err := orchestrator.NewWorker(cfg, engine, log)
	if err != nil {
		log.Error("failed to initialize job worker", "error", err)
		panic("failed to initialize job worker: " + err.Error())
	}

	if ingestor := bootstrap.Ingestor(ctx, cfg, log, leadStore, eventBus); ingestor != nil {
		go ingestor.Run(ctx, 0)
	}

	loop := orchestrator.New(cfg, campaignRepo, dispatcher, ledgerStore, orchestrator.DefaultSchedules(), log)
	go loop.Run(ctx)

	worker.Run(ctx)
	log.Info("orchestrator stopped")
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
