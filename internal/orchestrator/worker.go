package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"cam_backend/platform/config"
	"cam_backend/platform/logger"
)

// Worker consumes job run tasks and drives the engine. Returning an error
// lets asynq redeliver; the ledger makes the redelivery harmless.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	engine *Engine
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, engine *Engine, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		engine: engine,
		log:    log,
	}

	mux.HandleFunc(TaskJobRun, w.handleJobRun)

	return w, nil
}

func (w *Worker) handleJobRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseJobRunPayload(task)
	if err != nil {
		return err
	}

	campaignID, err := uuid.Parse(payload.CampaignID)
	if err != nil {
		return err
	}

	_, err = w.engine.RunJob(ctx, payload.JobType, campaignID, payload.ScheduledAt)
	return err
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("orchestrator worker stopped", "error", err)
	}
}
