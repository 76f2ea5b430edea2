package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"zapdesk_backend/internal/providers/service"
	"zapdesk_backend/platform/config"
	"zapdesk_backend/platform/logger"
)

// MonitorRunner sweeps the provider health configs once.
type MonitorRunner interface {
	Run(ctx context.Context) (service.RunResult, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	monitor MonitorRunner
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, monitor MonitorRunner, log *logger.Logger) (*Worker, error) {
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
		server:  server,
		mux:     mux,
		monitor: monitor,
		log:     log,
	}

	mux.HandleFunc(TaskProviderMonitorRun, w.handleProviderMonitorRun)

	return w, nil
}

func (w *Worker) handleProviderMonitorRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseProviderMonitorRunPayload(task)
	if err != nil {
		return err
	}

	result, err := w.monitor.Run(ctx)
	if err != nil {
		return err
	}

	w.log.Info("provider monitor sweep complete",
		"requested_at", payload.RequestedAt,
		"configs_checked", result.ConfigsChecked,
		"alerts_triggered", result.AlertsTriggered)
	return nil
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
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
