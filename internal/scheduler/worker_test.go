package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"zapdesk_backend/internal/providers/service"
	"zapdesk_backend/platform/logger"
)

type fakeMonitor struct {
	runs   int
	result service.RunResult
	err    error
}

func (f *fakeMonitor) Run(ctx context.Context) (service.RunResult, error) {
	f.runs++
	return f.result, f.err
}

func TestHandleProviderMonitorRunSweepsOnce(t *testing.T) {
	monitor := &fakeMonitor{result: service.RunResult{ConfigsChecked: 3, AlertsTriggered: 1}}
	w := &Worker{monitor: monitor, log: logger.New("test")}

	task, err := NewProviderMonitorRunTask(ProviderMonitorRunPayload{RequestedAt: time.Now()})
	if err != nil {
		t.Fatalf("NewProviderMonitorRunTask: %v", err)
	}

	if err := w.handleProviderMonitorRun(context.Background(), task); err != nil {
		t.Fatalf("handleProviderMonitorRun: %v", err)
	}
	if monitor.runs != 1 {
		t.Fatalf("monitor runs = %d, want 1", monitor.runs)
	}
}

func TestHandleProviderMonitorRunPropagatesSweepErrors(t *testing.T) {
	monitor := &fakeMonitor{err: errors.New("db down")}
	w := &Worker{monitor: monitor, log: logger.New("test")}

	task, err := NewProviderMonitorRunTask(ProviderMonitorRunPayload{RequestedAt: time.Now()})
	if err != nil {
		t.Fatalf("NewProviderMonitorRunTask: %v", err)
	}

	if err := w.handleProviderMonitorRun(context.Background(), task); err == nil {
		t.Fatal("expected the sweep error to bubble up for asynq retry")
	}
}
