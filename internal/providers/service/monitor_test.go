package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"zapdesk_backend/internal/providers/repository"
	"zapdesk_backend/platform/events"
	"zapdesk_backend/platform/logger"
)

type fakeHealthRepo struct {
	mu      sync.Mutex
	configs []repository.AlertConfig
	stats   map[uuid.UUID]map[string]repository.WindowStats
	statErr map[uuid.UUID]error
	alerts  []repository.Alert
}

func newFakeHealthRepo() *fakeHealthRepo {
	return &fakeHealthRepo{
		stats:   make(map[uuid.UUID]map[string]repository.WindowStats),
		statErr: make(map[uuid.UUID]error),
	}
}

func (f *fakeHealthRepo) setStats(workspaceID uuid.UUID, provider string, total, errs int) {
	if f.stats[workspaceID] == nil {
		f.stats[workspaceID] = make(map[string]repository.WindowStats)
	}
	f.stats[workspaceID][provider] = repository.WindowStats{Total: total, Errors: errs}
}

func (f *fakeHealthRepo) InsertLog(context.Context, repository.NewLog) error { return nil }

func (f *fakeHealthRepo) ListLogs(context.Context, repository.LogFilter) ([]repository.Log, error) {
	return nil, nil
}

func (f *fakeHealthRepo) WindowStatsSince(_ context.Context, workspaceID uuid.UUID, provider string, _ time.Time) (repository.WindowStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.statErr[workspaceID]; err != nil {
		return repository.WindowStats{}, err
	}
	return f.stats[workspaceID][provider], nil
}

func (f *fakeHealthRepo) ClearLogs(context.Context, uuid.UUID) (int64, error) { return 0, nil }

func (f *fakeHealthRepo) UpsertAlertConfig(_ context.Context, workspaceID uuid.UUID, input repository.AlertConfigInput) (repository.AlertConfig, error) {
	return repository.AlertConfig{}, nil
}

func (f *fakeHealthRepo) ListAlertConfigs(context.Context, uuid.UUID) ([]repository.AlertConfig, error) {
	return nil, nil
}

func (f *fakeHealthRepo) ListActiveAlertConfigs(context.Context) ([]repository.AlertConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configs, nil
}

func (f *fakeHealthRepo) DeleteAlertConfig(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (f *fakeHealthRepo) InsertAlert(_ context.Context, alert repository.NewAlert) (repository.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := repository.Alert{
		ID:               uuid.New(),
		WorkspaceID:      alert.WorkspaceID,
		Provider:         alert.Provider,
		ErrorRate:        alert.ErrorRate,
		ThresholdPercent: alert.ThresholdPercent,
		TotalCount:       alert.TotalCount,
		ErrorCount:       alert.ErrorCount,
		WindowStart:      alert.WindowStart,
		WindowEnd:        alert.WindowEnd,
		NotifiedVia:      alert.NotifiedVia,
		CreatedAt:        time.Now(),
	}
	f.alerts = append(f.alerts, a)
	return a, nil
}

func (f *fakeHealthRepo) ListAlerts(context.Context, uuid.UUID, int) ([]repository.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alerts, nil
}

func (f *fakeHealthRepo) AlertExistsSince(_ context.Context, workspaceID uuid.UUID, provider string, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.alerts {
		if a.WorkspaceID == workspaceID && a.Provider == provider && !a.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

var _ repository.Repository = (*fakeHealthRepo)(nil)

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	fail error
}

func (f *fakeMailer) SendProviderAlert(_ context.Context, recipient string, _ repository.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, recipient)
	return nil
}

type allowAllCooldown struct{}

func (allowAllCooldown) Acquire(context.Context, uuid.UUID, time.Duration) (bool, error) {
	return true, nil
}

type failingCooldown struct{}

func (failingCooldown) Acquire(context.Context, uuid.UUID, time.Duration) (bool, error) {
	return false, errors.New("redis unavailable")
}

func alertConfig(workspaceID uuid.UUID, provider string, threshold float64) repository.AlertConfig {
	return repository.AlertConfig{
		ID:                    uuid.New(),
		WorkspaceID:           workspaceID,
		Provider:              provider,
		ErrorThresholdPercent: threshold,
		TimeWindowMinutes:     15,
		NotifyToast:           true,
		IsActive:              true,
	}
}

func newMonitor(repo repository.Repository, cooldown Cooldown, mailer AlertMailer) *Monitor {
	log := logger.New("test")
	return NewMonitor(repo, cooldown, mailer, events.NewInMemoryBus(log), log)
}

func TestMonitorFiresAtThresholdInclusive(t *testing.T) {
	repo := newFakeHealthRepo()
	workspaceID := uuid.New()
	// 20 calls, 4 errors: exactly 20 percent.
	repo.setStats(workspaceID, repository.ProviderEvolution, 20, 4)
	repo.configs = []repository.AlertConfig{alertConfig(workspaceID, repository.ProviderEvolution, 20)}

	res, err := newMonitor(repo, allowAllCooldown{}, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.AlertsTriggered != 1 {
		t.Fatalf("rate equal to threshold must fire, got %d alerts", res.AlertsTriggered)
	}
	if res.Alerts[0].ErrorRate != 20 {
		t.Fatalf("expected 20 percent error rate, got %v", res.Alerts[0].ErrorRate)
	}
}

func TestMonitorBelowThresholdDoesNotFire(t *testing.T) {
	repo := newFakeHealthRepo()
	workspaceID := uuid.New()
	repo.setStats(workspaceID, repository.ProviderEvolution, 20, 3)
	repo.configs = []repository.AlertConfig{alertConfig(workspaceID, repository.ProviderEvolution, 20)}

	res, err := newMonitor(repo, allowAllCooldown{}, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.AlertsTriggered != 0 {
		t.Fatalf("15 percent under a 20 percent threshold must not fire, got %d", res.AlertsTriggered)
	}
}

func TestMonitorSkipsEmptyWindow(t *testing.T) {
	repo := newFakeHealthRepo()
	workspaceID := uuid.New()
	repo.setStats(workspaceID, repository.ProviderEvolution, 0, 0)
	repo.configs = []repository.AlertConfig{alertConfig(workspaceID, repository.ProviderEvolution, 20)}

	res, err := newMonitor(repo, allowAllCooldown{}, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.AlertsTriggered != 0 {
		t.Fatalf("empty window must be skipped, got %d alerts", res.AlertsTriggered)
	}
}

func TestMonitorContinuesAfterConfigFailure(t *testing.T) {
	repo := newFakeHealthRepo()
	brokenWS := uuid.New()
	healthyWS := uuid.New()
	repo.statErr[brokenWS] = errors.New("query timeout")
	repo.setStats(healthyWS, repository.ProviderZAPI, 10, 10)
	repo.configs = []repository.AlertConfig{
		alertConfig(brokenWS, repository.ProviderEvolution, 20),
		alertConfig(healthyWS, repository.ProviderZAPI, 50),
	}

	res, err := newMonitor(repo, allowAllCooldown{}, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run must not fail on one broken config: %v", err)
	}
	if res.ConfigsChecked != 2 {
		t.Fatalf("expected 2 configs checked, got %d", res.ConfigsChecked)
	}
	if res.AlertsTriggered != 1 {
		t.Fatalf("healthy config must still fire, got %d", res.AlertsTriggered)
	}
}

func TestMonitorCooldownSuppressesRepeatAlert(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cooldown := NewRedisCooldown(client)

	repo := newFakeHealthRepo()
	workspaceID := uuid.New()
	repo.setStats(workspaceID, repository.ProviderEvolution, 10, 8)
	repo.configs = []repository.AlertConfig{alertConfig(workspaceID, repository.ProviderEvolution, 20)}

	monitor := newMonitor(repo, cooldown, nil)
	ctx := context.Background()

	first, err := monitor.Run(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.AlertsTriggered != 1 {
		t.Fatalf("first run should fire, got %d", first.AlertsTriggered)
	}

	second, err := monitor.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.AlertsTriggered != 0 {
		t.Fatalf("cooldown should suppress the repeat, got %d", second.AlertsTriggered)
	}

	// Once the window expires the same config may fire again.
	mr.FastForward(16 * time.Minute)
	third, err := monitor.Run(ctx)
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if third.AlertsTriggered != 1 {
		t.Fatalf("expired cooldown should allow a new alert, got %d", third.AlertsTriggered)
	}
}

func TestMonitorFallsBackToDatabaseWhenCooldownStoreDown(t *testing.T) {
	repo := newFakeHealthRepo()
	workspaceID := uuid.New()
	repo.setStats(workspaceID, repository.ProviderEvolution, 10, 9)
	repo.configs = []repository.AlertConfig{alertConfig(workspaceID, repository.ProviderEvolution, 20)}

	monitor := newMonitor(repo, failingCooldown{}, nil)
	ctx := context.Background()

	first, err := monitor.Run(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.AlertsTriggered != 1 {
		t.Fatalf("fallback path should still fire the first alert, got %d", first.AlertsTriggered)
	}

	second, err := monitor.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.AlertsTriggered != 0 {
		t.Fatalf("existing alert in window should suppress via DB fallback, got %d", second.AlertsTriggered)
	}
}

func TestMonitorEmailChannel(t *testing.T) {
	repo := newFakeHealthRepo()
	workspaceID := uuid.New()
	repo.setStats(workspaceID, repository.ProviderZAPI, 4, 4)
	cfg := alertConfig(workspaceID, repository.ProviderZAPI, 50)
	cfg.NotifyEmail = true
	cfg.EmailRecipient = "ops@example.com"
	repo.configs = []repository.AlertConfig{cfg}

	mailer := &fakeMailer{}
	res, err := newMonitor(repo, allowAllCooldown{}, mailer).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.AlertsTriggered != 1 {
		t.Fatalf("expected 1 alert, got %d", res.AlertsTriggered)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "ops@example.com" {
		t.Fatalf("email channel should deliver to the recipient, got %v", mailer.sent)
	}

	via := res.Alerts[0].NotifiedVia
	if len(via) != 2 || via[0] != ChannelToast || via[1] != ChannelEmail {
		t.Fatalf("expected toast and email channels, got %v", via)
	}
}

func TestMonitorEmailFailureKeepsAlert(t *testing.T) {
	repo := newFakeHealthRepo()
	workspaceID := uuid.New()
	repo.setStats(workspaceID, repository.ProviderZAPI, 4, 4)
	cfg := alertConfig(workspaceID, repository.ProviderZAPI, 50)
	cfg.NotifyEmail = true
	cfg.EmailRecipient = "ops@example.com"
	repo.configs = []repository.AlertConfig{cfg}

	mailer := &fakeMailer{fail: errors.New("smtp down")}
	res, err := newMonitor(repo, allowAllCooldown{}, mailer).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.AlertsTriggered != 1 {
		t.Fatalf("alert must survive a failed email, got %d", res.AlertsTriggered)
	}
}
