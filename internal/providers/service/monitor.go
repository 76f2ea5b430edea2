package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"zapdesk_backend/internal/events"
	"zapdesk_backend/internal/providers/repository"
	"zapdesk_backend/platform/logger"
)

// monitorConcurrency bounds how many alert configs are evaluated at once.
const monitorConcurrency = 4

// Notification channels recorded on an alert.
const (
	ChannelToast = "toast"
	ChannelEmail = "email"
)

// Cooldown gates repeat alerts for the same config. Acquire returns true
// when the caller may fire an alert now.
type Cooldown interface {
	Acquire(ctx context.Context, configID uuid.UUID, window time.Duration) (bool, error)
}

// AlertMailer delivers the email channel of an alert.
type AlertMailer interface {
	SendProviderAlert(ctx context.Context, recipient string, alert repository.Alert) error
}

// Monitor evaluates every active alert config against the provider log and
// fires alerts when the error rate crosses the configured threshold.
type Monitor struct {
	repo     repository.Repository
	cooldown Cooldown
	mailer   AlertMailer
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// NewMonitor creates the provider health monitor. mailer may be nil when
// email is disabled.
func NewMonitor(repo repository.Repository, cooldown Cooldown, mailer AlertMailer, bus events.Bus, log *logger.Logger) *Monitor {
	return &Monitor{
		repo:     repo,
		cooldown: cooldown,
		mailer:   mailer,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// RunResult summarizes one monitor sweep.
type RunResult struct {
	ConfigsChecked  int                `json:"configs_checked"`
	AlertsTriggered int                `json:"alerts_triggered"`
	Alerts          []repository.Alert `json:"alerts"`
}

// Run sweeps every active config once. A failure on one config is logged
// and does not stop the sweep; only listing the configs can fail the run.
func (m *Monitor) Run(ctx context.Context) (RunResult, error) {
	configs, err := m.repo.ListActiveAlertConfigs(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("list alert configs: %w", err)
	}

	var (
		mu     sync.Mutex
		alerts []repository.Alert
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(monitorConcurrency)
	for _, cfg := range configs {
		g.Go(func() error {
			alert, fired, err := m.evaluate(gctx, cfg)
			if err != nil {
				m.log.Error("provider monitor config failed",
					"config_id", cfg.ID, "workspace_id", cfg.WorkspaceID, "provider", cfg.Provider, "error", err)
				return nil
			}
			if fired {
				mu.Lock()
				alerts = append(alerts, alert)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return RunResult{
		ConfigsChecked:  len(configs),
		AlertsTriggered: len(alerts),
		Alerts:          alerts,
	}, nil
}

func (m *Monitor) evaluate(ctx context.Context, cfg repository.AlertConfig) (repository.Alert, bool, error) {
	windowEnd := m.now()
	window := time.Duration(cfg.TimeWindowMinutes) * time.Minute
	windowStart := windowEnd.Add(-window)

	stats, err := m.repo.WindowStatsSince(ctx, cfg.WorkspaceID, cfg.Provider, windowStart)
	if err != nil {
		return repository.Alert{}, false, err
	}
	// An idle window carries no signal, not a zero error rate.
	if stats.Total == 0 {
		return repository.Alert{}, false, nil
	}

	errorRate := 100 * float64(stats.Errors) / float64(stats.Total)
	// Inclusive comparison: a rate exactly at the threshold fires.
	if errorRate < cfg.ErrorThresholdPercent {
		return repository.Alert{}, false, nil
	}

	ok, err := m.acquireCooldown(ctx, cfg, windowStart, window)
	if err != nil {
		return repository.Alert{}, false, err
	}
	if !ok {
		return repository.Alert{}, false, nil
	}

	notifiedVia := []string{}
	if cfg.NotifyToast {
		notifiedVia = append(notifiedVia, ChannelToast)
	}
	emailEnabled := cfg.NotifyEmail && cfg.EmailRecipient != "" && m.mailer != nil
	if emailEnabled {
		notifiedVia = append(notifiedVia, ChannelEmail)
	}

	alert, err := m.repo.InsertAlert(ctx, repository.NewAlert{
		WorkspaceID:      cfg.WorkspaceID,
		Provider:         cfg.Provider,
		ErrorRate:        errorRate,
		ThresholdPercent: cfg.ErrorThresholdPercent,
		TotalCount:       stats.Total,
		ErrorCount:       stats.Errors,
		WindowStart:      windowStart,
		WindowEnd:        windowEnd,
		NotifiedVia:      notifiedVia,
	})
	if err != nil {
		return repository.Alert{}, false, err
	}

	m.log.Warn("provider alert raised",
		"workspace_id", cfg.WorkspaceID, "provider", cfg.Provider,
		"error_rate", errorRate, "threshold", cfg.ErrorThresholdPercent,
		"total", stats.Total, "errors", stats.Errors)

	m.bus.Publish(ctx, events.ProviderAlertRaised{
		BaseEvent:        events.NewBaseEvent(),
		WorkspaceID:      cfg.WorkspaceID,
		AlertID:          alert.ID,
		Provider:         cfg.Provider,
		ErrorRate:        errorRate,
		ThresholdPercent: cfg.ErrorThresholdPercent,
		NotifiedVia:      notifiedVia,
		EmailRecipient:   cfg.EmailRecipient,
	})

	if emailEnabled {
		if err := m.mailer.SendProviderAlert(ctx, cfg.EmailRecipient, alert); err != nil {
			// The alert is already recorded; a failed email is not fatal.
			m.log.Error("provider alert email failed", "alert_id", alert.ID, "error", err)
		}
	}

	return alert, true, nil
}

// acquireCooldown enforces at most one alert per config per window. When
// Redis is unavailable it falls back to checking the alert table.
func (m *Monitor) acquireCooldown(ctx context.Context, cfg repository.AlertConfig, windowStart time.Time, window time.Duration) (bool, error) {
	ok, err := m.cooldown.Acquire(ctx, cfg.ID, window)
	if err == nil {
		return ok, nil
	}
	m.log.Warn("alert cooldown store unavailable, falling back to database", "error", err)

	exists, dbErr := m.repo.AlertExistsSince(ctx, cfg.WorkspaceID, cfg.Provider, windowStart)
	if dbErr != nil {
		return false, dbErr
	}
	return !exists, nil
}

// RedisCooldown implements Cooldown with SET NX EX so the first monitor
// instance to fire within a window wins across processes.
type RedisCooldown struct {
	client *redis.Client
}

// NewRedisCooldown creates the Redis-backed cooldown gate.
func NewRedisCooldown(client *redis.Client) *RedisCooldown {
	return &RedisCooldown{client: client}
}

// Acquire sets the cooldown key if absent.
func (c *RedisCooldown) Acquire(ctx context.Context, configID uuid.UUID, window time.Duration) (bool, error) {
	key := fmt.Sprintf("provideralerts:cooldown:%s", configID)
	return c.client.SetNX(ctx, key, 1, window).Result()
}

var _ Cooldown = (*RedisCooldown)(nil)
