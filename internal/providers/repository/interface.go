package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Provider identifiers. "all" is only valid on alert configs and matches
// every provider when computing a window.
const (
	ProviderEvolution = "evolution"
	ProviderZAPI      = "zapi"
	ProviderAll       = "all"
)

// Call results recorded in the provider log.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Log is one provider API interaction, inbound or outbound.
type Log struct {
	ID          uuid.UUID      `json:"id"`
	WorkspaceID uuid.UUID      `json:"workspace_id"`
	Provider    string         `json:"provider"`
	Action      string         `json:"action"`
	Result      string         `json:"result"`
	Payload     map[string]any `json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewLog captures a log row about to be appended.
type NewLog struct {
	WorkspaceID uuid.UUID
	Provider    string
	Action      string
	Result      string
	Payload     map[string]any
}

// WindowStats aggregates a provider's calls over a monitoring window.
type WindowStats struct {
	Total  int
	Errors int
}

// AlertConfig is one workspace's alerting rule for a provider.
type AlertConfig struct {
	ID                    uuid.UUID `json:"id"`
	WorkspaceID           uuid.UUID `json:"workspace_id"`
	Provider              string    `json:"provider"`
	ErrorThresholdPercent float64   `json:"error_threshold_percent"`
	TimeWindowMinutes     int       `json:"time_window_minutes"`
	NotifyToast           bool      `json:"notify_toast"`
	NotifyEmail           bool      `json:"notify_email"`
	EmailRecipient        string    `json:"email_recipient"`
	IsActive              bool      `json:"is_active"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// AlertConfigInput carries the mutable alert config fields.
type AlertConfigInput struct {
	Provider              string
	ErrorThresholdPercent float64
	TimeWindowMinutes     int
	NotifyToast           bool
	NotifyEmail           bool
	EmailRecipient        string
	IsActive              bool
}

// Alert is one triggered threshold crossing.
type Alert struct {
	ID               uuid.UUID `json:"id"`
	WorkspaceID      uuid.UUID `json:"workspace_id"`
	Provider         string    `json:"provider"`
	ErrorRate        float64   `json:"error_rate"`
	ThresholdPercent float64   `json:"threshold_percent"`
	TotalCount       int       `json:"total_count"`
	ErrorCount       int       `json:"error_count"`
	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
	NotifiedVia      []string  `json:"notified_via"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewAlert captures an alert about to be recorded.
type NewAlert struct {
	WorkspaceID      uuid.UUID
	Provider         string
	ErrorRate        float64
	ThresholdPercent float64
	TotalCount       int
	ErrorCount       int
	WindowStart      time.Time
	WindowEnd        time.Time
	NotifiedVia      []string
}

// LogFilter narrows the provider log listing.
type LogFilter struct {
	WorkspaceID uuid.UUID
	Provider    string // "" means any
	Result      string // "" means any
	Limit       int
	Offset      int
}

// Repository is the persistence boundary for provider health data.
type Repository interface {
	InsertLog(ctx context.Context, log NewLog) error
	ListLogs(ctx context.Context, filter LogFilter) ([]Log, error)
	// WindowStatsSince counts calls since the window start. Provider "all"
	// matches every provider.
	WindowStatsSince(ctx context.Context, workspaceID uuid.UUID, provider string, since time.Time) (WindowStats, error)
	ClearLogs(ctx context.Context, workspaceID uuid.UUID) (int64, error)

	UpsertAlertConfig(ctx context.Context, workspaceID uuid.UUID, input AlertConfigInput) (AlertConfig, error)
	ListAlertConfigs(ctx context.Context, workspaceID uuid.UUID) ([]AlertConfig, error)
	// ListActiveAlertConfigs scans every workspace, used by the monitor.
	ListActiveAlertConfigs(ctx context.Context) ([]AlertConfig, error)
	DeleteAlertConfig(ctx context.Context, workspaceID, id uuid.UUID) error

	InsertAlert(ctx context.Context, alert NewAlert) (Alert, error)
	ListAlerts(ctx context.Context, workspaceID uuid.UUID, limit int) ([]Alert, error)
	// AlertExistsSince reports whether a config already fired in the window.
	// Cool-down fallback when Redis is unavailable.
	AlertExistsSince(ctx context.Context, workspaceID uuid.UUID, provider string, since time.Time) (bool, error)
}
