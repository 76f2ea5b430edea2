package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"zapdesk_backend/platform/apperr"
)

// windowStatsQuery treats 'all' as a wildcard so one query serves both
// per-provider and global configs.
const windowStatsQuery = `
	SELECT count(*), count(*) FILTER (WHERE result = 'error')
	FROM whatsapp_provider_logs
	WHERE workspace_id = $1
		AND ($2 = 'all' OR provider = $2)
		AND created_at >= $3`

const alertConfigColumns = `
	id, workspace_id, provider, error_threshold_percent, time_window_minutes,
	notify_toast, notify_email, email_recipient, is_active, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new provider health repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// InsertLog appends one provider interaction row.
func (r *Repo) InsertLog(ctx context.Context, log NewLog) error {
	payload := log.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO whatsapp_provider_logs (workspace_id, provider, action, result, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		log.WorkspaceID, log.Provider, log.Action, log.Result, payload,
	)
	if err != nil {
		return fmt.Errorf("insert provider log: %w", err)
	}
	return nil
}

// ListLogs retrieves provider logs, newest first.
func (r *Repo) ListLogs(ctx context.Context, filter LogFilter) ([]Log, error) {
	limit := filter.Limit
	if limit < 1 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, workspace_id, provider, action, result, payload, created_at
		FROM whatsapp_provider_logs
		WHERE workspace_id = $1
			AND ($2::text IS NULL OR provider = $2)
			AND ($3::text IS NULL OR result = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`

	var providerParam, resultParam any
	if filter.Provider != "" {
		providerParam = filter.Provider
	}
	if filter.Result != "" {
		resultParam = filter.Result
	}

	rows, err := r.pool.Query(ctx, query, filter.WorkspaceID, providerParam, resultParam, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list provider logs: %w", err)
	}
	defer rows.Close()

	var result []Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.WorkspaceID, &l.Provider, &l.Action, &l.Result, &l.Payload, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan provider log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// WindowStatsSince aggregates the monitoring window.
func (r *Repo) WindowStatsSince(ctx context.Context, workspaceID uuid.UUID, provider string, since time.Time) (WindowStats, error) {
	var stats WindowStats
	err := r.pool.QueryRow(ctx, windowStatsQuery, workspaceID, provider, since).Scan(&stats.Total, &stats.Errors)
	if err != nil {
		return WindowStats{}, fmt.Errorf("provider window stats: %w", err)
	}
	return stats, nil
}

// ClearLogs purges a workspace's provider logs.
func (r *Repo) ClearLogs(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM whatsapp_provider_logs WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return 0, fmt.Errorf("clear provider logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpsertAlertConfig creates or replaces the workspace's rule for a provider.
func (r *Repo) UpsertAlertConfig(ctx context.Context, workspaceID uuid.UUID, input AlertConfigInput) (AlertConfig, error) {
	query := `
		INSERT INTO whatsapp_provider_alert_config
			(workspace_id, provider, error_threshold_percent, time_window_minutes,
			 notify_toast, notify_email, email_recipient, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (workspace_id, provider) DO UPDATE SET
			error_threshold_percent = EXCLUDED.error_threshold_percent,
			time_window_minutes = EXCLUDED.time_window_minutes,
			notify_toast = EXCLUDED.notify_toast,
			notify_email = EXCLUDED.notify_email,
			email_recipient = EXCLUDED.email_recipient,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING` + alertConfigColumns

	var cfg AlertConfig
	err := r.pool.QueryRow(ctx, query,
		workspaceID, input.Provider, input.ErrorThresholdPercent, input.TimeWindowMinutes,
		input.NotifyToast, input.NotifyEmail, input.EmailRecipient, input.IsActive,
	).Scan(alertConfigFields(&cfg)...)
	if err != nil {
		return AlertConfig{}, fmt.Errorf("upsert alert config: %w", err)
	}
	return cfg, nil
}

// ListAlertConfigs retrieves a workspace's rules.
func (r *Repo) ListAlertConfigs(ctx context.Context, workspaceID uuid.UUID) ([]AlertConfig, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT`+alertConfigColumns+`
		 FROM whatsapp_provider_alert_config
		 WHERE workspace_id = $1
		 ORDER BY provider ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list alert configs: %w", err)
	}
	defer rows.Close()
	return scanAlertConfigs(rows)
}

// ListActiveAlertConfigs retrieves every active rule across workspaces.
func (r *Repo) ListActiveAlertConfigs(ctx context.Context) ([]AlertConfig, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT`+alertConfigColumns+`
		 FROM whatsapp_provider_alert_config
		 WHERE is_active
		 ORDER BY workspace_id, provider`)
	if err != nil {
		return nil, fmt.Errorf("list active alert configs: %w", err)
	}
	defer rows.Close()
	return scanAlertConfigs(rows)
}

// DeleteAlertConfig removes one rule.
func (r *Repo) DeleteAlertConfig(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM whatsapp_provider_alert_config WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID)
	if err != nil {
		return fmt.Errorf("delete alert config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("alert config not found")
	}
	return nil
}

// InsertAlert records one threshold crossing.
func (r *Repo) InsertAlert(ctx context.Context, alert NewAlert) (Alert, error) {
	notified := alert.NotifiedVia
	if notified == nil {
		notified = []string{}
	}

	var a Alert
	err := r.pool.QueryRow(ctx,
		`INSERT INTO whatsapp_provider_alerts
			(workspace_id, provider, error_rate, threshold_percent, total_count,
			 error_count, window_start, window_end, notified_via)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, workspace_id, provider, error_rate, threshold_percent,
			total_count, error_count, window_start, window_end, notified_via, created_at`,
		alert.WorkspaceID, alert.Provider, alert.ErrorRate, alert.ThresholdPercent,
		alert.TotalCount, alert.ErrorCount, alert.WindowStart, alert.WindowEnd, notified,
	).Scan(
		&a.ID, &a.WorkspaceID, &a.Provider, &a.ErrorRate, &a.ThresholdPercent,
		&a.TotalCount, &a.ErrorCount, &a.WindowStart, &a.WindowEnd, &a.NotifiedVia, &a.CreatedAt,
	)
	if err != nil {
		return Alert{}, fmt.Errorf("insert alert: %w", err)
	}
	return a, nil
}

// ListAlerts retrieves recent alerts, newest first.
func (r *Repo) ListAlerts(ctx context.Context, workspaceID uuid.UUID, limit int) ([]Alert, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, workspace_id, provider, error_rate, threshold_percent,
			total_count, error_count, window_start, window_end, notified_via, created_at
		 FROM whatsapp_provider_alerts
		 WHERE workspace_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		workspaceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var result []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(
			&a.ID, &a.WorkspaceID, &a.Provider, &a.ErrorRate, &a.ThresholdPercent,
			&a.TotalCount, &a.ErrorCount, &a.WindowStart, &a.WindowEnd, &a.NotifiedVia, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// AlertExistsSince checks the DB for a recent alert on the same rule.
func (r *Repo) AlertExistsSince(ctx context.Context, workspaceID uuid.UUID, provider string, since time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM whatsapp_provider_alerts
			WHERE workspace_id = $1 AND provider = $2 AND created_at >= $3)`,
		workspaceID, provider, since,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check alert exists: %w", err)
	}
	return exists, nil
}

func scanAlertConfigs(rows pgx.Rows) ([]AlertConfig, error) {
	var result []AlertConfig
	for rows.Next() {
		var cfg AlertConfig
		if err := rows.Scan(alertConfigFields(&cfg)...); err != nil {
			return nil, fmt.Errorf("scan alert config: %w", err)
		}
		result = append(result, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func alertConfigFields(cfg *AlertConfig) []any {
	return []any{
		&cfg.ID, &cfg.WorkspaceID, &cfg.Provider, &cfg.ErrorThresholdPercent,
		&cfg.TimeWindowMinutes, &cfg.NotifyToast, &cfg.NotifyEmail,
		&cfg.EmailRecipient, &cfg.IsActive, &cfg.CreatedAt, &cfg.UpdatedAt,
	}
}
