// Package service implements provider health: call logging, alert rules,
// the monitor sweep and outbound routing to gateway adapters.
package service

import (
	"context"

	"github.com/google/uuid"

	"zapdesk_backend/internal/providers/repository"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/logger"
)

// Service provides provider log and alert rule management.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new provider health service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// ListLogs retrieves provider logs for inspection.
func (s *Service) ListLogs(ctx context.Context, filter repository.LogFilter) ([]repository.Log, error) {
	if filter.Provider != "" && !validProvider(filter.Provider, false) {
		return nil, apperr.Validation("invalid provider filter")
	}
	if filter.Result != "" && filter.Result != repository.ResultSuccess && filter.Result != repository.ResultError {
		return nil, apperr.Validation("invalid result filter")
	}
	return s.repo.ListLogs(ctx, filter)
}

// ClearLogs purges a workspace's provider logs. Admin only, explicit.
func (s *Service) ClearLogs(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	deleted, err := s.repo.ClearLogs(ctx, workspaceID)
	if err != nil {
		return 0, err
	}
	s.log.Warn("provider logs cleared", "workspace_id", workspaceID, "deleted", deleted)
	return deleted, nil
}

// UpsertAlertConfig creates or replaces the rule for a provider.
func (s *Service) UpsertAlertConfig(ctx context.Context, workspaceID uuid.UUID, input repository.AlertConfigInput) (repository.AlertConfig, error) {
	if !validProvider(input.Provider, true) {
		return repository.AlertConfig{}, apperr.Validation("provider must be evolution, zapi or all")
	}
	if input.ErrorThresholdPercent <= 0 || input.ErrorThresholdPercent > 100 {
		return repository.AlertConfig{}, apperr.Validation("error threshold must be between 0 and 100")
	}
	if input.TimeWindowMinutes < 1 || input.TimeWindowMinutes > 24*60 {
		return repository.AlertConfig{}, apperr.Validation("time window must be between 1 minute and 24 hours")
	}
	if input.NotifyEmail && input.EmailRecipient == "" {
		return repository.AlertConfig{}, apperr.Validation("email recipient is required when email notification is enabled")
	}
	return s.repo.UpsertAlertConfig(ctx, workspaceID, input)
}

// ListAlertConfigs retrieves a workspace's rules.
func (s *Service) ListAlertConfigs(ctx context.Context, workspaceID uuid.UUID) ([]repository.AlertConfig, error) {
	return s.repo.ListAlertConfigs(ctx, workspaceID)
}

// DeleteAlertConfig removes a rule.
func (s *Service) DeleteAlertConfig(ctx context.Context, workspaceID, id uuid.UUID) error {
	return s.repo.DeleteAlertConfig(ctx, workspaceID, id)
}

// ListAlerts retrieves recent alerts.
func (s *Service) ListAlerts(ctx context.Context, workspaceID uuid.UUID, limit int) ([]repository.Alert, error) {
	return s.repo.ListAlerts(ctx, workspaceID, limit)
}

func validProvider(p string, allowAll bool) bool {
	switch p {
	case repository.ProviderEvolution, repository.ProviderZAPI:
		return true
	case repository.ProviderAll:
		return allowAll
	}
	return false
}
