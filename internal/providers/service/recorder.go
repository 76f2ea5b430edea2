package service

import (
	"context"

	"github.com/google/uuid"

	"zapdesk_backend/internal/providers/adapters"
	"zapdesk_backend/internal/providers/repository"
	"zapdesk_backend/platform/logger"
)

// LogRecorder persists provider interactions. Recording never fails the
// calling operation; a write error is logged and dropped.
type LogRecorder struct {
	repo repository.Repository
	log  *logger.Logger
}

// NewLogRecorder creates a recorder backed by the provider log table.
func NewLogRecorder(repo repository.Repository, log *logger.Logger) *LogRecorder {
	return &LogRecorder{repo: repo, log: log}
}

// Record appends one provider log row.
func (r *LogRecorder) Record(ctx context.Context, workspaceID uuid.UUID, provider, action, result string, payload map[string]any) {
	err := r.repo.InsertLog(ctx, repository.NewLog{
		WorkspaceID: workspaceID,
		Provider:    provider,
		Action:      action,
		Result:      result,
		Payload:     payload,
	})
	if err != nil {
		r.log.DatabaseError("insert provider log", err)
	}
}

var _ adapters.Recorder = (*LogRecorder)(nil)
