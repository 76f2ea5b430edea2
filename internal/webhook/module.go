package webhook

import (
	apphttp "zapdesk_backend/internal/http"
	"zapdesk_backend/internal/providers/adapters"
	"zapdesk_backend/platform/logger"
)

// Module is the webhook bounded context implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule wires the webhook module against the services it orchestrates.
func NewModule(connections ConnectionSource, contacts ContactUpserter, inbox InboxRecorder, cards CardManager, media MediaStore, recorder adapters.Recorder, log *logger.Logger) *Module {
	svc := NewService(connections, contacts, inbox, cards, media, recorder, log)
	return &Module{handler: NewHandler(svc)}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "webhook" }

// RegisterRoutes mounts the public ingest endpoint. Providers authenticate
// by knowing the instance id; no JWT is involved.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/webhooks/:provider/:instance", m.handler.HandleInbound)
}

var _ apphttp.Module = (*Module)(nil)
