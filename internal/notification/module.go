// Package notification pushes real-time updates to connected agents in
// response to domain events. Domain modules publish on the event bus and
// never talk to the SSE layer directly.
package notification

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"zapdesk_backend/internal/events"
	apphttp "zapdesk_backend/internal/http"
	"zapdesk_backend/internal/notification/sse"
	"zapdesk_backend/platform/httpkit"
	"zapdesk_backend/platform/logger"
)

// Module subscribes to domain events and fans them out over SSE.
type Module struct {
	sse *sse.Service
	log *logger.Logger
}

// NewModule builds the notification module and registers its event handlers.
func NewModule(bus events.Bus, log *logger.Logger) *Module {
	m := &Module{
		sse: sse.New(log),
		log: log,
	}

	bus.Subscribe(events.MessageReceived{}.EventName(), events.HandlerFunc(m.onMessageReceived))
	bus.Subscribe(events.ConversationAssigned{}.EventName(), events.HandlerFunc(m.onConversationAssigned))
	bus.Subscribe(events.ConversationAccepted{}.EventName(), events.HandlerFunc(m.onConversationAccepted))
	bus.Subscribe(events.PipelineCardCreated{}.EventName(), events.HandlerFunc(m.onPipelineCardCreated))
	bus.Subscribe(events.ProviderAlertRaised{}.EventName(), events.HandlerFunc(m.onProviderAlert))

	return m
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// SSE exposes the stream service for shutdown.
func (m *Module) SSE() *sse.Service { return m.sse }

// RegisterRoutes mounts the event stream on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/events", m.sse.Handler(getUserID, getWorkspaceID))
}

func getUserID(c *gin.Context) (uuid.UUID, bool) {
	id := httpkit.GetIdentity(c)
	if !id.IsAuthenticated() {
		return uuid.Nil, false
	}
	return id.UserID(), true
}

func getWorkspaceID(c *gin.Context) (uuid.UUID, bool) {
	id := httpkit.GetIdentity(c)
	if id.WorkspaceID() == uuid.Nil {
		return uuid.Nil, false
	}
	return id.WorkspaceID(), true
}

func (m *Module) onMessageReceived(ctx context.Context, event events.Event) error {
	e, ok := event.(events.MessageReceived)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	m.sse.PublishToWorkspace(e.WorkspaceID, sse.Event{
		Type:           sse.EventMessageReceived,
		ConversationID: e.ConversationID,
		Message:        e.Preview,
		Data: gin.H{
			"contactId": e.ContactID,
			"messageId": e.MessageID,
		},
	})
	return nil
}

func (m *Module) onConversationAssigned(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ConversationAssigned)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	evt := sse.Event{
		Type:           sse.EventConversationAssigned,
		ConversationID: e.ConversationID,
		Data: gin.H{
			"action":      e.Action,
			"changedById": e.ChangedByID,
		},
	}

	// The new assignee gets a direct ping even when connected without a
	// workspace-scoped stream; everyone else sees the inbox update.
	if e.NewUserID != nil {
		m.sse.Publish(*e.NewUserID, evt)
	}
	m.sse.PublishToWorkspace(e.WorkspaceID, evt)
	return nil
}

func (m *Module) onConversationAccepted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ConversationAccepted)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	m.sse.PublishToWorkspace(e.WorkspaceID, sse.Event{
		Type:           sse.EventConversationAccepted,
		ConversationID: e.ConversationID,
		Data: gin.H{
			"userId":  e.UserID,
			"agentId": e.AgentID,
		},
	})
	return nil
}

func (m *Module) onPipelineCardCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.PipelineCardCreated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	m.sse.PublishToWorkspace(e.WorkspaceID, sse.Event{
		Type:    sse.EventPipelineCardCreated,
		Message: e.Title,
		Data: gin.H{
			"cardId":     e.CardID,
			"pipelineId": e.PipelineID,
			"contactId":  e.ContactID,
		},
	})
	return nil
}

func (m *Module) onProviderAlert(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ProviderAlertRaised)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	m.sse.PublishToWorkspace(e.WorkspaceID, sse.Event{
		Type:    sse.EventProviderAlert,
		Message: fmt.Sprintf("%s error rate at %.1f%%", e.Provider, e.ErrorRate),
		Data: gin.H{
			"alertId":          e.AlertID,
			"provider":         e.Provider,
			"errorRate":        e.ErrorRate,
			"thresholdPercent": e.ThresholdPercent,
		},
	})
	return nil
}

var _ apphttp.Module = (*Module)(nil)
