// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"zapdesk_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Conversation Domain Events
// =============================================================================

// ConversationAssigned is published on every effective assignment transition
// (assign, transfer, unassign).
type ConversationAssigned struct {
	BaseEvent
	ConversationID uuid.UUID  `json:"conversationId"`
	WorkspaceID    uuid.UUID  `json:"workspaceId"`
	PreviousUserID *uuid.UUID `json:"previousUserId,omitempty"`
	NewUserID      *uuid.UUID `json:"newUserId,omitempty"`
	ChangedByID    uuid.UUID  `json:"changedById"`
	Action         string     `json:"action"` // assign | transfer | unassign
}

func (e ConversationAssigned) EventName() string { return "conversations.assigned" }

// ConversationAccepted is published when an agent claims a conversation from
// the queue, optionally activating an AI agent.
type ConversationAccepted struct {
	BaseEvent
	ConversationID uuid.UUID  `json:"conversationId"`
	WorkspaceID    uuid.UUID  `json:"workspaceId"`
	UserID         uuid.UUID  `json:"userId"`
	AgentID        *uuid.UUID `json:"agentId,omitempty"`
}

func (e ConversationAccepted) EventName() string { return "conversations.accepted" }

// MessageReceived is published when an inbound WhatsApp message lands.
type MessageReceived struct {
	BaseEvent
	WorkspaceID    uuid.UUID `json:"workspaceId"`
	ConversationID uuid.UUID `json:"conversationId"`
	ContactID      uuid.UUID `json:"contactId"`
	MessageID      uuid.UUID `json:"messageId"`
	Preview        string    `json:"preview"`
}

func (e MessageReceived) EventName() string { return "conversations.message.received" }

// =============================================================================
// Pipeline Domain Events
// =============================================================================

// PipelineCardCreated is published when the smart card manager opens a card.
type PipelineCardCreated struct {
	BaseEvent
	WorkspaceID uuid.UUID `json:"workspaceId"`
	CardID      uuid.UUID `json:"cardId"`
	PipelineID  uuid.UUID `json:"pipelineId"`
	ContactID   uuid.UUID `json:"contactId"`
	Title       string    `json:"title"`
}

func (e PipelineCardCreated) EventName() string { return "pipelines.card.created" }

// =============================================================================
// Provider Domain Events
// =============================================================================

// ProviderAlertRaised is published when the health monitor crosses a threshold.
type ProviderAlertRaised struct {
	BaseEvent
	WorkspaceID      uuid.UUID `json:"workspaceId"`
	AlertID          uuid.UUID `json:"alertId"`
	Provider         string    `json:"provider"`
	ErrorRate        float64   `json:"errorRate"`
	ThresholdPercent float64   `json:"thresholdPercent"`
	NotifiedVia      []string  `json:"notifiedVia"`
	EmailRecipient   string    `json:"emailRecipient,omitempty"`
}

func (e ProviderAlertRaised) EventName() string { return "providers.alert.raised" }
