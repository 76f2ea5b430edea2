package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Conversation is a chat thread with one contact over one connection.
type Conversation struct {
	ID             uuid.UUID  `json:"id"`
	WorkspaceID    uuid.UUID  `json:"workspace_id"`
	ContactID      uuid.UUID  `json:"contact_id"`
	ConnectionID   uuid.UUID  `json:"connection_id"`
	QueueID        *uuid.UUID `json:"queue_id,omitempty"`
	AssignedUserID *uuid.UUID `json:"assigned_user_id,omitempty"`
	Status         string     `json:"status"`
	AgentActiveID  *uuid.UUID `json:"agent_active_id,omitempty"`
	AgenteAtivo    bool       `json:"agente_ativo"`
	ContactName    string     `json:"contact_name"`
	ContactPhone   string     `json:"contact_phone"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HistoryEntry is one immutable assignment audit record.
type HistoryEntry struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	FromUserID     *uuid.UUID `json:"from_user_id,omitempty"`
	ToUserID       *uuid.UUID `json:"to_user_id,omitempty"`
	FromQueueID    *uuid.UUID `json:"from_queue_id,omitempty"`
	ToQueueID      *uuid.UUID `json:"to_queue_id,omitempty"`
	ChangedBy      uuid.UUID  `json:"changed_by"`
	Action         string     `json:"action"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Message is one inbound or outbound WhatsApp message.
type Message struct {
	ID                uuid.UUID `json:"id"`
	WorkspaceID       uuid.UUID `json:"workspace_id"`
	ConversationID    uuid.UUID `json:"conversation_id"`
	Direction         string    `json:"direction"`
	Body              string    `json:"body"`
	MediaURL          *string   `json:"media_url,omitempty"`
	MediaType         *string   `json:"media_type,omitempty"`
	ProviderMessageID *string   `json:"provider_message_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ListParams filters the inbox listing.
type ListParams struct {
	WorkspaceID    uuid.UUID
	Status         string     // "" means any
	QueueID        *uuid.UUID // nil means any
	AssignedUserID *uuid.UUID // nil means any
	Unassigned     bool       // true restricts to assigned_user_id IS NULL
	Limit          int
	Offset         int
}

// NewHistoryEntry captures a transition about to be recorded.
type NewHistoryEntry struct {
	ConversationID uuid.UUID
	FromUserID     *uuid.UUID
	ToUserID       *uuid.UUID
	FromQueueID    *uuid.UUID
	ToQueueID      *uuid.UUID
	ChangedBy      uuid.UUID
	Action         string
}

// NewMessage captures a message row about to be inserted.
type NewMessage struct {
	WorkspaceID       uuid.UUID
	ConversationID    uuid.UUID
	Direction         string
	Body              string
	MediaURL          *string
	MediaType         *string
	ProviderMessageID *string
}

// Repository is the persistence boundary for conversations.
type Repository interface {
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (Conversation, error)
	List(ctx context.Context, params ListParams) ([]Conversation, error)

	// FindOrCreateOpen returns the contact's open conversation on the
	// connection, creating one with the given queue when none exists.
	// The bool reports whether a new conversation was created.
	FindOrCreateOpen(ctx context.Context, workspaceID, contactID, connectionID uuid.UUID, queueID *uuid.UUID) (Conversation, bool, error)

	// CompareAndSetAssignee updates assigned_user_id only when the current
	// value still matches expected. Returns false when another writer won.
	CompareAndSetAssignee(ctx context.Context, workspaceID, id uuid.UUID, expected, target *uuid.UUID) (bool, error)
	InsertHistory(ctx context.Context, entry NewHistoryEntry) (HistoryEntry, error)
	ListHistory(ctx context.Context, workspaceID, conversationID uuid.UUID) ([]HistoryEntry, error)

	SetActiveAgent(ctx context.Context, workspaceID, id uuid.UUID, agentID *uuid.UUID) error
	AgentExists(ctx context.Context, workspaceID, agentID uuid.UUID) (bool, error)

	SetStatus(ctx context.Context, workspaceID, id uuid.UUID, status string) (Conversation, error)

	InsertMessage(ctx context.Context, msg NewMessage) (Message, error)
	ListMessages(ctx context.Context, workspaceID, conversationID uuid.UUID, limit int) ([]Message, error)

	// ClearAll hard-deletes a workspace's conversations and their messages.
	// Maintenance operation, admin only.
	ClearAll(ctx context.Context, workspaceID uuid.UUID) (int64, error)
}
