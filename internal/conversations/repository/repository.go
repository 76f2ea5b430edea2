package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"zapdesk_backend/platform/apperr"
)

const conversationNotFoundMessage = "conversation not found"

const conversationColumns = `
	c.id, c.workspace_id, c.contact_id, c.connection_id, c.queue_id,
	c.assigned_user_id, c.status, c.agent_active_id, c.agente_ativo,
	ct.name, ct.phone, c.last_message_at, c.created_at, c.updated_at`

const getConversationQuery = `
	SELECT` + conversationColumns + `
	FROM conversations c
	JOIN contacts ct ON ct.id = c.contact_id
	WHERE c.id = $1 AND c.workspace_id = $2`

// compareAndSetAssigneeQuery only matches when assigned_user_id still holds
// the expected value, closing the accept/assign race with a conditional write.
const compareAndSetAssigneeQuery = `
	UPDATE conversations
	SET assigned_user_id = $3, updated_at = now()
	WHERE id = $1 AND workspace_id = $2
		AND assigned_user_id IS NOT DISTINCT FROM $4`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new conversations repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a conversation with its contact snapshot.
func (r *Repo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (Conversation, error) {
	var c Conversation
	err := r.pool.QueryRow(ctx, getConversationQuery, id, workspaceID).Scan(
		&c.ID, &c.WorkspaceID, &c.ContactID, &c.ConnectionID, &c.QueueID,
		&c.AssignedUserID, &c.Status, &c.AgentActiveID, &c.AgenteAtivo,
		&c.ContactName, &c.ContactPhone, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, apperr.NotFound(conversationNotFoundMessage)
		}
		return Conversation{}, fmt.Errorf("get conversation by id: %w", err)
	}
	return c, nil
}

// FindOrCreateOpen returns the open conversation for the contact on the
// connection, inserting one when none exists.
func (r *Repo) FindOrCreateOpen(ctx context.Context, workspaceID, contactID, connectionID uuid.UUID, queueID *uuid.UUID) (Conversation, bool, error) {
	var c Conversation
	err := r.pool.QueryRow(ctx,
		`SELECT`+conversationColumns+`
		 FROM conversations c
		 JOIN contacts ct ON ct.id = c.contact_id
		 WHERE c.workspace_id = $1 AND c.contact_id = $2 AND c.connection_id = $3
			AND c.status = 'open'
		 ORDER BY c.created_at DESC
		 LIMIT 1`,
		workspaceID, contactID, connectionID,
	).Scan(
		&c.ID, &c.WorkspaceID, &c.ContactID, &c.ConnectionID, &c.QueueID,
		&c.AssignedUserID, &c.Status, &c.AgentActiveID, &c.AgenteAtivo,
		&c.ContactName, &c.ContactPhone, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, false, fmt.Errorf("find open conversation: %w", err)
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx,
		`INSERT INTO conversations (workspace_id, contact_id, connection_id, queue_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		workspaceID, contactID, connectionID, queueID,
	).Scan(&id)
	if err != nil {
		return Conversation{}, false, fmt.Errorf("insert conversation: %w", err)
	}

	created, err := r.GetByID(ctx, workspaceID, id)
	if err != nil {
		return Conversation{}, false, err
	}
	return created, true, nil
}

// List retrieves the inbox for a workspace with optional filters.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Conversation, error) {
	limit := params.Limit
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT` + conversationColumns + `
		FROM conversations c
		JOIN contacts ct ON ct.id = c.contact_id
		WHERE c.workspace_id = $1
			AND ($2::text IS NULL OR c.status = $2)
			AND ($3::uuid IS NULL OR c.queue_id = $3)
			AND ($4::uuid IS NULL OR c.assigned_user_id = $4)
			AND (NOT $5::boolean OR c.assigned_user_id IS NULL)
		ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC
		LIMIT $6 OFFSET $7`

	var statusParam interface{}
	if params.Status != "" {
		statusParam = params.Status
	}

	rows, err := r.pool.Query(ctx, query,
		params.WorkspaceID, statusParam, params.QueueID, params.AssignedUserID,
		params.Unassigned, limit, params.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var result []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(
			&c.ID, &c.WorkspaceID, &c.ContactID, &c.ConnectionID, &c.QueueID,
			&c.AssignedUserID, &c.Status, &c.AgentActiveID, &c.AgenteAtivo,
			&c.ContactName, &c.ContactPhone, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// CompareAndSetAssignee performs the conditional assignment write.
func (r *Repo) CompareAndSetAssignee(ctx context.Context, workspaceID, id uuid.UUID, expected, target *uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, compareAndSetAssigneeQuery, id, workspaceID, target, expected)
	if err != nil {
		return false, fmt.Errorf("compare and set assignee: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// InsertHistory appends one immutable assignment audit row.
func (r *Repo) InsertHistory(ctx context.Context, entry NewHistoryEntry) (HistoryEntry, error) {
	query := `
		INSERT INTO conversation_assignment_history
			(conversation_id, from_user_id, to_user_id, from_queue_id, to_queue_id, changed_by, action)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, conversation_id, from_user_id, to_user_id, from_queue_id, to_queue_id, changed_by, action, created_at`

	var h HistoryEntry
	err := r.pool.QueryRow(ctx, query,
		entry.ConversationID, entry.FromUserID, entry.ToUserID,
		entry.FromQueueID, entry.ToQueueID, entry.ChangedBy, entry.Action,
	).Scan(
		&h.ID, &h.ConversationID, &h.FromUserID, &h.ToUserID,
		&h.FromQueueID, &h.ToQueueID, &h.ChangedBy, &h.Action, &h.CreatedAt,
	)
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("insert assignment history: %w", err)
	}
	return h, nil
}

// ListHistory retrieves a conversation's assignment audit trail, oldest first.
func (r *Repo) ListHistory(ctx context.Context, workspaceID, conversationID uuid.UUID) ([]HistoryEntry, error) {
	query := `
		SELECT h.id, h.conversation_id, h.from_user_id, h.to_user_id,
			h.from_queue_id, h.to_queue_id, h.changed_by, h.action, h.created_at
		FROM conversation_assignment_history h
		JOIN conversations c ON c.id = h.conversation_id
		WHERE h.conversation_id = $1 AND c.workspace_id = $2
		ORDER BY h.created_at ASC`

	rows, err := r.pool.Query(ctx, query, conversationID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list assignment history: %w", err)
	}
	defer rows.Close()

	var result []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(
			&h.ID, &h.ConversationID, &h.FromUserID, &h.ToUserID,
			&h.FromQueueID, &h.ToQueueID, &h.ChangedBy, &h.Action, &h.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan assignment history: %w", err)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// SetActiveAgent sets or clears the conversation's active AI agent.
func (r *Repo) SetActiveAgent(ctx context.Context, workspaceID, id uuid.UUID, agentID *uuid.UUID) error {
	query := `
		UPDATE conversations
		SET agent_active_id = $3, agente_ativo = $4, updated_at = now()
		WHERE id = $1 AND workspace_id = $2`

	tag, err := r.pool.Exec(ctx, query, id, workspaceID, agentID, agentID != nil)
	if err != nil {
		return fmt.Errorf("set active agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(conversationNotFoundMessage)
	}
	return nil
}

// AgentExists checks that an AI agent is defined and active in the workspace.
func (r *Repo) AgentExists(ctx context.Context, workspaceID, agentID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM ai_agents WHERE id = $1 AND workspace_id = $2 AND is_active)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, agentID, workspaceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check agent exists: %w", err)
	}
	return exists, nil
}

// SetStatus closes or reopens a conversation.
func (r *Repo) SetStatus(ctx context.Context, workspaceID, id uuid.UUID, status string) (Conversation, error) {
	query := `
		UPDATE conversations
		SET status = $3, updated_at = now()
		WHERE id = $1 AND workspace_id = $2`

	tag, err := r.pool.Exec(ctx, query, id, workspaceID, status)
	if err != nil {
		return Conversation{}, fmt.Errorf("set conversation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Conversation{}, apperr.NotFound(conversationNotFoundMessage)
	}
	return r.GetByID(ctx, workspaceID, id)
}

// InsertMessage appends one message row and touches last_message_at.
func (r *Repo) InsertMessage(ctx context.Context, msg NewMessage) (Message, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("begin insert message: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO messages
			(workspace_id, conversation_id, direction, body, media_url, media_type, provider_message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, workspace_id, conversation_id, direction, body, media_url, media_type, provider_message_id, created_at`

	var m Message
	err = tx.QueryRow(ctx, query,
		msg.WorkspaceID, msg.ConversationID, msg.Direction, msg.Body,
		msg.MediaURL, msg.MediaType, msg.ProviderMessageID,
	).Scan(
		&m.ID, &m.WorkspaceID, &m.ConversationID, &m.Direction, &m.Body,
		&m.MediaURL, &m.MediaType, &m.ProviderMessageID, &m.CreatedAt,
	)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE conversations SET last_message_at = $3, updated_at = now() WHERE id = $1 AND workspace_id = $2`,
		msg.ConversationID, msg.WorkspaceID, m.CreatedAt,
	); err != nil {
		return Message{}, fmt.Errorf("touch conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Message{}, fmt.Errorf("commit insert message: %w", err)
	}
	return m, nil
}

// ListMessages retrieves a conversation's messages, oldest first.
func (r *Repo) ListMessages(ctx context.Context, workspaceID, conversationID uuid.UUID, limit int) ([]Message, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, workspace_id, conversation_id, direction, body, media_url, media_type, provider_message_id, created_at
		FROM messages
		WHERE conversation_id = $1 AND workspace_id = $2
		ORDER BY created_at ASC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, conversationID, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var result []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID, &m.WorkspaceID, &m.ConversationID, &m.Direction, &m.Body,
			&m.MediaURL, &m.MediaType, &m.ProviderMessageID, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// ClearAll hard-deletes a workspace's conversations; messages and history
// rows go with them via ON DELETE CASCADE.
func (r *Repo) ClearAll(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return 0, fmt.Errorf("clear conversations: %w", err)
	}
	return tag.RowsAffected(), nil
}
