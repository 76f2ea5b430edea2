package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Card lifecycle states. Portuguese values kept for frontend compatibility.
const (
	CardStatusOpen = "aberto"
	CardStatusWon  = "ganho"
	CardStatusLost = "perdido"
)

// Pipeline is one sales funnel board.
type Pipeline struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	Columns     []Column  `json:"columns,omitempty"`
}

// Column is one stage of a pipeline board.
type Column struct {
	ID         uuid.UUID `json:"id"`
	PipelineID uuid.UUID `json:"pipeline_id"`
	Name       string    `json:"name"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}

// Card is one deal on the board.
type Card struct {
	ID             uuid.UUID  `json:"id"`
	WorkspaceID    uuid.UUID  `json:"workspace_id"`
	PipelineID     uuid.UUID  `json:"pipeline_id"`
	ColumnID       uuid.UUID  `json:"column_id"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	ContactID      uuid.UUID  `json:"contact_id"`
	Title          string     `json:"title"`
	Status         string     `json:"status"`
	Value          float64    `json:"value"`
	Tags           []string   `json:"tags"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewCard captures a card about to be inserted.
type NewCard struct {
	WorkspaceID    uuid.UUID
	PipelineID     uuid.UUID
	ColumnID       uuid.UUID
	ConversationID *uuid.UUID
	ContactID      uuid.UUID
	Title          string
	Status         string
	Value          float64
	Tags           []string
}

// CardUpdate carries the mutable card fields for a full update.
type CardUpdate struct {
	Title  string
	Value  float64
	Tags   []string
	Status string
}

// Repository is the persistence boundary for pipelines, columns and cards.
type Repository interface {
	CreatePipeline(ctx context.Context, workspaceID uuid.UUID, name string, columns []string) (Pipeline, error)
	GetPipeline(ctx context.Context, workspaceID, id uuid.UUID) (Pipeline, error)
	ListPipelines(ctx context.Context, workspaceID uuid.UUID) ([]Pipeline, error)
	// FirstPipeline returns the workspace's oldest pipeline, used when the
	// caller omits a pipeline id.
	FirstPipeline(ctx context.Context, workspaceID uuid.UUID) (Pipeline, error)
	DeletePipeline(ctx context.Context, workspaceID, id uuid.UUID) error

	// FirstColumn resolves the entry stage, ordered by position then creation.
	FirstColumn(ctx context.Context, pipelineID uuid.UUID) (Column, error)
	ColumnBelongsToPipeline(ctx context.Context, pipelineID, columnID uuid.UUID) (bool, error)

	GetCardByConversation(ctx context.Context, workspaceID, conversationID uuid.UUID) (Card, error)
	FindOpenCard(ctx context.Context, workspaceID, contactID, pipelineID uuid.UUID) (Card, error)
	// InsertCardLocked inserts under a transaction-scoped advisory lock keyed
	// on (contact, pipeline) so concurrent inserts serialize.
	InsertCardLocked(ctx context.Context, card NewCard) (Card, error)
	TouchCard(ctx context.Context, workspaceID, id uuid.UUID) (Card, error)
	ListCards(ctx context.Context, workspaceID, pipelineID uuid.UUID) ([]Card, error)
	GetCard(ctx context.Context, workspaceID, id uuid.UUID) (Card, error)
	MoveCard(ctx context.Context, workspaceID, id, columnID uuid.UUID) (Card, error)
	SetCardStatus(ctx context.Context, workspaceID, id uuid.UUID, status string) (Card, error)
	UpdateCard(ctx context.Context, workspaceID, id uuid.UUID, update CardUpdate) (Card, error)
	DeleteCard(ctx context.Context, workspaceID, id uuid.UUID) error
}
