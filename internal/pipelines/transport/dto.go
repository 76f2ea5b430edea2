// Package transport defines request and response shapes for the pipelines
// HTTP API.
package transport

import "github.com/google/uuid"

// CreatePipelineRequest creates a board with ordered columns.
type CreatePipelineRequest struct {
	Name    string   `json:"name" validate:"required,min=1,max=120"`
	Columns []string `json:"columns" validate:"required,min=1,max=20,dive,required,max=80"`
}

// SmartCardRequest drives the smart card flow. PipelineID omitted falls
// back to the workspace's first pipeline.
type SmartCardRequest struct {
	ContactID      uuid.UUID  `json:"contactId" validate:"required"`
	ConversationID *uuid.UUID `json:"conversationId"`
	PipelineID     *uuid.UUID `json:"pipelineId"`
}

// MoveCardRequest drags a card to another column.
type MoveCardRequest struct {
	ColumnID uuid.UUID `json:"columnId" validate:"required"`
}

// CardStatusRequest closes or reopens a deal.
type CardStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=aberto ganho perdido"`
}

// UpdateCardRequest applies a full card edit.
type UpdateCardRequest struct {
	Title  string   `json:"title" validate:"required,min=1,max=200"`
	Value  float64  `json:"value" validate:"min=0"`
	Tags   []string `json:"tags" validate:"max=30,dive,max=60"`
	Status string   `json:"status" validate:"required,oneof=aberto ganho perdido"`
}
