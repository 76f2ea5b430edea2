// Package transport defines request and response shapes for the
// conversations HTTP API.
package transport

import (
	"github.com/google/uuid"

	"zapdesk_backend/internal/conversations/repository"
)

// AssignRequest sets or clears the conversation's assignee.
// A null userId unassigns.
type AssignRequest struct {
	UserID *uuid.UUID `json:"userId"`
}

// AcceptRequest claims a conversation, optionally activating an AI agent.
type AcceptRequest struct {
	AgentID *uuid.UUID `json:"agentId"`
}

// SendMessageRequest sends an outbound text.
type SendMessageRequest struct {
	Body string `json:"body" validate:"required,min=1,max=4096"`
}

// ListQuery filters the inbox listing.
type ListQuery struct {
	Status     string `form:"status" validate:"omitempty,oneof=open closed"`
	QueueID    string `form:"queueId" validate:"omitempty,uuid"`
	AssignedTo string `form:"assignedTo" validate:"omitempty,uuid"`
	Unassigned bool   `form:"unassigned"`
	Limit      int    `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset     int    `form:"offset" validate:"omitempty,min=0"`
}

// AssignResponse reports the effective transition.
type AssignResponse struct {
	Conversation repository.Conversation  `json:"conversation"`
	Action       string                   `json:"action"`
	History      *repository.HistoryEntry `json:"history,omitempty"`
}

// AcceptResponse reports the claim outcome. AlreadyAssigned true means
// another agent won the race; the call still succeeds.
type AcceptResponse struct {
	Conversation    repository.Conversation `json:"conversation"`
	AlreadyAssigned bool                    `json:"alreadyAssigned"`
}
