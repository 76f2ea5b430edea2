// Package service implements the conversation workflows: inbox listing,
// assignment/transfer/unassignment with audit, the accept flow, and
// message sending through the bound WhatsApp provider.
package service

import (
	"context"

	"github.com/google/uuid"

	"zapdesk_backend/internal/conversations/repository"
	"zapdesk_backend/internal/events"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/logger"
)

// Assignment transition actions.
const (
	ActionAssign   = "assign"
	ActionTransfer = "transfer"
	ActionUnassign = "unassign"
	// ActionNone is returned when the target already holds the conversation;
	// the call is a no-op and no audit row is written.
	ActionNone = "noop"
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// maxAssignAttempts bounds the re-read/CAS loop under contention.
const maxAssignAttempts = 3

// MembershipChecker validates that a user is an active member of a workspace.
type MembershipChecker interface {
	IsActiveMember(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error)
}

// MessageSender delivers an outbound text through the connection's provider.
type MessageSender interface {
	SendText(ctx context.Context, workspaceID, connectionID uuid.UUID, phone, body string) (providerMessageID string, err error)
}

// Service provides business logic for conversations.
type Service struct {
	repo    repository.Repository
	members MembershipChecker
	sender  MessageSender
	bus     events.Bus
	log     *logger.Logger
}

// New creates a new conversations service.
func New(repo repository.Repository, members MembershipChecker, sender MessageSender, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, members: members, sender: sender, bus: bus, log: log}
}

// AssignResult is the outcome of one assignment operation.
type AssignResult struct {
	Conversation repository.Conversation
	Action       string
	History      *repository.HistoryEntry
}

// AcceptResult is the outcome of one accept (claim) operation.
type AcceptResult struct {
	Conversation    repository.Conversation
	Action          string
	AlreadyAssigned bool
}

// Assign moves a conversation to the target user (nil target unassigns),
// classifies the transition, and writes exactly one audit row per effective
// change. Re-assigning the current holder is a no-op with no audit row.
func (s *Service) Assign(ctx context.Context, workspaceID, actorID, conversationID uuid.UUID, target *uuid.UUID) (AssignResult, error) {
	if err := s.requireMember(ctx, workspaceID, actorID); err != nil {
		return AssignResult{}, err
	}
	if target != nil {
		member, err := s.members.IsActiveMember(ctx, workspaceID, *target)
		if err != nil {
			return AssignResult{}, err
		}
		if !member {
			return AssignResult{}, apperr.Validation("target user is not an active member of this workspace")
		}
	}

	for attempt := 0; attempt < maxAssignAttempts; attempt++ {
		conv, err := s.repo.GetByID(ctx, workspaceID, conversationID)
		if err != nil {
			return AssignResult{}, err
		}

		if uuidPtrEqual(conv.AssignedUserID, target) {
			return AssignResult{Conversation: conv, Action: ActionNone}, nil
		}

		action := ClassifyTransition(conv.AssignedUserID, target)

		won, err := s.repo.CompareAndSetAssignee(ctx, workspaceID, conversationID, conv.AssignedUserID, target)
		if err != nil {
			return AssignResult{}, err
		}
		if !won {
			// Another writer landed between read and write; retry against
			// the fresh state so the classification stays truthful.
			continue
		}

		history, err := s.repo.InsertHistory(ctx, repository.NewHistoryEntry{
			ConversationID: conversationID,
			FromUserID:     conv.AssignedUserID,
			ToUserID:       target,
			FromQueueID:    conv.QueueID,
			ToQueueID:      conv.QueueID,
			ChangedBy:      actorID,
			Action:         action,
		})
		if err != nil {
			return AssignResult{}, err
		}

		conv.AssignedUserID = target
		s.publishAssigned(ctx, conv, history)
		s.log.Info("conversation assignment", "conversation_id", conversationID, "action", action)

		return AssignResult{Conversation: conv, Action: action, History: &history}, nil
	}

	return AssignResult{}, apperr.Conflict("conversation assignment contention, try again")
}

// Accept lets an agent claim an unassigned conversation, optionally
// activating an AI agent. A lost claim race is reported as a successful
// outcome with AlreadyAssigned set, never as an error.
func (s *Service) Accept(ctx context.Context, workspaceID, actorID, conversationID uuid.UUID, agentID *uuid.UUID) (AcceptResult, error) {
	if err := s.requireMember(ctx, workspaceID, actorID); err != nil {
		return AcceptResult{}, err
	}
	if agentID != nil {
		exists, err := s.repo.AgentExists(ctx, workspaceID, *agentID)
		if err != nil {
			return AcceptResult{}, err
		}
		if !exists {
			return AcceptResult{}, apperr.Validation("ai agent not found in this workspace")
		}
	}

	conv, err := s.repo.GetByID(ctx, workspaceID, conversationID)
	if err != nil {
		return AcceptResult{}, err
	}

	won, err := s.repo.CompareAndSetAssignee(ctx, workspaceID, conversationID, nil, &actorID)
	if err != nil {
		return AcceptResult{}, err
	}

	if !won {
		fresh, err := s.repo.GetByID(ctx, workspaceID, conversationID)
		if err != nil {
			return AcceptResult{}, err
		}
		if fresh.AssignedUserID != nil && *fresh.AssignedUserID == actorID {
			// Our own earlier accept already landed; treat as claimed.
			return AcceptResult{Conversation: fresh, Action: ActionAssign}, nil
		}
		return AcceptResult{Conversation: fresh, Action: ActionAssign, AlreadyAssigned: true}, nil
	}

	history, err := s.repo.InsertHistory(ctx, repository.NewHistoryEntry{
		ConversationID: conversationID,
		FromUserID:     nil,
		ToUserID:       &actorID,
		FromQueueID:    conv.QueueID,
		ToQueueID:      conv.QueueID,
		ChangedBy:      actorID,
		Action:         ActionAssign,
	})
	if err != nil {
		return AcceptResult{}, err
	}

	conv.AssignedUserID = &actorID

	// Agent activation happens strictly after the assignment write so an
	// observer never sees an active agent on an unassigned conversation.
	if agentID != nil {
		if err := s.repo.SetActiveAgent(ctx, workspaceID, conversationID, agentID); err != nil {
			return AcceptResult{}, err
		}
		conv.AgentActiveID = agentID
		conv.AgenteAtivo = true
	}

	s.publishAssigned(ctx, conv, history)
	s.bus.Publish(ctx, events.ConversationAccepted{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: conversationID,
		WorkspaceID:    workspaceID,
		UserID:         actorID,
		AgentID:        agentID,
	})

	return AcceptResult{Conversation: conv, Action: ActionAssign}, nil
}

// Get retrieves one conversation.
func (s *Service) Get(ctx context.Context, workspaceID, conversationID uuid.UUID) (repository.Conversation, error) {
	return s.repo.GetByID(ctx, workspaceID, conversationID)
}

// List retrieves the inbox with filters.
func (s *Service) List(ctx context.Context, params repository.ListParams) ([]repository.Conversation, error) {
	return s.repo.List(ctx, params)
}

// History retrieves a conversation's assignment audit trail.
func (s *Service) History(ctx context.Context, workspaceID, conversationID uuid.UUID) ([]repository.HistoryEntry, error) {
	if _, err := s.repo.GetByID(ctx, workspaceID, conversationID); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, workspaceID, conversationID)
}

// Close marks a conversation closed.
func (s *Service) Close(ctx context.Context, workspaceID, conversationID uuid.UUID) (repository.Conversation, error) {
	return s.repo.SetStatus(ctx, workspaceID, conversationID, StatusClosed)
}

// Reopen marks a conversation open again.
func (s *Service) Reopen(ctx context.Context, workspaceID, conversationID uuid.UUID) (repository.Conversation, error) {
	return s.repo.SetStatus(ctx, workspaceID, conversationID, StatusOpen)
}

// Messages retrieves a conversation's messages.
func (s *Service) Messages(ctx context.Context, workspaceID, conversationID uuid.UUID, limit int) ([]repository.Message, error) {
	if _, err := s.repo.GetByID(ctx, workspaceID, conversationID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, workspaceID, conversationID, limit)
}

// SendMessage delivers an outbound text via the provider and records it.
func (s *Service) SendMessage(ctx context.Context, workspaceID, actorID, conversationID uuid.UUID, body string) (repository.Message, error) {
	if err := s.requireMember(ctx, workspaceID, actorID); err != nil {
		return repository.Message{}, err
	}

	conv, err := s.repo.GetByID(ctx, workspaceID, conversationID)
	if err != nil {
		return repository.Message{}, err
	}
	if conv.Status != StatusOpen {
		return repository.Message{}, apperr.Conflict("conversation is closed")
	}

	providerMessageID, err := s.sender.SendText(ctx, workspaceID, conv.ConnectionID, conv.ContactPhone, body)
	if err != nil {
		return repository.Message{}, apperr.Wrap(apperr.KindInternal, "failed to send message via provider", err)
	}

	var pmid *string
	if providerMessageID != "" {
		pmid = &providerMessageID
	}

	return s.repo.InsertMessage(ctx, repository.NewMessage{
		WorkspaceID:       workspaceID,
		ConversationID:    conversationID,
		Direction:         "out",
		Body:              body,
		ProviderMessageID: pmid,
	})
}

// InboundMessage carries one provider-pushed message into the inbox.
type InboundMessage struct {
	WorkspaceID       uuid.UUID
	ContactID         uuid.UUID
	ConnectionID      uuid.UUID
	QueueID           *uuid.UUID
	Body              string
	MediaURL          *string
	MediaType         *string
	ProviderMessageID *string
}

// RecordInbound lands an inbound message: it finds or creates the contact's
// open conversation on the connection, appends the message row and publishes
// MessageReceived.
func (s *Service) RecordInbound(ctx context.Context, in InboundMessage) (repository.Conversation, repository.Message, error) {
	conv, created, err := s.repo.FindOrCreateOpen(ctx, in.WorkspaceID, in.ContactID, in.ConnectionID, in.QueueID)
	if err != nil {
		return repository.Conversation{}, repository.Message{}, err
	}
	if created {
		s.log.Info("conversation opened",
			"workspace_id", in.WorkspaceID,
			"conversation_id", conv.ID,
			"contact_id", in.ContactID)
	}

	msg, err := s.repo.InsertMessage(ctx, repository.NewMessage{
		WorkspaceID:       in.WorkspaceID,
		ConversationID:    conv.ID,
		Direction:         "in",
		Body:              in.Body,
		MediaURL:          in.MediaURL,
		MediaType:         in.MediaType,
		ProviderMessageID: in.ProviderMessageID,
	})
	if err != nil {
		return repository.Conversation{}, repository.Message{}, err
	}

	s.bus.Publish(ctx, events.MessageReceived{
		BaseEvent:      events.NewBaseEvent(),
		WorkspaceID:    in.WorkspaceID,
		ConversationID: conv.ID,
		ContactID:      in.ContactID,
		MessageID:      msg.ID,
		Preview:        preview(in.Body),
	})
	return conv, msg, nil
}

const previewLimit = 80

func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLimit {
		return body
	}
	return string(runes[:previewLimit])
}

// ClearAll hard-deletes every conversation in the workspace. Admin only,
// enforced at the route layer.
func (s *Service) ClearAll(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	deleted, err := s.repo.ClearAll(ctx, workspaceID)
	if err != nil {
		return 0, err
	}
	s.log.Warn("conversations cleared", "workspace_id", workspaceID, "deleted", deleted)
	return deleted, nil
}

// ClassifyTransition names the assignment transition between two holders.
// The caller guarantees current != target.
func ClassifyTransition(current, target *uuid.UUID) string {
	switch {
	case current == nil && target != nil:
		return ActionAssign
	case current != nil && target == nil:
		return ActionUnassign
	default:
		return ActionTransfer
	}
}

func (s *Service) requireMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	member, err := s.members.IsActiveMember(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if !member {
		return apperr.Forbidden("user is not a member of this workspace")
	}
	return nil
}

func (s *Service) publishAssigned(ctx context.Context, conv repository.Conversation, history repository.HistoryEntry) {
	s.bus.Publish(ctx, events.ConversationAssigned{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: conv.ID,
		WorkspaceID:    conv.WorkspaceID,
		PreviousUserID: history.FromUserID,
		NewUserID:      history.ToUserID,
		ChangedByID:    history.ChangedBy,
		Action:         history.Action,
	})
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
