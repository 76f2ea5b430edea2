// Package service implements pipeline board management and the smart card
// flow that opens at most one deal per contact per pipeline.
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"zapdesk_backend/internal/events"
	"zapdesk_backend/internal/pipelines/repository"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/logger"
)

// Smart card outcomes.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// Service provides business logic for pipelines, columns and cards.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new pipelines service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// CreatePipeline creates a board with its ordered columns. A board without
// columns cannot receive cards, so at least one is required.
func (s *Service) CreatePipeline(ctx context.Context, workspaceID uuid.UUID, name string, columns []string) (repository.Pipeline, error) {
	if strings.TrimSpace(name) == "" {
		return repository.Pipeline{}, apperr.Validation("pipeline name is required")
	}
	if len(columns) == 0 {
		return repository.Pipeline{}, apperr.Validation("pipeline needs at least one column")
	}
	return s.repo.CreatePipeline(ctx, workspaceID, name, columns)
}

// GetPipeline retrieves a board with its columns.
func (s *Service) GetPipeline(ctx context.Context, workspaceID, id uuid.UUID) (repository.Pipeline, error) {
	return s.repo.GetPipeline(ctx, workspaceID, id)
}

// ListPipelines retrieves the workspace's boards.
func (s *Service) ListPipelines(ctx context.Context, workspaceID uuid.UUID) ([]repository.Pipeline, error) {
	return s.repo.ListPipelines(ctx, workspaceID)
}

// DeletePipeline removes a board and everything on it.
func (s *Service) DeletePipeline(ctx context.Context, workspaceID, id uuid.UUID) error {
	return s.repo.DeletePipeline(ctx, workspaceID, id)
}

// ListCards retrieves a board's cards.
func (s *Service) ListCards(ctx context.Context, workspaceID, pipelineID uuid.UUID) ([]repository.Card, error) {
	if _, err := s.repo.GetPipeline(ctx, workspaceID, pipelineID); err != nil {
		return nil, err
	}
	return s.repo.ListCards(ctx, workspaceID, pipelineID)
}

// GetCard retrieves one card.
func (s *Service) GetCard(ctx context.Context, workspaceID, id uuid.UUID) (repository.Card, error) {
	return s.repo.GetCard(ctx, workspaceID, id)
}

// MoveCard drags a card to another column on the same board.
func (s *Service) MoveCard(ctx context.Context, workspaceID, cardID, columnID uuid.UUID) (repository.Card, error) {
	card, err := s.repo.GetCard(ctx, workspaceID, cardID)
	if err != nil {
		return repository.Card{}, err
	}
	ok, err := s.repo.ColumnBelongsToPipeline(ctx, card.PipelineID, columnID)
	if err != nil {
		return repository.Card{}, err
	}
	if !ok {
		return repository.Card{}, apperr.Validation("target column is not on the card's pipeline")
	}
	return s.repo.MoveCard(ctx, workspaceID, cardID, columnID)
}

// SetCardStatus closes (won/lost) or reopens a deal.
func (s *Service) SetCardStatus(ctx context.Context, workspaceID, cardID uuid.UUID, status string) (repository.Card, error) {
	switch status {
	case repository.CardStatusOpen, repository.CardStatusWon, repository.CardStatusLost:
	default:
		return repository.Card{}, apperr.Validation("invalid card status")
	}
	return s.repo.SetCardStatus(ctx, workspaceID, cardID, status)
}

// UpdateCard applies a full card edit.
func (s *Service) UpdateCard(ctx context.Context, workspaceID, cardID uuid.UUID, update repository.CardUpdate) (repository.Card, error) {
	if strings.TrimSpace(update.Title) == "" {
		return repository.Card{}, apperr.Validation("card title is required")
	}
	switch update.Status {
	case repository.CardStatusOpen, repository.CardStatusWon, repository.CardStatusLost:
	default:
		return repository.Card{}, apperr.Validation("invalid card status")
	}
	return s.repo.UpdateCard(ctx, workspaceID, cardID, update)
}

// DeleteCard removes a card.
func (s *Service) DeleteCard(ctx context.Context, workspaceID, cardID uuid.UUID) error {
	return s.repo.DeleteCard(ctx, workspaceID, cardID)
}

// SmartCardInput drives CheckAndCreate. PipelineID nil falls back to the
// workspace's first pipeline. ContactName may be empty; the phone is the
// title fallback.
type SmartCardInput struct {
	WorkspaceID    uuid.UUID
	ContactID      uuid.UUID
	ConversationID *uuid.UUID
	PipelineID     *uuid.UUID
	ContactName    string
	ContactPhone   string
}

// SmartCardResult reports what CheckAndCreate did.
type SmartCardResult struct {
	Card   repository.Card
	Action string
}

// CheckAndCreate opens a deal for the contact unless one already exists.
// A card already linked to the conversation is touched and returned. An
// open card for the same contact and pipeline yields the duplicate
// conflict so the caller closes the prior deal first.
func (s *Service) CheckAndCreate(ctx context.Context, in SmartCardInput) (SmartCardResult, error) {
	if in.ConversationID != nil {
		card, err := s.repo.GetCardByConversation(ctx, in.WorkspaceID, *in.ConversationID)
		if err == nil {
			touched, err := s.repo.TouchCard(ctx, in.WorkspaceID, card.ID)
			if err != nil {
				return SmartCardResult{}, err
			}
			return SmartCardResult{Card: touched, Action: ActionUpdated}, nil
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			return SmartCardResult{}, err
		}
	}

	pipelineID, err := s.resolvePipeline(ctx, in)
	if err != nil {
		return SmartCardResult{}, err
	}

	if _, err := s.repo.FindOpenCard(ctx, in.WorkspaceID, in.ContactID, pipelineID); err == nil {
		return SmartCardResult{}, repository.ErrDuplicateOpenCard
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return SmartCardResult{}, err
	}

	column, err := s.repo.FirstColumn(ctx, pipelineID)
	if err != nil {
		return SmartCardResult{}, err
	}

	card, err := s.repo.InsertCardLocked(ctx, repository.NewCard{
		WorkspaceID:    in.WorkspaceID,
		PipelineID:     pipelineID,
		ColumnID:       column.ID,
		ConversationID: in.ConversationID,
		ContactID:      in.ContactID,
		Title:          cardTitle(in.ContactName, in.ContactPhone),
		Status:         repository.CardStatusOpen,
		Value:          0,
		Tags:           []string{},
	})
	if err != nil {
		return SmartCardResult{}, err
	}

	s.bus.Publish(ctx, events.PipelineCardCreated{
		BaseEvent:   events.NewBaseEvent(),
		WorkspaceID: in.WorkspaceID,
		CardID:      card.ID,
		PipelineID:  pipelineID,
		ContactID:   in.ContactID,
		Title:       card.Title,
	})
	s.log.Info("pipeline card created", "card_id", card.ID, "pipeline_id", pipelineID, "contact_id", in.ContactID)

	return SmartCardResult{Card: card, Action: ActionCreated}, nil
}

func (s *Service) resolvePipeline(ctx context.Context, in SmartCardInput) (uuid.UUID, error) {
	if in.PipelineID != nil {
		if _, err := s.repo.GetPipeline(ctx, in.WorkspaceID, *in.PipelineID); err != nil {
			return uuid.Nil, err
		}
		return *in.PipelineID, nil
	}
	first, err := s.repo.FirstPipeline(ctx, in.WorkspaceID)
	if err != nil {
		return uuid.Nil, err
	}
	return first.ID, nil
}

func cardTitle(name, phone string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return phone
}
