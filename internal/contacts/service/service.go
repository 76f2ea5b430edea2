// Package service implements contact management: CRUD, tagging and the
// phone-keyed upsert used by inbound message ingest.
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"zapdesk_backend/internal/contacts/repository"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/logger"
	"zapdesk_backend/platform/phone"
)

const defaultTagColor = "#0ea5e9"

type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create adds a contact with its phone normalized to E.164.
func (s *Service) Create(ctx context.Context, workspaceID uuid.UUID, name, rawPhone string, avatarURL *string) (repository.Contact, error) {
	normalized := phone.NormalizeE164(rawPhone)
	if normalized == "" {
		return repository.Contact{}, apperr.Validation("phone is required")
	}
	return s.repo.Create(ctx, workspaceID, strings.TrimSpace(name), normalized, avatarURL)
}

// Get retrieves a contact with its tags.
func (s *Service) Get(ctx context.Context, workspaceID, id uuid.UUID) (repository.Contact, error) {
	contact, err := s.repo.GetByID(ctx, workspaceID, id)
	if err != nil {
		return repository.Contact{}, err
	}
	tags, err := s.repo.TagsForContact(ctx, contact.ID)
	if err != nil {
		return repository.Contact{}, err
	}
	contact.Tags = tags
	return contact, nil
}

// List retrieves contacts matching the filter.
func (s *Service) List(ctx context.Context, workspaceID uuid.UUID, filter repository.ListFilter) ([]repository.Contact, error) {
	return s.repo.List(ctx, workspaceID, filter)
}

// Update changes a contact's name and avatar.
func (s *Service) Update(ctx context.Context, workspaceID, id uuid.UUID, name string, avatarURL *string) (repository.Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return repository.Contact{}, apperr.Validation("name is required")
	}
	return s.repo.Update(ctx, workspaceID, id, name, avatarURL)
}

// Delete removes a contact.
func (s *Service) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	return s.repo.Delete(ctx, workspaceID, id)
}

// UpsertByPhone finds or creates the contact for an inbound message. The
// pushed name only fills contacts that never got one.
func (s *Service) UpsertByPhone(ctx context.Context, workspaceID uuid.UUID, rawPhone, pushName string) (repository.Contact, error) {
	normalized := phone.NormalizeE164(rawPhone)
	if normalized == "" {
		return repository.Contact{}, apperr.Validation("phone is required")
	}
	return s.repo.UpsertByPhone(ctx, workspaceID, normalized, strings.TrimSpace(pushName))
}

// ResolveNamePhone returns the display name and phone for a contact, used
// to title pipeline cards.
func (s *Service) ResolveNamePhone(ctx context.Context, workspaceID, contactID uuid.UUID) (string, string, error) {
	contact, err := s.repo.GetByID(ctx, workspaceID, contactID)
	if err != nil {
		return "", "", err
	}
	return contact.Name, contact.Phone, nil
}

// CreateTag adds a workspace tag.
func (s *Service) CreateTag(ctx context.Context, workspaceID uuid.UUID, name, color string) (repository.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return repository.Tag{}, apperr.Validation("tag name is required")
	}
	if color == "" {
		color = defaultTagColor
	}
	return s.repo.CreateTag(ctx, workspaceID, name, color)
}

// ListTags retrieves the workspace's tags.
func (s *Service) ListTags(ctx context.Context, workspaceID uuid.UUID) ([]repository.Tag, error) {
	return s.repo.ListTags(ctx, workspaceID)
}

// DeleteTag removes a tag.
func (s *Service) DeleteTag(ctx context.Context, workspaceID, tagID uuid.UUID) error {
	return s.repo.DeleteTag(ctx, workspaceID, tagID)
}

// AttachTag links a tag to a contact.
func (s *Service) AttachTag(ctx context.Context, workspaceID, contactID, tagID uuid.UUID) error {
	return s.repo.AttachTag(ctx, workspaceID, contactID, tagID)
}

// DetachTag unlinks a tag from a contact.
func (s *Service) DetachTag(ctx context.Context, workspaceID, contactID, tagID uuid.UUID) error {
	return s.repo.DetachTag(ctx, workspaceID, contactID, tagID)
}
