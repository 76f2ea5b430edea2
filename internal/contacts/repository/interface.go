// Package repository provides persistence for contacts and their tags.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Contact is a WhatsApp contact scoped to a workspace, unique by phone.
type Contact struct {
	ID        uuid.UUID `json:"id"`
	Workspace uuid.UUID `json:"workspaceId"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
	Tags      []Tag     `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tag is a workspace-level label attachable to contacts.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	Workspace uuid.UUID `json:"workspaceId"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListFilter narrows contact listings.
type ListFilter struct {
	Search string
	TagID  *uuid.UUID
	Limit  int
	Offset int
}

// Repository defines contact persistence operations.
type Repository interface {
	Create(ctx context.Context, workspaceID uuid.UUID, name, phone string, avatarURL *string) (Contact, error)
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (Contact, error)
	GetByPhone(ctx context.Context, workspaceID uuid.UUID, phone string) (Contact, error)
	List(ctx context.Context, workspaceID uuid.UUID, filter ListFilter) ([]Contact, error)
	Update(ctx context.Context, workspaceID, id uuid.UUID, name string, avatarURL *string) (Contact, error)
	UpsertByPhone(ctx context.Context, workspaceID uuid.UUID, phone, name string) (Contact, error)
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error

	CreateTag(ctx context.Context, workspaceID uuid.UUID, name, color string) (Tag, error)
	ListTags(ctx context.Context, workspaceID uuid.UUID) ([]Tag, error)
	DeleteTag(ctx context.Context, workspaceID, tagID uuid.UUID) error
	AttachTag(ctx context.Context, workspaceID, contactID, tagID uuid.UUID) error
	DetachTag(ctx context.Context, workspaceID, contactID, tagID uuid.UUID) error
	TagsForContact(ctx context.Context, contactID uuid.UUID) ([]Tag, error)
}
