// Package repository provides persistence for WhatsApp gateway connections.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Connection statuses.
const (
	StatusDisconnected = "disconnected"
	StatusPairing      = "pairing"
	StatusConnected    = "connected"
)

// Connection binds a workspace to one gateway instance of a provider.
type Connection struct {
	ID             uuid.UUID  `json:"id"`
	WorkspaceID    uuid.UUID  `json:"workspaceId"`
	Name           string     `json:"name"`
	Provider       string     `json:"provider"`
	InstanceID     string     `json:"instanceId"`
	Status         string     `json:"status"`
	PhoneNumber    *string    `json:"phoneNumber,omitempty"`
	DefaultQueueID *uuid.UUID `json:"defaultQueueId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Repository defines connection persistence operations.
type Repository interface {
	Create(ctx context.Context, c Connection) (Connection, error)
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (Connection, error)
	GetByInstance(ctx context.Context, provider, instanceID string) (Connection, error)
	List(ctx context.Context, workspaceID uuid.UUID) ([]Connection, error)
	Update(ctx context.Context, workspaceID, id uuid.UUID, name string, defaultQueueID *uuid.UUID) (Connection, error)
	SetStatus(ctx context.Context, workspaceID, id uuid.UUID, status string, phoneNumber *string) error
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
}
