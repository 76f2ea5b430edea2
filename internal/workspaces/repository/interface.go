package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Member roles.
const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

// Workspace is one tenant.
type Workspace struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is one user's membership in a workspace.
type Member struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	UserName    string    `json:"user_name"`
	UserEmail   string    `json:"user_email"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Queue is a routing bucket for incoming conversations.
type Queue struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository is the persistence boundary for workspaces and membership.
type Repository interface {
	Create(ctx context.Context, name, slug string) (Workspace, error)
	GetByID(ctx context.Context, id uuid.UUID) (Workspace, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Workspace, error)

	AddMember(ctx context.Context, workspaceID, userID uuid.UUID, role string) (Member, error)
	ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]Member, error)
	SetMemberActive(ctx context.Context, workspaceID, userID uuid.UUID, active bool) error
	SetMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, role string) error
	IsActiveMember(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error)
	MemberRole(ctx context.Context, workspaceID, userID uuid.UUID) (string, error)

	CreateQueue(ctx context.Context, workspaceID uuid.UUID, name, color string) (Queue, error)
	ListQueues(ctx context.Context, workspaceID uuid.UUID) ([]Queue, error)
	DeleteQueue(ctx context.Context, workspaceID, id uuid.UUID) error
}
