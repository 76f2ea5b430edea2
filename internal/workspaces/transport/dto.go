// Package transport defines request shapes for the workspaces HTTP API.
package transport

import "github.com/google/uuid"

// CreateWorkspaceRequest provisions a tenant.
type CreateWorkspaceRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
	Slug string `json:"slug" validate:"required,min=2,max=60"`
}

// AddMemberRequest invites a user into the workspace.
type AddMemberRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
	Role   string    `json:"role" validate:"required,oneof=admin agent"`
}

// UpdateMemberRequest toggles or re-roles a member. Omitted fields are
// left untouched.
type UpdateMemberRequest struct {
	IsActive *bool  `json:"isActive"`
	Role     string `json:"role" validate:"omitempty,oneof=admin agent"`
}

// CreateQueueRequest adds a routing queue.
type CreateQueueRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=80"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}
