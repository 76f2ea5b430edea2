// Package service implements workspace, membership and queue management.
package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"zapdesk_backend/internal/workspaces/repository"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/logger"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Service provides business logic for workspaces.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new workspaces service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create provisions a workspace and makes the creator its admin.
func (s *Service) Create(ctx context.Context, creatorID uuid.UUID, name, slug string) (repository.Workspace, error) {
	if strings.TrimSpace(name) == "" {
		return repository.Workspace{}, apperr.Validation("workspace name is required")
	}
	if !slugPattern.MatchString(slug) {
		return repository.Workspace{}, apperr.Validation("slug must be lowercase letters, digits and hyphens")
	}

	workspace, err := s.repo.Create(ctx, name, slug)
	if err != nil {
		return repository.Workspace{}, err
	}
	if _, err := s.repo.AddMember(ctx, workspace.ID, creatorID, repository.RoleAdmin); err != nil {
		return repository.Workspace{}, err
	}
	s.log.Info("workspace created", "workspace_id", workspace.ID, "slug", slug)
	return workspace, nil
}

// Get retrieves a workspace the user belongs to.
func (s *Service) Get(ctx context.Context, workspaceID, userID uuid.UUID) (repository.Workspace, error) {
	if err := s.requireMember(ctx, workspaceID, userID); err != nil {
		return repository.Workspace{}, err
	}
	return s.repo.GetByID(ctx, workspaceID)
}

// ListForUser retrieves the caller's workspaces.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]repository.Workspace, error) {
	return s.repo.ListForUser(ctx, userID)
}

// AddMember invites a user; only admins may do this.
func (s *Service) AddMember(ctx context.Context, workspaceID, actorID, userID uuid.UUID, role string) (repository.Member, error) {
	if err := s.requireAdmin(ctx, workspaceID, actorID); err != nil {
		return repository.Member{}, err
	}
	if role != repository.RoleAdmin && role != repository.RoleAgent {
		return repository.Member{}, apperr.Validation("role must be admin or agent")
	}
	return s.repo.AddMember(ctx, workspaceID, userID, role)
}

// ListMembers retrieves the roster.
func (s *Service) ListMembers(ctx context.Context, workspaceID, actorID uuid.UUID) ([]repository.Member, error) {
	if err := s.requireMember(ctx, workspaceID, actorID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, workspaceID)
}

// SetMemberActive enables or disables a membership; admins only, and an
// admin cannot deactivate themself.
func (s *Service) SetMemberActive(ctx context.Context, workspaceID, actorID, userID uuid.UUID, active bool) error {
	if err := s.requireAdmin(ctx, workspaceID, actorID); err != nil {
		return err
	}
	if actorID == userID && !active {
		return apperr.Validation("cannot deactivate your own membership")
	}
	return s.repo.SetMemberActive(ctx, workspaceID, userID, active)
}

// SetMemberRole changes a member's role; admins only.
func (s *Service) SetMemberRole(ctx context.Context, workspaceID, actorID, userID uuid.UUID, role string) error {
	if err := s.requireAdmin(ctx, workspaceID, actorID); err != nil {
		return err
	}
	if role != repository.RoleAdmin && role != repository.RoleAgent {
		return apperr.Validation("role must be admin or agent")
	}
	return s.repo.SetMemberRole(ctx, workspaceID, userID, role)
}

// IsActiveMember satisfies the membership checks other modules depend on.
func (s *Service) IsActiveMember(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error) {
	return s.repo.IsActiveMember(ctx, workspaceID, userID)
}

// MemberRole returns a user's role in a workspace, requiring an active
// membership. Backs workspace-scoped token issuance.
func (s *Service) MemberRole(ctx context.Context, workspaceID, userID uuid.UUID) (string, error) {
	if err := s.requireMember(ctx, workspaceID, userID); err != nil {
		return "", err
	}
	return s.repo.MemberRole(ctx, workspaceID, userID)
}

// CreateQueue adds a routing queue; admins only.
func (s *Service) CreateQueue(ctx context.Context, workspaceID, actorID uuid.UUID, name, color string) (repository.Queue, error) {
	if err := s.requireAdmin(ctx, workspaceID, actorID); err != nil {
		return repository.Queue{}, err
	}
	if strings.TrimSpace(name) == "" {
		return repository.Queue{}, apperr.Validation("queue name is required")
	}
	if color == "" {
		color = "#7c3aed"
	}
	return s.repo.CreateQueue(ctx, workspaceID, name, color)
}

// ListQueues retrieves a workspace's queues.
func (s *Service) ListQueues(ctx context.Context, workspaceID, actorID uuid.UUID) ([]repository.Queue, error) {
	if err := s.requireMember(ctx, workspaceID, actorID); err != nil {
		return nil, err
	}
	return s.repo.ListQueues(ctx, workspaceID)
}

// DeleteQueue removes a queue; admins only.
func (s *Service) DeleteQueue(ctx context.Context, workspaceID, actorID, queueID uuid.UUID) error {
	if err := s.requireAdmin(ctx, workspaceID, actorID); err != nil {
		return err
	}
	return s.repo.DeleteQueue(ctx, workspaceID, queueID)
}

func (s *Service) requireMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	member, err := s.repo.IsActiveMember(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if !member {
		return apperr.Forbidden("user is not a member of this workspace")
	}
	return nil
}

func (s *Service) requireAdmin(ctx context.Context, workspaceID, userID uuid.UUID) error {
	role, err := s.repo.MemberRole(ctx, workspaceID, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.Forbidden("user is not a member of this workspace")
		}
		return err
	}
	if role != repository.RoleAdmin {
		return apperr.Forbidden("admin role required")
	}
	return nil
}
