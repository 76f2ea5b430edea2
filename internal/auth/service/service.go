// Package service implements authentication: registration, credential
// checks and JWT access token issuance.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"zapdesk_backend/internal/auth/password"
	"zapdesk_backend/internal/auth/repository"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/config"
	"zapdesk_backend/platform/logger"
)

const accessTokenType = "access"

// MembershipResolver resolves a user's role inside a workspace. Implemented
// by the workspaces service.
type MembershipResolver interface {
	MemberRole(ctx context.Context, workspaceID, userID uuid.UUID) (string, error)
}

type Service struct {
	repo    repository.Repository
	cfg     config.AuthServiceConfig
	members MembershipResolver
	log     *logger.Logger
	now     func() time.Time
}

func New(repo repository.Repository, cfg config.AuthServiceConfig, members MembershipResolver, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		cfg:     cfg,
		members: members,
		log:     log,
		now:     time.Now,
	}
}

// Register creates a user account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, name, email, plainPassword string) (repository.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return repository.User{}, apperr.Validation("name is required")
	}

	hash, err := password.Hash(plainPassword)
	if err != nil {
		return repository.User{}, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	user, err := s.repo.CreateUser(ctx, name, email, hash)
	if err != nil {
		return repository.User{}, err
	}

	s.log.AuthEvent("register", user.Email, true, "")
	return user, nil
}

// Login verifies credentials and issues an access token without workspace
// scope. The caller exchanges it via SwitchWorkspace to act inside a tenant.
func (s *Service) Login(ctx context.Context, email, plainPassword string) (string, repository.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.log.AuthEvent("login", email, false, "unknown email")
		return "", repository.User{}, apperr.Unauthorized("invalid credentials")
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("login", email, false, "password mismatch")
		return "", repository.User{}, apperr.Unauthorized("invalid credentials")
	}

	if !user.IsActive {
		s.log.AuthEvent("login", email, false, "account deactivated")
		return "", repository.User{}, apperr.Unauthorized("invalid credentials")
	}

	token, err := s.signAccessToken(user.ID, nil, uuid.Nil)
	if err != nil {
		return "", repository.User{}, err
	}

	s.log.AuthEvent("login", user.Email, true, "")
	return token, user, nil
}

// SwitchWorkspace issues a token scoped to the given workspace, carrying the
// caller's membership role. Requires an active membership.
func (s *Service) SwitchWorkspace(ctx context.Context, userID, workspaceID uuid.UUID) (string, error) {
	role, err := s.members.MemberRole(ctx, workspaceID, userID)
	if err != nil {
		return "", err
	}
	return s.signAccessToken(userID, []string{role}, workspaceID)
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// ChangePassword verifies the current password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := password.Compare(user.PasswordHash, current); err != nil {
		return apperr.Unauthorized("current password is incorrect")
	}

	hash, err := password.Hash(next)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}
	return s.repo.UpdatePassword(ctx, userID, hash)
}

func (s *Service) signAccessToken(userID uuid.UUID, roles []string, workspaceID uuid.UUID) (string, error) {
	issuedAt := s.now()
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"type":  accessTokenType,
		"roles": roles,
		"exp":   issuedAt.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":   issuedAt.Unix(),
	}
	if workspaceID != uuid.Nil {
		claims["workspace_id"] = workspaceID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to sign access token", err)
	}
	return signed, nil
}
