package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"zapdesk_backend/internal/auth/password"
	"zapdesk_backend/internal/auth/repository"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/logger"
)

type fakeRepo struct {
	byEmail map[string]repository.User
	byID    map[uuid.UUID]repository.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byEmail: make(map[string]repository.User),
		byID:    make(map[uuid.UUID]repository.User),
	}
}

func (f *fakeRepo) CreateUser(_ context.Context, name, email, passwordHash string) (repository.User, error) {
	if _, exists := f.byEmail[email]; exists {
		return repository.User{}, apperr.Conflict("email already registered")
	}
	u := repository.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.byEmail[email] = u
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (repository.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return repository.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return repository.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	u, ok := f.byID[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	u.PasswordHash = passwordHash
	f.byID[id] = u
	f.byEmail[u.Email] = u
	return nil
}

type fakeMembers struct {
	roles map[uuid.UUID]string
}

func (f *fakeMembers) MemberRole(_ context.Context, workspaceID, _ uuid.UUID) (string, error) {
	role, ok := f.roles[workspaceID]
	if !ok {
		return "", apperr.Forbidden("user is not a member of this workspace")
	}
	return role, nil
}

type testConfig struct{}

func (testConfig) GetJWTAccessSecret() string       { return "test-secret" }
func (testConfig) GetAccessTokenTTL() time.Duration { return 15 * time.Minute }

func newTestService(repo *fakeRepo, members *fakeMembers) *Service {
	if members == nil {
		members = &fakeMembers{roles: map[uuid.UUID]string{}}
	}
	return New(repo, testConfig{}, members, logger.New("test"))
}

func parseClaims(t *testing.T, signed string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("unexpected claims type %T", parsed.Claims)
	}
	return claims
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	user, err := svc.Register(context.Background(), "Ana", "ana@example.com", "hunter2secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.PasswordHash == "hunter2secret" {
		t.Fatal("password stored in plaintext")
	}
	if err := password.Compare(user.PasswordHash, "hunter2secret"); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestLoginIssuesUnscopedAccessToken(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	user, _ := svc.Register(context.Background(), "Ana", "ana@example.com", "hunter2secret")

	token, got, err := svc.Login(context.Background(), "ana@example.com", "hunter2secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("login returned wrong user: %s", got.ID)
	}

	claims := parseClaims(t, token)
	if claims["sub"] != user.ID.String() {
		t.Fatalf("sub = %v, want %s", claims["sub"], user.ID)
	}
	if claims["type"] != "access" {
		t.Fatalf("type = %v, want access", claims["type"])
	}
	if _, ok := claims["workspace_id"]; ok {
		t.Fatal("login token must not carry a workspace claim")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	svc.Register(context.Background(), "Ana", "ana@example.com", "hunter2secret")

	_, _, err := svc.Login(context.Background(), "ana@example.com", "wrong")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("want Unauthorized, got %v", err)
	}
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	user, _ := svc.Register(context.Background(), "Ana", "ana@example.com", "hunter2secret")

	u := repo.byID[user.ID]
	u.IsActive = false
	repo.byID[user.ID] = u
	repo.byEmail[u.Email] = u

	_, _, err := svc.Login(context.Background(), "ana@example.com", "hunter2secret")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("want Unauthorized, got %v", err)
	}
}

func TestSwitchWorkspaceScopesToken(t *testing.T) {
	repo := newFakeRepo()
	workspaceID := uuid.New()
	members := &fakeMembers{roles: map[uuid.UUID]string{workspaceID: "admin"}}
	svc := newTestService(repo, members)
	user, _ := svc.Register(context.Background(), "Ana", "ana@example.com", "hunter2secret")

	token, err := svc.SwitchWorkspace(context.Background(), user.ID, workspaceID)
	if err != nil {
		t.Fatalf("switch workspace: %v", err)
	}

	claims := parseClaims(t, token)
	if claims["workspace_id"] != workspaceID.String() {
		t.Fatalf("workspace_id = %v, want %s", claims["workspace_id"], workspaceID)
	}
	roles, ok := claims["roles"].([]interface{})
	if !ok || len(roles) != 1 || roles[0] != "admin" {
		t.Fatalf("roles = %v, want [admin]", claims["roles"])
	}
}

func TestSwitchWorkspaceRequiresMembership(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	user, _ := svc.Register(context.Background(), "Ana", "ana@example.com", "hunter2secret")

	_, err := svc.SwitchWorkspace(context.Background(), user.ID, uuid.New())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("want Forbidden, got %v", err)
	}
}

func TestChangePasswordChecksCurrent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	user, _ := svc.Register(context.Background(), "Ana", "ana@example.com", "hunter2secret")

	if err := svc.ChangePassword(context.Background(), user.ID, "wrong", "newsecret99"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("want Unauthorized, got %v", err)
	}

	if err := svc.ChangePassword(context.Background(), user.ID, "hunter2secret", "newsecret99"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "ana@example.com", "newsecret99"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
