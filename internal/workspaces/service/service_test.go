package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"zapdesk_backend/internal/workspaces/repository"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/logger"
)

type fakeRepo struct {
	workspaces map[uuid.UUID]repository.Workspace
	members    map[uuid.UUID]map[uuid.UUID]repository.Member
	queues     map[uuid.UUID]repository.Queue
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		workspaces: make(map[uuid.UUID]repository.Workspace),
		members:    make(map[uuid.UUID]map[uuid.UUID]repository.Member),
		queues:     make(map[uuid.UUID]repository.Queue),
	}
}

func (f *fakeRepo) Create(_ context.Context, name, slug string) (repository.Workspace, error) {
	w := repository.Workspace{ID: uuid.New(), Name: name, Slug: slug}
	f.workspaces[w.ID] = w
	return w, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Workspace, error) {
	w, ok := f.workspaces[id]
	if !ok {
		return repository.Workspace{}, apperr.NotFound("workspace not found")
	}
	return w, nil
}

func (f *fakeRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]repository.Workspace, error) {
	var out []repository.Workspace
	for wsID, members := range f.members {
		if m, ok := members[userID]; ok && m.IsActive {
			out = append(out, f.workspaces[wsID])
		}
	}
	return out, nil
}

func (f *fakeRepo) AddMember(_ context.Context, workspaceID, userID uuid.UUID, role string) (repository.Member, error) {
	if f.members[workspaceID] == nil {
		f.members[workspaceID] = make(map[uuid.UUID]repository.Member)
	}
	if _, exists := f.members[workspaceID][userID]; exists {
		return repository.Member{}, apperr.Conflict("user is already a member of this workspace")
	}
	m := repository.Member{ID: uuid.New(), WorkspaceID: workspaceID, UserID: userID, Role: role, IsActive: true}
	f.members[workspaceID][userID] = m
	return m, nil
}

func (f *fakeRepo) ListMembers(_ context.Context, workspaceID uuid.UUID) ([]repository.Member, error) {
	var out []repository.Member
	for _, m := range f.members[workspaceID] {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeRepo) SetMemberActive(_ context.Context, workspaceID, userID uuid.UUID, active bool) error {
	m, ok := f.members[workspaceID][userID]
	if !ok {
		return apperr.NotFound("member not found")
	}
	m.IsActive = active
	f.members[workspaceID][userID] = m
	return nil
}

func (f *fakeRepo) SetMemberRole(_ context.Context, workspaceID, userID uuid.UUID, role string) error {
	m, ok := f.members[workspaceID][userID]
	if !ok {
		return apperr.NotFound("member not found")
	}
	m.Role = role
	f.members[workspaceID][userID] = m
	return nil
}

func (f *fakeRepo) IsActiveMember(_ context.Context, workspaceID, userID uuid.UUID) (bool, error) {
	m, ok := f.members[workspaceID][userID]
	return ok && m.IsActive, nil
}

func (f *fakeRepo) MemberRole(_ context.Context, workspaceID, userID uuid.UUID) (string, error) {
	m, ok := f.members[workspaceID][userID]
	if !ok || !m.IsActive {
		return "", apperr.NotFound("member not found")
	}
	return m.Role, nil
}

func (f *fakeRepo) CreateQueue(_ context.Context, workspaceID uuid.UUID, name, color string) (repository.Queue, error) {
	q := repository.Queue{ID: uuid.New(), WorkspaceID: workspaceID, Name: name, Color: color}
	f.queues[q.ID] = q
	return q, nil
}

func (f *fakeRepo) ListQueues(_ context.Context, workspaceID uuid.UUID) ([]repository.Queue, error) {
	var out []repository.Queue
	for _, q := range f.queues {
		if q.WorkspaceID == workspaceID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeRepo) DeleteQueue(_ context.Context, workspaceID, id uuid.UUID) error {
	delete(f.queues, id)
	return nil
}

var _ repository.Repository = (*fakeRepo)(nil)

func TestCreateMakesCreatorAdmin(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, logger.New("test"))
	creator := uuid.New()

	ws, err := svc.Create(context.Background(), creator, "Acme", "acme")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	role, err := repo.MemberRole(context.Background(), ws.ID, creator)
	if err != nil {
		t.Fatalf("member role: %v", err)
	}
	if role != repository.RoleAdmin {
		t.Fatalf("creator should be admin, got %q", role)
	}
}

func TestCreateRejectsBadSlug(t *testing.T) {
	svc := New(newFakeRepo(), logger.New("test"))

	_, err := svc.Create(context.Background(), uuid.New(), "Acme", "Bad Slug!")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddMemberRequiresAdmin(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, logger.New("test"))
	ctx := context.Background()

	admin := uuid.New()
	ws, err := svc.Create(ctx, admin, "Acme", "acme")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	agent := uuid.New()
	if _, err := svc.AddMember(ctx, ws.ID, admin, agent, repository.RoleAgent); err != nil {
		t.Fatalf("admin add member: %v", err)
	}

	outsider := uuid.New()
	_, err = svc.AddMember(ctx, ws.ID, agent, outsider, repository.RoleAgent)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("agent must not add members, got %v", err)
	}
}

func TestAdminCannotDeactivateSelf(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, logger.New("test"))
	ctx := context.Background()

	admin := uuid.New()
	ws, err := svc.Create(ctx, admin, "Acme", "acme")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.SetMemberActive(ctx, ws.ID, admin, admin, false)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
