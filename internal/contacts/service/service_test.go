package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"zapdesk_backend/internal/contacts/repository"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/logger"
)

type fakeRepo struct {
	repository.Repository

	contacts map[uuid.UUID]repository.Contact
	byPhone  map[string]uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		contacts: make(map[uuid.UUID]repository.Contact),
		byPhone:  make(map[string]uuid.UUID),
	}
}

func (f *fakeRepo) Create(_ context.Context, workspaceID uuid.UUID, name, phone string, avatarURL *string) (repository.Contact, error) {
	if _, exists := f.byPhone[phone]; exists {
		return repository.Contact{}, apperr.Conflict("contact with this phone already exists")
	}
	c := repository.Contact{
		ID:        uuid.New(),
		Workspace: workspaceID,
		Name:      name,
		Phone:     phone,
		AvatarURL: avatarURL,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.contacts[c.ID] = c
	f.byPhone[phone] = c.ID
	return c, nil
}

func (f *fakeRepo) GetByID(_ context.Context, workspaceID, id uuid.UUID) (repository.Contact, error) {
	c, ok := f.contacts[id]
	if !ok || c.Workspace != workspaceID {
		return repository.Contact{}, apperr.NotFound("contact not found")
	}
	return c, nil
}

func (f *fakeRepo) UpsertByPhone(_ context.Context, workspaceID uuid.UUID, phone, name string) (repository.Contact, error) {
	if id, ok := f.byPhone[phone]; ok {
		c := f.contacts[id]
		if c.Name == "" {
			c.Name = name
			f.contacts[id] = c
		}
		return c, nil
	}
	return f.Create(context.Background(), workspaceID, name, phone, nil)
}

func TestCreateNormalizesPhone(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, logger.New("test"))
	workspaceID := uuid.New()

	contact, err := svc.Create(context.Background(), workspaceID, "Ana", "(11) 98765-4321", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if contact.Phone != "+5511987654321" {
		t.Fatalf("phone = %s, want +5511987654321", contact.Phone)
	}
}

func TestCreateRejectsEmptyPhone(t *testing.T) {
	svc := New(newFakeRepo(), logger.New("test"))

	_, err := svc.Create(context.Background(), uuid.New(), "Ana", "   ", nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("want Validation, got %v", err)
	}
}

func TestUpsertKeepsCuratedName(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, logger.New("test"))
	workspaceID := uuid.New()

	created, err := svc.Create(context.Background(), workspaceID, "Ana Clara", "+5511987654321", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	upserted, err := svc.UpsertByPhone(context.Background(), workspaceID, "11 98765-4321", "WhatsApp Push Name")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if upserted.ID != created.ID {
		t.Fatalf("upsert created a duplicate contact")
	}
	if upserted.Name != "Ana Clara" {
		t.Fatalf("name = %s, want Ana Clara", upserted.Name)
	}
}

func TestResolveNamePhone(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, logger.New("test"))
	workspaceID := uuid.New()

	created, _ := svc.Create(context.Background(), workspaceID, "Ana", "+5511987654321", nil)

	name, phone, err := svc.ResolveNamePhone(context.Background(), workspaceID, created.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if name != "Ana" || phone != "+5511987654321" {
		t.Fatalf("resolved %q/%q", name, phone)
	}

	if _, _, err := svc.ResolveNamePhone(context.Background(), uuid.New(), created.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("cross-workspace resolve must be NotFound, got %v", err)
	}
}
