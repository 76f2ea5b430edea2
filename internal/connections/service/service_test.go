package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"zapdesk_backend/internal/connections/repository"
	"zapdesk_backend/internal/providers/adapters"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/logger"
)

type fakeRepo struct {
	repository.Repository

	connections map[uuid.UUID]repository.Connection
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{connections: make(map[uuid.UUID]repository.Connection)}
}

func (f *fakeRepo) Create(_ context.Context, c repository.Connection) (repository.Connection, error) {
	for _, existing := range f.connections {
		if existing.Provider == c.Provider && existing.InstanceID == c.InstanceID {
			return repository.Connection{}, apperr.Conflict("this gateway instance is already connected")
		}
	}
	c.ID = uuid.New()
	c.Status = repository.StatusDisconnected
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	f.connections[c.ID] = c
	return c, nil
}

func (f *fakeRepo) GetByID(_ context.Context, workspaceID, id uuid.UUID) (repository.Connection, error) {
	c, ok := f.connections[id]
	if !ok || c.WorkspaceID != workspaceID {
		return repository.Connection{}, apperr.NotFound("connection not found")
	}
	return c, nil
}

func (f *fakeRepo) SetStatus(_ context.Context, workspaceID, id uuid.UUID, status string, phoneNumber *string) error {
	c, ok := f.connections[id]
	if !ok || c.WorkspaceID != workspaceID {
		return apperr.NotFound("connection not found")
	}
	c.Status = status
	if phoneNumber != nil {
		c.PhoneNumber = phoneNumber
	}
	f.connections[id] = c
	return nil
}

type fakeGateway struct {
	pairing adapters.PairingInfo
	state   string
	err     error
}

func (f *fakeGateway) PairingCode(context.Context, uuid.UUID, uuid.UUID) (adapters.PairingInfo, error) {
	return f.pairing, f.err
}

func (f *fakeGateway) ConnectionState(context.Context, uuid.UUID, uuid.UUID) (string, error) {
	return f.state, f.err
}

func seedConnection(t *testing.T, svc *Service, workspaceID uuid.UUID) repository.Connection {
	t.Helper()
	c, err := svc.Create(context.Background(), workspaceID, "Main line", "evolution", "instance-01", nil)
	if err != nil {
		t.Fatalf("seed connection: %v", err)
	}
	return c
}

func TestCreateValidatesProvider(t *testing.T) {
	svc := New(newFakeRepo(), logger.New("test"))

	_, err := svc.Create(context.Background(), uuid.New(), "Main", "telegram", "x", nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("want Validation, got %v", err)
	}
}

func TestPairRendersQRFromRawCode(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, logger.New("test"))
	svc.BindGateway(&fakeGateway{pairing: adapters.PairingInfo{Code: "pair-me-1234"}})
	workspaceID := uuid.New()
	conn := seedConnection(t, svc, workspaceID)

	result, err := svc.Pair(context.Background(), workspaceID, conn.ID)
	if err != nil {
		t.Fatalf("pair: %v", err)
	}
	if result.QRBase64 == "" {
		t.Fatal("expected a rendered qr image for a raw pairing code")
	}
	if repo.connections[conn.ID].Status != repository.StatusPairing {
		t.Fatalf("status = %s, want pairing", repo.connections[conn.ID].Status)
	}
}

func TestPairKeepsProviderQRImage(t *testing.T) {
	svc := New(newFakeRepo(), logger.New("test"))
	svc.BindGateway(&fakeGateway{pairing: adapters.PairingInfo{QRBase64: "ZnJvbS1wcm92aWRlcg=="}})
	workspaceID := uuid.New()
	conn := seedConnection(t, svc, workspaceID)

	result, err := svc.Pair(context.Background(), workspaceID, conn.ID)
	if err != nil {
		t.Fatalf("pair: %v", err)
	}
	if result.QRBase64 != "ZnJvbS1wcm92aWRlcg==" {
		t.Fatalf("provider qr image must pass through unchanged, got %q", result.QRBase64)
	}
}

func TestRefreshStatusNormalizesProviderVocabulary(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, logger.New("test"))
	gateway := &fakeGateway{state: "open"}
	svc.BindGateway(gateway)
	workspaceID := uuid.New()
	conn := seedConnection(t, svc, workspaceID)

	updated, err := svc.RefreshStatus(context.Background(), workspaceID, conn.ID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if updated.Status != repository.StatusConnected {
		t.Fatalf("status = %s, want connected", updated.Status)
	}

	gateway.state = "close"
	updated, err = svc.RefreshStatus(context.Background(), workspaceID, conn.ID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if updated.Status != repository.StatusDisconnected {
		t.Fatalf("status = %s, want disconnected", updated.Status)
	}
}

func TestResolveReturnsProviderAndInstance(t *testing.T) {
	svc := New(newFakeRepo(), logger.New("test"))
	workspaceID := uuid.New()
	conn := seedConnection(t, svc, workspaceID)

	provider, instanceID, err := svc.Resolve(context.Background(), workspaceID, conn.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if provider != "evolution" || instanceID != "instance-01" {
		t.Fatalf("resolved %s/%s", provider, instanceID)
	}

	if _, _, err := svc.Resolve(context.Background(), uuid.New(), conn.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("cross-workspace resolve must be NotFound, got %v", err)
	}
}
