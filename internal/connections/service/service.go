// Package service implements WhatsApp connection management: CRUD, QR
// pairing and gateway status refresh.
package service

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"zapdesk_backend/internal/connections/repository"
	"zapdesk_backend/internal/providers/adapters"
	providerrepo "zapdesk_backend/internal/providers/repository"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/logger"
)

const qrImageSize = 256

// PairingGateway reaches the provider adapters for a connection. Satisfied
// by the providers dispatcher.
type PairingGateway interface {
	PairingCode(ctx context.Context, workspaceID, connectionID uuid.UUID) (adapters.PairingInfo, error)
	ConnectionState(ctx context.Context, workspaceID, connectionID uuid.UUID) (string, error)
}

// PairingResult carries the device-link payload returned to the frontend.
type PairingResult struct {
	Code     string `json:"code,omitempty"`
	QRBase64 string `json:"qrBase64,omitempty"`
}

type Service struct {
	repo    repository.Repository
	gateway PairingGateway
	log     *logger.Logger
}

func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// BindGateway wires the provider dispatcher after both modules exist; the
// dispatcher resolves connections through this same service.
func (s *Service) BindGateway(gateway PairingGateway) {
	s.gateway = gateway
}

// Create registers a gateway connection.
func (s *Service) Create(ctx context.Context, workspaceID uuid.UUID, name, provider, instanceID string, defaultQueueID *uuid.UUID) (repository.Connection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return repository.Connection{}, apperr.Validation("connection name is required")
	}
	if provider != providerrepo.ProviderEvolution && provider != providerrepo.ProviderZAPI {
		return repository.Connection{}, apperr.Validation("provider must be evolution or zapi")
	}
	instanceID = strings.TrimSpace(instanceID)
	if instanceID == "" {
		return repository.Connection{}, apperr.Validation("instance id is required")
	}

	return s.repo.Create(ctx, repository.Connection{
		WorkspaceID:    workspaceID,
		Name:           name,
		Provider:       provider,
		InstanceID:     instanceID,
		DefaultQueueID: defaultQueueID,
	})
}

// Get retrieves one connection.
func (s *Service) Get(ctx context.Context, workspaceID, id uuid.UUID) (repository.Connection, error) {
	return s.repo.GetByID(ctx, workspaceID, id)
}

// List retrieves a workspace's connections.
func (s *Service) List(ctx context.Context, workspaceID uuid.UUID) ([]repository.Connection, error) {
	return s.repo.List(ctx, workspaceID)
}

// Update changes a connection's name and default queue.
func (s *Service) Update(ctx context.Context, workspaceID, id uuid.UUID, name string, defaultQueueID *uuid.UUID) (repository.Connection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return repository.Connection{}, apperr.Validation("connection name is required")
	}
	return s.repo.Update(ctx, workspaceID, id, name, defaultQueueID)
}

// Delete removes a connection.
func (s *Service) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	return s.repo.Delete(ctx, workspaceID, id)
}

// Pair requests the device-link payload from the provider and marks the
// connection as pairing. When the provider returns only a raw code, a QR
// image is rendered locally.
func (s *Service) Pair(ctx context.Context, workspaceID, id uuid.UUID) (PairingResult, error) {
	if s.gateway == nil {
		return PairingResult{}, apperr.Internal("provider gateway is not configured")
	}

	if _, err := s.repo.GetByID(ctx, workspaceID, id); err != nil {
		return PairingResult{}, err
	}

	info, err := s.gateway.PairingCode(ctx, workspaceID, id)
	if err != nil {
		return PairingResult{}, err
	}

	result := PairingResult{Code: info.Code, QRBase64: info.QRBase64}
	if result.QRBase64 == "" && result.Code != "" {
		png, err := qrcode.Encode(result.Code, qrcode.Medium, qrImageSize)
		if err != nil {
			return PairingResult{}, apperr.Wrap(apperr.KindInternal, "failed to render pairing qr code", err)
		}
		result.QRBase64 = base64.StdEncoding.EncodeToString(png)
	}

	if err := s.repo.SetStatus(ctx, workspaceID, id, repository.StatusPairing, nil); err != nil {
		return PairingResult{}, err
	}
	return result, nil
}

// RefreshStatus queries the gateway session state and stores it.
func (s *Service) RefreshStatus(ctx context.Context, workspaceID, id uuid.UUID) (repository.Connection, error) {
	if s.gateway == nil {
		return repository.Connection{}, apperr.Internal("provider gateway is not configured")
	}

	if _, err := s.repo.GetByID(ctx, workspaceID, id); err != nil {
		return repository.Connection{}, err
	}

	state, err := s.gateway.ConnectionState(ctx, workspaceID, id)
	if err != nil {
		return repository.Connection{}, err
	}

	status := normalizeState(state)
	if err := s.repo.SetStatus(ctx, workspaceID, id, status, nil); err != nil {
		return repository.Connection{}, err
	}
	return s.repo.GetByID(ctx, workspaceID, id)
}

// Resolve satisfies the providers dispatcher's ConnectionResolver.
func (s *Service) Resolve(ctx context.Context, workspaceID, connectionID uuid.UUID) (string, string, error) {
	c, err := s.repo.GetByID(ctx, workspaceID, connectionID)
	if err != nil {
		return "", "", err
	}
	return c.Provider, c.InstanceID, nil
}

// ResolveInstance finds the connection serving a gateway instance, used by
// webhook ingest to identify the tenant.
func (s *Service) ResolveInstance(ctx context.Context, provider, instanceID string) (repository.Connection, error) {
	return s.repo.GetByInstance(ctx, provider, instanceID)
}

// normalizeState maps the providers' state vocabularies onto ours.
func normalizeState(state string) string {
	switch strings.ToLower(state) {
	case "open", "connected":
		return repository.StatusConnected
	case "connecting", "pairing", "qrcode":
		return repository.StatusPairing
	default:
		return repository.StatusDisconnected
	}
}
