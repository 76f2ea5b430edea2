package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"zapdesk_backend/internal/providers/adapters"
	"zapdesk_backend/platform/apperr"
)

// ConnectionResolver maps a connection to its provider and gateway instance.
type ConnectionResolver interface {
	Resolve(ctx context.Context, workspaceID, connectionID uuid.UUID) (provider, instanceID string, err error)
}

// Dispatcher routes outbound operations to the adapter bound to the
// connection's provider. It is the MessageSender the conversations module
// depends on.
type Dispatcher struct {
	connections ConnectionResolver
	clients     map[string]adapters.Client
}

// NewDispatcher builds the routing table from the configured adapters.
// Nil adapters (unconfigured gateways) are skipped.
func NewDispatcher(connections ConnectionResolver, clients ...adapters.Client) *Dispatcher {
	table := make(map[string]adapters.Client, len(clients))
	for _, c := range clients {
		if c == nil {
			continue
		}
		table[c.Provider()] = c
	}
	return &Dispatcher{connections: connections, clients: table}
}

// SendText delivers a text through the connection's provider.
func (d *Dispatcher) SendText(ctx context.Context, workspaceID, connectionID uuid.UUID, phoneNumber, body string) (string, error) {
	client, instanceID, err := d.route(ctx, workspaceID, connectionID)
	if err != nil {
		return "", err
	}
	return client.SendText(ctx, workspaceID, instanceID, phoneNumber, body)
}

// PairingCode requests the device-link payload for a connection.
func (d *Dispatcher) PairingCode(ctx context.Context, workspaceID, connectionID uuid.UUID) (adapters.PairingInfo, error) {
	client, instanceID, err := d.route(ctx, workspaceID, connectionID)
	if err != nil {
		return adapters.PairingInfo{}, err
	}
	return client.PairingCode(ctx, workspaceID, instanceID)
}

// ConnectionState reports the gateway session state for a connection.
func (d *Dispatcher) ConnectionState(ctx context.Context, workspaceID, connectionID uuid.UUID) (string, error) {
	client, instanceID, err := d.route(ctx, workspaceID, connectionID)
	if err != nil {
		return "", err
	}
	return client.ConnectionState(ctx, workspaceID, instanceID)
}

func (d *Dispatcher) route(ctx context.Context, workspaceID, connectionID uuid.UUID) (adapters.Client, string, error) {
	provider, instanceID, err := d.connections.Resolve(ctx, workspaceID, connectionID)
	if err != nil {
		return nil, "", err
	}
	client, ok := d.clients[provider]
	if !ok {
		return nil, "", apperr.Internal(fmt.Sprintf("provider %s is not configured", provider))
	}
	return client, instanceID, nil
}
