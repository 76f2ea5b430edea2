// Package adapters holds the HTTP clients for the WhatsApp gateway
// providers. Both implement the Client capability and record every call in
// the provider log through a Recorder.
package adapters

import (
	"context"

	"github.com/google/uuid"
)

// Client is the capability both gateway adapters provide.
type Client interface {
	// Provider returns the adapter's provider identifier.
	Provider() string
	// SendText delivers a text message and returns the provider message id.
	SendText(ctx context.Context, workspaceID uuid.UUID, instanceID, phoneNumber, body string) (string, error)
	// PairingCode requests the pairing payload used to link a device.
	PairingCode(ctx context.Context, workspaceID uuid.UUID, instanceID string) (PairingInfo, error)
	// ConnectionState reports the instance's session state.
	ConnectionState(ctx context.Context, workspaceID uuid.UUID, instanceID string) (string, error)
}

// PairingInfo is the device-link payload returned by a gateway.
type PairingInfo struct {
	Code     string `json:"code"`
	QRBase64 string `json:"qr_base64,omitempty"`
}

// Recorder appends provider interactions to the health log. Implementations
// must not fail the calling operation; recording errors are swallowed and
// logged internally.
type Recorder interface {
	Record(ctx context.Context, workspaceID uuid.UUID, provider, action, result string, payload map[string]any)
}
