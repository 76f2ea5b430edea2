package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"zapdesk_backend/internal/providers/repository"
	"zapdesk_backend/platform/config"
	"zapdesk_backend/platform/logger"
	"zapdesk_backend/platform/phone"
)

// ZAPI is the HTTP client for the Z-API gateway.
type ZAPI struct {
	baseURL     string
	clientToken string
	http        *http.Client
	recorder    Recorder
	log         *logger.Logger
}

type zapiSendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type zapiSendResponse struct {
	MessageID string `json:"messageId"`
	ZaapID    string `json:"zaapId"`
}

type zapiQRResponse struct {
	Value string `json:"value"`
}

type zapiStatusResponse struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error"`
}

// NewZAPI creates the Z-API adapter, nil when unconfigured.
func NewZAPI(cfg config.ZAPIConfig, recorder Recorder, log *logger.Logger) *ZAPI {
	if cfg.GetZAPIBaseURL() == "" {
		return nil
	}
	return &ZAPI{
		baseURL:     strings.TrimRight(cfg.GetZAPIBaseURL(), "/"),
		clientToken: cfg.GetZAPIClientToken(),
		http:        &http.Client{Timeout: 10 * time.Second},
		recorder:    recorder,
		log:         log,
	}
}

// Provider returns the provider identifier.
func (c *ZAPI) Provider() string { return repository.ProviderZAPI }

// SendText delivers a text through /instances/{instance}/send-text.
func (c *ZAPI) SendText(ctx context.Context, workspaceID uuid.UUID, instanceID, phoneNumber, body string) (string, error) {
	normalized := strings.TrimPrefix(phone.NormalizeE164(phoneNumber), "+")

	payload, err := json.Marshal(zapiSendRequest{Phone: normalized, Message: body})
	if err != nil {
		return "", fmt.Errorf("marshal zapi payload: %w", err)
	}

	url := fmt.Sprintf("%s/instances/%s/send-text", c.baseURL, instanceID)
	data, err := c.do(ctx, http.MethodPost, url, payload)
	logPayload := map[string]any{"instance_id": instanceID, "phone": normalized}
	if err != nil {
		logPayload["error"] = err.Error()
		c.recorder.Record(ctx, workspaceID, c.Provider(), "send_text", repository.ResultError, logPayload)
		return "", err
	}

	var resp zapiSendResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		logPayload["error"] = err.Error()
		c.recorder.Record(ctx, workspaceID, c.Provider(), "send_text", repository.ResultError, logPayload)
		return "", fmt.Errorf("decode zapi response: %w", err)
	}

	messageID := resp.MessageID
	if messageID == "" {
		messageID = resp.ZaapID
	}
	logPayload["message_id"] = messageID
	c.recorder.Record(ctx, workspaceID, c.Provider(), "send_text", repository.ResultSuccess, logPayload)
	c.log.ProviderCall(c.Provider(), "send_text", true, nil)
	return messageID, nil
}

// PairingCode requests /instances/{instance}/qr-code/image.
func (c *ZAPI) PairingCode(ctx context.Context, workspaceID uuid.UUID, instanceID string) (PairingInfo, error) {
	url := fmt.Sprintf("%s/instances/%s/qr-code/image", c.baseURL, instanceID)
	data, err := c.do(ctx, http.MethodGet, url, nil)
	logPayload := map[string]any{"instance_id": instanceID}
	if err != nil {
		logPayload["error"] = err.Error()
		c.recorder.Record(ctx, workspaceID, c.Provider(), "pairing_code", repository.ResultError, logPayload)
		return PairingInfo{}, err
	}

	var resp zapiQRResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return PairingInfo{}, fmt.Errorf("decode zapi qr response: %w", err)
	}

	c.recorder.Record(ctx, workspaceID, c.Provider(), "pairing_code", repository.ResultSuccess, logPayload)
	return PairingInfo{QRBase64: resp.Value}, nil
}

// ConnectionState requests /instances/{instance}/status.
func (c *ZAPI) ConnectionState(ctx context.Context, workspaceID uuid.UUID, instanceID string) (string, error) {
	url := fmt.Sprintf("%s/instances/%s/status", c.baseURL, instanceID)
	data, err := c.do(ctx, http.MethodGet, url, nil)
	logPayload := map[string]any{"instance_id": instanceID}
	if err != nil {
		logPayload["error"] = err.Error()
		c.recorder.Record(ctx, workspaceID, c.Provider(), "connection_state", repository.ResultError, logPayload)
		return "", err
	}

	var resp zapiStatusResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode zapi status response: %w", err)
	}

	state := "disconnected"
	if resp.Connected {
		state = "connected"
	}
	logPayload["state"] = state
	c.recorder.Record(ctx, workspaceID, c.Provider(), "connection_state", repository.ResultSuccess, logPayload)
	return state, nil
}

func (c *ZAPI) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.clientToken != "" {
		req.Header.Set("Client-Token", c.clientToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zapi request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read zapi response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("zapi returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

var _ Client = (*ZAPI)(nil)
