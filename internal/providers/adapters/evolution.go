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

// Evolution is the HTTP client for the Evolution API gateway.
type Evolution struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	recorder Recorder
	log      *logger.Logger
}

type evolutionSendRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type evolutionSendResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
}

type evolutionConnectResponse struct {
	PairingCode string `json:"pairingCode"`
	Code        string `json:"code"`
	Base64      string `json:"base64"`
}

type evolutionStateResponse struct {
	Instance struct {
		State string `json:"state"`
	} `json:"instance"`
}

// NewEvolution creates the Evolution adapter. Returns nil when the gateway
// is not configured; callers treat a nil adapter as provider-unavailable.
func NewEvolution(cfg config.EvolutionConfig, recorder Recorder, log *logger.Logger) *Evolution {
	if cfg.GetEvolutionBaseURL() == "" {
		return nil
	}
	return &Evolution{
		baseURL:  strings.TrimRight(cfg.GetEvolutionBaseURL(), "/"),
		apiKey:   cfg.GetEvolutionAPIKey(),
		http:     &http.Client{Timeout: 10 * time.Second},
		recorder: recorder,
		log:      log,
	}
}

// Provider returns the provider identifier.
func (c *Evolution) Provider() string { return repository.ProviderEvolution }

// SendText delivers a text through /message/sendText/{instance}.
func (c *Evolution) SendText(ctx context.Context, workspaceID uuid.UUID, instanceID, phoneNumber, body string) (string, error) {
	normalized := strings.TrimPrefix(phone.NormalizeE164(phoneNumber), "+")

	payload, err := json.Marshal(evolutionSendRequest{Number: normalized, Text: body})
	if err != nil {
		return "", fmt.Errorf("marshal evolution payload: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, instanceID)
	data, err := c.do(ctx, http.MethodPost, url, payload)
	logPayload := map[string]any{"instance_id": instanceID, "phone": normalized}
	if err != nil {
		logPayload["error"] = err.Error()
		c.recorder.Record(ctx, workspaceID, c.Provider(), "send_text", repository.ResultError, logPayload)
		return "", err
	}

	var resp evolutionSendResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		logPayload["error"] = err.Error()
		c.recorder.Record(ctx, workspaceID, c.Provider(), "send_text", repository.ResultError, logPayload)
		return "", fmt.Errorf("decode evolution response: %w", err)
	}

	logPayload["message_id"] = resp.Key.ID
	c.recorder.Record(ctx, workspaceID, c.Provider(), "send_text", repository.ResultSuccess, logPayload)
	c.log.ProviderCall(c.Provider(), "send_text", true, nil)
	return resp.Key.ID, nil
}

// PairingCode requests /instance/connect/{instance}.
func (c *Evolution) PairingCode(ctx context.Context, workspaceID uuid.UUID, instanceID string) (PairingInfo, error) {
	url := fmt.Sprintf("%s/instance/connect/%s", c.baseURL, instanceID)
	data, err := c.do(ctx, http.MethodGet, url, nil)
	logPayload := map[string]any{"instance_id": instanceID}
	if err != nil {
		logPayload["error"] = err.Error()
		c.recorder.Record(ctx, workspaceID, c.Provider(), "pairing_code", repository.ResultError, logPayload)
		return PairingInfo{}, err
	}

	var resp evolutionConnectResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return PairingInfo{}, fmt.Errorf("decode evolution connect response: %w", err)
	}

	c.recorder.Record(ctx, workspaceID, c.Provider(), "pairing_code", repository.ResultSuccess, logPayload)

	code := resp.PairingCode
	if code == "" {
		code = resp.Code
	}
	return PairingInfo{Code: code, QRBase64: resp.Base64}, nil
}

// ConnectionState requests /instance/connectionState/{instance}.
func (c *Evolution) ConnectionState(ctx context.Context, workspaceID uuid.UUID, instanceID string) (string, error) {
	url := fmt.Sprintf("%s/instance/connectionState/%s", c.baseURL, instanceID)
	data, err := c.do(ctx, http.MethodGet, url, nil)
	logPayload := map[string]any{"instance_id": instanceID}
	if err != nil {
		logPayload["error"] = err.Error()
		c.recorder.Record(ctx, workspaceID, c.Provider(), "connection_state", repository.ResultError, logPayload)
		return "", err
	}

	var resp evolutionStateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode evolution state response: %w", err)
	}

	logPayload["state"] = resp.Instance.State
	c.recorder.Record(ctx, workspaceID, c.Provider(), "connection_state", repository.ResultSuccess, logPayload)
	return resp.Instance.State, nil
}

func (c *Evolution) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("evolution request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read evolution response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("evolution returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

var _ Client = (*Evolution)(nil)
