package providers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"zapdesk_backend/internal/providers/repository"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/config"
	platformevents "zapdesk_backend/platform/events"
	"zapdesk_backend/platform/logger"
	"zapdesk_backend/platform/validator"
)

type stubResolver struct {
	provider string
	instance string
}

func (r stubResolver) Resolve(ctx context.Context, workspaceID, connectionID uuid.UUID) (string, string, error) {
	return r.provider, r.instance, nil
}

// A deployment that configures only one gateway must get a clean error for
// the other provider, never a registered adapter backed by a nil pointer.
func TestUnconfiguredGatewayFailsWithoutPanic(t *testing.T) {
	log := logger.New("test")
	cfg := &config.Config{ZAPIBaseURL: "https://api.z-api.io"}
	resolver := stubResolver{provider: repository.ProviderEvolution, instance: "inst-1"}

	m := NewModule(nil, resolver, nil, nil, platformevents.NewInMemoryBus(log), cfg, validator.New(), log)

	_, err := m.Dispatcher().SendText(context.Background(), uuid.New(), uuid.New(), "+5511987654321", "oi")
	if err == nil {
		t.Fatal("expected an error for the unconfigured provider")
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindInternal {
		t.Fatalf("error = %v, want an internal not-configured error", err)
	}
	if !strings.Contains(appErr.Message, "not configured") {
		t.Fatalf("error message = %q, want a not-configured message", appErr.Message)
	}
}

func TestNoGatewaysConfiguredStillBuildsTheModule(t *testing.T) {
	log := logger.New("test")
	resolver := stubResolver{provider: repository.ProviderZAPI, instance: "inst-2"}

	m := NewModule(nil, resolver, nil, nil, platformevents.NewInMemoryBus(log), &config.Config{}, validator.New(), log)

	_, err := m.Dispatcher().ConnectionState(context.Background(), uuid.New(), uuid.New())
	if err == nil {
		t.Fatal("expected an error with no gateways configured")
	}
}
