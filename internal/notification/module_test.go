package notification

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"zapdesk_backend/internal/events"
	"zapdesk_backend/platform/logger"
)

type recordingBus struct {
	subscriptions map[string]events.Handler
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) {}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	if h, ok := b.subscriptions[event.EventName()]; ok {
		return h.Handle(ctx, event)
	}
	return nil
}

func (b *recordingBus) Subscribe(eventName string, handler events.Handler) {
	if b.subscriptions == nil {
		b.subscriptions = make(map[string]events.Handler)
	}
	b.subscriptions[eventName] = handler
}

func TestNewModuleSubscribesToDomainEvents(t *testing.T) {
	bus := &recordingBus{}
	NewModule(bus, logger.New("test"))

	for _, name := range []string{
		events.MessageReceived{}.EventName(),
		events.ConversationAssigned{}.EventName(),
		events.ConversationAccepted{}.EventName(),
		events.PipelineCardCreated{}.EventName(),
		events.ProviderAlertRaised{}.EventName(),
	} {
		if _, ok := bus.subscriptions[name]; !ok {
			t.Fatalf("no handler registered for %s", name)
		}
	}
}

func TestHandlersRejectForeignEventTypes(t *testing.T) {
	bus := &recordingBus{}
	m := NewModule(bus, logger.New("test"))

	wrong := events.MessageReceived{BaseEvent: events.NewBaseEvent()}
	if err := m.onConversationAssigned(context.Background(), wrong); err == nil {
		t.Fatal("expected an error for a mismatched event type")
	}
}

func TestMessageReceivedHandlerAcceptsItsEvent(t *testing.T) {
	bus := &recordingBus{}
	NewModule(bus, logger.New("test"))

	evt := events.MessageReceived{
		BaseEvent:      events.NewBaseEvent(),
		WorkspaceID:    uuid.New(),
		ConversationID: uuid.New(),
		ContactID:      uuid.New(),
		MessageID:      uuid.New(),
		Preview:        "hello",
	}
	if err := bus.PublishSync(context.Background(), evt); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
}
