package sse

import (
	"testing"

	"github.com/google/uuid"

	"zapdesk_backend/platform/logger"
)

func newTestClient(userID, workspaceID uuid.UUID) *client {
	return &client{
		userID:      userID,
		workspaceID: workspaceID,
		events:      make(chan Event, 32),
	}
}

func TestPublishReachesEveryConnectionOfTheUser(t *testing.T) {
	svc := New(logger.New("test"))
	userID := uuid.New()

	first := newTestClient(userID, uuid.Nil)
	second := newTestClient(userID, uuid.Nil)
	svc.addClient(first)
	svc.addClient(second)

	svc.Publish(userID, Event{Type: EventMessageReceived, Message: "hi"})

	for _, cl := range []*client{first, second} {
		select {
		case evt := <-cl.events:
			if evt.Type != EventMessageReceived {
				t.Fatalf("event type = %s, want %s", evt.Type, EventMessageReceived)
			}
		default:
			t.Fatal("expected a buffered event on every connection")
		}
	}
}

func TestPublishToWorkspaceSkipsOtherWorkspaces(t *testing.T) {
	svc := New(logger.New("test"))
	workspaceID := uuid.New()

	member := newTestClient(uuid.New(), workspaceID)
	outsider := newTestClient(uuid.New(), uuid.New())
	svc.addClient(member)
	svc.addClient(outsider)

	svc.PublishToWorkspace(workspaceID, Event{Type: EventProviderAlert})

	select {
	case <-member.events:
	default:
		t.Fatal("workspace member did not receive the event")
	}
	select {
	case <-outsider.events:
		t.Fatal("outsider received a foreign workspace event")
	default:
	}
}

func TestPublishDropsWhenBufferIsFull(t *testing.T) {
	svc := New(logger.New("test"))
	userID := uuid.New()

	cl := &client{userID: userID, events: make(chan Event, 1)}
	svc.addClient(cl)

	svc.Publish(userID, Event{Type: EventMessageReceived, Message: "first"})
	// Must not block with a full buffer.
	svc.Publish(userID, Event{Type: EventMessageReceived, Message: "second"})

	evt := <-cl.events
	if evt.Message != "first" {
		t.Fatalf("kept message = %q, want the first one", evt.Message)
	}
}

func TestRemoveClientCleansTheWorkspaceIndex(t *testing.T) {
	svc := New(logger.New("test"))
	workspaceID := uuid.New()

	cl := newTestClient(uuid.New(), workspaceID)
	svc.addClient(cl)
	svc.removeClient(cl)

	if got := svc.ConnectedUsers(); got != 0 {
		t.Fatalf("connected users = %d, want 0", got)
	}
	// A broadcast after disconnect must not panic on the closed channel.
	svc.PublishToWorkspace(workspaceID, Event{Type: EventMessageReceived})
}
