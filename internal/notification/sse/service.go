// Package sse provides Server-Sent Events support for real-time notifications.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"zapdesk_backend/platform/logger"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventMessageReceived      EventType = "message_received"
	EventConversationAssigned EventType = "conversation_assigned"
	EventConversationAccepted EventType = "conversation_accepted"
	EventPipelineCardCreated  EventType = "pipeline_card_created"
	EventProviderAlert        EventType = "provider_alert"
)

// Event represents an SSE event payload
type Event struct {
	Type           EventType   `json:"type"`
	ConversationID uuid.UUID   `json:"conversationId,omitempty"`
	Message        string      `json:"message,omitempty"`
	Data           interface{} `json:"data,omitempty"`
}

// client represents a connected SSE client
type client struct {
	userID      uuid.UUID
	workspaceID uuid.UUID
	events      chan Event
}

// Service manages SSE connections and event broadcasting
type Service struct {
	mu           sync.RWMutex
	clients      map[uuid.UUID][]*client   // userID -> clients
	workspaceMap map[uuid.UUID][]uuid.UUID // workspaceID -> userIDs
	log          *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	return &Service{
		clients:      make(map[uuid.UUID][]*client),
		workspaceMap: make(map[uuid.UUID][]uuid.UUID),
		log:          log,
	}
}

// addClient registers a new client connection
func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[c.userID] = append(s.clients[c.userID], c)

	if c.workspaceID != uuid.Nil {
		s.workspaceMap[c.workspaceID] = append(s.workspaceMap[c.workspaceID], c.userID)
	}
}

// removeClient unregisters a client connection
func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.userID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.userID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.userID]) == 0 {
		delete(s.clients, c.userID)
	}

	if c.workspaceID != uuid.Nil {
		userIDs := s.workspaceMap[c.workspaceID]
		for i, id := range userIDs {
			if id == c.userID {
				s.workspaceMap[c.workspaceID] = append(userIDs[:i], userIDs[i+1:]...)
				break
			}
		}
		if len(s.workspaceMap[c.workspaceID]) == 0 {
			delete(s.workspaceMap, c.workspaceID)
		}
	}

	close(c.events)
}

// Publish sends an event to a specific user
func (s *Service) Publish(userID uuid.UUID, event Event) {
	s.mu.RLock()
	clients := s.clients[userID]
	s.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse event buffer full", "user_id", userID.String(), "event", string(event.Type))
		}
	}
}

// PublishToWorkspace broadcasts an event to every connected member of the workspace
func (s *Service) PublishToWorkspace(workspaceID uuid.UUID, event Event) {
	s.mu.RLock()
	userIDs := make([]uuid.UUID, len(s.workspaceMap[workspaceID]))
	copy(userIDs, s.workspaceMap[workspaceID])
	s.mu.RUnlock()

	// Deduplicate and send
	seen := make(map[uuid.UUID]bool)
	for _, userID := range userIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		s.Publish(userID, event)
	}
}

// ConnectedUsers reports how many distinct users currently hold a stream.
func (s *Service) ConnectedUsers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Handler returns a Gin handler for SSE connections
func (s *Service) Handler(getUserID func(*gin.Context) (uuid.UUID, bool), getWorkspaceID func(*gin.Context) (uuid.UUID, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		workspaceID, _ := getWorkspaceID(c)

		// Set SSE headers
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			userID:      userID,
			workspaceID: workspaceID,
			events:      make(chan Event, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		// Send connection event
		c.SSEvent("connected", gin.H{"userId": userID, "workspaceId": workspaceID})
		c.Writer.Flush()

		s.log.Info("sse client connected", "user_id", userID.String(), "workspace_id", workspaceID.String())

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				s.log.Info("sse client disconnected", "user_id", userID.String())
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close shuts down the SSE service
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			close(c.events)
		}
	}
	s.clients = make(map[uuid.UUID][]*client)
	s.workspaceMap = make(map[uuid.UUID][]uuid.UUID)
}
