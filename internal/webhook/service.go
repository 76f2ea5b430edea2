// Package webhook ingests provider-pushed WhatsApp events: it lands inbound
// messages in the inbox and drives the pipeline card automation.
package webhook

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	connrepo "zapdesk_backend/internal/connections/repository"
	contactrepo "zapdesk_backend/internal/contacts/repository"
	convrepo "zapdesk_backend/internal/conversations/repository"
	convservice "zapdesk_backend/internal/conversations/service"
	pipeservice "zapdesk_backend/internal/pipelines/service"
	"zapdesk_backend/internal/providers/adapters"
	providerrepo "zapdesk_backend/internal/providers/repository"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/logger"
)

// ConnectionSource finds the connection serving a gateway instance.
type ConnectionSource interface {
	ResolveInstance(ctx context.Context, provider, instanceID string) (connrepo.Connection, error)
}

// ContactUpserter finds or creates the contact behind an inbound phone.
type ContactUpserter interface {
	UpsertByPhone(ctx context.Context, workspaceID uuid.UUID, phone, pushName string) (contactrepo.Contact, error)
}

// InboxRecorder lands an inbound message in the conversation inbox.
type InboxRecorder interface {
	RecordInbound(ctx context.Context, in convservice.InboundMessage) (convrepo.Conversation, convrepo.Message, error)
}

// CardManager drives the pipeline card automation.
type CardManager interface {
	CheckAndCreate(ctx context.Context, in pipeservice.SmartCardInput) (pipeservice.SmartCardResult, error)
}

// MediaStore persists inline media payloads.
type MediaStore interface {
	Store(ctx context.Context, workspaceID uuid.UUID, fileName, contentType string, data []byte) (string, error)
}

type Service struct {
	connections ConnectionSource
	contacts    ContactUpserter
	inbox       InboxRecorder
	cards       CardManager
	media       MediaStore
	recorder    adapters.Recorder
	log         *logger.Logger
}

func NewService(connections ConnectionSource, contacts ContactUpserter, inbox InboxRecorder, cards CardManager, media MediaStore, recorder adapters.Recorder, log *logger.Logger) *Service {
	return &Service{
		connections: connections,
		contacts:    contacts,
		inbox:       inbox,
		cards:       cards,
		media:       media,
		recorder:    recorder,
		log:         log,
	}
}

// Ingest processes one webhook delivery. Payloads that carry nothing to
// ingest (own messages, groups, status events) are acknowledged silently.
func (s *Service) Ingest(ctx context.Context, provider, instanceID string, payload []byte) error {
	conn, err := s.connections.ResolveInstance(ctx, provider, instanceID)
	if err != nil {
		return err
	}

	var (
		event InboundEvent
		ok    bool
	)
	switch provider {
	case providerrepo.ProviderEvolution:
		event, ok, err = ParseEvolution(payload)
	case providerrepo.ProviderZAPI:
		event, ok, err = ParseZAPI(payload)
	default:
		return apperr.BadRequest(fmt.Sprintf("unknown provider %q", provider))
	}
	if err != nil {
		s.recorder.Record(ctx, conn.WorkspaceID, provider, "receive", providerrepo.ResultError,
			map[string]any{"instance_id": instanceID, "error": err.Error()})
		return apperr.Wrap(apperr.KindBadRequest, "unreadable webhook payload", err)
	}
	if !ok {
		return nil
	}

	s.log.WebhookEvent(provider, instanceID, "message.received")
	s.recorder.Record(ctx, conn.WorkspaceID, provider, "receive", providerrepo.ResultSuccess,
		map[string]any{"instance_id": instanceID, "message_id": event.MessageID})

	ct, err := s.contacts.UpsertByPhone(ctx, conn.WorkspaceID, event.Phone, event.PushName)
	if err != nil {
		return err
	}

	mediaURL, mediaType := s.storeMedia(ctx, conn.WorkspaceID, event.Media)

	var providerMessageID *string
	if event.MessageID != "" {
		providerMessageID = &event.MessageID
	}

	conv, _, err := s.inbox.RecordInbound(ctx, convservice.InboundMessage{
		WorkspaceID:       conn.WorkspaceID,
		ContactID:         ct.ID,
		ConnectionID:      conn.ID,
		QueueID:           conn.DefaultQueueID,
		Body:              event.Body,
		MediaURL:          mediaURL,
		MediaType:         mediaType,
		ProviderMessageID: providerMessageID,
	})
	if err != nil {
		return err
	}

	convID := conv.ID
	_, err = s.cards.CheckAndCreate(ctx, pipeservice.SmartCardInput{
		WorkspaceID:    conn.WorkspaceID,
		ContactID:      ct.ID,
		ConversationID: &convID,
		ContactName:    ct.Name,
		ContactPhone:   ct.Phone,
	})
	if err != nil {
		switch {
		// An open deal for the contact is expected on repeat messages, not
		// a failure of the ingest.
		case apperr.Is(err, apperr.KindConflict):
		// A workspace without pipelines simply has no board to land on.
		case apperr.Is(err, apperr.KindNotFound):
			s.log.Debug("no pipeline for card automation",
				"workspace_id", conn.WorkspaceID,
				"conversation_id", convID)
		default:
			s.log.Error("pipeline card automation failed",
				"workspace_id", conn.WorkspaceID,
				"conversation_id", convID,
				"error", err)
		}
	}
	return nil
}

// storeMedia persists an inline media payload and returns the stored
// location. URL-hosted media passes through; storage failures degrade to a
// text-only message.
func (s *Service) storeMedia(ctx context.Context, workspaceID uuid.UUID, media *InboundMedia) (*string, *string) {
	if media == nil {
		return nil, nil
	}

	var mediaType *string
	if media.MimeType != "" {
		mt := media.MimeType
		mediaType = &mt
	}

	if media.URL != "" {
		url := media.URL
		return &url, mediaType
	}
	if media.Base64 == "" || s.media == nil {
		return nil, mediaType
	}

	data, err := base64.StdEncoding.DecodeString(media.Base64)
	if err != nil {
		s.log.Warn("undecodable inline media", "workspace_id", workspaceID, "error", err)
		return nil, mediaType
	}

	fileKey, err := s.media.Store(ctx, workspaceID, media.FileName, media.MimeType, data)
	if err != nil {
		s.log.Error("media storage failed", "workspace_id", workspaceID, "error", err)
		return nil, mediaType
	}
	return &fileKey, mediaType
}
