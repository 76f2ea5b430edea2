package webhook

import (
	"context"
	"testing"

	"github.com/google/uuid"

	connrepo "zapdesk_backend/internal/connections/repository"
	contactrepo "zapdesk_backend/internal/contacts/repository"
	convrepo "zapdesk_backend/internal/conversations/repository"
	convservice "zapdesk_backend/internal/conversations/service"
	pipeservice "zapdesk_backend/internal/pipelines/service"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/logger"
)

type fakeConnections struct {
	conn connrepo.Connection
	err  error
}

func (f *fakeConnections) ResolveInstance(context.Context, string, string) (connrepo.Connection, error) {
	return f.conn, f.err
}

type fakeContacts struct {
	lastPhone string
	lastName  string
}

func (f *fakeContacts) UpsertByPhone(_ context.Context, workspaceID uuid.UUID, phone, pushName string) (contactrepo.Contact, error) {
	f.lastPhone = phone
	f.lastName = pushName
	return contactrepo.Contact{ID: uuid.New(), Workspace: workspaceID, Name: pushName, Phone: phone}, nil
}

type fakeInbox struct {
	recorded []convservice.InboundMessage
}

func (f *fakeInbox) RecordInbound(_ context.Context, in convservice.InboundMessage) (convrepo.Conversation, convrepo.Message, error) {
	f.recorded = append(f.recorded, in)
	return convrepo.Conversation{ID: uuid.New(), WorkspaceID: in.WorkspaceID}, convrepo.Message{ID: uuid.New()}, nil
}

type fakeCards struct {
	calls int
	err   error
}

func (f *fakeCards) CheckAndCreate(context.Context, pipeservice.SmartCardInput) (pipeservice.SmartCardResult, error) {
	f.calls++
	return pipeservice.SmartCardResult{}, f.err
}

type fakeMedia struct {
	stored [][]byte
}

func (f *fakeMedia) Store(_ context.Context, _ uuid.UUID, _, _ string, data []byte) (string, error) {
	f.stored = append(f.stored, data)
	return "media/key", nil
}

type fakeRecorder struct {
	results []string
}

func (f *fakeRecorder) Record(_ context.Context, _ uuid.UUID, _, _, result string, _ map[string]any) {
	f.results = append(f.results, result)
}

type ingestFixture struct {
	svc      *Service
	contacts *fakeContacts
	inbox    *fakeInbox
	cards    *fakeCards
	media    *fakeMedia
	recorder *fakeRecorder
	conn     connrepo.Connection
}

func setupIngest(t *testing.T) *ingestFixture {
	t.Helper()
	queueID := uuid.New()
	conn := connrepo.Connection{
		ID:             uuid.New(),
		WorkspaceID:    uuid.New(),
		Provider:       "evolution",
		InstanceID:     "inst-01",
		DefaultQueueID: &queueID,
	}
	contacts := &fakeContacts{}
	inbox := &fakeInbox{}
	cards := &fakeCards{}
	media := &fakeMedia{}
	recorder := &fakeRecorder{}
	svc := NewService(&fakeConnections{conn: conn}, contacts, inbox, cards, media, recorder, logger.New("test"))
	return &ingestFixture{
		svc: svc, contacts: contacts, inbox: inbox, cards: cards,
		media: media, recorder: recorder, conn: conn,
	}
}

const evolutionText = `{
	"event": "messages.upsert",
	"data": {
		"key": {"remoteJid": "5511987654321@s.whatsapp.net", "fromMe": false, "id": "wamid.X"},
		"pushName": "Ana",
		"message": {"conversation": "quero um orçamento"}
	}
}`

func TestIngestLandsMessageAndOpensCard(t *testing.T) {
	fx := setupIngest(t)

	if err := fx.svc.Ingest(context.Background(), "evolution", "inst-01", []byte(evolutionText)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if len(fx.inbox.recorded) != 1 {
		t.Fatalf("recorded %d messages, want 1", len(fx.inbox.recorded))
	}
	in := fx.inbox.recorded[0]
	if in.WorkspaceID != fx.conn.WorkspaceID {
		t.Fatal("message must land in the connection's workspace")
	}
	if in.QueueID == nil || *in.QueueID != *fx.conn.DefaultQueueID {
		t.Fatal("new conversation must take the connection's default queue")
	}
	if in.ProviderMessageID == nil || *in.ProviderMessageID != "wamid.X" {
		t.Fatalf("provider message id = %v", in.ProviderMessageID)
	}
	if fx.cards.calls != 1 {
		t.Fatalf("card automation ran %d times, want 1", fx.cards.calls)
	}
	if len(fx.recorder.results) != 1 || fx.recorder.results[0] != "success" {
		t.Fatalf("receive log results = %v", fx.recorder.results)
	}
}

func TestIngestSwallowsDuplicateOpenCard(t *testing.T) {
	fx := setupIngest(t)
	fx.cards.err = apperr.Conflict("contact already has an open card in this pipeline")

	if err := fx.svc.Ingest(context.Background(), "evolution", "inst-01", []byte(evolutionText)); err != nil {
		t.Fatalf("a duplicate open card must not fail the ingest: %v", err)
	}
	if len(fx.inbox.recorded) != 1 {
		t.Fatal("message must still be recorded")
	}
}

func TestIngestToleratesWorkspaceWithoutPipelines(t *testing.T) {
	fx := setupIngest(t)
	fx.cards.err = apperr.NotFound("pipeline not found")

	if err := fx.svc.Ingest(context.Background(), "evolution", "inst-01", []byte(evolutionText)); err != nil {
		t.Fatalf("a workspace without pipelines must not fail the ingest: %v", err)
	}
	if len(fx.inbox.recorded) != 1 {
		t.Fatal("message must still be recorded")
	}
}

func TestIngestStoresInlineMedia(t *testing.T) {
	fx := setupIngest(t)
	payload := `{
		"event": "messages.upsert",
		"data": {
			"key": {"remoteJid": "5511987654321@s.whatsapp.net", "fromMe": false, "id": "wamid.IMG"},
			"message": {"imageMessage": {"caption": "foto", "mimetype": "image/jpeg"}},
			"base64": "aGVsbG8="
		}
	}`

	if err := fx.svc.Ingest(context.Background(), "evolution", "inst-01", []byte(payload)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(fx.media.stored) != 1 || string(fx.media.stored[0]) != "hello" {
		t.Fatalf("stored media = %v", fx.media.stored)
	}
	in := fx.inbox.recorded[0]
	if in.MediaURL == nil || *in.MediaURL != "media/key" {
		t.Fatalf("media url = %v", in.MediaURL)
	}
	if in.MediaType == nil || *in.MediaType != "image/jpeg" {
		t.Fatalf("media type = %v", in.MediaType)
	}
}

func TestIngestUnknownInstanceFails(t *testing.T) {
	fx := setupIngest(t)
	svc := NewService(&fakeConnections{err: apperr.NotFound("connection not found")},
		fx.contacts, fx.inbox, fx.cards, fx.media, fx.recorder, logger.New("test"))

	err := svc.Ingest(context.Background(), "evolution", "ghost", []byte(evolutionText))
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("want NotFound, got %v", err)
	}
	if len(fx.inbox.recorded) != 0 {
		t.Fatal("nothing may be recorded for an unknown instance")
	}
}

func TestIngestSkippedEventsAreAcknowledged(t *testing.T) {
	fx := setupIngest(t)
	ownMessage := `{
		"event": "messages.upsert",
		"data": {"key": {"remoteJid": "5511987654321@s.whatsapp.net", "fromMe": true}, "message": {"conversation": "eu"}}
	}`

	if err := fx.svc.Ingest(context.Background(), "evolution", "inst-01", []byte(ownMessage)); err != nil {
		t.Fatalf("skipped events must be acknowledged: %v", err)
	}
	if len(fx.inbox.recorded) != 0 || fx.cards.calls != 0 {
		t.Fatal("skipped events must not touch the inbox or pipelines")
	}
}
