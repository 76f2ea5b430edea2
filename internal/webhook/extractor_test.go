package webhook

import "testing"

func TestParseEvolutionTextMessage(t *testing.T) {
	payload := []byte(`{
		"event": "messages.upsert",
		"data": {
			"key": {"remoteJid": "5511987654321@s.whatsapp.net", "fromMe": false, "id": "wamid.ABC"},
			"pushName": "Ana",
			"message": {"conversation": "oi, tudo bem?"}
		}
	}`)

	ev, ok, err := ParseEvolution(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ok {
		t.Fatal("expected an ingestable event")
	}
	if ev.Phone != "5511987654321" {
		t.Fatalf("phone = %s", ev.Phone)
	}
	if ev.Body != "oi, tudo bem?" || ev.PushName != "Ana" || ev.MessageID != "wamid.ABC" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestParseEvolutionSkipsOwnAndGroupMessages(t *testing.T) {
	fromMe := []byte(`{
		"event": "messages.upsert",
		"data": {"key": {"remoteJid": "5511987654321@s.whatsapp.net", "fromMe": true}, "message": {"conversation": "eu"}}
	}`)
	if _, ok, err := ParseEvolution(fromMe); err != nil || ok {
		t.Fatalf("own message must be skipped, ok=%v err=%v", ok, err)
	}

	group := []byte(`{
		"event": "messages.upsert",
		"data": {"key": {"remoteJid": "123456@g.us", "fromMe": false}, "message": {"conversation": "grupo"}}
	}`)
	if _, ok, err := ParseEvolution(group); err != nil || ok {
		t.Fatalf("group message must be skipped, ok=%v err=%v", ok, err)
	}
}

func TestParseEvolutionImageCarriesInlineMedia(t *testing.T) {
	payload := []byte(`{
		"event": "messages.upsert",
		"data": {
			"key": {"remoteJid": "5511987654321@s.whatsapp.net", "fromMe": false, "id": "wamid.IMG"},
			"message": {"imageMessage": {"caption": "olha isso", "mimetype": "image/jpeg"}},
			"base64": "aGVsbG8="
		}
	}`)

	ev, ok, err := ParseEvolution(payload)
	if err != nil || !ok {
		t.Fatalf("parse: ok=%v err=%v", ok, err)
	}
	if ev.Body != "olha isso" {
		t.Fatalf("body = %s, want caption", ev.Body)
	}
	if ev.Media == nil || ev.Media.Base64 != "aGVsbG8=" || ev.Media.MimeType != "image/jpeg" {
		t.Fatalf("unexpected media %+v", ev.Media)
	}
}

func TestParseZAPITextMessage(t *testing.T) {
	payload := []byte(`{
		"type": "ReceivedCallback",
		"phone": "5511987654321",
		"fromMe": false,
		"senderName": "Ana",
		"messageId": "zapi-1",
		"text": {"message": "bom dia"}
	}`)

	ev, ok, err := ParseZAPI(payload)
	if err != nil || !ok {
		t.Fatalf("parse: ok=%v err=%v", ok, err)
	}
	if ev.Phone != "5511987654321" || ev.Body != "bom dia" || ev.MessageID != "zapi-1" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestParseZAPIDocumentCarriesHostedMedia(t *testing.T) {
	payload := []byte(`{
		"type": "ReceivedCallback",
		"phone": "5511987654321",
		"messageId": "zapi-2",
		"document": {"documentUrl": "https://cdn.z-api.io/doc.pdf", "mimeType": "application/pdf", "fileName": "contrato.pdf"}
	}`)

	ev, ok, err := ParseZAPI(payload)
	if err != nil || !ok {
		t.Fatalf("parse: ok=%v err=%v", ok, err)
	}
	if ev.Media == nil || ev.Media.URL != "https://cdn.z-api.io/doc.pdf" || ev.Media.FileName != "contrato.pdf" {
		t.Fatalf("unexpected media %+v", ev.Media)
	}
}

func TestParseZAPISkipsStatusCallbacks(t *testing.T) {
	payload := []byte(`{"type": "MessageStatusCallback", "phone": "5511987654321"}`)
	if _, ok, err := ParseZAPI(payload); err != nil || ok {
		t.Fatalf("status callback must be skipped, ok=%v err=%v", ok, err)
	}
}
