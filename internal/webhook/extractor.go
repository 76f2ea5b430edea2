package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// InboundEvent is the provider-neutral form of a pushed message.
type InboundEvent struct {
	Phone     string
	PushName  string
	Body      string
	MessageID string
	Media     *InboundMedia
}

// InboundMedia describes an attachment. Evolution pushes the payload inline
// as base64; Z-API hosts it and pushes a URL.
type InboundMedia struct {
	Base64   string
	URL      string
	MimeType string
	FileName string
}

type evolutionPayload struct {
	Event string `json:"event"`
	Data  struct {
		Key struct {
			RemoteJid string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
			ID        string `json:"id"`
		} `json:"key"`
		PushName string `json:"pushName"`
		Message  struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
			ImageMessage *struct {
				Caption  string `json:"caption"`
				Mimetype string `json:"mimetype"`
			} `json:"imageMessage"`
			AudioMessage *struct {
				Mimetype string `json:"mimetype"`
			} `json:"audioMessage"`
			DocumentMessage *struct {
				Caption  string `json:"caption"`
				Mimetype string `json:"mimetype"`
				FileName string `json:"fileName"`
			} `json:"documentMessage"`
		} `json:"message"`
		Base64 string `json:"base64"`
	} `json:"data"`
}

// ParseEvolution extracts an inbound message from an Evolution API webhook.
// The second return is false for events that carry nothing to ingest (own
// messages, group chats, status updates).
func ParseEvolution(payload []byte) (InboundEvent, bool, error) {
	var p evolutionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return InboundEvent{}, false, fmt.Errorf("decode evolution payload: %w", err)
	}

	if p.Event != "messages.upsert" || p.Data.Key.FromMe {
		return InboundEvent{}, false, nil
	}
	jid := p.Data.Key.RemoteJid
	if !strings.HasSuffix(jid, "@s.whatsapp.net") {
		return InboundEvent{}, false, nil
	}

	ev := InboundEvent{
		Phone:     strings.TrimSuffix(jid, "@s.whatsapp.net"),
		PushName:  p.Data.PushName,
		MessageID: p.Data.Key.ID,
		Body:      p.Data.Message.Conversation,
	}
	if ev.Body == "" {
		ev.Body = p.Data.Message.ExtendedTextMessage.Text
	}

	msg := p.Data.Message
	switch {
	case msg.ImageMessage != nil:
		ev.Body = firstNonEmpty(msg.ImageMessage.Caption, ev.Body)
		ev.Media = &InboundMedia{Base64: p.Data.Base64, MimeType: msg.ImageMessage.Mimetype, FileName: "image"}
	case msg.AudioMessage != nil:
		ev.Media = &InboundMedia{Base64: p.Data.Base64, MimeType: msg.AudioMessage.Mimetype, FileName: "audio"}
	case msg.DocumentMessage != nil:
		ev.Body = firstNonEmpty(msg.DocumentMessage.Caption, ev.Body)
		ev.Media = &InboundMedia{
			Base64:   p.Data.Base64,
			MimeType: msg.DocumentMessage.Mimetype,
			FileName: firstNonEmpty(msg.DocumentMessage.FileName, "document"),
		}
	}

	if ev.Body == "" && ev.Media == nil {
		return InboundEvent{}, false, nil
	}
	return ev, true, nil
}

type zapiPayload struct {
	Type       string `json:"type"`
	Phone      string `json:"phone"`
	FromMe     bool   `json:"fromMe"`
	IsGroup    bool   `json:"isGroup"`
	SenderName string `json:"senderName"`
	MessageID  string `json:"messageId"`
	Text       *struct {
		Message string `json:"message"`
	} `json:"text"`
	Image *struct {
		Caption  string `json:"caption"`
		ImageURL string `json:"imageUrl"`
		MimeType string `json:"mimeType"`
	} `json:"image"`
	Audio *struct {
		AudioURL string `json:"audioUrl"`
		MimeType string `json:"mimeType"`
	} `json:"audio"`
	Document *struct {
		DocumentURL string `json:"documentUrl"`
		MimeType    string `json:"mimeType"`
		FileName    string `json:"fileName"`
	} `json:"document"`
}

// ParseZAPI extracts an inbound message from a Z-API webhook.
func ParseZAPI(payload []byte) (InboundEvent, bool, error) {
	var p zapiPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return InboundEvent{}, false, fmt.Errorf("decode z-api payload: %w", err)
	}

	if p.Type != "ReceivedCallback" || p.FromMe || p.IsGroup || p.Phone == "" {
		return InboundEvent{}, false, nil
	}

	ev := InboundEvent{
		Phone:     p.Phone,
		PushName:  p.SenderName,
		MessageID: p.MessageID,
	}
	if p.Text != nil {
		ev.Body = p.Text.Message
	}
	switch {
	case p.Image != nil:
		ev.Body = firstNonEmpty(p.Image.Caption, ev.Body)
		ev.Media = &InboundMedia{URL: p.Image.ImageURL, MimeType: p.Image.MimeType, FileName: "image"}
	case p.Audio != nil:
		ev.Media = &InboundMedia{URL: p.Audio.AudioURL, MimeType: p.Audio.MimeType, FileName: "audio"}
	case p.Document != nil:
		ev.Media = &InboundMedia{
			URL:      p.Document.DocumentURL,
			MimeType: p.Document.MimeType,
			FileName: firstNonEmpty(p.Document.FileName, "document"),
		}
	}

	if ev.Body == "" && ev.Media == nil {
		return InboundEvent{}, false, nil
	}
	return ev, true, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
