package messaging

import (
	"context"

	"collab-service/internal/encryption"
	"collab-service/internal/models"
	"collab-service/internal/observability"
	"collab-service/internal/repositories"
	"collab-service/internal/ws"
)

// Sender is the single write path for room messages: it encrypts content
// when the room's key is cached, persists the message, and broadcasts it to
// connected room clients. Both the HTTP handlers and the AI responder send
// through it, so the is_encrypted flag always agrees with the content.
type Sender struct {
	ring     *encryption.Keyring
	messages repositories.MessageRepository
	hub      *ws.Hub
}

// NewSender constructs a Sender.
func NewSender(ring *encryption.Keyring, messages repositories.MessageRepository, hub *ws.Hub) *Sender {
	return &Sender{ring: ring, messages: messages, hub: hub}
}

// Send stores and broadcasts a message. Content is encrypted if and only if
// a key is cached for the room; key unavailability means the message goes
// out in plaintext, never that the send fails.
func (s *Sender) Send(ctx context.Context, data models.CreateMessage) (models.Message, error) {
	encrypted := false
	if key, ok := s.ring.Get(data.RoomID); ok {
		ciphertext, err := encryption.Encrypt(data.Content, key)
		if err == nil {
			data.Content = ciphertext
			encrypted = true
		}
	}

	msg, err := s.messages.CreateMessage(ctx, data, encrypted)
	if err != nil {
		return models.Message{}, err
	}

	observability.IncMessage(msg.Type, encrypted)
	if s.hub != nil {
		s.hub.BroadcastMessage(msg.RoomID, msg)
	}
	return msg, nil
}
