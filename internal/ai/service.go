package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"collab-service/internal/encryption"
	"collab-service/internal/models"
	"collab-service/internal/observability"
	"collab-service/internal/repositories"
)

// Fixed synthetic identity for assistant-authored messages.
const (
	SenderID   = "ai-assistant"
	SenderName = "CollabAI"
)

// Canned user-facing fallbacks. The chat never shows a raw error.
const (
	FallbackResponse       = "I'm sorry, I'm having trouble responding right now. Please try again later."
	PersistFailureResponse = "I encountered an error while processing your request. Please try again."
)

const systemPromptTemplate = `You are CollabAI, a helpful AI assistant in a collaborative chat room called "%s".
You help users with questions, provide information, assist with tasks, and facilitate collaboration.

Recent conversation context:
%s

Guidelines:
- Be helpful, friendly, and concise
- Provide accurate information
- If you're unsure about something, say so
- Help facilitate collaboration between team members
- Keep responses conversational and appropriate for a chat environment`

// MessageSender persists and broadcasts a message. Satisfied by
// messaging.Sender.
type MessageSender interface {
	Send(ctx context.Context, data models.CreateMessage) (models.Message, error)
}

// Service turns triggered chat messages into assistant replies.
type Service struct {
	generator Generator // nil when no API credential is configured
	sender    MessageSender
	messages  repositories.MessageRepository
	ring      *encryption.Keyring
	delay     time.Duration
}

// NewService constructs the AI service. A nil generator marks the missing
// credential configuration: every turn then short-circuits to the fallback
// without any network call.
func NewService(generator Generator, sender MessageSender, messages repositories.MessageRepository, ring *encryption.Keyring, delay time.Duration) *Service {
	return &Service{
		generator: generator,
		sender:    sender,
		messages:  messages,
		ring:      ring,
		delay:     delay,
	}
}

// Respond runs one full assistant turn for a room: assemble the context
// window from the room's recent history, generate, and emit exactly one
// assistant message. Intended to run in its own goroutine with a detached
// context; the result is deliberately discarded by the caller.
func (s *Service) Respond(ctx context.Context, room models.Room, prompt string) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	recent, err := s.messages.ListRoomMessages(ctx, room.ID, ContextWindowSize)
	if err != nil {
		log.Printf("ai context load failed for room %s: %v", room.ID, err)
		recent = nil
	}
	aiCtx := BuildContext(room, s.decryptAll(room.ID, recent))

	s.SendResponse(ctx, room.ID, prompt, aiCtx)
}

// GenerateResponse composes the system instruction and calls the generation
// endpoint. Any failure, including missing configuration, yields the canned
// fallback string rather than an error.
func (s *Service) GenerateResponse(ctx context.Context, prompt string, aiCtx Context) string {
	if s.generator == nil {
		log.Printf("ai generator not configured, returning fallback")
		observability.IncAIRequest("unconfigured")
		return FallbackResponse
	}

	text, err := s.generator.Generate(ctx, systemPrompt(aiCtx), prompt)
	if err != nil {
		log.Printf("ai generation failed: %v", err)
		observability.IncAIRequest("error")
		return FallbackResponse
	}
	observability.IncAIRequest("ok")
	return text
}

// SendResponse generates and emits exactly one assistant message in the
// room. If persisting the reply fails, one fallback message attempt is made;
// there is no retry loop beyond that.
func (s *Service) SendResponse(ctx context.Context, roomID string, prompt string, aiCtx Context) {
	response := s.GenerateResponse(ctx, prompt, aiCtx)

	_, err := s.sender.Send(ctx, models.CreateMessage{
		RoomID:     roomID,
		SenderID:   SenderID,
		SenderName: SenderName,
		Content:    response,
		Type:       models.MessageTypeAI,
	})
	if err == nil {
		return
	}
	log.Printf("ai response persist failed for room %s: %v", roomID, err)

	if _, err := s.sender.Send(ctx, models.CreateMessage{
		RoomID:     roomID,
		SenderID:   SenderID,
		SenderName: SenderName,
		Content:    PersistFailureResponse,
		Type:       models.MessageTypeAI,
	}); err != nil {
		log.Printf("ai fallback message failed for room %s: %v", roomID, err)
	}
}

// decryptAll renders stored message content back to plaintext for the
// context window, using the cached room key. Undecryptable content keeps the
// placeholder text.
func (s *Service) decryptAll(roomID string, msgs []models.Message) []models.Message {
	key, ok := s.ring.Get(roomID)
	if !ok {
		return msgs
	}
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		if m.IsEncrypted {
			m.Content = encryption.Decrypt(m.Content, key)
		}
		out[i] = m
	}
	return out
}

func systemPrompt(aiCtx Context) string {
	lines := make([]string, 0, len(aiCtx.RecentMessages))
	for _, m := range aiCtx.RecentMessages {
		lines = append(lines, m.SenderName+": "+m.Content)
	}
	return fmt.Sprintf(systemPromptTemplate, aiCtx.RoomName, strings.Join(lines, "\n"))
}
