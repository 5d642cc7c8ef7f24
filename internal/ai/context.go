package ai

import (
	"time"

	"collab-service/internal/models"
)

// ContextWindowSize bounds how much room history a generation request sees.
const ContextWindowSize = 5

// ContextMessage is the reduced view of a message used for generation.
type ContextMessage struct {
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// Context is the ephemeral conversational context assembled when a trigger
// fires. It is never persisted.
type Context struct {
	RoomID         string           `json:"room_id"`
	RoomName       string           `json:"room_name"`
	RecentMessages []ContextMessage `json:"recent_messages"`
}

// BuildContext maps the most recent messages of a room, oldest to newest,
// into a bounded context window. All fields other than sender name, content
// and timestamp are discarded.
func BuildContext(room models.Room, msgs []models.Message) Context {
	if len(msgs) > ContextWindowSize {
		msgs = msgs[len(msgs)-ContextWindowSize:]
	}

	recent := make([]ContextMessage, 0, len(msgs))
	for _, m := range msgs {
		recent = append(recent, ContextMessage{
			SenderName: m.SenderName,
			Content:    m.Content,
			Timestamp:  m.CreatedAt,
		})
	}

	return Context{
		RoomID:         room.ID,
		RoomName:       room.Name,
		RecentMessages: recent,
	}
}
