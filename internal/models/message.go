package models

import "time"

// Message kinds.
const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
	MessageTypeAI   = "ai"
)

// Message represents a room message. Content may be ciphertext; IsEncrypted
// records whether the encryption transform was applied before persistence.
type Message struct {
	ID           string    `db:"id" json:"id"`
	RoomID       string    `db:"room_id" json:"room_id"`
	SenderID     string    `db:"sender_id" json:"sender_id"`
	SenderName   string    `db:"sender_name" json:"sender_name"`
	SenderAvatar *string   `db:"sender_avatar" json:"sender_avatar,omitempty"`
	Content      string    `db:"content" json:"content"`
	Type         string    `db:"type" json:"type"`
	IsEncrypted  bool      `db:"is_encrypted" json:"is_encrypted"`
	FileURL      *string   `db:"file_url" json:"file_url,omitempty"`
	FileName     *string   `db:"file_name" json:"file_name,omitempty"`
	FileType     *string   `db:"file_type" json:"file_type,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CreateMessage carries the fields a caller provides when sending a message.
type CreateMessage struct {
	RoomID       string
	SenderID     string
	SenderName   string
	SenderAvatar *string
	Content      string
	Type         string
	FileURL      *string
	FileName     *string
	FileType     *string
}

// RoomEvent is broadcasted through websockets.
type RoomEvent struct {
	Type     string    `json:"type"`
	Message  *Message  `json:"message,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}
