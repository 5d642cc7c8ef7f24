package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"collab-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for room messages. Messages are
// append-only: never edited or deleted.
type MessageRepository interface {
	CreateMessage(ctx context.Context, data models.CreateMessage, encrypted bool) (models.Message, error)
	ListRoomMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a room message. Content arrives already in its
// persisted form; encrypted records whether it passed through the cipher.
func (r *MessageRepo) CreateMessage(ctx context.Context, data models.CreateMessage, encrypted bool) (models.Message, error) {
	msgType := data.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, room_id, sender_id, sender_name, sender_avatar, content, type, is_encrypted, file_url, file_name, file_type)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
         RETURNING id, room_id, sender_id, sender_name, sender_avatar, content, type, is_encrypted, file_url, file_name, file_type, created_at`,
		uuid.NewString(), data.RoomID, data.SenderID, data.SenderName, data.SenderAvatar,
		data.Content, msgType, encrypted, data.FileURL, data.FileName, data.FileType).
		Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.SenderName, &msg.SenderAvatar,
			&msg.Content, &msg.Type, &msg.IsEncrypted, &msg.FileURL, &msg.FileName, &msg.FileType, &msg.CreatedAt)
	return msg, err
}

// ListRoomMessages returns the most recent messages of a room capped at
// limit, in ascending timestamp order.
func (r *MessageRepo) ListRoomMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, room_id, sender_id, sender_name, sender_avatar, content, type, is_encrypted, file_url, file_name, file_type, created_at
         FROM (
             SELECT * FROM messages WHERE room_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2
         ) recent
         ORDER BY created_at ASC, id ASC`, roomID, limit)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT id, room_id, sender_id, sender_name, sender_avatar, content, type, is_encrypted, file_url, file_name, file_type, created_at
         FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}
