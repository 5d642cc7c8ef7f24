package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"collab-service/internal/models"
)

var ErrRoomKeyNotFound = errors.New("room key not found")

// RoomKeyRepository is the durable keyed store for room keys: one key+iv
// pair per room, shared by every participant.
type RoomKeyRepository interface {
	UpsertRoomKey(ctx context.Context, roomID string, key models.RoomKey) error
	GetRoomKey(ctx context.Context, roomID string) (models.RoomKey, error)
}

// RoomKeyRepo is a sqlx implementation of RoomKeyRepository.
type RoomKeyRepo struct {
	db *sqlx.DB
}

// NewRoomKeyRepo constructs a RoomKeyRepo.
func NewRoomKeyRepo(db *sqlx.DB) *RoomKeyRepo {
	return &RoomKeyRepo{db: db}
}

// UpsertRoomKey writes the key under the room's identity, replacing any
// previous key in place (rotation).
func (r *RoomKeyRepo) UpsertRoomKey(ctx context.Context, roomID string, key models.RoomKey) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO room_keys (room_id, key, iv) VALUES ($1, $2, $3)
         ON CONFLICT (room_id) DO UPDATE SET key = EXCLUDED.key, iv = EXCLUDED.iv, updated_at = NOW()`,
		roomID, key.Key, key.IV)
	return err
}

// GetRoomKey reads the stored key for a room.
func (r *RoomKeyRepo) GetRoomKey(ctx context.Context, roomID string) (models.RoomKey, error) {
	var key models.RoomKey
	err := r.db.GetContext(ctx, &key, `SELECT key, iv FROM room_keys WHERE room_id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RoomKey{}, ErrRoomKeyNotFound
	}
	return key, err
}
