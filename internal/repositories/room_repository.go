package repositories

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"collab-service/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

const roomCodeLength = 6
const roomCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RoomRepository abstracts room persistence.
type RoomRepository interface {
	CreateRoom(ctx context.Context, name string, createdBy string) (models.Room, error)
	GetRoom(ctx context.Context, roomID string) (models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (models.Room, error)
	ListRoomsForUser(ctx context.Context, userID string) ([]models.Room, error)
	AddParticipant(ctx context.Context, roomID string, userID string) error
	RemoveParticipant(ctx context.Context, roomID string, userID string) error
	IsParticipant(ctx context.Context, roomID string, userID string) (bool, error)
	Participants(ctx context.Context, roomID string) ([]string, error)
	Deactivate(ctx context.Context, roomID string, ownerID string) error
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// CreateRoom creates a room and registers the creator as its first
// participant atomically.
func (r *RoomRepo) CreateRoom(ctx context.Context, name string, createdBy string) (models.Room, error) {
	code, err := generateRoomCode()
	if err != nil {
		return models.Room{}, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var room models.Room
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO rooms (id, name, code, created_by, is_active) VALUES ($1, $2, $3, $4, TRUE)
         RETURNING id, name, code, created_by, created_at, is_active`,
		uuid.NewString(), name, code, createdBy).
		Scan(&room.ID, &room.Name, &room.Code, &room.CreatedBy, &room.CreatedAt, &room.IsActive); err != nil {
		return models.Room{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO room_participants (room_id, user_id) VALUES ($1, $2)`,
		room.ID, createdBy); err != nil {
		return models.Room{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Room{}, err
	}

	room.Participants = []string{createdBy}
	return room, nil
}

// GetRoom fetches a single room with its participant list.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room,
		`SELECT id, name, code, created_by, created_at, is_active FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return models.Room{}, err
	}

	room.Participants, err = r.Participants(ctx, roomID)
	return room, err
}

// GetRoomByCode resolves an active room by its join code. Codes are
// case-normalized to uppercase on lookup.
func (r *RoomRepo) GetRoomByCode(ctx context.Context, code string) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room,
		`SELECT id, name, code, created_by, created_at, is_active FROM rooms WHERE code=$1 AND is_active = TRUE`,
		strings.ToUpper(code))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return models.Room{}, err
	}

	room.Participants, err = r.Participants(ctx, room.ID)
	return room, err
}

// ListRoomsForUser returns active rooms that include the user, newest first.
func (r *RoomRepo) ListRoomsForUser(ctx context.Context, userID string) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.SelectContext(ctx, &rooms,
		`SELECT r.id, r.name, r.code, r.created_by, r.created_at, r.is_active
         FROM rooms r INNER JOIN room_participants rp ON rp.room_id = r.id
         WHERE rp.user_id=$1 AND r.is_active = TRUE
         ORDER BY r.created_at DESC`, userID)
	return rooms, err
}

// AddParticipant adds a user to a room. Joining a room you are already in
// is a no-op.
func (r *RoomRepo) AddParticipant(ctx context.Context, roomID string, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO room_participants (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roomID, userID)
	return err
}

// RemoveParticipant removes a user from a room.
func (r *RoomRepo) RemoveParticipant(ctx context.Context, roomID string, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM room_participants WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	return err
}

// IsParticipant checks membership.
func (r *RoomRepo) IsParticipant(ctx context.Context, roomID string, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM room_participants WHERE room_id=$1 AND user_id=$2)`, roomID, userID)
	return exists, err
}

// Participants returns a room's participants ordered by join time.
func (r *RoomRepo) Participants(ctx context.Context, roomID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM room_participants WHERE room_id=$1 ORDER BY joined_at ASC`, roomID)
	return ids, err
}

// Deactivate soft-deactivates a room. Only the creator may do this; rooms
// are never hard-deleted.
func (r *RoomRepo) Deactivate(ctx context.Context, roomID string, ownerID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET is_active = FALSE WHERE id=$1 AND created_by=$2`, roomID, ownerID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// generateRoomCode produces a 6-character uppercase base-36 join code from
// a cryptographically secure source.
func generateRoomCode() (string, error) {
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate room code: %w", err)
	}
	code := make([]byte, roomCodeLength)
	for i, b := range buf {
		code[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return string(code), nil
}
