package keys

import (
	"context"
	"errors"
	"sync"

	"collab-service/internal/encryption"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
)

// ErrKeyNotFound is returned by Lookup when no key exists in the cache or
// the durable store. Joiners treat this as "wait for the creator's key".
var ErrKeyNotFound = errors.New("room key not available")

// Service produces, caches and durably shares one symmetric key per room.
// The in-memory keyring is always consulted before the durable store.
type Service struct {
	ring *encryption.Keyring
	repo repositories.RoomKeyRepository

	mu     sync.Mutex
	subs   map[string]map[int]chan models.RoomKey
	nextID int
}

// NewService constructs a key service over the given cache and store.
func NewService(ring *encryption.Keyring, repo repositories.RoomKeyRepository) *Service {
	return &Service{
		ring: ring,
		repo: repo,
		subs: make(map[string]map[int]chan models.RoomKey),
	}
}

// Ensure returns the room's key, resolving cache first, then the durable
// store, and finally generating and persisting a fresh key. This is the
// room creator's path.
func (s *Service) Ensure(ctx context.Context, roomID string) (models.RoomKey, error) {
	if key, ok := s.ring.Get(roomID); ok {
		return key, nil
	}

	key, err := s.repo.GetRoomKey(ctx, roomID)
	if err == nil {
		s.ring.Set(roomID, key)
		return key, nil
	}
	if !errors.Is(err, repositories.ErrRoomKeyNotFound) {
		return models.RoomKey{}, err
	}

	key, err = encryption.GenerateKey()
	if err != nil {
		return models.RoomKey{}, err
	}
	if err := s.repo.UpsertRoomKey(ctx, roomID, key); err != nil {
		// An unpersisted key must not be used: joiners could never obtain it.
		return models.RoomKey{}, err
	}
	s.ring.Set(roomID, key)
	return key, nil
}

// Lookup returns the room's key without generating one. This is the joiner's
// path: absence means the creator's key is not yet visible.
func (s *Service) Lookup(ctx context.Context, roomID string) (models.RoomKey, error) {
	if key, ok := s.ring.Get(roomID); ok {
		return key, nil
	}

	key, err := s.repo.GetRoomKey(ctx, roomID)
	if errors.Is(err, repositories.ErrRoomKeyNotFound) {
		return models.RoomKey{}, ErrKeyNotFound
	}
	if err != nil {
		return models.RoomKey{}, err
	}
	s.ring.Set(roomID, key)
	return key, nil
}

// Rotate replaces the room's key in place and notifies subscribers.
func (s *Service) Rotate(ctx context.Context, roomID string) (models.RoomKey, error) {
	key, err := encryption.GenerateKey()
	if err != nil {
		return models.RoomKey{}, err
	}
	if err := s.repo.UpsertRoomKey(ctx, roomID, key); err != nil {
		return models.RoomKey{}, err
	}
	s.ring.Set(roomID, key)
	s.notify(roomID, key)
	return key, nil
}

// Forget drops the cached key for a room. Called when leaving the chat view.
func (s *Service) Forget(roomID string) {
	s.ring.Remove(roomID)
}

// Subscribe delivers key updates for a room until the returned cancel
// function is called. Cancellation is an explicit disposal call; the channel
// is closed on cancel. Slow subscribers drop updates rather than blocking
// rotation.
func (s *Service) Subscribe(roomID string) (<-chan models.RoomKey, func()) {
	ch := make(chan models.RoomKey, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[roomID]; !ok {
		s.subs[roomID] = make(map[int]chan models.RoomKey)
	}
	id := s.nextID
	s.nextID++
	s.subs[roomID][id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if subs, ok := s.subs[roomID]; ok {
			if sub, live := subs[id]; live {
				delete(subs, id)
				close(sub)
			}
			if len(subs) == 0 {
				delete(s.subs, roomID)
			}
		}
	}
	return ch, cancel
}

func (s *Service) notify(roomID string, key models.RoomKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs[roomID] {
		select {
		case ch <- key:
		default:
		}
	}
}
