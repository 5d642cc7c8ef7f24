package encryption

import (
	"sync"

	"collab-service/internal/models"
)

// Keyring caches room keys for the lifetime of the process. It is an
// injected service object rather than a package-level map, and is safe for
// concurrent use.
type Keyring struct {
	mu   sync.RWMutex
	keys map[string]models.RoomKey
}

// NewKeyring creates an empty keyring.
func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[string]models.RoomKey)}
}

// Set caches the key for a room.
func (k *Keyring) Set(roomID string, key models.RoomKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[roomID] = key
}

// Get returns the cached key for a room. The second return value reports
// presence; an unset room never yields a default key.
func (k *Keyring) Get(roomID string) (models.RoomKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.keys[roomID]
	return key, ok
}

// Remove drops the cached key for a room.
func (k *Keyring) Remove(roomID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, roomID)
}
