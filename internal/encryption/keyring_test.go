package encryption

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyringSetGetRemove(t *testing.T) {
	ring := NewKeyring()

	_, ok := ring.Get("room-1")
	assert.False(t, ok)

	key, err := GenerateKey()
	require.NoError(t, err)
	ring.Set("room-1", key)

	got, ok := ring.Get("room-1")
	require.True(t, ok)
	assert.Equal(t, key, got)

	ring.Remove("room-1")
	_, ok = ring.Get("room-1")
	assert.False(t, ok)
}

func TestKeyringRoomsAreIndependent(t *testing.T) {
	ring := NewKeyring()

	first, err := GenerateKey()
	require.NoError(t, err)
	second, err := GenerateKey()
	require.NoError(t, err)

	ring.Set("room-1", first)
	ring.Set("room-2", second)
	ring.Remove("room-1")

	got, ok := ring.Get("room-2")
	require.True(t, ok)
	assert.Equal(t, second, got)
}
