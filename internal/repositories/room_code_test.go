package repositories

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roomCodePattern = regexp.MustCompile(`^[0-9A-Z]{6}$`)

func TestGenerateRoomCodeFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := generateRoomCode()
		require.NoError(t, err)
		assert.Regexp(t, roomCodePattern, code)
	}
}

func TestGenerateRoomCodeVaries(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		code, err := generateRoomCode()
		require.NoError(t, err)
		seen[code] = struct{}{}
	}
	// 50 draws from a 36^6 space collide essentially never.
	assert.Greater(t, len(seen), 45)
}
