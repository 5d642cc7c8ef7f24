package encryption

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-service/internal/models"
)

func TestGenerateKeyShape(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	assert.Len(t, key.Key, 64)
	assert.Len(t, key.IV, 32)
}

func TestGenerateKeyUnique(t *testing.T) {
	first, err := GenerateKey()
	require.NoError(t, err)
	second, err := GenerateKey()
	require.NoError(t, err)

	assert.NotEqual(t, first.Key, second.Key)
	assert.NotEqual(t, first.IV, second.IV)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	inputs := []string{
		"hello world",
		"",
		"a",
		"exactly sixteen!",
		"Hello \U0001F30D❤️ 日本語",
		"a longer message spanning multiple AES blocks to exercise CBC chaining properly",
	}
	for _, in := range inputs {
		ct, err := Encrypt(in, key)
		require.NoError(t, err)
		assert.NotEqual(t, in, ct)
		assert.Equal(t, in, Decrypt(ct, key))
	}
}

func TestEncryptDeterministicForFixedKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	first, err := Encrypt("same message", key)
	require.NoError(t, err)
	second, err := Encrypt("same message", key)
	require.NoError(t, err)

	// The IV is fixed per room, so identical inputs produce identical output.
	assert.Equal(t, first, second)
}

func TestDecryptWrongKeyReturnsPlaceholder(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	wrong, err := GenerateKey()
	require.NoError(t, err)

	ct, err := Encrypt("secret", key)
	require.NoError(t, err)

	assert.Equal(t, DecryptFailedPlaceholder, Decrypt(ct, wrong))
}

func TestDecryptGarbageNeverPanics(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	for _, ct := range []string{
		"",
		"not base64 at all!!",
		"QUJD", // valid base64, not a block multiple
		"AAAAAAAAAAAAAAAAAAAAAA==",
	} {
		assert.Equal(t, DecryptFailedPlaceholder, Decrypt(ct, key))
	}
}

func TestDecryptBadKeyMaterial(t *testing.T) {
	assert.Equal(t, DecryptFailedPlaceholder, Decrypt("AAAA", models.RoomKey{Key: "zz", IV: "zz"}))
	assert.Equal(t, DecryptFailedPlaceholder, Decrypt("AAAA", models.RoomKey{Key: "abcd", IV: "1234"}))
}

func TestIsLikelyEncrypted(t *testing.T) {
	assert.False(t, IsLikelyEncrypted("a plain sentence with spaces"))
	assert.False(t, IsLikelyEncrypted("abc"))
	assert.True(t, IsLikelyEncrypted("U2FsdGVkX1+abcdK"))
	assert.True(t, IsLikelyEncrypted("QUJDRA=="))
	// Known heuristic edge: the empty string classifies as encrypted-looking.
	assert.True(t, IsLikelyEncrypted(""))
	// Base64-shaped plaintext is a known false positive.
	assert.True(t, IsLikelyEncrypted("deadbeefdeadbeef"))
}

func TestEncryptRejectsBadKey(t *testing.T) {
	_, err := Encrypt("text", models.RoomKey{Key: "abcd", IV: "1234"})
	require.Error(t, err)
}
