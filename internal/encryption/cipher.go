package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"collab-service/internal/models"
)

const (
	keySize = 32
	ivSize  = 16
)

// DecryptFailedPlaceholder is returned by Decrypt on any cryptographic
// failure, so callers can always render something instead of crashing.
const DecryptFailedPlaceholder = "[Unable to decrypt message]"

var base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)

// GenerateKey produces a fresh 256-bit key and 128-bit IV from crypto/rand,
// both hex-encoded.
func GenerateKey() (models.RoomKey, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return models.RoomKey{}, fmt.Errorf("generate key: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return models.RoomKey{}, fmt.Errorf("generate iv: %w", err)
	}
	return models.RoomKey{
		Key: hex.EncodeToString(key),
		IV:  hex.EncodeToString(iv),
	}, nil
}

// Encrypt applies AES-CBC with PKCS#7 padding and returns the ciphertext
// base64-encoded. The IV is fixed per room, so the output is deterministic
// for a given (plaintext, key, iv) triple.
func Encrypt(plaintext string, key models.RoomKey) (string, error) {
	block, iv, err := cipherParams(key)
	if err != nil {
		return "", err
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt inverts Encrypt. It never fails past this boundary: a bad key,
// corrupted ciphertext, or padding mismatch yields the placeholder string.
func Decrypt(ciphertext string, key models.RoomKey) string {
	block, iv, err := cipherParams(key)
	if err != nil {
		return DecryptFailedPlaceholder
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return DecryptFailedPlaceholder
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return DecryptFailedPlaceholder
	}

	plaintext := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, raw)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return DecryptFailedPlaceholder
	}
	if !utf8.Valid(unpadded) {
		return DecryptFailedPlaceholder
	}
	return string(unpadded)
}

// IsLikelyEncrypted reports whether text looks like base64 ciphertext.
// Heuristic only: base64-shaped plaintext misclassifies, and the empty
// string counts as encrypted-looking.
func IsLikelyEncrypted(text string) bool {
	return len(text)%4 == 0 && base64Pattern.MatchString(text)
}

func cipherParams(key models.RoomKey) (cipher.Block, []byte, error) {
	keyBytes, err := hex.DecodeString(key.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid key encoding: %w", err)
	}
	if len(keyBytes) != keySize {
		return nil, nil, fmt.Errorf("invalid key length: %d, expected %d", len(keyBytes), keySize)
	}
	iv, err := hex.DecodeString(key.IV)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid iv encoding: %w", err)
	}
	if len(iv) != ivSize {
		return nil, nil, fmt.Errorf("invalid iv length: %d, expected %d", len(iv), ivSize)
	}
	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, nil, err
	}
	return block, iv, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, errors.New("invalid padding byte")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("padding mismatch")
		}
	}
	return data[:len(data)-padding], nil
}
