package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxUploadSize is the largest accepted file payload.
const MaxUploadSize = 10 << 20 // 10MB

// FileInfo describes a stored blob.
type FileInfo struct {
	URL         string
	Name        string
	ContentType string
	Size        int64
}

// BlobStore uploads a binary payload under a room-scoped path and returns a
// retrievable URL.
type BlobStore interface {
	Save(ctx context.Context, roomID string, filename string, r io.Reader) (FileInfo, error)
}

// LocalStore stores blobs on the local filesystem, served under baseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the storage root, for static file serving.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save writes the payload under <dir>/<roomID>/<random>_<name> and returns
// its URL and sniffed content type. Payloads beyond MaxUploadSize are
// rejected before anything is written.
func (s *LocalStore) Save(ctx context.Context, roomID string, filename string, r io.Reader) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return FileInfo{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return FileInfo{}, ErrFileTooLarge
	}

	name := sanitizeFilename(filename)
	roomDir := filepath.Join(s.dir, roomID)
	if err := os.MkdirAll(roomDir, 0o755); err != nil {
		return FileInfo{}, fmt.Errorf("create room dir: %w", err)
	}

	stored := uuid.NewString() + "_" + name
	if err := os.WriteFile(filepath.Join(roomDir, stored), data, 0o644); err != nil {
		return FileInfo{}, fmt.Errorf("write upload: %w", err)
	}

	return FileInfo{
		URL:         s.baseURL + "/" + roomID + "/" + stored,
		Name:        name,
		ContentType: mimetype.Detect(data).String(),
		Size:        int64(len(data)),
	}, nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "file"
	}
	return name
}
