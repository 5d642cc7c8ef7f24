package storage

import "errors"

// ErrFileTooLarge is returned when a payload exceeds MaxUploadSize.
var ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
