package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Download when nothing is stored at the path
var ErrNotFound = errors.New("object not found")

// Storage stores exported report files
type Storage interface {
	// Upload stores an object and returns its storage path
	Upload(ctx context.Context, objectID uuid.UUID, filename string, data io.Reader) (string, error)

	// Download retrieves an object by storage path
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Delete removes an object by storage path
	Delete(ctx context.Context, storagePath string) error
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type         StorageType
	LocalPath    string // For local storage
	S3Bucket     string // For S3 storage
	S3Region     string // For S3 storage
	AWSAccessKey string
	AWSSecretKey string
}

// Validate checks that the selected backend has what it needs
func (c StorageConfig) Validate() error {
	switch c.Type {
	case StorageTypeLocal:
		if c.LocalPath == "" {
			return errors.New("local storage path is required")
		}
	case StorageTypeS3:
		if c.S3Bucket == "" {
			return errors.New("AWS_S3_BUCKET is required for S3 storage")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Type)
	}
	return nil
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg StorageConfig) (Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case StorageTypeS3:
		return NewS3Storage(cfg)
	default:
		return NewLocalStorage(cfg.LocalPath)
	}
}

// generateStoragePath generates a unique storage path for an object
func generateStoragePath(objectID uuid.UUID, filename string) string {
	ext := filepath.Ext(filename)
	baseName := strings.TrimSuffix(filename, ext)
	// Sanitize filename
	baseName = strings.NewReplacer(" ", "_", "/", "_", "\\", "_", "..", "_").Replace(baseName)

	id := objectID.String()
	return fmt.Sprintf("reports/%s/%s_%s%s", id[:2], id, baseName, ext)
}

// contentType determines content type from filename
func contentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
