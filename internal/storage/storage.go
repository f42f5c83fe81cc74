package storage

import (
	"context"
	"fmt"

	"github.com/yamdb/apiserver/config"
)

// Object is a small in-memory blob written in a single request.
type Object struct {
	Key         string
	Body        []byte
	ContentType string
	// Metadata is stored as user metadata on the object.
	Metadata map[string]string
}

// ObjectStorage defines the write operations shared by the backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, obj Object) error
	Bucket() string
	Close() error
}

// Storage wraps an ObjectStorage backend with a stable API.
type Storage struct {
	backend ObjectStorage
	name    string
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage, name string) *Storage {
	return &Storage{backend: backend, name: name}
}

// Open connects to the backend selected by cfg.Backend and makes sure its
// bucket exists.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var backend ObjectStorage
	switch cfg.Backend {
	case "minio":
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		backend = client
	case "gcs":
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	s := NewStorage(backend, cfg.Backend)
	if err := s.EnsureBucket(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return s, nil
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put writes obj to the configured bucket.
func (s *Storage) Put(ctx context.Context, obj Object) error {
	if obj.Key == "" {
		return fmt.Errorf("object key is required")
	}
	return s.backend.Put(ctx, obj)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// Name returns the backend name.
func (s *Storage) Name() string {
	return s.name
}

// Close releases the backend client.
func (s *Storage) Close() error {
	return s.backend.Close()
}
