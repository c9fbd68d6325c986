package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charlesng35/leadflow/internal/storage"
)

// BackendName returns the normalised storage backend, defaulting to local disk.
func (c StorageConfig) BackendName() string {
	backend := strings.ToLower(strings.TrimSpace(c.Backend))
	if backend == "" {
		return storage.BackendLocal
	}
	return backend
}

// S3Settings converts the S3 section into the storage package representation.
func (c StorageConfig) S3Settings() storage.S3Config {
	return storage.S3Config{
		Bucket:          strings.TrimSpace(c.S3.Bucket),
		Region:          strings.TrimSpace(c.S3.Region),
		Endpoint:        strings.TrimSpace(c.S3.Endpoint),
		AccessKeyID:     strings.TrimSpace(c.S3.AccessKeyID),
		SecretAccessKey: c.S3.SecretAccessKey,
		UsePathStyle:    c.S3.UsePathStyle,
		PublicBaseURL:   strings.TrimSpace(c.S3.PublicBaseURL),
	}
}

// OpenStore builds the configured media store. The "none" backend disables
// uploads and returns a nil store.
func (c StorageConfig) OpenStore(ctx context.Context) (storage.Store, error) {
	switch backend := c.BackendName(); backend {
	case storage.BackendLocal:
		store, err := storage.NewLocalStore(strings.TrimSpace(c.Local.Dir), strings.TrimSpace(c.Local.PublicBaseURL))
		if err != nil {
			return nil, err
		}
		return store, nil
	case storage.BackendS3:
		store, err := storage.NewS3Store(ctx, c.S3Settings())
		if err != nil {
			return nil, err
		}
		return store, nil
	case "none", "disabled":
		return nil, nil
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", backend)
	}
}
