// Package storage persists uploaded media objects on local disk or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Object describes a stored object.
type Object struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// Store is an object store for media uploads.
type Store interface {
	// Put writes body under key and returns the stored object with its public URL.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*Object, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Backend names the implementation ("local" or "s3").
	Backend() string
}

// ObjectKey builds a unique key for an upload: media/YYYY/MM/<uuid>-<name><ext>.
func ObjectKey(fileName, ext string, at time.Time) string {
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(fileName, "\\", "/")), path.Ext(fileName))
	name := sanitizeFragment(base)
	if ext == "" {
		ext = strings.ToLower(path.Ext(fileName))
	}

	return fmt.Sprintf("media/%04d/%02d/%s-%s%s", at.Year(), int(at.Month()), uuid.NewString(), name, ext)
}

func publicURL(base, key string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "/" + key
	}
	return base + "/" + key
}

func sanitizeFragment(fragment string) string {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	fragment = strings.ReplaceAll(fragment, "..", "")
	fragment = strings.ReplaceAll(fragment, string(os.PathSeparator), "-")
	fragment = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, fragment)
	fragment = strings.Trim(fragment, "-")
	if fragment == "" {
		return "file"
	}
	if len(fragment) > 64 {
		fragment = fragment[:64]
	}
	return fragment
}
