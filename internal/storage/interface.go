package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	// ErrInvalidKey is returned for keys that escape their namespace.
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrObjectNotFound is returned when a key has no object.
	ErrObjectNotFound = errors.New("object not found")
)

// ObjectStorage stores job images under slash-separated keys.
type ObjectStorage interface {
	// Upload writes an object, replacing any existing one.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens an object. Returns ErrObjectNotFound if absent.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns where the object can be reached: a file path for local
	// storage, a public URL for buckets.
	GetURL(key string) string

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// JoinKey builds the key of a file inside a job namespace.
// Both parts must be single path segments.
func JoinKey(jobID, filename string) (string, error) {
	for _, part := range []string{jobID, filename} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) || strings.ContainsRune(part, 0) {
			return "", ErrInvalidKey
		}
	}
	return jobID + "/" + filename, nil
}

// cleanKey normalizes key and rejects anything leaving the storage root.
func cleanKey(key string) (string, error) {
	key = strings.ReplaceAll(key, `\`, "/")
	cleaned := path.Clean("/" + key)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", ErrInvalidKey
	}
	if cleaned != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
