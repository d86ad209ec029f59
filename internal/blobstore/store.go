// Package blobstore is the binary asset boundary: upload a named payload,
// get back a durable URL, and fetch payload bytes by URL for in-place
// reprocessing.
package blobstore

import (
	"context"
	"errors"
	"path"
)

// ErrNotFound indicates a missing blob.
var ErrNotFound = errors.New("blob not found")

// Store is the blob store backend contract.
type Store interface {
	// Upload persists data under key and returns a durable URL for it.
	Upload(ctx context.Context, key string, data []byte, mime string) (string, error)
	// Get fetches the payload behind a URL previously returned by Upload.
	Get(ctx context.Context, url string) ([]byte, error)
}

// GalleryKey returns the store key for a gallery image.
// Layout: users/<uid>/gallery/<name>.
func GalleryKey(uid, name string) string {
	return path.Join("users", uid, "gallery", name)
}
