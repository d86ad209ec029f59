package blobstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// FolderStore implements Store using a local directory. Objects are
// zstd-compressed and written atomically: tmp/<unique>.partial, fsync,
// rename to the final path. URLs are file:// paths to the compressed object.
type FolderStore struct {
	root string
}

// NewFolderStore returns a FolderStore rooted at dir.
func NewFolderStore(root string) *FolderStore {
	return &FolderStore{root: root}
}

func tmpName() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b) + ".partial"
}

// Upload compresses and writes data under key. An existing object at the
// same key is left in place (re-upload of identical keys is a dedupe hit).
func (f *FolderStore) Upload(ctx context.Context, key string, data []byte, mime string) (string, error) {
	finalPath := filepath.Join(f.root, key+".zst")
	url := "file://" + finalPath

	if _, err := os.Stat(finalPath); err == nil {
		return url, nil
	}

	tmpPath := filepath.Join(f.root, "tmp", tmpName())
	if err := os.MkdirAll(filepath.Dir(tmpPath), 0755); err != nil {
		return "", fmt.Errorf("mkdir tmp: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return "", fmt.Errorf("mkdir objects: %w", err)
	}

	fh, err := os.Create(tmpPath)
	if err != nil {
		return "", err
	}
	w, err := zstd.NewWriter(fh)
	if err != nil {
		fh.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		fh.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := w.Close(); err != nil {
		fh.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := fh.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return url, nil
}

// Get reads and decompresses the object behind a file:// URL.
func (f *FolderStore) Get(ctx context.Context, url string) ([]byte, error) {
	p, ok := strings.CutPrefix(url, "file://")
	if !ok {
		return nil, fmt.Errorf("not a file url: %q", url)
	}
	fh, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer fh.Close()
	r, err := zstd.NewReader(fh)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
