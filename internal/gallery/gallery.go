// Package gallery manages the durable per-user collection of generated
// images: persisting new creations, listing them newest first, and the
// credit-metered upscale-in-place flow.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-studio/lumen/internal/artifact"
	"github.com/lumen-studio/lumen/internal/blobstore"
	"github.com/lumen-studio/lumen/internal/docstore"
	"github.com/lumen-studio/lumen/internal/gateway"
	"github.com/lumen-studio/lumen/internal/ledger"
)

// ErrEntryNotFound indicates an upscale target absent from the loaded set.
var ErrEntryNotFound = errors.New("gallery entry not found")

// Manager keeps the loaded gallery for one identity and coordinates the
// store, the blob backend, the ledger, and the AI gateway.
type Manager struct {
	store       docstore.Store
	blobs       blobstore.Store
	ledger      *ledger.Client
	gw          gateway.Service
	upscaleCost int

	mu      sync.Mutex
	uid     string
	entries []docstore.GalleryEntry
}

// New returns a gallery manager. upscaleCost is the credit price of one
// upscale-in-place.
func New(store docstore.Store, blobs blobstore.Store, lc *ledger.Client, gw gateway.Service, upscaleCost int) *Manager {
	return &Manager{
		store:       store,
		blobs:       blobs,
		ledger:      lc,
		gw:          gw,
		upscaleCost: upscaleCost,
	}
}

// LoadFor fetches uid's gallery from the store, newest first.
func (m *Manager) LoadFor(ctx context.Context, uid string) error {
	entries, err := m.store.ListGalleryEntries(ctx, uid)
	if err != nil {
		return fmt.Errorf("load gallery: %w", err)
	}
	m.mu.Lock()
	m.uid = uid
	m.entries = entries
	m.mu.Unlock()
	return nil
}

// Entries returns the loaded gallery, newest first.
func (m *Manager) Entries() []docstore.GalleryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]docstore.GalleryEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Clear drops the loaded gallery (sign-out).
func (m *Manager) Clear() {
	m.mu.Lock()
	m.uid = ""
	m.entries = nil
	m.mu.Unlock()
}

// Add persists a freshly generated artifact: upload the bytes, write the
// entry document, and prepend it to the loaded set.
func (m *Manager) Add(ctx context.Context, uid string, a *artifact.Artifact, prompt string) (*docstore.GalleryEntry, error) {
	url, err := m.blobs.Upload(ctx, blobstore.GalleryKey(uid, a.Name), a.Data, a.MIME)
	if err != nil {
		return nil, fmt.Errorf("upload gallery image: %w", err)
	}
	e := &docstore.GalleryEntry{
		ID:        uuid.NewString(),
		UID:       uid,
		URL:       url,
		Prompt:    prompt,
		Upscaled:  false,
		CreatedAt: time.Now(),
	}
	if err := m.store.PutGalleryEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("save gallery entry: %w", err)
	}

	m.mu.Lock()
	if m.uid == uid {
		m.entries = append([]docstore.GalleryEntry{*e}, m.entries...)
	}
	m.mu.Unlock()
	return e, nil
}

// Upscale runs the metered upscale-in-place flow for one entry: fetch the
// stored bytes, enhance them through the gateway, upload the result, and
// point the same entry at the new blob. The entry keeps its identity and
// position; only URL and the upscaled flag change. Returns the freshest
// profile alongside any error.
func (m *Manager) Upscale(ctx context.Context, p *ledger.Profile, entryID string) (*ledger.Profile, error) {
	m.mu.Lock()
	idx := -1
	for i := range m.entries {
		if m.entries[i].ID == entryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return p, ErrEntryNotFound
	}
	entry := m.entries[idx]
	m.mu.Unlock()

	var updated docstore.GalleryEntry
	newProfile, err := m.ledger.Guard(ctx, p, m.upscaleCost, "Gallery upscale", func() error {
		data, err := m.blobs.Get(ctx, entry.URL)
		if err != nil {
			return fmt.Errorf("fetch gallery image: %w", err)
		}
		src := &artifact.Artifact{
			Name: entry.ID,
			MIME: http.DetectContentType(data),
			Data: data,
		}
		out, err := m.gw.Upscale(ctx, src)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("upscaled-%d%s", time.Now().UnixNano(), out.Ext())
		url, err := m.blobs.Upload(ctx, blobstore.GalleryKey(entry.UID, name), out.Data, out.MIME)
		if err != nil {
			return fmt.Errorf("upload upscaled image: %w", err)
		}
		if err := m.store.UpdateGalleryEntry(ctx, entry.UID, entry.ID, url, true); err != nil {
			return fmt.Errorf("update gallery entry: %w", err)
		}
		updated = entry
		updated.URL = url
		updated.Upscaled = true
		return nil
	})
	if err != nil {
		return newProfile, err
	}

	m.mu.Lock()
	for i := range m.entries {
		if m.entries[i].ID == entryID {
			m.entries[i] = updated
			break
		}
	}
	m.mu.Unlock()
	return newProfile, nil
}
