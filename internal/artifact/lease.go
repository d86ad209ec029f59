package artifact

import (
	"fmt"
	"sync"
)

// Leases tracks acquire/release pairing of transient display handles.
// Every Acquire must be matched by exactly one Release, triggered whenever
// the owning slot's current artifact changes. Outstanding exposes leaks.
type Leases struct {
	mu   sync.Mutex
	next uint64
	open map[uint64]string
}

// NewLeases returns an empty lease registry.
func NewLeases() *Leases {
	return &Leases{open: make(map[uint64]string)}
}

// Lease is a scoped display handle for one artifact.
type Lease struct {
	id       uint64
	url      string
	reg      *Leases
	released bool
	mu       sync.Mutex
}

// Acquire registers a display handle for a. The returned lease must be
// released when a stops being the displayed artifact.
func (l *Leases) Acquire(a *Artifact) *Lease {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	id := l.next
	l.open[id] = a.Name
	return &Lease{id: id, url: a.DataURL(), reg: l}
}

// Outstanding returns the number of unreleased leases.
func (l *Leases) Outstanding() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.open)
}

// URL returns the display reference for the leased artifact.
func (le *Lease) URL() string {
	return le.url
}

// Release unregisters the lease. Releasing twice is a pairing bug and
// returns an error; the registry is left unchanged.
func (le *Lease) Release() error {
	le.mu.Lock()
	defer le.mu.Unlock()
	if le.released {
		return fmt.Errorf("lease %d released twice", le.id)
	}
	le.released = true
	le.reg.mu.Lock()
	delete(le.reg.open, le.id)
	le.reg.mu.Unlock()
	return nil
}
