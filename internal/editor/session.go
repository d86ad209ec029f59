package editor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/lumen-studio/lumen/internal/artifact"
	"github.com/lumen-studio/lumen/internal/config"
	"github.com/lumen-studio/lumen/internal/gateway"
	"github.com/lumen-studio/lumen/internal/ledger"
)

var (
	// ErrNoImageLoaded guards operations that need a current artifact.
	ErrNoImageLoaded = errors.New("no image loaded")
	// ErrNoCropSelected guards crop application without a selection.
	ErrNoCropSelected = errors.New("no crop selected")
	// ErrNoHotspot guards localized edits without a selected point.
	ErrNoHotspot = errors.New("no edit hotspot selected")
)

// Tab identifies the active editing mode. The hotspot only exists while
// the local-edit tab is active.
type Tab string

const (
	TabPromptEdit Tab = "promptEdit"
	TabLocalEdit  Tab = "localEdit"
	TabCrop       Tab = "crop"
	TabFilters    Tab = "filters"
	TabAdjust     Tab = "adjust"
)

// Session is one identity's edit session: the history, the UI-adjacent
// hotspot/crop/tab state, and the guarded-operation orchestration. A
// session mutex serializes guarded operations explicitly; correctness does
// not depend on the interaction layer disabling buttons.
type Session struct {
	mu     sync.Mutex
	uid    string
	ledger *ledger.Client
	gw     gateway.Service
	costs  config.Costs
	leases *artifact.Leases

	profile *ledger.Profile
	hist    History
	lease   *artifact.Lease
	hotspot *gateway.Hotspot
	crop    *CropRect
	tab     Tab
}

// NewSession creates an empty session for uid with its loaded profile.
func NewSession(uid string, profile *ledger.Profile, lc *ledger.Client, gw gateway.Service, costs config.Costs) *Session {
	return &Session{
		uid:     uid,
		ledger:  lc,
		gw:      gw,
		costs:   costs,
		leases:  artifact.NewLeases(),
		profile: profile,
		hist:    NewHistory(),
		tab:     TabPromptEdit,
	}
}

// Profile returns the latest known ledger profile.
func (s *Session) Profile() *ledger.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// SetProfile replaces the cached profile (after an external purchase).
func (s *Session) SetProfile(p *ledger.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
}

// Upload replaces the session wholesale with a freshly uploaded artifact:
// new history, default tab, no hotspot, no crop.
func (s *Session) Upload(a *artifact.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(a)
}

// Current returns the artifact at the history cursor, nil when empty.
func (s *Session) Current() *artifact.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Current()
}

// Original returns the first artifact in the history, nil when empty.
func (s *Session) Original() *artifact.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Original()
}

// CanUndo reports whether undo is possible.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanUndo()
}

// CanRedo reports whether redo is possible.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanRedo()
}

// HistoryLen returns the number of artifacts in the history.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Len()
}

// Undo steps back one version. A hotspot computed against a different
// image is meaningless, so it is cleared.
func (s *Session) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hist.Undo(); err != nil {
		return err
	}
	s.hotspot = nil
	s.swapLease()
	return nil
}

// Redo steps forward one version and clears the hotspot.
func (s *Session) Redo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hist.Redo(); err != nil {
		return err
	}
	s.hotspot = nil
	s.swapLease()
	return nil
}

// ResetToOriginal moves back to the first version without truncating.
func (s *Session) ResetToOriginal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hist.ResetToOriginal()
	s.hotspot = nil
	s.crop = nil
	s.swapLease()
}

// ActiveTab returns the active editing mode.
func (s *Session) ActiveTab() Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

// SetActiveTab switches editing mode. Leaving the local-edit tab drops the
// hotspot.
func (s *Session) SetActiveTab(t Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tab = t
	if t != TabLocalEdit {
		s.hotspot = nil
	}
}

// Hotspot returns the active hotspot, nil when none.
func (s *Session) Hotspot() *gateway.Hotspot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hotspot == nil {
		return nil
	}
	cp := *s.hotspot
	return &cp
}

// SetHotspotFromClick maps a click in displayed pixel space to
// original-image coordinates by linear scale correction per axis, rounded
// to the nearest pixel.
func (s *Session) SetHotspotFromClick(displayX, displayY float64, displayW, displayH, naturalW, naturalH int) gateway.Hotspot {
	spot := gateway.Hotspot{
		X: int(math.Round(displayX * float64(naturalW) / float64(displayW))),
		Y: int(math.Round(displayY * float64(naturalH) / float64(displayH))),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tab = TabLocalEdit
	s.hotspot = &spot
	return spot
}

// DisplayURL returns the display reference for the current artifact,
// empty when nothing is loaded.
func (s *Session) DisplayURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lease == nil {
		return ""
	}
	return s.lease.URL()
}

// OutstandingLeases reports unreleased display handles. At most one is
// expected at any time.
func (s *Session) OutstandingLeases() int {
	return s.leases.Outstanding()
}

// Close releases the display handle and empties the session (logout or
// go-home).
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hist.Clear()
	s.hotspot = nil
	s.crop = nil
	s.tab = TabPromptEdit
	s.swapLease()
}

// Generate creates a brand-new image under the guarded protocol and starts
// a fresh session with it. Returns the named artifact so the caller can
// also record it in the gallery.
func (s *Session) Generate(ctx context.Context, prompt, aspectRatio string) (*artifact.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out *artifact.Artifact
	p, err := s.ledger.Guard(ctx, s.profile, s.costs.Generate, "Image generation", func() error {
		a, err := s.gw.Generate(ctx, prompt, aspectRatio)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	s.profile = p
	if err != nil {
		return nil, err
	}
	named := named("generated", out)
	s.replace(named)
	return named, nil
}

// LocalizedEdit edits the current image at the active hotspot. The hotspot
// is cleared after the attempt whether it succeeds or fails.
func (s *Session) LocalizedEdit(ctx context.Context, prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hist.Current() == nil {
		return ErrNoImageLoaded
	}
	if s.hotspot == nil {
		return ErrNoHotspot
	}
	spot := *s.hotspot
	defer func() { s.hotspot = nil }()

	return s.perform(ctx, s.costs.Edit, "Localized edit", "edited", func(cur *artifact.Artifact) (*artifact.Artifact, error) {
		return s.gw.Edit(ctx, cur, prompt, spot)
	})
}

// ApplyFilter applies a stylistic filter to the current image.
func (s *Session) ApplyFilter(ctx context.Context, prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perform(ctx, s.costs.Filter, "Filter: "+prompt, "filtered", func(cur *artifact.Artifact) (*artifact.Artifact, error) {
		return s.gw.Filter(ctx, cur, prompt)
	})
}

// ApplyAdjustment applies a global adjustment to the current image.
func (s *Session) ApplyAdjustment(ctx context.Context, prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perform(ctx, s.costs.Adjust, "Adjustment: "+prompt, "adjusted", func(cur *artifact.Artifact) (*artifact.Artifact, error) {
		return s.gw.Adjust(ctx, cur, prompt)
	})
}

// UpscaleCurrent upscales the current image.
func (s *Session) UpscaleCurrent(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perform(ctx, s.costs.Upscale, "Upscale", "upscaled", func(cur *artifact.Artifact) (*artifact.Artifact, error) {
		return s.gw.Upscale(ctx, cur)
	})
}

// ImprovePrompt is unmetered prompt improvement.
func (s *Session) ImprovePrompt(ctx context.Context, text string) (string, error) {
	return s.gw.ImprovePrompt(ctx, text)
}

// perform is the guarded-operation core: require an image, pre-check
// affordability, debit, attempt, append on success, refund on failure.
// Callers hold the session mutex.
func (s *Session) perform(ctx context.Context, cost int, reason, prefix string, op func(cur *artifact.Artifact) (*artifact.Artifact, error)) error {
	cur := s.hist.Current()
	if cur == nil {
		return ErrNoImageLoaded
	}

	var out *artifact.Artifact
	p, err := s.ledger.Guard(ctx, s.profile, cost, reason, func() error {
		a, opErr := op(cur)
		if opErr != nil {
			return opErr
		}
		out = a
		return nil
	})
	s.profile = p
	if err != nil {
		return err
	}
	s.append(named(prefix, out))
	return nil
}

// named gives a gateway result its operation-specific, unique name.
func named(prefix string, a *artifact.Artifact) *artifact.Artifact {
	return &artifact.Artifact{
		Name: fmt.Sprintf("%s-%d%s", prefix, time.Now().UnixNano(), a.Ext()),
		MIME: a.MIME,
		Data: a.Data,
	}
}

// append pushes an artifact onto the history. Crop selections are
// single-use and dropped on every append. Callers hold the mutex.
func (s *Session) append(a *artifact.Artifact) {
	s.hist.Append(a)
	s.crop = nil
	s.swapLease()
}

// replace starts a new session around a. Callers hold the mutex.
func (s *Session) replace(a *artifact.Artifact) {
	s.hist.Replace(a)
	s.tab = TabPromptEdit
	s.hotspot = nil
	s.crop = nil
	s.swapLease()
}

// swapLease re-pairs the display handle with the current artifact: exactly
// one release per acquisition, triggered on every current-artifact change.
// Callers hold the mutex.
func (s *Session) swapLease() {
	if s.lease != nil {
		s.lease.Release()
		s.lease = nil
	}
	if cur := s.hist.Current(); cur != nil {
		s.lease = s.leases.Acquire(cur)
	}
}
