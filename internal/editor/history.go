// Package editor holds the edit-session state machine: a linear undoable
// history of immutable image artifacts and the guarded credit-metered
// operation protocol that mutates it.
package editor

import (
	"errors"

	"github.com/lumen-studio/lumen/internal/artifact"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// History is an ordered sequence of artifacts with a cursor. Appending
// while the cursor is mid-sequence discards the redo branch: this is a
// linear history, not a tree. Cursor is -1 only while the sequence is
// empty; otherwise it stays within [0, len-1].
type History struct {
	artifacts []*artifact.Artifact
	cursor    int
}

// NewHistory returns an empty history.
func NewHistory() History {
	return History{cursor: -1}
}

// Len returns the number of artifacts in the sequence.
func (h *History) Len() int { return len(h.artifacts) }

// Cursor returns the current index, -1 when empty.
func (h *History) Cursor() int { return h.cursor }

// Current returns the artifact at the cursor, nil when empty.
func (h *History) Current() *artifact.Artifact {
	if h.cursor < 0 {
		return nil
	}
	return h.artifacts[h.cursor]
}

// Original returns the first artifact, nil when empty.
func (h *History) Original() *artifact.Artifact {
	if len(h.artifacts) == 0 {
		return nil
	}
	return h.artifacts[0]
}

// CanUndo reports whether an earlier version exists.
func (h *History) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether a later version exists.
func (h *History) CanRedo() bool { return h.cursor < len(h.artifacts)-1 }

// Append truncates everything after the cursor, pushes a, and moves the
// cursor to the end.
func (h *History) Append(a *artifact.Artifact) {
	h.artifacts = append(h.artifacts[:h.cursor+1], a)
	h.cursor = len(h.artifacts) - 1
}

// Replace starts over with a as the sole artifact.
func (h *History) Replace(a *artifact.Artifact) {
	h.artifacts = []*artifact.Artifact{a}
	h.cursor = 0
}

// Undo moves the cursor one step back.
func (h *History) Undo() error {
	if !h.CanUndo() {
		return ErrNothingToUndo
	}
	h.cursor--
	return nil
}

// Redo moves the cursor one step forward.
func (h *History) Redo() error {
	if !h.CanRedo() {
		return ErrNothingToRedo
	}
	h.cursor++
	return nil
}

// ResetToOriginal moves the cursor to the first artifact without
// truncating. No-op on an empty history. Redo into later versions stays
// unavailable until a new append discards them.
func (h *History) ResetToOriginal() {
	if len(h.artifacts) > 0 {
		h.cursor = 0
	}
}

// Clear empties the history.
func (h *History) Clear() {
	h.artifacts = nil
	h.cursor = -1
}
