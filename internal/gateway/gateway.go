// Package gateway is the image AI boundary. It maps domain requests onto the
// remote generative service and normalizes its heterogeneous failure shapes
// (blocked prompt, empty response, non-stop finish) into one closed error
// taxonomy. No retries happen here; the caller owns the credit-refund
// decision.
package gateway

import (
	"context"
	"fmt"

	"github.com/lumen-studio/lumen/internal/artifact"
)

// Hotspot is a pixel coordinate pair in original-image space.
type Hotspot struct {
	X int
	Y int
}

// Reason classifies why a generation attempt produced no image.
type Reason string

const (
	// ReasonBlocked: the prompt or output was rejected by policy.
	ReasonBlocked Reason = "blocked"
	// ReasonNoImage: the model answered but returned no image data.
	ReasonNoImage Reason = "no_image"
	// ReasonStoppedEarly: the model stopped for a non-normal finish reason.
	ReasonStoppedEarly Reason = "stopped_early"
)

// GenerationError is the single error shape for all failed AI calls.
// Detail carries the service's explanation verbatim to help the user
// rephrase.
type GenerationError struct {
	Op     string
	Reason Reason
	Detail string
}

func (e *GenerationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s failed (%s)", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s failed (%s): %s", e.Op, e.Reason, e.Detail)
}

// Service is the image AI contract consumed by the editor and gallery.
type Service interface {
	// Generate creates a new image from a text prompt.
	Generate(ctx context.Context, prompt, aspectRatio string) (*artifact.Artifact, error)
	// Edit performs a localized edit anchored at the hotspot.
	Edit(ctx context.Context, img *artifact.Artifact, prompt string, spot Hotspot) (*artifact.Artifact, error)
	// Filter applies a stylistic filter across the whole image.
	Filter(ctx context.Context, img *artifact.Artifact, prompt string) (*artifact.Artifact, error)
	// Adjust applies a global photographic adjustment.
	Adjust(ctx context.Context, img *artifact.Artifact, prompt string) (*artifact.Artifact, error)
	// Upscale enhances resolution and detail without changing content.
	Upscale(ctx context.Context, img *artifact.Artifact) (*artifact.Artifact, error)
	// ImprovePrompt rewrites a rough prompt into a richer one.
	ImprovePrompt(ctx context.Context, text string) (string, error)
}
