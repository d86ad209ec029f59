package gateway

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/lumen-studio/lumen/internal/artifact"
)

const (
	// DefaultEditModel handles image-in/image-out editing calls.
	DefaultEditModel = "gemini-2.5-flash-image-preview"
	// DefaultTextModel handles prompt rewriting.
	DefaultTextModel = "gemini-2.5-flash"
	// DefaultImageModel handles from-scratch generation.
	DefaultImageModel = "imagen-3.0-generate-002"
)

const upscalePrompt = "Upscale this image to a higher resolution. Enhance " +
	"sharpness and fine detail. Do not add, remove, or change any content."

// Gemini implements Service on the Google GenAI SDK.
type Gemini struct {
	client     *genai.Client
	editModel  string
	textModel  string
	imageModel string
}

// NewGemini creates a Gemini-backed gateway with the given API key.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	g := &Gemini{
		client:     client,
		editModel:  DefaultEditModel,
		textModel:  DefaultTextModel,
		imageModel: DefaultImageModel,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// GeminiOption configures the Gemini gateway.
type GeminiOption func(*Gemini)

// WithEditModel overrides the editing model.
func WithEditModel(model string) GeminiOption {
	return func(g *Gemini) { g.editModel = model }
}

// WithTextModel overrides the text model.
func WithTextModel(model string) GeminiOption {
	return func(g *Gemini) { g.textModel = model }
}

// WithImageModel overrides the generation model.
func WithImageModel(model string) GeminiOption {
	return func(g *Gemini) { g.imageModel = model }
}

// Generate creates a new image from a text prompt via Imagen.
func (g *Gemini) Generate(ctx context.Context, prompt, aspectRatio string) (*artifact.Artifact, error) {
	config := &genai.GenerateImagesConfig{NumberOfImages: 1}
	if aspectRatio != "" {
		config.AspectRatio = aspectRatio
	}
	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, config)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	for _, img := range resp.GeneratedImages {
		if img.Image != nil && len(img.Image.ImageBytes) > 0 {
			mime := img.Image.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return &artifact.Artifact{MIME: mime, Data: img.Image.ImageBytes}, nil
		}
	}
	return nil, &GenerationError{Op: "generate", Reason: ReasonNoImage}
}

// Edit performs a localized edit anchored at the hotspot. The coordinates
// are embedded in the instruction; the editing model resolves them against
// the supplied image.
func (g *Gemini) Edit(ctx context.Context, img *artifact.Artifact, prompt string, spot Hotspot) (*artifact.Artifact, error) {
	instruction := fmt.Sprintf(
		"Perform a natural, localized edit focused at pixel coordinates (x=%d, y=%d). "+
			"Blend the edit seamlessly with the rest of the image. Edit: %s",
		spot.X, spot.Y, prompt,
	)
	return g.transform(ctx, "edit", img, instruction)
}

// Filter applies a stylistic filter across the whole image.
func (g *Gemini) Filter(ctx context.Context, img *artifact.Artifact, prompt string) (*artifact.Artifact, error) {
	instruction := "Apply this stylistic filter to the entire image without changing its composition: " + prompt
	return g.transform(ctx, "filter", img, instruction)
}

// Adjust applies a global photographic adjustment.
func (g *Gemini) Adjust(ctx context.Context, img *artifact.Artifact, prompt string) (*artifact.Artifact, error) {
	instruction := "Apply this global photographic adjustment to the image: " + prompt
	return g.transform(ctx, "adjust", img, instruction)
}

// Upscale enhances resolution without changing content.
func (g *Gemini) Upscale(ctx context.Context, img *artifact.Artifact) (*artifact.Artifact, error) {
	return g.transform(ctx, "upscale", img, upscalePrompt)
}

// ImprovePrompt rewrites a rough prompt into a richer one.
func (g *Gemini) ImprovePrompt(ctx context.Context, text string) (string, error) {
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{{
			Text: "Rewrite this image prompt to be more vivid and specific. " +
				"Reply with the improved prompt only, no commentary: " + text,
		}},
	}}
	resp, err := g.client.Models.GenerateContent(ctx, g.textModel, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return "", fmt.Errorf("improve prompt: %w", err)
	}
	out := ""
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			out += part.Text
		}
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", &GenerationError{Op: "improve prompt", Reason: ReasonNoImage, Detail: "empty response"}
	}
	return out, nil
}

// transform runs one image-in/image-out call and classifies the response.
func (g *Gemini) transform(ctx context.Context, op string, img *artifact.Artifact, instruction string) (*artifact.Artifact, error) {
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIME}},
			{Text: instruction},
		},
	}}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.editModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return classify(op, resp)
}

// classify maps a raw response into exactly one of: blocked, no image
// returned (with any explanatory text), stopped early, or success.
func classify(op string, resp *genai.GenerateContentResponse) (*artifact.Artifact, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		detail := resp.PromptFeedback.BlockReasonMessage
		if detail == "" {
			detail = string(resp.PromptFeedback.BlockReason)
		}
		return nil, &GenerationError{Op: op, Reason: ReasonBlocked, Detail: detail}
	}
	if len(resp.Candidates) == 0 {
		return nil, &GenerationError{Op: op, Reason: ReasonNoImage}
	}

	cand := resp.Candidates[0]
	var text string
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				return &artifact.Artifact{MIME: mime, Data: part.InlineData.Data}, nil
			}
			if part.Text != "" {
				text += part.Text
			}
		}
	}

	if cand.FinishReason != "" && cand.FinishReason != genai.FinishReasonStop {
		return nil, &GenerationError{Op: op, Reason: ReasonStoppedEarly, Detail: string(cand.FinishReason)}
	}
	return nil, &GenerationError{Op: op, Reason: ReasonNoImage, Detail: strings.TrimSpace(text)}
}

var _ Service = (*Gemini)(nil)
