package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestClassifySuccess(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here you go"},
				{InlineData: &genai.Blob{Data: []byte{1, 2, 3}, MIMEType: "image/png"}},
			}},
			FinishReason: genai.FinishReasonStop,
		}},
	}

	a, err := classify("edit", resp)
	require.NoError(t, err)
	assert.Equal(t, "image/png", a.MIME)
	assert.Equal(t, []byte{1, 2, 3}, a.Data)
}

func TestClassifyBlocked(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
			BlockReason:        genai.BlockedReasonSafety,
			BlockReasonMessage: "prompt violates policy",
		},
	}

	_, err := classify("edit", resp)
	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ReasonBlocked, ge.Reason)
	assert.Equal(t, "prompt violates policy", ge.Detail)
}

func TestClassifyStoppedEarly(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: "partial"}}},
			FinishReason: genai.FinishReasonMaxTokens,
		}},
	}

	_, err := classify("filter", resp)
	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ReasonStoppedEarly, ge.Reason)
	assert.Equal(t, string(genai.FinishReasonMaxTokens), ge.Detail)
}

func TestClassifyNoImageKeepsExplanation(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "I cannot edit this image."},
			}},
			FinishReason: genai.FinishReasonStop,
		}},
	}

	_, err := classify("adjust", resp)
	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ReasonNoImage, ge.Reason)
	assert.Equal(t, "I cannot edit this image.", ge.Detail)
}

func TestClassifyEmptyResponse(t *testing.T) {
	_, err := classify("upscale", &genai.GenerateContentResponse{})
	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ReasonNoImage, ge.Reason)
}

func TestGenerationErrorMessage(t *testing.T) {
	e := &GenerationError{Op: "edit", Reason: ReasonBlocked, Detail: "nope"}
	assert.Equal(t, "edit failed (blocked): nope", e.Error())
	e2 := &GenerationError{Op: "edit", Reason: ReasonNoImage}
	assert.Equal(t, "edit failed (no_image)", e2.Error())
}
