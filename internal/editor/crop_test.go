package editor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-studio/lumen/internal/artifact"
)

func testImageArtifact(t *testing.T, w, h int) *artifact.Artifact {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 0x40, A: 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &artifact.Artifact{Name: "photo.png", MIME: "image/png", Data: buf.Bytes()}
}

func TestApplyCropRequiresImageAndSelection(t *testing.T) {
	s, _ := newTestSession(t, 10, &fakeGateway{})
	assert.ErrorIs(t, s.ApplyCrop(1, 1, 1), ErrNoImageLoaded)

	s.Upload(testImageArtifact(t, 8, 8))
	assert.ErrorIs(t, s.ApplyCrop(1, 1, 1), ErrNoCropSelected)
}

func TestApplyCropAppendsToHistory(t *testing.T) {
	s, _ := newTestSession(t, 10, &fakeGateway{})
	s.Upload(testImageArtifact(t, 8, 8))

	s.SetCropSelection(CropRect{X: 0, Y: 0, Width: 8, Height: 8})
	require.NoError(t, s.ApplyCrop(1, 1, 1))

	assert.Equal(t, 2, s.HistoryLen())
	assert.True(t, s.CanUndo())
	assert.Contains(t, s.Current().Name, "cropped-")
	assert.Equal(t, "image/png", s.Current().MIME)
	assert.Equal(t, 10, s.Profile().Credits, "cropping is free")

	out, _, err := image.Decode(bytes.NewReader(s.Current().Data))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(8, 8), out.Bounds().Size())
}

func TestApplyCropSubRegionAndScale(t *testing.T) {
	s, _ := newTestSession(t, 10, &fakeGateway{})
	s.Upload(testImageArtifact(t, 16, 16))

	// Displayed at half size: selection coordinates double on both axes.
	s.SetCropSelection(CropRect{X: 1, Y: 1, Width: 4, Height: 3})
	require.NoError(t, s.ApplyCrop(2, 2, 1))

	out, _, err := image.Decode(bytes.NewReader(s.Current().Data))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(8, 6), out.Bounds().Size())
}

func TestApplyCropHonorsPixelRatio(t *testing.T) {
	s, _ := newTestSession(t, 10, &fakeGateway{})
	s.Upload(testImageArtifact(t, 8, 8))

	s.SetCropSelection(CropRect{X: 0, Y: 0, Width: 4, Height: 4})
	require.NoError(t, s.ApplyCrop(1, 1, 2))

	out, _, err := image.Decode(bytes.NewReader(s.Current().Data))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(8, 8), out.Bounds().Size())
}

func TestCropSelectionIsSingleUse(t *testing.T) {
	s, _ := newTestSession(t, 10, &fakeGateway{})
	s.Upload(testImageArtifact(t, 8, 8))

	s.SetCropSelection(CropRect{X: 0, Y: 0, Width: 8, Height: 8})
	require.NoError(t, s.ApplyCrop(1, 1, 1))

	assert.Nil(t, s.CropSelection())
	assert.ErrorIs(t, s.ApplyCrop(1, 1, 1), ErrNoCropSelected)
}

func TestCropSelectionClearedByGuardedEdit(t *testing.T) {
	gw := &fakeGateway{result: pngArtifact("result")}
	s, _ := newTestSession(t, 10, gw)
	s.Upload(testImageArtifact(t, 8, 8))

	s.SetCropSelection(CropRect{X: 0, Y: 0, Width: 4, Height: 4})
	require.NoError(t, s.ApplyFilter(context.Background(), "sepia"))
	assert.Nil(t, s.CropSelection(), "stale selection must not survive a new version")
}
