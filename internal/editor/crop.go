package editor

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"time"

	"github.com/lumen-studio/lumen/internal/artifact"
)

// CropRect is a crop selection in displayed pixel space.
type CropRect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// SetCropSelection stores the pending crop rectangle.
func (s *Session) SetCropSelection(r CropRect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tab = TabCrop
	s.crop = &r
}

// CropSelection returns the pending crop rectangle, nil when none.
func (s *Session) CropSelection() *CropRect {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.crop == nil {
		return nil
	}
	cp := *s.crop
	return &cp
}

// ApplyCrop rasterizes the selected sub-region of the current artifact at
// device-pixel-ratio fidelity into a new artifact and appends it. scaleX
// and scaleY are naturalWidth/clientWidth and naturalHeight/clientHeight.
// Cropping is local and free: no credits move.
func (s *Session) ApplyCrop(scaleX, scaleY, pixelRatio float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.hist.Current()
	if cur == nil {
		return ErrNoImageLoaded
	}
	if s.crop == nil {
		return ErrNoCropSelected
	}
	r := *s.crop

	src, _, err := image.Decode(bytes.NewReader(cur.Data))
	if err != nil {
		return fmt.Errorf("decode current image: %w", err)
	}

	bounds := src.Bounds()
	srcX := bounds.Min.X + int(math.Round(r.X*scaleX))
	srcY := bounds.Min.Y + int(math.Round(r.Y*scaleY))
	srcW := int(math.Round(r.Width * scaleX))
	srcH := int(math.Round(r.Height * scaleY))
	if srcW <= 0 || srcH <= 0 {
		return ErrNoCropSelected
	}

	outW := int(math.Round(r.Width * scaleX * pixelRatio))
	outH := int(math.Round(r.Height * scaleY * pixelRatio))
	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))

	if pixelRatio == 1 {
		draw.Draw(dst, dst.Bounds(), src, image.Pt(srcX, srcY), draw.Src)
	} else {
		// Nearest-neighbor resample of the selected region.
		for dy := 0; dy < outH; dy++ {
			sy := srcY + int(float64(dy)*float64(srcH)/float64(outH))
			for dx := 0; dx < outW; dx++ {
				sx := srcX + int(float64(dx)*float64(srcW)/float64(outW))
				dst.Set(dx, dy, src.At(sx, sy))
			}
		}
	}

	var buf bytes.Buffer
	mime := cur.MIME
	switch mime {
	case "image/jpeg":
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 92}); err != nil {
			return fmt.Errorf("encode crop: %w", err)
		}
	default:
		mime = "image/png"
		if err := png.Encode(&buf, dst); err != nil {
			return fmt.Errorf("encode crop: %w", err)
		}
	}

	s.append(&artifact.Artifact{
		Name: fmt.Sprintf("cropped-%d%s", time.Now().UnixNano(), extForMIME(mime)),
		MIME: mime,
		Data: buf.Bytes(),
	})
	return nil
}

func extForMIME(mime string) string {
	return (&artifact.Artifact{MIME: mime}).Ext()
}
