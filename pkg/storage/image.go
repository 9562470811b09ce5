package storage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"

	"github.com/disintegration/imaging"
)

// ImageSpec defines the bounding box for a normalised image.
type ImageSpec struct {
	Width   int
	Height  int
	Quality int
}

var (
	// LogoSpec bounds university logos.
	LogoSpec = ImageSpec{Width: 512, Height: 512, Quality: 85}
	// CoverSpec bounds university cover images.
	CoverSpec = ImageSpec{Width: 1600, Height: 900, Quality: 85}
)

// NormalizeImage decodes an image, applies EXIF orientation, fits it inside the
// spec bounds and re-encodes it as JPEG.
func NormalizeImage(r io.Reader, spec ImageSpec) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var out image.Image = img
	bounds := img.Bounds()
	if bounds.Dx() > spec.Width || bounds.Dy() > spec.Height {
		out = imaging.Fit(img, spec.Width, spec.Height, imaging.Lanczos)
	}
	quality := spec.Quality
	if quality <= 0 {
		quality = 85
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
