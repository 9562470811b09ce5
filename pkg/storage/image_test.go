package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func TestNormalizeImageFitsBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2000, 1000))
	for x := 0; x < 2000; x += 10 {
		src.Set(x, 10, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	out, err := NormalizeImage(&buf, LogoSpec)
	require.NoError(t, err)

	decoded, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	require.LessOrEqual(t, decoded.Bounds().Dx(), 512)
	require.LessOrEqual(t, decoded.Bounds().Dy(), 512)
}

func TestNormalizeImageKeepsSmallImages(t *testing.T) {
	src := imaging.New(100, 50, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	out, err := NormalizeImage(&buf, CoverSpec)
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 100, cfg.Width)
	require.Equal(t, 50, cfg.Height)
}

func TestNormalizeImageRejectsGarbage(t *testing.T) {
	_, err := NormalizeImage(bytes.NewReader([]byte("not an image")), LogoSpec)
	require.Error(t, err)
}
