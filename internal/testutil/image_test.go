package testutil

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRImage(t *testing.T) {
	img := QRImage(t, "hello")
	assert.Equal(t, image.Rect(0, 0, 200, 200), img.Bounds())
	// Quiet zone corner is white.
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(0, 0))
}

func TestPlace(t *testing.T) {
	code := Blank(10, 10, color.Black)
	canvas := Place(40, 20, []image.Image{code}, []image.Point{{X: 25, Y: 5}})
	assert.Equal(t, color.RGBA{A: 255}, canvas.RGBAAt(30, 10))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, canvas.RGBAAt(5, 5))
}

func TestWithAlpha(t *testing.T) {
	img := WithAlpha(Place(4, 4, []image.Image{Blank(2, 2, color.Black)}, []image.Point{{}}))
	assert.Zero(t, img.NRGBAAt(3, 3).A)
	assert.Equal(t, uint8(255), img.NRGBAAt(0, 0).A)
}

func TestSaveAndLoadImage(t *testing.T) {
	path := filepath.Join(CreateTempDir(t), "nested", "code.png")
	SaveImage(t, QRImage(t, "x"), path)
	require.True(t, FileExists(path))
	assert.Equal(t, image.Rect(0, 0, 200, 200), LoadImage(t, path).Bounds())
}
