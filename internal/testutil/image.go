package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
)

// CodeImage describes one generated barcode picture.
type CodeImage struct {
	Format  barcode.Format
	Content string
	Width   int
	Height  int
	Margin  int
}

// QRImage returns a 200x200 QR code for content with a 4 module quiet zone.
func QRImage(t *testing.T, content string) *image.RGBA {
	t.Helper()
	return Generate(t, CodeImage{Format: barcode.FormatQR, Content: content, Width: 200, Height: 200, Margin: 4})
}

// EAN13Image returns a 300x120 EAN-13 barcode for the 12 or 13 digit content.
func EAN13Image(t *testing.T, content string) *image.RGBA {
	t.Helper()
	return Generate(t, CodeImage{Format: barcode.FormatEAN13, Content: content, Width: 300, Height: 120, Margin: 10})
}

// Generate encodes spec into an image.
func Generate(t *testing.T, spec CodeImage) *image.RGBA {
	t.Helper()
	img, err := barcode.Encode(spec.Format, spec.Content, spec.Width, spec.Height, spec.Margin)
	require.NoError(t, err, "encode %s %q", spec.Format, spec.Content)
	return img
}

// Blank returns a w x h image filled with c.
func Blank(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// Place copies each code onto a white w x h canvas at the given offsets.
func Place(w, h int, codes []image.Image, at []image.Point) *image.RGBA {
	canvas := Blank(w, h, color.White)
	for i, c := range codes {
		r := c.Bounds().Sub(c.Bounds().Min).Add(at[i])
		draw.Draw(canvas, r, c, c.Bounds().Min, draw.Src)
	}
	return canvas
}

// WithAlpha returns img with its white pixels made fully transparent, the way
// a screenshot with a transparent background arrives.
func WithAlpha(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i] == 0xff && out.Pix[i+1] == 0xff && out.Pix[i+2] == 0xff {
			out.Pix[i+3] = 0
		}
	}
	return out
}

// SaveImage writes img to path in the format implied by its extension.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, imaging.Save(img, path), "save %s", path)
}

// LoadImage reads the image at path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()
	img, err := imaging.Open(path)
	require.NoError(t, err, "open %s", path)
	return img
}

// WriteQR saves a QR code for content to dir/name and returns the path.
func WriteQR(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	SaveImage(t, QRImage(t, content), path)
	return path
}

// OversizedPNG returns a tiny PNG whose header declares w×h pixels. The
// pixel data is that of a 1x1 image, so only header-driven code can tell.
func OversizedPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()

	// Signature (8), then the IHDR chunk: length (4), type (4), data (13), crc (4).
	const ihdr = 8
	require.Equal(t, "IHDR", string(data[ihdr+4:ihdr+8]))
	binary.BigEndian.PutUint32(data[ihdr+8:], w)
	binary.BigEndian.PutUint32(data[ihdr+12:], h)
	binary.BigEndian.PutUint32(data[ihdr+21:], crc32.ChecksumIEEE(data[ihdr+4:ihdr+21]))
	return data
}
