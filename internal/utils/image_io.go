package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// SupportedImageExtensions lists supported file extensions for loading.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".webp", ".tif", ".tiff"}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedImageExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// ImageMetadata captures lightweight file and pixel information.
type ImageMetadata struct {
	Path        string
	Format      string
	SizeBytes   int64
	Width       int
	Height      int
	AspectRatio float64
}

// LoadImage reads and decodes an image file. JPEG EXIF orientation is
// applied, so phone photos come back upright.
func LoadImage(path string) (image.Image, ImageMetadata, error) {
	if path == "" {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "load", Err: errors.New("empty path")}
	}
	if !IsSupportedImage(path) {
		err := fmt.Errorf("unsupported format: %s", filepath.Ext(path))
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "load", Err: err}
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: Reading user-provided image file path is expected
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "load", Err: err}
	}
	img, meta, err := decodeBytes(data)
	if err != nil {
		return nil, ImageMetadata{}, err
	}
	meta.Path = path
	return img, meta, nil
}

// DecodeImage decodes any registered image format from r.
func DecodeImage(r io.Reader) (image.Image, ImageMetadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "decode", Err: err}
	}
	return decodeBytes(data)
}

// MaxDecodePixels caps width×height of decoded images. Headers declaring
// more are rejected before any pixel memory is allocated.
var MaxDecodePixels int64 = 50_000_000

// ErrImageTooLarge is returned for images above MaxDecodePixels.
var ErrImageTooLarge = errors.New("image dimensions exceed limit")

// CheckPixels reports ErrImageTooLarge when a w×h image exceeds
// MaxDecodePixels.
func CheckPixels(w, h int) error {
	if MaxDecodePixels > 0 && int64(w)*int64(h) > MaxDecodePixels {
		return fmt.Errorf("%w: %dx%d (max %d pixels)", ErrImageTooLarge, w, h, MaxDecodePixels)
	}
	return nil
}

func decodeBytes(data []byte) (image.Image, ImageMetadata, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "decode", Err: err}
	}
	if err := CheckPixels(cfg.Width, cfg.Height); err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "decode", Err: err}
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(format == "jpeg"))
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "decode", Err: err}
	}
	b := img.Bounds()
	meta := ImageMetadata{
		Format:    format,
		SizeBytes: int64(len(data)),
		Width:     b.Dx(),
		Height:    b.Dy(),
	}
	if b.Dy() > 0 {
		meta.AspectRatio = float64(b.Dx()) / float64(b.Dy())
	}
	return img, meta, nil
}

// EncodePNG returns img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &ImageProcessingError{Operation: "encode", Err: err}
	}
	return buf.Bytes(), nil
}

// SaveImage writes img to path, choosing the encoder from the extension.
func SaveImage(path string, img image.Image) error {
	if err := imaging.Save(img, path); err != nil {
		return &ImageProcessingError{Operation: "save", Err: err}
	}
	return nil
}

// ValidateImageConstraints checks dimensions against the provided constraints.
func ValidateImageConstraints(img image.Image, constraints ImageConstraints) error {
	if img == nil {
		return &ImageProcessingError{Operation: "validate", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < constraints.MinWidth || h < constraints.MinHeight {
		return &ImageProcessingError{
			Operation: "validate",
			Err: fmt.Errorf(
				"image too small: %dx%d < %dx%d",
				w, h, constraints.MinWidth, constraints.MinHeight,
			),
		}
	}
	// Oversized images are scaled down by FitImage.
	return nil
}
