package utils

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ImageConstraints bounds the frames handed to the sampler.
type ImageConstraints struct {
	MaxWidth  int
	MaxHeight int
	MinWidth  int
	MinHeight int
}

// DefaultImageConstraints returns the default constraints for still images.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{
		MaxWidth:  2048,
		MaxHeight: 2048,
		MinWidth:  1,
		MinHeight: 1,
	}
}

// FitImage scales img down so it fits inside the max dimensions while
// preserving aspect ratio. Images that already fit are returned unchanged.
func FitImage(img image.Image, constraints ImageConstraints) image.Image {
	b := img.Bounds()
	if (constraints.MaxWidth <= 0 || b.Dx() <= constraints.MaxWidth) &&
		(constraints.MaxHeight <= 0 || b.Dy() <= constraints.MaxHeight) {
		return img
	}
	maxW, maxH := constraints.MaxWidth, constraints.MaxHeight
	if maxW <= 0 {
		maxW = b.Dx()
	}
	if maxH <= 0 {
		maxH = b.Dy()
	}
	return imaging.Fit(img, maxW, maxH, imaging.Lanczos)
}

// FlattenOnto composites img over an opaque background so transparent
// pixels become background-coloured instead of black.
func FlattenOnto(img image.Image, bg color.Color) *image.NRGBA {
	b := img.Bounds()
	dst := imaging.New(b.Dx(), b.Dy(), bg)
	return imaging.Overlay(dst, img, image.Pt(0, 0), 1.0)
}
