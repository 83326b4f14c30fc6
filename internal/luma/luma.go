// Package luma converts packed RGBA frames into single-channel 8-bit luma
// buffers suitable for the Y800 ("GREY") image format consumed by the
// decoding engine.
package luma

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch is returned when an RGBA buffer is not exactly 4*W*H bytes.
var ErrLengthMismatch = errors.New("rgba buffer length does not match dimensions")

// LengthError describes a rejected RGBA buffer.
type LengthError struct {
	Width, Height int
	Got           int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("%v: got %d bytes, want %d (%dx%d)", ErrLengthMismatch, e.Got, Expected(e.Width, e.Height), e.Width, e.Height)
}

func (e *LengthError) Unwrap() error { return ErrLengthMismatch }

// Weighting selects the fixed-point channel weights.
type Weighting int

const (
	// Rec601 uses Y = (19595R + 38469G + 7472B) >> 16.
	Rec601 Weighting = iota
	// Studio uses the limited-range form Y = (66R + 129G + 25B + 4096) >> 8.
	Studio
)

// String returns the configuration name of the weighting.
func (w Weighting) String() string {
	switch w {
	case Rec601:
		return "rec601"
	case Studio:
		return "studio"
	default:
		return fmt.Sprintf("weighting(%d)", int(w))
	}
}

// ParseWeighting maps a configuration name to a Weighting.
func ParseWeighting(s string) (Weighting, error) {
	switch s {
	case "", "rec601":
		return Rec601, nil
	case "studio":
		return Studio, nil
	default:
		return Rec601, fmt.Errorf("unknown luma weighting %q", s)
	}
}

// Expected returns the RGBA byte length for a w x h frame.
func Expected(w, h int) int {
	if w <= 0 || h <= 0 {
		return 0
	}
	return 4 * w * h
}

// CheckLength validates an RGBA length against the frame dimensions.
func CheckLength(n, w, h int) error {
	if w < 0 || h < 0 || n != Expected(w, h) {
		return &LengthError{Width: w, Height: h, Got: n}
	}
	return nil
}

// Convert returns a new W*H luma buffer for rgba.
func Convert(rgba []byte, w, h int, wt Weighting) ([]byte, error) {
	if err := CheckLength(len(rgba), w, h); err != nil {
		return nil, err
	}
	out := make([]byte, w*h)
	convert(out, rgba, wt)
	return out, nil
}

// ConvertInto writes the luma plane of rgba into dst, which must hold at
// least W*H bytes. Alpha is ignored.
func ConvertInto(dst, rgba []byte, w, h int, wt Weighting) error {
	if err := CheckLength(len(rgba), w, h); err != nil {
		return err
	}
	if len(dst) < w*h {
		return fmt.Errorf("luma destination too small: %d < %d", len(dst), w*h)
	}
	convert(dst[:w*h], rgba, wt)
	return nil
}

func convert(dst, rgba []byte, wt Weighting) {
	switch wt {
	case Studio:
		for i := range dst {
			p := rgba[i*4 : i*4+3 : i*4+3]
			dst[i] = byte((uint32(p[0])*66 + uint32(p[1])*129 + uint32(p[2])*25 + 4096) >> 8)
		}
	default:
		for i := range dst {
			p := rgba[i*4 : i*4+3 : i*4+3]
			dst[i] = byte((uint32(p[0])*19595 + uint32(p[1])*38469 + uint32(p[2])*7472) >> 16)
		}
	}
}
