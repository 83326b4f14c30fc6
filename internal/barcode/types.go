package barcode

import (
	"context"
	"fmt"
	"image"
	"strings"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
	FormatAztec
	FormatPDF417
	FormatCode128
	FormatCode39
	FormatCode93
	FormatEAN8
	FormatEAN13
	FormatUPCA
	FormatUPCE
	FormatITF
	FormatCodabar
)

var formatNames = map[Format]string{
	FormatQR:         "qr_code",
	FormatDataMatrix: "data_matrix",
	FormatAztec:      "aztec",
	FormatPDF417:     "pdf417",
	FormatCode128:    "code_128",
	FormatCode39:     "code_39",
	FormatCode93:     "code_93",
	FormatEAN8:       "ean_8",
	FormatEAN13:      "ean_13",
	FormatUPCA:       "upc_a",
	FormatUPCE:       "upc_e",
	FormatITF:        "itf",
	FormatCodabar:    "codabar",
}

// String returns the lower-case, underscore separated name used by
// platform barcode detectors ("qr_code", "ean_13", ...).
func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "unknown"
}

// Matrix reports whether the symbology is two-dimensional.
func (f Format) Matrix() bool {
	switch f {
	case FormatQR, FormatDataMatrix, FormatAztec, FormatPDF417:
		return true
	}
	return false
}

// ParseFormat accepts detector names and common aliases ("qr", "ean13", "code-128").
func ParseFormat(s string) (Format, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	for f, name := range formatNames {
		if key == name || key == strings.ReplaceAll(name, "_", "") {
			return f, nil
		}
	}
	switch key {
	case "qr":
		return FormatQR, nil
	case "datamatrix", "dm":
		return FormatDataMatrix, nil
	case "i2of5", "interleaved_2_of_5":
		return FormatITF, nil
	}
	return FormatUnknown, fmt.Errorf("unsupported barcode format: %s", s)
}

// ParseFormats parses a list of format names, skipping empty entries.
func ParseFormats(names []string) ([]Format, error) {
	out := make([]Format, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		f, err := ParseFormat(n)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Options controls backend decoding behavior.
type Options struct {
	// Formats constrains the set of symbologies to search. Empty means all.
	Formats []Format

	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool

	// Multi enables multi-symbol detection in a single image.
	Multi bool

	// ROI optionally restricts decoding to a sub-rectangle of the image.
	// Zero-sized or out-of-bounds rectangles are ignored.
	ROI image.Rectangle
}

// Point is an integer point in image coordinates.
type Point struct {
	X int
	Y int
}

// Result represents a decoded barcode.
type Result struct {
	Type   Format
	Value  string
	Raw    []byte
	Points []Point         // Key points reported by the decoder, in image coordinates
	BBox   image.Rectangle // Bounding box of Points
}

// Backend is a pluggable barcode decoder implementation.
type Backend interface {
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
}

// NewBackend returns the default gozxing-backed implementation.
func NewBackend() Backend { return &gozxingBackend{} }
