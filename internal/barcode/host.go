package barcode

import (
	"context"
	"image"
	"sort"
)

// DetectedBarcode mirrors the record returned by platform shape-detection
// APIs: a format name, the raw value and the corner points clockwise from
// the top-left.
type DetectedBarcode struct {
	Format       string
	RawValue     string
	BoundingBox  image.Rectangle
	CornerPoints []Point
}

// HostDetector is an in-process stand-in for a platform barcode detector.
type HostDetector struct {
	backend Backend
	formats []Format
	opts    Options
}

// NewHostDetector returns a detector restricted to formats (all when empty).
func NewHostDetector(formats []Format, tryHarder bool) *HostDetector {
	if len(formats) == 0 {
		formats = allFormats
	}
	return &HostDetector{
		backend: NewBackend(),
		formats: formats,
		opts:    Options{Formats: formats, TryHarder: tryHarder, Multi: true},
	}
}

// SupportedFormats lists the detector format names, sorted.
func (d *HostDetector) SupportedFormats(_ context.Context) ([]string, error) {
	out := make([]string, 0, len(d.formats))
	for _, f := range d.formats {
		out = append(out, f.String())
	}
	sort.Strings(out)
	return out, nil
}

// Detect decodes every supported symbol in img.
func (d *HostDetector) Detect(ctx context.Context, img image.Image) ([]DetectedBarcode, error) {
	results, err := d.backend.Decode(ctx, img, d.opts)
	if err != nil {
		return nil, err
	}
	out := make([]DetectedBarcode, 0, len(results))
	for _, r := range results {
		b := r.BBox
		out = append(out, DetectedBarcode{
			Format:      r.Type.String(),
			RawValue:    r.Value,
			BoundingBox: b,
			CornerPoints: []Point{
				{X: b.Min.X, Y: b.Min.Y},
				{X: b.Max.X, Y: b.Min.Y},
				{X: b.Max.X, Y: b.Max.Y},
				{X: b.Min.X, Y: b.Max.Y},
			},
		})
	}
	return out, nil
}
