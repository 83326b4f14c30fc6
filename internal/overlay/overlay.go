// Package overlay paints detection markers on top of a sampled frame.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/qrscan/internal/detect"
	"github.com/MeKo-Tech/qrscan/internal/utils"
)

// Style selects how a marker is painted.
type Style int

const (
	// StyleFill paints a translucent filled rectangle.
	StyleFill Style = iota
	// StyleStroke paints a dashed one-pixel outline.
	StyleStroke
	// StyleOutline paints a solid box and traces the symbol polygon.
	StyleOutline
)

// ParseStyle maps a configuration name to a Style.
func ParseStyle(s string) (Style, error) {
	switch s {
	case "", "fill":
		return StyleFill, nil
	case "stroke":
		return StyleStroke, nil
	case "outline":
		return StyleOutline, nil
	default:
		return StyleFill, fmt.Errorf("unknown overlay style %q", s)
	}
}

// Options configures a Renderer.
type Options struct {
	Style       Style
	Padding     int
	Alpha       float64
	EngineColor color.RGBA
	NativeColor color.RGBA
	Labels      bool
}

// DefaultOptions returns the standard marker look: a 20% fill, 10 px padding,
// blue for engine detections and red for native ones.
func DefaultOptions() Options {
	return Options{
		Style:       StyleFill,
		Padding:     10,
		Alpha:       0.2,
		EngineColor: color.RGBA{R: 0, G: 0, B: 255, A: 255},
		NativeColor: color.RGBA{R: 255, G: 0, B: 0, A: 255},
	}
}

// Rect computes the marker rectangle of d as a corner and a signed extent.
//
// The corner is the first polygon point. The height spans to the largest y.
// Matrix symbols span to the largest x; linear symbols span to the smallest x,
// so their width is zero or negative.
func Rect(d detect.Detection) (x, y, w, h int) {
	if len(d.Polygon) == 0 {
		return 0, 0, 0, 0
	}
	x, y = d.Polygon[0].X, d.Polygon[0].Y
	minX, maxX, maxY := x, x, y
	for _, p := range d.Polygon[1:] {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	if d.Matrix() {
		return x, y, maxX - x, maxY - y
	}
	return x, y, minX - x, maxY - y
}

// Renderer draws detection markers.
type Renderer struct {
	opts Options
}

// NewRenderer returns a renderer with opts.
func NewRenderer(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

// Bounds returns the pixel rectangle a marker for d covers. The padded
// extent is applied to the signed width, so a negative width extends to the
// left of the corner.
func (r *Renderer) Bounds(d detect.Detection) image.Rectangle {
	x, y, w, h := Rect(d)
	p := r.opts.Padding
	return utils.CanonicalRect(x-p, y-p, w+2*p, h+2*p)
}

// Draw paints the marker for d onto dst.
func (r *Renderer) Draw(dst draw.Image, d detect.Detection) {
	if len(d.Polygon) == 0 {
		return
	}
	c := r.opts.EngineColor
	if d.Origin == detect.OriginNative {
		c = r.opts.NativeColor
	}
	rect := r.Bounds(d)

	switch r.opts.Style {
	case StyleStroke:
		utils.DashedRect(dst, rect, c, 1, 4, 4)
	case StyleOutline:
		utils.DrawRect(dst, rect, c, 2)
		utils.DrawPolygon(dst, polygon(d), c, 1)
	default:
		a := r.opts.Alpha
		if a <= 0 || a > 1 {
			a = 0.2
		}
		utils.FillRect(dst, rect, color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(a*255 + 0.5)})
	}

	if r.opts.Labels {
		r.label(dst, rect, d, c)
	}
}

func polygon(d detect.Detection) []image.Point {
	pts := make([]image.Point, len(d.Polygon))
	for i, p := range d.Polygon {
		pts[i] = image.Pt(p.X, p.Y)
	}
	return pts
}

// DrawAll paints every detection in order.
func (r *Renderer) DrawAll(dst draw.Image, ds []detect.Detection) {
	for _, d := range ds {
		r.Draw(dst, d)
	}
}

func (r *Renderer) label(dst draw.Image, rect image.Rectangle, d detect.Detection, c color.RGBA) {
	text := d.Symbol
	if len(d.Payload) > 32 {
		text += ": " + d.Payload[:32] + "..."
	} else if d.Payload != "" {
		text += ": " + d.Payload
	}
	y := rect.Min.Y - 3
	if y < 13 {
		y = rect.Max.Y + 13
	}
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(rect.Min.X, y),
	}
	drawer.DrawString(text)
}

// Clean erases all markers by clearing dst to transparent.
func Clean(dst *image.RGBA) {
	clear(dst.Pix)
}

// Render returns an RGBA copy of img with markers for ds.
func Render(img image.Image, ds []detect.Detection, opts Options) *image.RGBA {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	NewRenderer(opts).DrawAll(dst, ds)
	return dst
}
