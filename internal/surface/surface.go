// Package surface holds the shared raster that frames are drawn into before
// sampling and that detection overlays are painted on afterwards.
package surface

import (
	"image"
	"image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/MeKo-Tech/qrscan/internal/mempool"
)

// Surface is a resizable RGBA canvas guarded by a mutex.
type Surface struct {
	mu     sync.Mutex
	canvas *image.RGBA
	scaler xdraw.Scaler
}

// New returns an empty surface that scales frames with bilinear filtering.
func New() *Surface {
	return &Surface{canvas: image.NewRGBA(image.Rectangle{}), scaler: xdraw.BiLinear}
}

// NewWithScaler returns a surface using the given scaler (e.g. xdraw.NearestNeighbor).
func NewWithScaler(s xdraw.Scaler) *Surface {
	return &Surface{canvas: image.NewRGBA(image.Rectangle{}), scaler: s}
}

// Draw resizes the surface to w x h, draws src scaled to fill it and returns
// a copy of the resulting w*h*4 RGBA bytes. Resizing discards anything that
// was painted before, including overlays. The returned buffer comes from a
// pool and may be handed back with Release.
func (s *Surface) Draw(src image.Image, w, h int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w <= 0 || h <= 0 {
		s.canvas = image.NewRGBA(image.Rectangle{})
		return []byte{}
	}
	s.canvas = image.NewRGBA(image.Rect(0, 0, w, h))
	if src != nil {
		sb := src.Bounds()
		if sb.Dx() == w && sb.Dy() == h {
			draw.Draw(s.canvas, s.canvas.Bounds(), src, sb.Min, draw.Src)
		} else {
			s.scaler.Scale(s.canvas, s.canvas.Bounds(), src, sb, draw.Src, nil)
		}
	}

	out := mempool.GetBytes(len(s.canvas.Pix))
	copy(out, s.canvas.Pix)
	return out
}

// Release returns a buffer obtained from Draw to the pool.
func Release(buf []byte) { mempool.PutBytes(buf) }

// Snapshot returns a copy of the current pixels without drawing a new frame.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := image.NewRGBA(s.canvas.Bounds())
	copy(out.Pix, s.canvas.Pix)
	return out
}

// Size returns the current surface dimensions.
func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.canvas.Bounds()
	return b.Dx(), b.Dy()
}

// Paint runs fn with exclusive access to the canvas.
func (s *Surface) Paint(fn func(dst *image.RGBA)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.canvas)
}

// Clear makes every pixel transparent black without changing the size.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.canvas.Pix)
}
