package detect

import (
	"context"
	"image"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
	"github.com/MeKo-Tech/qrscan/internal/engine"
	"github.com/MeKo-Tech/qrscan/internal/events"
	"github.com/MeKo-Tech/qrscan/internal/luma"
	"github.com/MeKo-Tech/qrscan/internal/surface"
)

// Scanner runs both detection paths against one surface and one sink.
type Scanner struct {
	Surface *surface.Surface
	Bus     *events.Bus[Detection]
	Bridge  *Bridge
	Native  *Native
}

// ScannerConfig selects the engine loader and the optional host detector.
type ScannerConfig struct {
	Loader    Loader
	Host      HostDetector // nil disables the native path
	Weighting luma.Weighting
}

// NewScanner builds a scanner with its own surface, bus and engine session.
func NewScanner(ctx context.Context, cfg ScannerConfig) *Scanner {
	s := &Scanner{
		Surface: surface.New(),
		Bus:     events.New[Detection](),
	}
	s.Native = NewNative(ctx, cfg.Host, s.Surface, s.Bus)
	s.Bridge = NewBridge(NewSession(cfg.Loader), s.Surface, s.Bus,
		WithWeighting(cfg.Weighting),
		WithSampleHook(s.Native.Detect),
	)
	return s
}

// Ready loads the engine.
func (s *Scanner) Ready(ctx context.Context) error { return s.Bridge.Ready(ctx) }

// Detect runs one detect cycle. The native request, if any, is still in
// flight when Detect returns; use Wait to drain it.
func (s *Scanner) Detect(ctx context.Context, src image.Image, w, h int) (Result, error) {
	return s.Bridge.Detect(ctx, src, w, h)
}

// Wait drains pending native detections.
func (s *Scanner) Wait() { s.Native.Wait() }

// Subscribe registers a detection listener.
func (s *Scanner) Subscribe(fn func(Detection)) func() { return s.Bus.Subscribe(fn) }

// ZXingLoader returns a Loader creating a pure-Go engine on a fresh heap.
func ZXingLoader(heapLimit int, opts ...engine.ZXingOption) Loader {
	return func(context.Context) (engine.Engine, error) {
		return engine.NewZXing(engine.NewHeap(1<<20, heapLimit), barcode.NewBackend(), opts...), nil
	}
}
