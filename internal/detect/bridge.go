package detect

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/engine"
	"github.com/MeKo-Tech/qrscan/internal/events"
	"github.com/MeKo-Tech/qrscan/internal/luma"
	"github.com/MeKo-Tech/qrscan/internal/surface"
)

// Sampler draws a frame at the requested size and returns its RGBA bytes.
type Sampler interface {
	Draw(src image.Image, w, h int) []byte
}

// Result summarizes one Bridge.Detect call.
type Result struct {
	// Count is the symbol count reported by the engine scan.
	Count      int
	Detections []Detection
}

// Bridge performs one engine decode per Detect call.
type Bridge struct {
	session   *Session
	sampler   Sampler
	bus       *events.Bus[Detection]
	weighting luma.Weighting
	onSampled func(ctx context.Context)
	now       func() time.Time
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithWeighting selects the luma weighting used before scanning.
func WithWeighting(w luma.Weighting) BridgeOption {
	return func(b *Bridge) { b.weighting = w }
}

// WithSampleHook registers fn to run right after a frame has been sampled
// and validated, before the engine is called.
func WithSampleHook(fn func(ctx context.Context)) BridgeOption {
	return func(b *Bridge) { b.onSampled = fn }
}

// NewBridge wires a session, a sampler and the detection sink.
func NewBridge(session *Session, sampler Sampler, bus *events.Bus[Detection], opts ...BridgeOption) *Bridge {
	b := &Bridge{
		session:   session,
		sampler:   sampler,
		bus:       bus,
		weighting: luma.Rec601,
		now:       time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Ready loads the engine if needed. It is safe for concurrent use.
func (b *Bridge) Ready(ctx context.Context) error {
	_, _, err := b.session.Ready(ctx)
	return err
}

// Detect samples src at w x h, scans it and emits one Detection per symbol in
// engine list order. The engine buffer and image are released before Detect
// returns on every path.
func (b *Bridge) Detect(ctx context.Context, src image.Image, w, h int) (res Result, err error) {
	rgba := b.sampler.Draw(src, w, h)
	defer surface.Release(rgba)

	if err := luma.CheckLength(len(rgba), w, h); err != nil {
		return res, fmt.Errorf("detect: %w", err)
	}
	if len(rgba) == 0 {
		return res, nil
	}
	if b.onSampled != nil {
		b.onSampled(ctx)
	}

	eng, scanner, err := b.session.Ready(ctx)
	if err != nil {
		return res, err
	}

	size := w * h
	var buf uint32
	if err := guard("malloc", func() (cerr error) {
		buf, cerr = eng.Malloc(size)
		return cerr
	}); err != nil {
		return res, err
	}
	defer func() {
		err = errors.Join(err, guard("free", func() error { return eng.Free(buf) }))
	}()

	mem := eng.Memory()
	if uint64(buf)+uint64(size) > uint64(len(mem)) {
		return res, foreign("malloc", fmt.Errorf("buffer 0x%x+%d: %w", buf, size, engine.ErrOutOfBounds))
	}
	if err := luma.ConvertInto(mem[buf:int(buf)+size], rgba, w, h, b.weighting); err != nil {
		return res, err
	}

	var img uint32
	if err := guard("image_create", func() (cerr error) {
		img, cerr = eng.ImageCreate(w, h, engine.FourCCY800, buf, size, 1)
		return cerr
	}); err != nil {
		return res, err
	}
	defer func() {
		err = errors.Join(err, guard("image_destroy", func() error { return eng.ImageDestroy(img) }))
	}()

	if err := guard("scan", func() (cerr error) {
		res.Count, cerr = eng.ImageScannerScan(ctx, scanner, img)
		return cerr
	}); err != nil {
		return res, err
	}

	var set uint32
	if err := guard("image_get_symbols", func() (cerr error) {
		set, cerr = eng.ImageGetSymbols(img)
		return cerr
	}); err != nil {
		return res, err
	}

	now := b.now()
	// Memory is re-fetched: the scan may have grown the heap.
	walkErr := engine.WalkSymbols(eng.Memory(), set, func(s engine.Symbol) error {
		res.Detections = append(res.Detections, b.detection(s, now))
		return nil
	})
	for _, d := range res.Detections {
		b.bus.Emit(d)
	}
	if walkErr != nil {
		slog.Warn("Symbol list read stopped early", "read", len(res.Detections), "error", walkErr)
		return res, foreign("read_symbols", walkErr)
	}
	return res, nil
}

func (b *Bridge) detection(s engine.Symbol, at time.Time) Detection {
	name, mapped := SymbologyName(s.Type)
	poly := make([]Point, len(s.Points))
	for i, p := range s.Points {
		poly[i] = Point{X: int(p.X), Y: int(p.Y)}
	}
	return Detection{
		Origin:     OriginEngine,
		Symbol:     name,
		Mapped:     mapped,
		TypeCode:   s.Type,
		Payload:    DecodePayload(s.Data),
		Raw:        s.Data,
		Polygon:    poly,
		Quality:    s.Quality,
		CacheCount: s.CacheCount,
		EngineTime: s.Time,
		DetectedAt: at,
	}
}
