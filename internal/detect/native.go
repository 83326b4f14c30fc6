package detect

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
	"github.com/MeKo-Tech/qrscan/internal/events"
)

// HostDetector is a platform-provided barcode detector.
type HostDetector interface {
	SupportedFormats(ctx context.Context) ([]string, error)
	Detect(ctx context.Context, img image.Image) ([]barcode.DetectedBarcode, error)
}

// Capability describes whether a host detector is usable.
type Capability interface {
	Present() bool
	Formats() []string
}

type absent struct{}

func (absent) Present() bool     { return false }
func (absent) Formats() []string { return nil }

type present struct{ formats []string }

func (p present) Present() bool     { return true }
func (p present) Formats() []string { return append([]string(nil), p.formats...) }

// Absent is the capability of a host without a detector.
func Absent() Capability { return absent{} }

// Probe asks host for its supported formats. A nil host, a failing probe or an
// empty format list all yield Absent.
func Probe(ctx context.Context, host HostDetector) Capability {
	if host == nil {
		return Absent()
	}
	formats, err := host.SupportedFormats(ctx)
	if err != nil {
		slog.Debug("Native detector probe failed", "error", err)
		return Absent()
	}
	if len(formats) == 0 {
		return Absent()
	}
	return present{formats: formats}
}

// Snapshotter exposes the pixels currently on the surface.
type Snapshotter interface {
	Snapshot() *image.RGBA
}

// Native forwards surface snapshots to a host detector. It is inert when the
// capability probed at construction is absent.
type Native struct {
	capability Capability
	host       HostDetector
	surface    Snapshotter
	bus        *events.Bus[Detection]
	now        func() time.Time

	wg sync.WaitGroup
}

// NewNative probes host once and returns the adapter.
func NewNative(ctx context.Context, host HostDetector, surface Snapshotter, bus *events.Bus[Detection]) *Native {
	return &Native{
		capability: Probe(ctx, host),
		host:       host,
		surface:    surface,
		bus:        bus,
		now:        time.Now,
	}
}

// Capability returns the capability chosen at construction.
func (n *Native) Capability() Capability { return n.capability }

// Detect snapshots the surface and requests detection in the background.
// Results are emitted as they arrive; failures are logged and dropped.
func (n *Native) Detect(ctx context.Context) {
	if n == nil || !n.capability.Present() {
		return
	}
	snap := n.surface.Snapshot()
	if snap.Bounds().Empty() {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		found, err := n.host.Detect(ctx, snap)
		if err != nil {
			slog.Debug("Native detection failed", "error", err)
			return
		}
		at := n.now()
		for _, f := range found {
			poly := make([]Point, len(f.CornerPoints))
			for i, p := range f.CornerPoints {
				poly[i] = Point{X: p.X, Y: p.Y}
			}
			n.bus.Emit(Detection{
				Origin:     OriginNative,
				Symbol:     NativeSymbol(f.Format),
				Mapped:     true,
				Payload:    f.RawValue,
				Raw:        []byte(f.RawValue),
				Polygon:    poly,
				DetectedAt: at,
			})
		}
	}()
}

// Wait blocks until every in-flight native request has finished.
func (n *Native) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}
