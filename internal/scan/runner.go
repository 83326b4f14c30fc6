// Package scan drives detect cycles for still images and frame sequences and
// routes detections to the overlay, the history list and the status line.
package scan

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/dedup"
	"github.com/MeKo-Tech/qrscan/internal/detect"
	"github.com/MeKo-Tech/qrscan/internal/history"
	"github.com/MeKo-Tech/qrscan/internal/overlay"
)

// Options configure a Runner.
type Options struct {
	Dedup        dedup.Policy
	Overlay      overlay.Options
	DrawOverlay  bool
	StopOnDetect bool
	Interval     time.Duration
}

// DefaultOptions draws overlays, stops video on the first detection and polls
// every 200ms.
func DefaultOptions() Options {
	return Options{
		Dedup:        dedup.PerFrame,
		Overlay:      overlay.DefaultOptions(),
		DrawOverlay:  true,
		StopOnDetect: true,
		Interval:     200 * time.Millisecond,
	}
}

// Report is the outcome of one detect cycle.
type Report struct {
	// Count is the engine's symbol count.
	Count      int                `json:"count"`
	Detections []detect.Detection `json:"detections"`
	// Fresh holds the detections that passed deduplication.
	Fresh    []detect.Detection `json:"-"`
	Duration time.Duration      `json:"duration_ns"`
	// Overlay is the sampled frame with boxes drawn; nil unless requested.
	Overlay *image.RGBA `json:"-"`
}

// Runner owns one Scanner and everything that reacts to its detections.
type Runner struct {
	scanner  *detect.Scanner
	burst    *dedup.Burst
	renderer *overlay.Renderer
	history  *history.Store
	notifier *Notifier
	opts     Options
	logger   *slog.Logger

	// cycleMu serializes detect cycles on the shared surface.
	cycleMu sync.Mutex

	mu        sync.Mutex
	collected []detect.Detection
	fresh     []detect.Detection
	video     *VideoSession

	unsubscribe func()
}

// NewRunner subscribes to the scanner's detections. history and notifier may
// be nil.
func NewRunner(s *detect.Scanner, h *history.Store, n *Notifier, opts Options) *Runner {
	if opts.Interval <= 0 {
		opts.Interval = 200 * time.Millisecond
	}
	if n == nil {
		n = NewNotifier(0)
	}
	r := &Runner{
		scanner:  s,
		burst:    dedup.New(opts.Dedup),
		renderer: overlay.NewRenderer(opts.Overlay),
		history:  h,
		notifier: n,
		opts:     opts,
		logger:   slog.Default().With("component", "scan"),
	}
	r.unsubscribe = s.Subscribe(r.onDetect)
	return r
}

// Scanner returns the underlying scanner.
func (r *Runner) Scanner() *detect.Scanner { return r.scanner }

// Notifier returns the status line.
func (r *Runner) Notifier() *Notifier { return r.notifier }

// History returns the history store, which may be nil.
func (r *Runner) History() *history.Store { return r.history }

// Ready loads the engine.
func (r *Runner) Ready(ctx context.Context) error { return r.scanner.Ready(ctx) }

// Close stops video and detaches the listener.
func (r *Runner) Close() {
	r.StopVideo()
	r.unsubscribe()
	r.notifier.Stop()
}

func (r *Runner) onDetect(d detect.Detection) {
	fresh := r.burst.Observe(d.Payload)
	if fresh && r.opts.DrawOverlay {
		r.scanner.Surface.Paint(func(dst *image.RGBA) { r.renderer.Draw(dst, d) })
	}

	r.mu.Lock()
	r.collected = append(r.collected, d)
	if fresh {
		r.fresh = append(r.fresh, d)
	}
	v := r.video
	r.mu.Unlock()

	if r.opts.StopOnDetect && v != nil && v.Active() {
		v.stop(false)
	}

	if r.history != nil {
		if err := r.history.AppendDetection(context.Background(), d); err != nil {
			r.logger.Warn("History append failed", "error", err)
		}
	}
}

// ScanImage runs one detect cycle on img at its natural size.
func (r *Runner) ScanImage(ctx context.Context, img image.Image) (Report, error) {
	b := img.Bounds()
	return r.cycle(ctx, img, b.Dx(), b.Dy(), false)
}

// ScanImageOverlay is ScanImage that also returns the annotated frame.
func (r *Runner) ScanImageOverlay(ctx context.Context, img image.Image) (Report, error) {
	b := img.Bounds()
	return r.cycle(ctx, img, b.Dx(), b.Dy(), true)
}

func (r *Runner) cycle(ctx context.Context, img image.Image, w, h int, snapshot bool) (Report, error) {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()

	r.mu.Lock()
	r.collected, r.fresh = nil, nil
	r.mu.Unlock()
	r.burst.FrameStarted()

	start := time.Now()
	res, err := r.scanner.Detect(ctx, img, w, h)
	r.scanner.Wait()

	r.mu.Lock()
	rep := Report{Count: res.Count, Detections: r.collected, Fresh: r.fresh, Duration: time.Since(start)}
	r.collected, r.fresh = nil, nil
	r.mu.Unlock()

	if snapshot {
		rep.Overlay = r.scanner.Surface.Snapshot()
	}
	var fe *detect.ForeignCallError
	if errors.As(err, &fe) {
		r.logger.Warn("Engine call failed", "op", fe.Op, "error", fe.Err)
	}
	return rep, err
}

// StartSession begins a new stream of frames fed through ScanImage: the
// session deduplication memory is reset and the overlay cleared.
func (r *Runner) StartSession() {
	r.burst.SessionStarted()
	r.ClearOverlay()
}

// ClearOverlay erases the surface.
func (r *Runner) ClearOverlay() { r.scanner.Surface.Clear() }
