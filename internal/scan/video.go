package scan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/media"
)

// VideoSession polls a video source and runs one detect cycle per tick.
type VideoSession struct {
	runner   *Runner
	src      media.VideoSource
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	active atomic.Bool
	ticks  atomic.Int64
}

// OpenVideo opens dev and starts polling it. An acquisition failure is shown
// on the status line and no session is started.
func (r *Runner) OpenVideo(ctx context.Context, dev media.Device) (*VideoSession, error) {
	src, err := media.Open(dev)
	if err != nil {
		msg := err.Error()
		var ae *media.AcquisitionError
		if errors.As(err, &ae) {
			msg = ae.Message
		}
		r.notifier.Notify(msg, true)
		return nil, err
	}
	return r.StartVideo(ctx, src), nil
}

// StartVideo polls src until the session is stopped or ctx ends. A running
// session on the same Runner is stopped first. The first cycle runs
// immediately.
func (r *Runner) StartVideo(ctx context.Context, src media.VideoSource) *VideoSession {
	r.StopVideo()

	loopCtx, cancel := context.WithCancel(ctx)
	v := &VideoSession{
		runner:   r,
		src:      src,
		interval: r.opts.Interval,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	v.active.Store(true)

	r.mu.Lock()
	r.video = v
	r.mu.Unlock()

	r.burst.SessionStarted()
	r.notifier.Notify("", false)

	go v.loop(loopCtx)
	return v
}

// StopVideo stops the current session, if any, and waits for its loop.
func (r *Runner) StopVideo() {
	r.mu.Lock()
	v := r.video
	r.mu.Unlock()
	if v != nil {
		v.Stop()
		v.Wait()
	}
}

// Video returns the current session or nil.
func (r *Runner) Video() *VideoSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.video
}

// Active reports whether the session still polls.
func (v *VideoSession) Active() bool { return v.active.Load() }

// Ticks returns the number of cycles started so far.
func (v *VideoSession) Ticks() int64 { return v.ticks.Load() }

// Done is closed when the poll loop has exited.
func (v *VideoSession) Done() <-chan struct{} { return v.done }

// Wait blocks until the poll loop has exited.
func (v *VideoSession) Wait() { <-v.done }

// Stop ends polling and releases the source. A cycle already in flight
// completes. Stop does not wait and is safe to call from a detection
// listener.
func (v *VideoSession) Stop() { v.stop(true) }

func (v *VideoSession) stop(clearOverlay bool) {
	v.once.Do(func() {
		v.active.Store(false)
		v.cancel()
		if err := v.src.Close(); err != nil {
			v.runner.logger.Warn("Video source close failed", "source", v.src.Name(), "error", err)
		}

		r := v.runner
		r.mu.Lock()
		if r.video == v {
			r.video = nil
		}
		r.mu.Unlock()

		if clearOverlay {
			r.ClearOverlay()
		}
		r.notifier.Notify(DefaultMessage, false)
	})
}

func (v *VideoSession) loop(ctx context.Context) {
	defer close(v.done)
	defer v.stop(false)

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		if !v.tick(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick runs one cycle. It returns false once the source is gone.
func (v *VideoSession) tick(ctx context.Context) bool {
	frame, err := v.src.Frame(ctx)
	if err != nil {
		if errors.Is(err, media.ErrClosed) || ctx.Err() != nil {
			return false
		}
		v.runner.logger.Warn("Frame read failed", "source", v.src.Name(), "error", err)
		return true
	}

	w, h := frame.Bounds().Dx(), frame.Bounds().Dy()
	if w == 0 || h == 0 {
		return true
	}
	v.ticks.Add(1)

	// Stopping mid-cycle must not abort the engine call.
	if _, err := v.runner.cycle(context.WithoutCancel(ctx), frame, w, h, false); err != nil {
		v.runner.logger.Warn("Detect cycle failed", "source", v.src.Name(), "error", err)
	}
	return true
}
