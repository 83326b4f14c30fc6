package scan

import (
	"context"
	"errors"
	"image"
	"image/draw"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
	"github.com/MeKo-Tech/qrscan/internal/detect"
	"github.com/MeKo-Tech/qrscan/internal/history"
	"github.com/MeKo-Tech/qrscan/internal/media"
	"github.com/MeKo-Tech/qrscan/internal/prefs"
)

func white(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

func qr(t *testing.T, content string) *image.RGBA {
	t.Helper()
	img, err := barcode.Encode(barcode.FormatQR, content, 160, 160, 4)
	require.NoError(t, err)
	return img
}

func newRunner(t *testing.T, opts Options) (*Runner, *history.Store) {
	t.Helper()
	h := history.New(prefs.NewMemory(), history.DefaultOptions())
	s := detect.NewScanner(context.Background(), detect.ScannerConfig{Loader: detect.ZXingLoader(0)})
	r := NewRunner(s, h, NewNotifier(0), opts)
	t.Cleanup(r.Close)
	return r, h
}

func TestRunner_BlankImageYieldsNothing(t *testing.T) {
	r, h := newRunner(t, DefaultOptions())

	rep, err := r.ScanImage(context.Background(), white(100, 100))
	require.NoError(t, err)
	assert.Zero(t, rep.Count)
	assert.Empty(t, rep.Detections)
	assert.Empty(t, h.List())
}

func TestRunner_QRCodeReachesHistoryAndOverlay(t *testing.T) {
	r, h := newRunner(t, DefaultOptions())

	rep, err := r.ScanImageOverlay(context.Background(), qr(t, "https://example.org/a"))
	require.NoError(t, err)
	require.Len(t, rep.Detections, 1)
	assert.Equal(t, "QR Code", rep.Detections[0].Symbol)
	assert.Equal(t, "https://example.org/a", rep.Detections[0].Payload)

	entries := h.List()
	require.Len(t, entries, 1)
	assert.Equal(t, history.Entry{Data: "https://example.org/a", Symbol: "QR Code"}, entries[0])

	require.NotNil(t, rep.Overlay)
	assert.Equal(t, image.Rect(0, 0, 160, 160), rep.Overlay.Bounds())
	// The white quiet zone inside the padded box is tinted blue.
	c := rep.Overlay.RGBAAt(rep.Detections[0].Polygon[0].X-3, rep.Detections[0].Polygon[0].Y-3)
	assert.Greater(t, c.B, c.R)
}

func TestRunner_RepeatedPayloadDrawsOnce(t *testing.T) {
	opts := DefaultOptions()
	r, h := newRunner(t, opts)
	r.scanner.Surface.Draw(white(50, 50), 50, 50)

	d := detect.Detection{
		Origin:  detect.OriginEngine,
		Symbol:  "QR Code",
		Payload: "same",
		Polygon: []detect.Point{{X: 20, Y: 20}, {X: 30, Y: 20}, {X: 30, Y: 30}, {X: 20, Y: 30}},
	}
	r.burst.FrameStarted()
	r.onDetect(d)
	once := r.scanner.Surface.Snapshot()
	r.onDetect(d)
	twice := r.scanner.Surface.Snapshot()

	assert.Equal(t, once.Pix, twice.Pix)
	assert.Len(t, h.List(), 1)
}

func TestVideo_StopsOnFirstDetection(t *testing.T) {
	opts := DefaultOptions()
	opts.Interval = 10 * time.Millisecond
	r, h := newRunner(t, opts)

	src := &countingSource{Still: media.NewStill("qr", qr(t, "video-payload"))}
	v := r.StartVideo(context.Background(), src)

	select {
	case <-v.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("video session did not stop")
	}
	assert.False(t, v.Active())
	assert.Equal(t, int64(1), v.Ticks())
	assert.True(t, src.closed.Load())
	assert.Nil(t, r.Video())
	assert.Equal(t, DefaultMessage, r.Notifier().Message())
	require.Len(t, h.List(), 1)
	assert.Equal(t, "video-payload", h.List()[0].Data)
}

func TestVideo_KeepsPollingUntilStopped(t *testing.T) {
	opts := DefaultOptions()
	opts.Interval = 5 * time.Millisecond
	r, _ := newRunner(t, opts)

	src := &countingSource{Still: media.NewStill("blank", white(64, 48)), failEvery: 2}
	v := r.StartVideo(context.Background(), src)
	assert.Equal(t, "", r.Notifier().Message())

	require.Eventually(t, func() bool { return v.Ticks() >= 3 }, 10*time.Second, 5*time.Millisecond)
	v.Stop()
	v.Wait()

	assert.False(t, v.Active())
	assert.True(t, src.closed.Load())
	assert.Greater(t, src.reads.Load(), v.Ticks())
}

func TestVideo_AcquisitionFailureIsNotice(t *testing.T) {
	r, _ := newRunner(t, DefaultOptions())

	v, err := r.OpenVideo(context.Background(), media.Device{Kind: "v4l2", Path: "/dev/video9"})
	require.Error(t, err)
	assert.Nil(t, v)
	assert.Nil(t, r.Video())
	assert.Contains(t, r.Notifier().Message(), "unsupported media source")
}

func TestNotifier_Reverts(t *testing.T) {
	n := NewNotifier(20 * time.Millisecond)

	n.Notify(LoadingMessage, false)
	assert.Equal(t, LoadingMessage, n.Message())

	n.Notify("camera denied", true)
	require.Eventually(t, func() bool { return n.Message() == DefaultMessage }, time.Second, 5*time.Millisecond)
	n.Stop()
}

func TestPool_ScanParallelKeepsOrder(t *testing.T) {
	pool, err := NewPool(2, func() (*Runner, error) {
		s := detect.NewScanner(context.Background(), detect.ScannerConfig{Loader: detect.ZXingLoader(0)})
		return NewRunner(s, nil, nil, DefaultOptions()), nil
	})
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, pool.Ready(context.Background()))

	boom := errors.New("unreadable")
	jobs := []Job{
		{Name: "a", Image: qr(t, "first")},
		{Name: "b", Load: func(context.Context) (image.Image, error) { return nil, boom }},
		{Name: "c", Image: white(40, 40)},
		{Name: "d", Image: qr(t, "fourth")},
	}

	progress := &recordingProgress{}
	res, err := pool.ScanParallel(context.Background(), jobs, ParallelConfig{ProgressCallback: progress})
	require.ErrorIs(t, err, boom)
	require.Len(t, res, 4)

	assert.Equal(t, "first", res[0].Report.Detections[0].Payload)
	assert.ErrorIs(t, res[1].Err, boom)
	assert.Empty(t, res[2].Report.Detections)
	assert.Equal(t, "fourth", res[3].Report.Detections[0].Payload)

	assert.Equal(t, 4, progress.total)
	assert.Equal(t, 4, progress.last)
	assert.Equal(t, 1, progress.errors)

	stats := CalculateStats(res, time.Second, pool.Size())
	assert.Equal(t, 3, stats.ProcessedImages)
	assert.Equal(t, 1, stats.FailedImages)
	assert.Equal(t, 2, stats.Detections)
}

func TestPool_AcquireHonoursContext(t *testing.T) {
	pool, err := NewPool(1, func() (*Runner, error) {
		s := detect.NewScanner(context.Background(), detect.ScannerConfig{Loader: detect.ZXingLoader(0)})
		return NewRunner(s, nil, nil, DefaultOptions()), nil
	})
	require.NoError(t, err)
	defer pool.Close()

	r, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	pool.Release(r)
}

type countingSource struct {
	*media.Still
	reads     atomic.Int64
	closed    atomic.Bool
	failEvery int64
}

func (c *countingSource) Frame(ctx context.Context) (image.Image, error) {
	n := c.reads.Add(1)
	if c.failEvery > 0 && n%c.failEvery == 0 {
		return nil, errors.New("transient read error")
	}
	return c.Still.Frame(ctx)
}

func (c *countingSource) Close() error {
	c.closed.Store(true)
	return c.Still.Close()
}

type recordingProgress struct {
	mu                  sync.Mutex
	total, last, errors int
}

func (p *recordingProgress) OnStart(total int) { p.total = total }

func (p *recordingProgress) OnProgress(current, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = max(p.last, current)
}

func (p *recordingProgress) OnComplete() {}

func (p *recordingProgress) OnError(int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors++
}
