package scan

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time { return c.t }

func TestRateTrackerEstimate(t *testing.T) {
	clk := &stepClock{t: time.Unix(0, 0)}
	r := rateTracker{now: clk.now}
	r.begin()

	rate, left := r.estimate(0, 10)
	assert.Zero(t, rate)
	assert.Zero(t, left)

	clk.t = clk.t.Add(2 * time.Second)
	rate, left = r.estimate(4, 10)
	assert.InDelta(t, 2.0, rate, 1e-9)
	assert.Equal(t, 3*time.Second, left)
}

func TestConsoleProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	clk := &stepClock{t: time.Unix(0, 0)}
	c := NewConsoleProgressCallback(&buf, "scan ").WithUpdateInterval(time.Second)
	c.clock.now = clk.now

	c.OnStart(4)
	assert.Contains(t, buf.String(), "0/4")

	clk.t = clk.t.Add(500 * time.Millisecond)
	c.OnProgress(1, 4)
	assert.NotContains(t, buf.String(), "1/4", "redraw is throttled")

	clk.t = clk.t.Add(time.Second)
	c.OnProgress(2, 4)
	assert.Contains(t, buf.String(), "2/4")
	assert.Contains(t, buf.String(), "eta")

	c.OnProgress(4, 4)
	assert.Contains(t, buf.String(), "4/4")

	c.OnError(3, errors.New("boom"))
	c.OnComplete()
	out := buf.String()
	assert.Contains(t, out, "item 3 failed: boom")
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Contains(t, out, "scan done in")
}

func TestLogProgressCallbackInterval(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l := NewLogProgressCallback(logger, slog.LevelInfo, 5)

	l.OnStart(12)
	for i := 1; i <= 12; i++ {
		l.OnProgress(i, 12)
	}
	l.OnComplete()

	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, "Scan progress"), "items 5, 10 and the final item")
	assert.Contains(t, out, "Scan started")
	assert.Contains(t, out, "Scan completed")
}
