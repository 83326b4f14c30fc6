package scan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives progress of a multi-image scan.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(current, total int)
	OnComplete()
	OnError(current int, err error)
}

// NoOpProgressCallback ignores all progress.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)         {}
func (NoOpProgressCallback) OnProgress(int, int) {}
func (NoOpProgressCallback) OnComplete()         {}
func (NoOpProgressCallback) OnError(int, error)  {}

// rateTracker derives throughput and remaining time from completed items.
type rateTracker struct {
	now   func() time.Time
	start time.Time
}

func (r *rateTracker) begin() { r.start = r.now() }

func (r *rateTracker) elapsed() time.Duration { return r.now().Sub(r.start) }

// estimate returns items per second and the remaining time. Both are zero
// until at least one item is done.
func (r *rateTracker) estimate(done, total int) (float64, time.Duration) {
	el := r.elapsed()
	if done <= 0 || el <= 0 {
		return 0, 0
	}
	rate := float64(done) / el.Seconds()
	left := time.Duration(float64(total-done) / rate * float64(time.Second))
	return rate, left
}

// ConsoleProgressCallback draws a single-line progress bar.
type ConsoleProgressCallback struct {
	w        io.Writer
	prefix   string
	width    int
	interval time.Duration

	mu    sync.Mutex
	clock rateTracker
	drawn time.Time
}

// NewConsoleProgressCallback writes to writer, or stderr when nil.
func NewConsoleProgressCallback(writer io.Writer, prefix string) *ConsoleProgressCallback {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleProgressCallback{
		w:        writer,
		prefix:   prefix,
		width:    32,
		interval: 100 * time.Millisecond,
		clock:    rateTracker{now: time.Now},
	}
}

// WithUpdateInterval sets the minimum time between redraws.
func (c *ConsoleProgressCallback) WithUpdateInterval(d time.Duration) *ConsoleProgressCallback {
	c.interval = d
	return c
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock.begin()
	c.drawn = c.clock.now()
	c.render(0, total)
}

func (c *ConsoleProgressCallback) OnProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.now()
	if current < total && now.Sub(c.drawn) < c.interval {
		return
	}
	c.drawn = now
	c.render(current, total)
}

func (c *ConsoleProgressCallback) render(current, total int) {
	if total <= 0 {
		return
	}
	filled := min(c.width*current/total, c.width)
	line := fmt.Sprintf("\r%s[%s%s] %d/%d", c.prefix,
		strings.Repeat("=", filled), strings.Repeat(" ", c.width-filled), current, total)
	if rate, left := c.clock.estimate(current, total); rate > 0 {
		line += fmt.Sprintf(" %.1f img/s", rate)
		if current < total {
			line += " eta " + left.Round(time.Second).String()
		}
	}
	_, _ = io.WriteString(c.w, line)
}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%sdone in %v\n", c.prefix, c.clock.elapsed().Round(time.Millisecond))
}

func (c *ConsoleProgressCallback) OnError(current int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%sitem %d failed: %v\n", c.prefix, current, err)
}

// LogProgressCallback reports progress through slog every interval items.
type LogProgressCallback struct {
	logger   *slog.Logger
	level    slog.Level
	interval int

	mu     sync.Mutex
	clock  rateTracker
	logged int
}

// NewLogProgressCallback logs at level through logger, or slog.Default.
func NewLogProgressCallback(logger *slog.Logger, level slog.Level, interval int) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10
	}
	return &LogProgressCallback{logger: logger, level: level, interval: interval, clock: rateTracker{now: time.Now}}
}

func (l *LogProgressCallback) OnStart(total int) {
	l.mu.Lock()
	l.clock.begin()
	l.logged = 0
	l.mu.Unlock()
	l.logger.Log(context.Background(), l.level, "Scan started", "total", total)
}

func (l *LogProgressCallback) OnProgress(current, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if current != total && current-l.logged < l.interval {
		return
	}
	l.logged = current
	rate, left := l.clock.estimate(current, total)
	l.logger.Log(context.Background(), l.level, "Scan progress",
		"current", current, "total", total, "rate", fmt.Sprintf("%.1f/s", rate), "eta", left.Round(time.Second))
}

func (l *LogProgressCallback) OnComplete() {
	l.mu.Lock()
	el := l.clock.elapsed()
	l.mu.Unlock()
	l.logger.Log(context.Background(), l.level, "Scan completed", "elapsed", el.Round(time.Millisecond))
}

func (l *LogProgressCallback) OnError(current int, err error) {
	l.logger.Warn("Scan item failed", "current", current, "error", err)
}
