package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock advances by step on every reading.
func fakeClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func newFakeTimer(name string, step time.Duration) *Timer {
	t := &Timer{name: name, now: fakeClock(step)}
	t.start = t.now()
	t.mark = t.start
	return t
}

func TestTimer_Laps(t *testing.T) {
	timer := newFakeTimer("pdf", 10*time.Millisecond)

	assert.Equal(t, 10*time.Millisecond, timer.Lap("extract"))
	assert.Equal(t, 10*time.Millisecond, timer.Lap("scan"))

	assert.Equal(t, "pdf", timer.Name())
	assert.Equal(t, 10*time.Millisecond, timer.Get("scan"))
	assert.Zero(t, timer.Get("missing"))
	assert.Equal(t, []Lap{{"extract", 10 * time.Millisecond}, {"scan", 10 * time.Millisecond}}, timer.Laps())
	assert.Equal(t, "pdf: extract=10ms scan=10ms", timer.String())
}

func TestTimer_TotalAndAttrs(t *testing.T) {
	timer := newFakeTimer("", time.Millisecond)
	timer.Lap("decode")

	attrs := timer.LogAttrs()
	assert.Len(t, attrs, 2)
	assert.Equal(t, "decode=1ms", timer.String())
	assert.Equal(t, 3*time.Millisecond, timer.Total())
}

func TestTimer_RealClock(t *testing.T) {
	timer := NewTimer()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Lap("sleep"), 5*time.Millisecond)
	assert.GreaterOrEqual(t, timer.Total(), timer.Get("sleep"))
}
