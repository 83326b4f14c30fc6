// Package common provides small helpers shared by the scanning front ends.
package common

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Lap is one named phase of a Timer.
type Lap struct {
	Name     string
	Duration time.Duration
}

// Timer measures consecutive phases of one operation, such as extracting
// the images of a document and then scanning them.
type Timer struct {
	name  string
	start time.Time
	mark  time.Time
	laps  []Lap
	now   func() time.Time
}

// NewTimer starts an unnamed timer.
func NewTimer() *Timer { return NewNamedTimer("") }

// NewNamedTimer starts a timer for the named operation.
func NewNamedTimer(name string) *Timer {
	t := &Timer{name: name, now: time.Now}
	t.start = t.now()
	t.mark = t.start
	return t
}

// Lap closes the current phase under name and starts the next one.
func (t *Timer) Lap(name string) time.Duration {
	now := t.now()
	d := now.Sub(t.mark)
	t.mark = now
	t.laps = append(t.laps, Lap{Name: name, Duration: d})
	return d
}

// Get returns the duration of the named phase.
func (t *Timer) Get(name string) time.Duration {
	for _, l := range t.laps {
		if l.Name == name {
			return l.Duration
		}
	}
	return 0
}

// Laps returns the recorded phases in order.
func (t *Timer) Laps() []Lap { return append([]Lap(nil), t.laps...) }

// Total returns the time since the timer started.
func (t *Timer) Total() time.Duration { return t.now().Sub(t.start) }

// Name returns the timer name (empty string if unnamed).
func (t *Timer) Name() string { return t.name }

// LogAttrs returns the phases as slog attributes in milliseconds.
func (t *Timer) LogAttrs() []any {
	attrs := make([]any, 0, len(t.laps)+1)
	for _, l := range t.laps {
		attrs = append(attrs, slog.Int64(l.Name+"_ms", l.Duration.Milliseconds()))
	}
	return append(attrs, slog.Int64("total_ms", t.Total().Milliseconds()))
}

// String formats the phases, e.g. "pdf: extract=3ms scan=12ms".
func (t *Timer) String() string {
	parts := make([]string, len(t.laps))
	for i, l := range t.laps {
		parts[i] = fmt.Sprintf("%s=%v", l.Name, l.Duration)
	}
	s := strings.Join(parts, " ")
	if t.name != "" {
		return t.name + ": " + s
	}
	return s
}
