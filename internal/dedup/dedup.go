// Package dedup suppresses repeated overlay redraws for the same payload
// within one burst of detections.
package dedup

import (
	"fmt"
	"sync"
)

// Policy decides when a burst ends and the seen set is cleared.
type Policy int

const (
	// PerFrame clears the set at the start of every detect cycle.
	PerFrame Policy = iota
	// PerSession clears the set when a video session or still image starts.
	PerSession
	// Never keeps payloads for the lifetime of the deduplicator.
	Never
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case PerFrame:
		return "frame"
	case PerSession:
		return "session"
	case Never:
		return "never"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps a configuration name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "frame":
		return PerFrame, nil
	case "session":
		return PerSession, nil
	case "never":
		return Never, nil
	default:
		return PerFrame, fmt.Errorf("unknown dedup policy %q", s)
	}
}

// Burst is the set of payloads seen since the last reset.
type Burst struct {
	policy Policy

	mu   sync.Mutex
	seen map[string]struct{}
}

// New returns an empty burst governed by policy.
func New(policy Policy) *Burst {
	return &Burst{policy: policy, seen: make(map[string]struct{})}
}

// Policy returns the reset policy.
func (b *Burst) Policy() Policy { return b.policy }

// Observe records payload and reports whether it is new in this burst.
func (b *Burst) Observe(payload string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.seen[payload]; ok {
		return false
	}
	b.seen[payload] = struct{}{}
	return true
}

// Reset unconditionally clears the set.
func (b *Burst) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.seen)
}

// FrameStarted clears the set when the policy is PerFrame.
func (b *Burst) FrameStarted() {
	if b.policy == PerFrame {
		b.Reset()
	}
}

// SessionStarted clears the set when the policy is PerFrame or PerSession.
func (b *Burst) SessionStarted() {
	if b.policy != Never {
		b.Reset()
	}
}

// Len returns the number of payloads in the current burst.
func (b *Burst) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.seen)
}
