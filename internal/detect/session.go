package detect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/qrscan/internal/engine"
)

// State is the readiness state of a Session.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Loader instantiates the decoding engine.
type Loader func(ctx context.Context) (engine.Engine, error)

// attempt is one initialization run; done is closed when it finishes.
type attempt struct {
	done    chan struct{}
	eng     engine.Engine
	scanner uint32
	err     error
}

// Session owns the engine instance and the persistent scanner handle. The
// engine is loaded at most once; every caller that arrives while loading is
// released together when it completes. A failed load returns the session to
// StateUninitialized so a later call can retry.
type Session struct {
	load Loader

	mu      sync.Mutex
	state   State
	current *attempt
}

// NewSession returns an uninitialized session.
func NewSession(load Loader) *Session {
	return &Session{load: load}
}

// State returns the current readiness state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready loads the engine on first use and returns it with the scanner handle.
func (s *Session) Ready(ctx context.Context) (engine.Engine, uint32, error) {
	s.mu.Lock()
	switch s.state {
	case StateReady:
		a := s.current
		s.mu.Unlock()
		return a.eng, a.scanner, nil
	case StateInitializing:
		a := s.current
		s.mu.Unlock()
		return s.wait(ctx, a)
	}

	a := &attempt{done: make(chan struct{})}
	s.current = a
	s.state = StateInitializing
	s.mu.Unlock()

	go s.initialize(context.WithoutCancel(ctx), a)
	return s.wait(ctx, a)
}

func (s *Session) initialize(ctx context.Context, a *attempt) {
	eng, err := s.load(ctx)
	if err == nil {
		var scanner uint32
		err = guard("image_scanner_create", func() error {
			var cerr error
			scanner, cerr = eng.ImageScannerCreate()
			return cerr
		})
		a.eng, a.scanner = eng, scanner
	}

	s.mu.Lock()
	if err != nil {
		a.err = fmt.Errorf("initialize decoding engine: %w", err)
		s.state = StateUninitialized
		slog.Warn("Decoding engine failed to load", "error", err)
	} else {
		s.state = StateReady
		slog.Debug("Decoding engine ready")
	}
	close(a.done)
	s.mu.Unlock()
}

func (s *Session) wait(ctx context.Context, a *attempt) (engine.Engine, uint32, error) {
	select {
	case <-a.done:
		if a.err != nil {
			return nil, 0, a.err
		}
		return a.eng, a.scanner, nil
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
}
