package scan

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// Factory builds one independent Runner.
type Factory func() (*Runner, error)

// Pool hands out Runners. Each Runner owns its engine session and surface,
// so a Runner is used by one caller at a time.
type Pool struct {
	all  []*Runner
	idle chan *Runner
}

// NewPool builds size Runners with factory. size <= 0 means runtime.NumCPU().
func NewPool(size int, factory Factory) (*Pool, error) {
	if factory == nil {
		return nil, errors.New("scan: nil runner factory")
	}
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{idle: make(chan *Runner, size)}
	for i := range size {
		r, err := factory()
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("runner %d: %w", i, err)
		}
		p.all = append(p.all, r)
		p.idle <- r
	}
	return p, nil
}

// Size returns the number of Runners.
func (p *Pool) Size() int { return len(p.all) }

// Ready loads the engine of every Runner.
func (p *Pool) Ready(ctx context.Context) error {
	for i, r := range p.all {
		if err := r.Ready(ctx); err != nil {
			return fmt.Errorf("runner %d: %w", i, err)
		}
	}
	return nil
}

// Acquire waits for an idle Runner.
func (p *Pool) Acquire(ctx context.Context) (*Runner, error) {
	select {
	case r := <-p.idle:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns r to the pool.
func (p *Pool) Release(r *Runner) { p.idle <- r }

// Do runs fn with an idle Runner.
func (p *Pool) Do(ctx context.Context, fn func(*Runner) error) error {
	r, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(r)
	return fn(r)
}

// Close stops every Runner.
func (p *Pool) Close() {
	for _, r := range p.all {
		r.Close()
	}
}
