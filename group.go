package spawn

import (
	"context"
	"sync"
	"time"
)

// Group runs multiple Commands concurrently with bounded concurrency.
// It is a convenience for batch execution; all of its behavior can be
// replicated with Command values and your own goroutines.
type Group struct {
	// Concurrency is the maximum number of commands running at once
	Concurrency int
	// Timeout overrides the per-command timeout budget when positive
	Timeout time.Duration
}

// GroupOption configures a Group
type GroupOption func(*Group)

// WithConcurrency sets the maximum number of concurrent commands
func WithConcurrency(n int) GroupOption {
	return func(g *Group) {
		g.Concurrency = n
	}
}

// WithTimeout sets the per-command timeout budget
func WithTimeout(d time.Duration) GroupOption {
	return func(g *Group) {
		g.Timeout = d
	}
}

// NewGroup creates a Group with default settings
func NewGroup(opts ...GroupOption) *Group {
	g := &Group{
		Concurrency: 4,
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.Concurrency < 1 {
		g.Concurrency = 1
	}

	return g
}

// Run executes every command concurrently and returns their Outputs in
// input order. Failures accumulate into a MultiError; a slot whose
// command exited non-zero still carries its full Output.
func (g *Group) Run(ctx context.Context, cmds ...Command) ([]Output, error) {
	outputs := make([]Output, len(cmds))
	if len(cmds) == 0 {
		return outputs, nil
	}

	// Semaphore for concurrency control
	sem := make(chan struct{}, g.Concurrency)

	// Finite work, so a WaitGroup is enough
	var wg sync.WaitGroup
	var mu sync.Mutex
	merr := &MultiError{}

	for i, cmd := range cmds {
		wg.Add(1)
		go func(i int, cmd Command) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				merr.Add(ctx.Err())
				mu.Unlock()
				return
			}

			if g.Timeout > 0 {
				cmd = cmd.Timeout(g.Timeout)
			}

			out, err := cmd.Run(ctx)
			mu.Lock()
			outputs[i] = out
			merr.Add(err)
			mu.Unlock()
		}(i, cmd)
	}

	wg.Wait()

	return outputs, merr.Err()
}
