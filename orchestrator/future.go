// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"
	"sync"
)

// Future completes once Submit's targeted units have received — not
// processed — the signal (spec.md §4.I).
type Future struct {
	mu   sync.Mutex
	err  error
	done chan struct{}
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	close(f.done)
}

// Wait blocks until the future completes or ctx is done, whichever comes
// first, returning the delivery error (nil on full success).
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
