package pager

import (
	"context"
	"sync"

	"github.com/spdeepak/backoffice/normalize"
)

// LoadFunc fetches one page.
type LoadFunc[T any] func(ctx context.Context, offset, limit int) (normalize.Page[T], error)

// Feed drives an Accumulator with a loader bound to the current filter set.
type Feed[T any] struct {
	mu   sync.Mutex
	load LoadFunc[T]
	acc  *Accumulator[T]
}

// NewFeed creates a feed with page size limit.
func NewFeed[T any](limit int, load LoadFunc[T]) *Feed[T] {
	return &Feed[T]{load: load, acc: New[T](limit)}
}

// Reset switches the feed to a new filter set. A nil load keeps the current loader.
// Pages still in flight for the previous filters are dropped when they arrive.
func (f *Feed[T]) Reset(load LoadFunc[T]) {
	f.mu.Lock()
	if load != nil {
		f.load = load
	}
	f.mu.Unlock()
	f.acc.Reset()
}

// Load requests the page at the current offset. It reports whether the page was
// merged; false with a nil error means a request was already running or the result
// belonged to an older filter set.
func (f *Feed[T]) Load(ctx context.Context) (bool, error) {
	ticket, ok := f.acc.Next()
	if !ok {
		return false, nil
	}
	f.mu.Lock()
	load := f.load
	f.mu.Unlock()

	page, err := load(ctx, ticket.Offset, ticket.Limit)
	if err != nil {
		f.acc.Failed(ticket)
		return false, err
	}
	return f.acc.PageLoaded(ticket, page), nil
}

// More is the load-more trigger: it advances one page when possible and loads it.
func (f *Feed[T]) More(ctx context.Context) (bool, error) {
	if !f.acc.LoadMore() {
		return false, nil
	}
	return f.Load(ctx)
}

// Items returns a copy of the accumulated list.
func (f *Feed[T]) Items() []T {
	return f.acc.Items()
}

// Accumulator exposes the underlying state.
func (f *Feed[T]) Accumulator() *Accumulator[T] {
	return f.acc
}
