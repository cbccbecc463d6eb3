// Package pager accumulates offset/limit pages into one growing list for
// infinite-scroll screens.
//
// Each request is described by a Ticket. Reset bumps the generation, so a page that
// was requested for the previous filter set is rejected by PageLoaded instead of
// being merged into the new list.
package pager

import (
	"sync"

	"github.com/spdeepak/backoffice/normalize"
)

// Ticket identifies the request a page answers.
type Ticket struct {
	Gen    uint64
	Offset int
	Limit  int
}

// Accumulator holds the merged list for one filter set at a time.
type Accumulator[T any] struct {
	mu      sync.Mutex
	limit   int
	gen     uint64
	offset  int
	items   []T
	hasMore bool
	loading bool
	loaded  bool
}

// New creates an accumulator with page size limit.
func New[T any](limit int) *Accumulator[T] {
	if limit <= 0 {
		limit = 20
	}
	return &Accumulator[T]{limit: limit, hasMore: true, items: []T{}}
}

// Reset discards every accumulated page and rewinds to offset 0. Call it when any
// filter changes, before the request for the new filters is issued.
func (a *Accumulator[T]) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	a.offset = 0
	a.items = []T{}
	a.hasMore = true
	a.loading = false
	a.loaded = false
}

// Next begins the request for the current offset. It returns false while another
// request is in flight.
func (a *Accumulator[T]) Next() (Ticket, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loading {
		return Ticket{}, false
	}
	a.loading = true
	return Ticket{Gen: a.gen, Offset: a.offset, Limit: a.limit}, true
}

// PageLoaded merges page into the list. The first page replaces the list, later pages
// append. It returns false and changes nothing when the ticket is stale.
func (a *Accumulator[T]) PageLoaded(ticket Ticket, page normalize.Page[T]) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ticket.Gen != a.gen || ticket.Offset != a.offset {
		return false
	}
	a.loading = false
	a.loaded = true
	if a.offset == 0 {
		a.items = append([]T{}, page.Data...)
	} else {
		a.items = append(a.items, page.Data...)
	}
	a.hasMore = page.Meta.HasMore
	return true
}

// Failed ends the request for ticket without touching the list.
func (a *Accumulator[T]) Failed(ticket Ticket) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ticket.Gen == a.gen && ticket.Offset == a.offset {
		a.loading = false
	}
}

// LoadMore advances the offset by one page when the server reported more items and no
// request is in flight. Repeated triggers while loading are ignored.
func (a *Accumulator[T]) LoadMore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.loaded || !a.hasMore || a.loading {
		return false
	}
	a.offset += a.limit
	a.loaded = false
	return true
}

// Items returns a copy of the accumulated list.
func (a *Accumulator[T]) Items() []T {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]T{}, a.items...)
}

// Len returns the number of accumulated items.
func (a *Accumulator[T]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

func (a *Accumulator[T]) Offset() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.offset
}

func (a *Accumulator[T]) Limit() int {
	return a.limit
}

func (a *Accumulator[T]) HasMore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasMore
}

func (a *Accumulator[T]) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

// Done reports the normal terminal state: the last page is loaded and the server has
// no more.
func (a *Accumulator[T]) Done() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded && !a.hasMore
}
