// Package query is a keyed, process-wide cache of server state.
//
// Every read goes through Fetch with a cache.Key. Concurrent reads of the same key
// share one outstanding request, and each request carries a sequence number so a
// slow, superseded response can never overwrite a newer one. Mutations reconcile the
// cache with Patch (optimistic, local) followed by Invalidate (authoritative refetch
// on the next read).
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/spdeepak/backoffice/cache"
	"golang.org/x/sync/singleflight"
)

// ErrNoFetcher is returned when Fetch is called without a fetch function.
var ErrNoFetcher = errors.New("query: nil fetch function")

// FetchFunc loads the authoritative value for one key.
type FetchFunc func(ctx context.Context) (any, error)

// Options configures a Client.
type Options struct {
	// StaleTime is how long a value is served without refetching.
	StaleTime time.Duration
	// RetainFor keeps unobserved values this long past StaleTime. Zero keeps them until evicted.
	RetainFor time.Duration
	// RequestTimeout bounds a single shared request. Zero means no bound.
	RequestTimeout time.Duration
	// StaleWhileRevalidate serves a stale value at once and refreshes it in the background.
	StaleWhileRevalidate bool
	Logger               *slog.Logger
}

// DefaultOptions provides defaults.
var DefaultOptions = &Options{
	StaleTime:      30 * time.Second,
	RetainFor:      5 * time.Minute,
	RequestTimeout: 30 * time.Second,
}

// Snapshot is a copy of an entry's observable state.
type Snapshot struct {
	Key        cache.Key
	Value      any
	HasValue   bool
	Status     cache.Status
	Err        error
	UpdatedAt  time.Time
	Optimistic bool
}

// Client is the query cache. The zero value is not usable; use New.
type Client struct {
	mu      sync.Mutex
	store   cache.Store
	opts    Options
	logger  *slog.Logger
	flights singleflight.Group
	// seq is global so a key that is removed and recreated never reuses a number.
	seq uint64

	subs    map[uint64]subscription
	nextSub uint64
}

// New creates a Client over store. A nil opts uses DefaultOptions.
func New(store cache.Store, opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		store:  store,
		opts:   *opts,
		logger: logger,
		subs:   make(map[uint64]subscription),
	}
}

// Fetch returns the cached value for key when it is fresh, otherwise it runs fn (or joins
// the request already running for key) and caches the result.
func (c *Client) Fetch(ctx context.Context, key cache.Key, fn FetchFunc) (any, error) {
	if fn == nil {
		return nil, ErrNoFetcher
	}

	c.mu.Lock()
	entry := c.lookupLocked(key)
	if entry != nil && entry.HasValue && !entry.Loading && !entry.IsStale(c.opts.StaleTime) {
		entry.AccessedAt = time.Now()
		value := entry.Value
		c.mu.Unlock()
		c.logger.Debug("query cache hit", slog.Any("cacheKey", key.String()))
		return value, nil
	}

	if entry != nil && entry.HasValue && c.opts.StaleWhileRevalidate {
		entry.AccessedAt = time.Now()
		value := entry.Value
		seq, events := c.beginLocked(key, entry, false)
		c.mu.Unlock()
		c.notify(events)
		c.logger.Debug("query serving stale value", slog.Any("cacheKey", key.String()))
		// singleflight ensures only one background refresh for this key
		go func() {
			_, _ = c.wait(context.WithoutCancel(ctx), key, seq, fn)
		}()
		return value, nil
	}

	seq, events := c.beginLocked(key, entry, false)
	c.mu.Unlock()
	c.notify(events)
	c.logger.Debug("query cache miss", slog.Any("cacheKey", key.String()), slog.Uint64("seq", seq))
	return c.wait(ctx, key, seq, fn)
}

// Refetch always issues a new request for key. Any response still outstanding for an
// earlier request of the same key is discarded when it arrives.
func (c *Client) Refetch(ctx context.Context, key cache.Key, fn FetchFunc) (any, error) {
	if fn == nil {
		return nil, ErrNoFetcher
	}
	c.mu.Lock()
	entry := c.lookupLocked(key)
	seq, events := c.beginLocked(key, entry, true)
	c.mu.Unlock()
	c.notify(events)
	return c.wait(ctx, key, seq, fn)
}

// Invalidate marks every entry under prefix stale and returns how many were marked.
// Subscribers receive EventInvalidated and decide whether to read again.
func (c *Client) Invalidate(prefix cache.Key) int {
	var events []Event
	c.mu.Lock()
	c.store.Range(func(_ string, entry *cache.Entry) bool {
		if !entry.Key.HasPrefix(prefix) {
			return true
		}
		entry.Invalidated = true
		if !entry.Loading && entry.HasValue {
			entry.Status = cache.StatusStale
		}
		events = append(events, Event{Type: EventInvalidated, Key: entry.Key})
		return true
	})
	c.mu.Unlock()

	c.notify(events)
	c.logger.Debug("query invalidated", slog.Any("prefix", prefix.String()), slog.Int("count", len(events)))
	return len(events)
}

// Patch applies updater to the cached value of key without a network round trip and then
// invalidates related (or key itself when related is empty) so the next read reconciles
// with the server. It reports whether a cached value existed to patch.
func (c *Client) Patch(key cache.Key, updater func(any) any, related ...cache.Key) bool {
	c.mu.Lock()
	entry := c.lookupLocked(key)
	if entry == nil || !entry.HasValue {
		c.mu.Unlock()
		return false
	}
	entry.Value = updater(entry.Value)
	entry.Optimistic = true
	c.mu.Unlock()
	c.notify([]Event{{Type: EventUpdated, Key: key}})

	if len(related) == 0 {
		related = []cache.Key{key}
	}
	for _, prefix := range related {
		c.Invalidate(prefix)
	}
	return true
}

// PatchAll applies updater to every cached value under prefix, then invalidates prefix.
// It returns the number of patched entries.
func (c *Client) PatchAll(prefix cache.Key, updater func(any) any) int {
	var events []Event
	c.mu.Lock()
	c.store.Range(func(_ string, entry *cache.Entry) bool {
		if !entry.Key.HasPrefix(prefix) || !entry.HasValue {
			return true
		}
		entry.Value = updater(entry.Value)
		entry.Optimistic = true
		events = append(events, Event{Type: EventUpdated, Key: entry.Key})
		return true
	})
	c.mu.Unlock()

	c.notify(events)
	c.Invalidate(prefix)
	return len(events)
}

// SetData stores an authoritative value for key, e.g. the entity returned by a mutation.
// Requests still outstanding for key are superseded.
func (c *Client) SetData(key cache.Key, value any) {
	now := time.Now()
	c.mu.Lock()
	entry := c.lookupLocked(key)
	if entry == nil {
		entry = &cache.Entry{Key: key}
	}
	c.seq++
	entry.Seq = c.seq
	entry.Loading = false
	entry.Value = value
	entry.HasValue = true
	entry.Err = nil
	entry.Invalidated = false
	entry.Optimistic = false
	entry.Status = cache.StatusFresh
	entry.UpdatedAt = now
	entry.AccessedAt = now
	c.setLocked(key, entry)
	c.mu.Unlock()
	c.notify([]Event{{Type: EventUpdated, Key: key}})
}

// Remove drops every entry under prefix and returns how many were removed.
func (c *Client) Remove(prefix cache.Key) int {
	var (
		keys   []string
		events []Event
	)
	c.mu.Lock()
	c.store.Range(func(storeKey string, entry *cache.Entry) bool {
		if entry.Key.HasPrefix(prefix) {
			keys = append(keys, storeKey)
			events = append(events, Event{Type: EventRemoved, Key: entry.Key})
		}
		return true
	})
	for _, storeKey := range keys {
		if err := c.store.Delete(storeKey); err != nil {
			c.logger.Error("Failed to remove cache entry", slog.Any("cacheKey", storeKey), slog.Any("error", err.Error()))
		}
	}
	c.mu.Unlock()

	c.notify(events)
	return len(events)
}

// Peek returns the current state of key without fetching. Stale values stay visible.
func (c *Client) Peek(key cache.Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.lookupLocked(key)
	if entry == nil {
		return Snapshot{Key: key, Status: cache.StatusAbsent}, false
	}
	return snapshotOf(entry), true
}

// Close releases the underlying store.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Close()
}

// lookupLocked returns the entry for key, dropping it first when it is rotten.
func (c *Client) lookupLocked(key cache.Key) *cache.Entry {
	storeKey := key.String()
	entry, ok := c.store.Get(storeKey)
	if !ok {
		return nil
	}
	if entry.IsRotten(c.opts.StaleTime, c.opts.RetainFor) {
		_ = c.store.Delete(storeKey)
		c.logger.Debug("query dropped rotten entry", slog.Any("cacheKey", storeKey))
		return nil
	}
	return entry
}

func (c *Client) setLocked(key cache.Key, entry *cache.Entry) {
	if err := c.store.Set(key.String(), entry); err != nil {
		c.logger.Error("Failed to cache entry", slog.Any("cacheKey", key.String()), slog.Any("error", err.Error()))
	}
}

// beginLocked moves key to loading. It reuses the outstanding request unless force is set
// or the entry was invalidated after that request was issued.
func (c *Client) beginLocked(key cache.Key, entry *cache.Entry, force bool) (uint64, []Event) {
	if entry != nil && entry.Loading && !force && !entry.Invalidated {
		return entry.Seq, nil
	}
	if entry == nil {
		entry = &cache.Entry{Key: key, AccessedAt: time.Now()}
	}
	c.seq++
	entry.Seq = c.seq
	entry.Loading = true
	entry.Invalidated = false
	entry.Status = cache.StatusLoading
	c.setLocked(key, entry)
	return entry.Seq, []Event{{Type: EventLoading, Key: key}}
}

// wait joins the flight for (key, seq) and returns its result, or ctx's error if the
// caller gives up first. Giving up never cancels the shared request.
func (c *Client) wait(ctx context.Context, key cache.Key, seq uint64, fn FetchFunc) (any, error) {
	flightKey := key.String() + "@" + strconv.FormatUint(seq, 10)
	// This ensures that when there are multiple requests for the same key at the same time
	// the request runs only once, and all callers get the same result.
	resultCh := c.flights.DoChan(flightKey, func() (any, error) {
		// A caller joining after request seq settled gets its result.
		if value, ok, err := c.settledResult(key, seq); ok {
			return value, err
		}
		runCtx := context.WithoutCancel(ctx)
		if c.opts.RequestTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, c.opts.RequestTimeout)
			defer cancel()
		}
		value, err := c.run(runCtx, key, fn)
		c.settle(key, seq, value, err)
		return value, err
	})

	select {
	case result := <-resultCh:
		return result.Val, result.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) settledResult(key cache.Key, seq uint64) (any, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.store.Get(key.String())
	if !ok || entry.Seq != seq || entry.Loading {
		return nil, false, nil
	}
	if entry.Err != nil {
		return nil, true, entry.Err
	}
	return entry.Value, true, nil
}

func (c *Client) run(ctx context.Context, key cache.Key, fn FetchFunc) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("query: fetch %s panicked: %v", key, p)
		}
	}()
	return fn(ctx)
}

// settle applies the result of request seq, unless a newer request has been issued.
func (c *Client) settle(key cache.Key, seq uint64, value any, err error) {
	c.mu.Lock()
	entry, ok := c.store.Get(key.String())
	if !ok || entry.Seq != seq {
		c.mu.Unlock()
		c.logger.Debug("query discarded superseded response", slog.Any("cacheKey", key.String()), slog.Uint64("seq", seq))
		return
	}

	entry.Loading = false
	var event Event
	if err != nil {
		// A failed fetch keeps the previous good value visible.
		entry.Err = err
		if entry.HasValue {
			entry.Status = cache.StatusStale
			entry.Invalidated = true
		} else {
			entry.Status = cache.StatusAbsent
		}
		event = Event{Type: EventError, Key: key, Err: err}
	} else {
		now := time.Now()
		entry.Value = value
		entry.HasValue = true
		entry.Err = nil
		entry.Optimistic = false
		entry.UpdatedAt = now
		entry.AccessedAt = now
		if entry.Invalidated {
			entry.Status = cache.StatusStale
		} else {
			entry.Status = cache.StatusFresh
		}
		event = Event{Type: EventUpdated, Key: key}
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("query fetch failed", slog.Any("cacheKey", key.String()), slog.Any("error", err.Error()))
	}
	c.notify([]Event{event})
}

func snapshotOf(entry *cache.Entry) Snapshot {
	return Snapshot{
		Key:        entry.Key,
		Value:      entry.Value,
		HasValue:   entry.HasValue,
		Status:     entry.Status,
		Err:        entry.Err,
		UpdatedAt:  entry.UpdatedAt,
		Optimistic: entry.Optimistic,
	}
}
