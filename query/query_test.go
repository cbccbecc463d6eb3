package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spdeepak/backoffice/cache"
)

func newTestClient(opts *Options) *Client {
	if opts == nil {
		opts = &Options{StaleTime: time.Minute}
	}
	return New(cache.NewInMemoryLRU(100), opts)
}

func TestFetchCachesFreshValue(t *testing.T) {
	client := newTestClient(nil)
	key := cache.Key{"customers", "detail", "1"}
	var calls int32

	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "alice", nil
	}
	for i := 0; i < 3; i++ {
		got, err := Get(context.Background(), client, key, fetch)
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if got != "alice" {
			t.Fatalf("expected alice, got %q", got)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 network call, got %d", calls)
	}

	snapshot, ok := client.Peek(key)
	if !ok || snapshot.Status != cache.StatusFresh {
		t.Fatalf("expected fresh entry, got %+v", snapshot)
	}
}

func TestFetchSharesInFlightRequest(t *testing.T) {
	client := newTestClient(nil)
	key := cache.Key{"inquiries", "list", "offset=0"}
	release := make(chan struct{})
	var calls int32

	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []string{"a", "b"}, nil
	}

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, err := client.Fetch(context.Background(), key, fetch)
			if err != nil {
				t.Errorf("fetch: %v", err)
			}
			results[i] = value
		}(i)
	}

	// Give every goroutine a chance to join the flight before releasing it.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected concurrent fetches to share 1 request, got %d", calls)
	}
	for i, value := range results {
		if got, ok := value.([]string); !ok || len(got) != 2 {
			t.Fatalf("result %d: unexpected value %v", i, value)
		}
	}
}

func TestLateResponseOfOlderRequestIsDiscarded(t *testing.T) {
	client := newTestClient(nil)
	key := cache.Key{"inquiries", "list", "search=jo"}

	releaseFirst := make(chan struct{})
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = client.Fetch(context.Background(), key, func(ctx context.Context) (any, error) {
			<-releaseFirst
			return "R1", nil
		})
	}()
	time.Sleep(10 * time.Millisecond)

	// R2 is issued after R1 and resolves first.
	value, err := client.Refetch(context.Background(), key, func(ctx context.Context) (any, error) {
		return "R2", nil
	})
	if err != nil || value != "R2" {
		t.Fatalf("refetch: %v %v", value, err)
	}

	close(releaseFirst)
	<-firstDone

	snapshot, _ := client.Peek(key)
	if snapshot.Value != "R2" {
		t.Fatalf("expected R2 to survive the late R1 response, got %v", snapshot.Value)
	}
	if snapshot.Status != cache.StatusFresh {
		t.Fatalf("expected fresh, got %s", snapshot.Status)
	}
}

func TestFailedFetchKeepsPreviousValue(t *testing.T) {
	client := newTestClient(nil)
	key := cache.Key{"dashboard", "stats"}
	client.SetData(key, 42)
	client.Invalidate(cache.Key{"dashboard"})

	boom := errors.New("boom")
	_, err := client.Fetch(context.Background(), key, func(ctx context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	snapshot, ok := client.Peek(key)
	if !ok {
		t.Fatalf("expected entry to remain")
	}
	if snapshot.Value != 42 || snapshot.Status != cache.StatusStale {
		t.Fatalf("expected stale 42, got %+v", snapshot)
	}
	if !errors.Is(snapshot.Err, boom) {
		t.Fatalf("expected error to be recorded, got %v", snapshot.Err)
	}
}

func TestFailedFirstFetchLeavesEntryAbsent(t *testing.T) {
	client := newTestClient(nil)
	key := cache.Key{"products", "detail", "x"}
	_, err := client.Fetch(context.Background(), key, func(ctx context.Context) (any, error) {
		return nil, errors.New("down")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	snapshot, _ := client.Peek(key)
	if snapshot.HasValue || snapshot.Status != cache.StatusAbsent {
		t.Fatalf("expected absent entry, got %+v", snapshot)
	}
}

func TestInvalidateTriggersRefetch(t *testing.T) {
	client := newTestClient(nil)
	listKey := cache.Key{"filters", "list", "cat-1"}
	otherKey := cache.Key{"customers", "list", "page=1"}
	client.SetData(listKey, "v1")
	client.SetData(otherKey, "c1")

	if n := client.Invalidate(cache.Key{"filters"}); n != 1 {
		t.Fatalf("expected 1 invalidated entry, got %d", n)
	}

	value, _ := client.Fetch(context.Background(), listKey, func(ctx context.Context) (any, error) {
		return "v2", nil
	})
	if value != "v2" {
		t.Fatalf("expected refetched v2, got %v", value)
	}

	other, _ := client.Peek(otherKey)
	if other.Status != cache.StatusFresh || other.Value != "c1" {
		t.Fatalf("unrelated key must not change, got %+v", other)
	}
}

func TestInvalidateDuringFlightStartsNewRequest(t *testing.T) {
	client := newTestClient(nil)
	key := cache.Key{"inquiries", "list", "offset=0"}
	release := make(chan struct{})
	var calls int32

	done := make(chan any)
	go func() {
		value, _ := client.Fetch(context.Background(), key, func(ctx context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			<-release
			return "before-mutation", nil
		})
		done <- value
	}()
	time.Sleep(10 * time.Millisecond)

	client.Invalidate(cache.Key{"inquiries"})
	value, err := client.Fetch(context.Background(), key, func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "after-mutation", nil
	})
	if err != nil || value != "after-mutation" {
		t.Fatalf("expected a fresh request after invalidation, got %v %v", value, err)
	}
	close(release)
	<-done

	if calls != 2 {
		t.Fatalf("expected 2 requests, got %d", calls)
	}
	snapshot, _ := client.Peek(key)
	if snapshot.Value != "after-mutation" {
		t.Fatalf("expected after-mutation, got %v", snapshot.Value)
	}
}

func TestPatchIsSupersededByAuthoritativeRefetch(t *testing.T) {
	client := newTestClient(nil)
	key := cache.Key{"inquiries", "list", "limit=20&offset=0"}
	items := []string{"a", "X", "c"}
	client.SetData(key, items)

	// Optimistically remove X.
	ok := Update(client, key, func(list []string) []string {
		out := make([]string, 0, len(list))
		for _, item := range list {
			if item != "X" {
				out = append(out, item)
			}
		}
		return out
	}, cache.Key{"inquiries", "list"})
	if !ok {
		t.Fatalf("expected patch to apply")
	}

	snapshot, _ := client.Peek(key)
	if got := snapshot.Value.([]string); len(got) != 2 || !snapshot.Optimistic {
		t.Fatalf("expected optimistic 2-item list, got %+v", snapshot)
	}
	if snapshot.Status != cache.StatusStale {
		t.Fatalf("patch must invalidate the list, got %s", snapshot.Status)
	}

	// The server still returns X; its answer wins.
	got, err := Get(context.Background(), client, key, func(ctx context.Context) ([]string, error) {
		return []string{"a", "X", "c"}, nil
	})
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if len(got) != 3 || got[1] != "X" {
		t.Fatalf("expected server result, got %v", got)
	}
	snapshot, _ = client.Peek(key)
	if snapshot.Optimistic {
		t.Fatalf("optimistic flag must clear once the authoritative value lands")
	}
}

func TestPatchWithoutValueIsNoop(t *testing.T) {
	client := newTestClient(nil)
	if client.Patch(cache.Key{"x"}, func(v any) any { return v }) {
		t.Fatalf("patch of absent key should report false")
	}
}

func TestPatchAllUpdatesEveryListPage(t *testing.T) {
	client := newTestClient(nil)
	client.SetData(cache.Key{"inquiries", "list", "offset=0"}, []string{"a", "X"})
	client.SetData(cache.Key{"inquiries", "list", "offset=20"}, []string{"X", "b"})
	client.SetData(cache.Key{"inquiries", "detail", "X"}, "X")

	n := UpdateAll(client, cache.Key{"inquiries", "list"}, func(list []string) []string {
		return list[:1]
	})
	if n != 2 {
		t.Fatalf("expected 2 patched pages, got %d", n)
	}
	detail, _ := client.Peek(cache.Key{"inquiries", "detail", "X"})
	if detail.Status != cache.StatusFresh {
		t.Fatalf("detail outside prefix must stay fresh, got %s", detail.Status)
	}
}

func TestSetDataSupersedesOutstandingRequest(t *testing.T) {
	client := newTestClient(nil)
	key := cache.Key{"inquiries", "detail", "7"}
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = client.Fetch(context.Background(), key, func(ctx context.Context) (any, error) {
			<-release
			return "pending", nil
		})
	}()
	time.Sleep(10 * time.Millisecond)

	client.SetData(key, "resolved")
	close(release)
	<-done

	snapshot, _ := client.Peek(key)
	if snapshot.Value != "resolved" {
		t.Fatalf("expected mutation response to win, got %v", snapshot.Value)
	}
}

func TestRemoveDropsPrefix(t *testing.T) {
	client := newTestClient(nil)
	client.SetData(cache.Key{"inquiry", "detail", "1"}, 1)
	client.SetData(cache.Key{"inquiry", "detail", "2"}, 2)

	if n := client.Remove(cache.Key{"inquiry", "detail", "1"}); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}
	if _, ok := client.Peek(cache.Key{"inquiry", "detail", "1"}); ok {
		t.Fatalf("expected entry to be removed")
	}
	if _, ok := client.Peek(cache.Key{"inquiry", "detail", "2"}); !ok {
		t.Fatalf("expected sibling entry to remain")
	}
}

func TestCallerCancellationDoesNotAbortSharedRequest(t *testing.T) {
	client := newTestClient(nil)
	key := cache.Key{"products", "list", "offset=0"}
	release := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() {
		_, err := client.Fetch(ctx, key, func(ctx context.Context) (any, error) {
			<-release
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return "page", nil
		})
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	close(release)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if snapshot, _ := client.Peek(key); snapshot.HasValue {
			if snapshot.Value != "page" {
				t.Fatalf("unexpected value %v", snapshot.Value)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("shared request never settled")
}

func TestStaleWhileRevalidateServesStaleValue(t *testing.T) {
	client := newTestClient(&Options{StaleTime: time.Minute, StaleWhileRevalidate: true})
	key := cache.Key{"dashboard", "stats"}
	client.SetData(key, "old")
	client.Invalidate(key)

	refreshed := make(chan struct{})
	value, err := client.Fetch(context.Background(), key, func(ctx context.Context) (any, error) {
		defer close(refreshed)
		return "new", nil
	})
	if err != nil || value != "old" {
		t.Fatalf("expected stale value immediately, got %v %v", value, err)
	}

	<-refreshed
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if snapshot, _ := client.Peek(key); snapshot.Value == "new" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("background refresh never landed")
}

func TestSubscribeReceivesScopedEvents(t *testing.T) {
	client := newTestClient(nil)
	var mu sync.Mutex
	var seen []EventType
	unsubscribe := client.Subscribe(cache.Key{"filters"}, func(event Event) {
		mu.Lock()
		seen = append(seen, event.Type)
		mu.Unlock()
	})

	client.SetData(cache.Key{"filters", "list", "c"}, 1)
	client.SetData(cache.Key{"customers", "list", "p"}, 1)
	client.Invalidate(cache.Key{"filters"})
	unsubscribe()
	client.Invalidate(cache.Key{"filters"})

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != EventUpdated || seen[1] != EventInvalidated {
		t.Fatalf("unexpected events %v", seen)
	}
}

func TestRottenEntriesAreDropped(t *testing.T) {
	client := newTestClient(&Options{StaleTime: time.Millisecond, RetainFor: time.Millisecond})
	key := cache.Key{"customers", "detail", "1"}
	client.SetData(key, "v")
	time.Sleep(10 * time.Millisecond)

	if _, ok := client.Peek(key); ok {
		t.Fatalf("expected rotten entry to be treated as absent")
	}
}

func TestFetchRejectsNilFetcher(t *testing.T) {
	client := newTestClient(nil)
	if _, err := client.Fetch(context.Background(), cache.Key{"x"}, nil); !errors.Is(err, ErrNoFetcher) {
		t.Fatalf("expected ErrNoFetcher, got %v", err)
	}
}

func TestGetReportsTypeMismatch(t *testing.T) {
	client := newTestClient(nil)
	key := cache.Key{"x"}
	client.SetData(key, 1)
	if _, err := Get(context.Background(), client, key, func(ctx context.Context) (string, error) {
		return "s", nil
	}); err == nil {
		t.Fatalf("expected type mismatch error")
	}
}

func TestLateJoinerReusesSettledResult(t *testing.T) {
	client := newTestClient(nil)
	key := cache.Key{"inquiries", "detail", "7"}
	var calls int32
	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "first", nil
	}
	if _, err := client.Fetch(context.Background(), key, fetch); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	client.mu.Lock()
	entry, ok := client.store.Get(key.String())
	client.mu.Unlock()
	if !ok {
		t.Fatalf("expected cached entry")
	}

	// Joining the already settled request must not run the fetcher again.
	value, err := client.wait(context.Background(), key, entry.Seq, func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "second", nil
	})
	if err != nil || value != "first" {
		t.Fatalf("expected settled value, got %v, %v", value, err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected one request, got %d", n)
	}
}
