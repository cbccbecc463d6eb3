package cache

import (
	"strings"
	"time"
)

// Key is an ordered tuple identifying one logical query,
// e.g. {"inquiries", "list", "limit=20&offset=0"} or {"customers", "detail", "42"}.
type Key []string

// String joins the parts with "/" and is used as the store key.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether prefix matches the leading parts of k element by element.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Append returns a new key with parts appended; k is never modified.
func (k Key) Append(parts ...string) Key {
	out := make(Key, 0, len(k)+len(parts))
	out = append(out, k...)
	return append(out, parts...)
}

// Status is the lifecycle state of a cache entry.
type Status int

const (
	StatusAbsent Status = iota
	StatusLoading
	StatusFresh
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusFresh:
		return "fresh"
	case StatusStale:
		return "stale"
	default:
		return "absent"
	}
}

// Store defines the contract for all storage backends.
type Store interface {
	Get(key string) (*Entry, bool)
	Set(key string, entry *Entry) error
	Delete(key string) error
	// Range calls fn for every entry without changing recency; fn must not call back into the store.
	Range(fn func(key string, entry *Entry) bool)
	Close() error // For graceful shutdown/cleanup
}

// Entry holds one cached query result and its bookkeeping.
type Entry struct {
	Key    Key
	Value  any
	Status Status
	// HasValue distinguishes a cached nil from no value at all.
	HasValue bool
	Err      error

	UpdatedAt  time.Time
	AccessedAt time.Time

	// Seq is the sequence number of the latest request issued for this key.
	Seq uint64
	// Loading is true while request Seq is outstanding.
	Loading bool
	// Invalidated marks the value stale regardless of its age.
	Invalidated bool
	// Optimistic is set by local patches until an authoritative value lands.
	Optimistic bool
}

// IsStale checks if the entry must be refetched before being served as fresh.
func (e *Entry) IsStale(staleTime time.Duration) bool {
	if !e.HasValue || e.Invalidated {
		return true
	}
	return time.Since(e.UpdatedAt) > staleTime
}

// IsRotten checks if the entry is past its retention window and should be treated as absent.
// A zero retain window keeps values forever.
func (e *Entry) IsRotten(staleTime, retain time.Duration) bool {
	if retain <= 0 || e.Loading {
		return false
	}
	return time.Since(e.AccessedAt) > staleTime+retain
}
