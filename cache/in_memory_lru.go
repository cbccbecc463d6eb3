package cache

import (
	"container/list"
	"sync"
)

// lruEntry links the cache key and the entry to the list element.
type lruEntry struct {
	key   string
	value *Entry
}

// InMemoryLRU implements Store with a hard entry limit and LRU policy.
type InMemoryLRU struct {
	mutex sync.Mutex
	// Doubly linked list for LRU order
	lru   *list.List
	cache map[string]*list.Element
	// Hard limit on stored entries, 0 means unbounded
	maxEntries int
	onEvict    func(key string, entry *Entry)
}

// NewInMemoryLRU creates a new InMemoryLRU store holding at most maxEntries entries.
func NewInMemoryLRU(maxEntries int) *InMemoryLRU {
	return &InMemoryLRU{
		lru:        list.New(),
		cache:      make(map[string]*list.Element),
		maxEntries: maxEntries,
	}
}

// OnEvict registers a callback invoked (under the store lock) for every capacity eviction.
func (lru *InMemoryLRU) OnEvict(fn func(key string, entry *Entry)) {
	lru.mutex.Lock()
	lru.onEvict = fn
	lru.mutex.Unlock()
}

// Get retrieves an entry and moves it to the front of the list (MRU).
func (lru *InMemoryLRU) Get(key string) (*Entry, bool) {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	element, ok := lru.cache[key]
	if !ok {
		return nil, false
	}
	lru.lru.MoveToFront(element)
	return element.Value.(*lruEntry).value, true
}

// Set adds or updates an entry, evicting the least recently used ones past the limit.
func (lru *InMemoryLRU) Set(key string, entry *Entry) error {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	if element, ok := lru.cache[key]; ok {
		element.Value.(*lruEntry).value = entry
		lru.lru.MoveToFront(element)
	} else {
		element := lru.lru.PushFront(&lruEntry{key: key, value: entry})
		lru.cache[key] = element
	}

	// Eviction. Entries with a request in flight are skipped so their result has a home.
	for lru.maxEntries > 0 && lru.lru.Len() > lru.maxEntries {
		victim := lru.lru.Back()
		for victim != nil && victim.Value.(*lruEntry).value.Loading {
			victim = victim.Prev()
		}
		if victim == nil {
			break
		}
		evicted := lru.lru.Remove(victim).(*lruEntry)
		delete(lru.cache, evicted.key)
		if lru.onEvict != nil {
			lru.onEvict(evicted.key, evicted.value)
		}
	}
	return nil
}

// Delete removes an entry from the store.
func (lru *InMemoryLRU) Delete(key string) error {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	if element, ok := lru.cache[key]; ok {
		lru.lru.Remove(element)
		delete(lru.cache, key)
	}
	return nil
}

// Range visits entries from most to least recently used until fn returns false.
func (lru *InMemoryLRU) Range(fn func(key string, entry *Entry) bool) {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	for element := lru.lru.Front(); element != nil; element = element.Next() {
		item := element.Value.(*lruEntry)
		if !fn(item.key, item.value) {
			return
		}
	}
}

// Len returns the number of stored entries.
func (lru *InMemoryLRU) Len() int {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()
	return lru.lru.Len()
}

// Close drops every entry.
func (lru *InMemoryLRU) Close() error {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()
	lru.lru.Init()
	lru.cache = make(map[string]*list.Element)
	return nil
}
