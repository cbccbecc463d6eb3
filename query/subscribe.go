package query

import "github.com/spdeepak/backoffice/cache"

// EventType tells subscribers what happened to a key.
type EventType int

const (
	EventLoading EventType = iota
	EventUpdated
	EventInvalidated
	EventRemoved
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventLoading:
		return "loading"
	case EventUpdated:
		return "updated"
	case EventInvalidated:
		return "invalidated"
	case EventRemoved:
		return "removed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after the cache changed.
type Event struct {
	Type EventType
	Key  cache.Key
	Err  error
}

type subscription struct {
	prefix cache.Key
	fn     func(Event)
}

// Subscribe registers fn for events on keys under prefix. Callbacks run outside the
// cache lock, so they may call back into the Client. The returned func unsubscribes.
func (c *Client) Subscribe(prefix cache.Key, fn func(Event)) func() {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = subscription{prefix: prefix, fn: fn}
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Client) notify(events []Event) {
	if len(events) == 0 {
		return
	}
	c.mu.Lock()
	subs := make([]subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, event := range events {
		for _, sub := range subs {
			if event.Key.HasPrefix(sub.prefix) {
				sub.fn(event)
			}
		}
	}
}
