package backoffice

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/spdeepak/backoffice/cache"
	"github.com/spdeepak/backoffice/normalize"
	"github.com/spdeepak/backoffice/query"
)

// DefaultPageSize is the page size used when a list call does not set one.
const DefaultPageSize = 20

// ErrMissingID is returned by detail reads and mutations called with a blank id.
var ErrMissingID = errors.New("backoffice: id is required")

// Image is a stored file as embedded in entities.
type Image struct {
	ID  string `json:"id"`
	Key string `json:"key"`
	URL string `json:"url"`
}

// getEntity reads one entity through the cache.
func getEntity[T any](ctx context.Context, a *Admin, keys ResourceKeys, id, path string) (T, error) {
	if blank(id) {
		var zero T
		return zero, ErrMissingID
	}
	key := keys.Detail(id)
	return query.Get(ctx, a.queries, key, func(ctx context.Context) (T, error) {
		raw, err := a.api.Get(ctx, path, nil)
		if err != nil {
			var zero T
			return zero, err
		}
		return normalize.Decode[T](raw)
	})
}

// getPage reads one list page through the cache.
func getPage[T any](ctx context.Context, a *Admin, keys ResourceKeys, path string, values url.Values, offset, limit int) (normalize.Page[T], error) {
	return query.Get(ctx, a.queries, keys.List(values), func(ctx context.Context) (normalize.Page[T], error) {
		raw, err := a.api.Get(ctx, path, values)
		if err != nil {
			return normalize.Page[T]{}, err
		}
		return normalize.List[T](raw, offset, limit), nil
	})
}

// removeFromPages drops matching items from every cached page under prefix and
// invalidates them. Pages are copied, never edited in place.
func removeFromPages[T any](a *Admin, prefix cache.Key, match func(T) bool) int {
	return query.UpdateAll(a.queries, prefix, func(page normalize.Page[T]) normalize.Page[T] {
		kept := make([]T, 0, len(page.Data))
		for _, item := range page.Data {
			if !match(item) {
				kept = append(kept, item)
			}
		}
		if removed := len(page.Data) - len(kept); removed > 0 && page.Meta.Total >= removed {
			page.Meta.Total -= removed
		}
		page.Data = kept
		return page
	})
}

// replaceInPages rewrites matching items in every cached page under prefix and
// invalidates them.
func replaceInPages[T any](a *Admin, prefix cache.Key, match func(T) bool, replace func(T) T) int {
	return query.UpdateAll(a.queries, prefix, func(page normalize.Page[T]) normalize.Page[T] {
		data := make([]T, len(page.Data))
		for i, item := range page.Data {
			if match(item) {
				item = replace(item)
			}
			data[i] = item
		}
		page.Data = data
		return page
	})
}

func resourcePath(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, part := range parts {
		escaped[i] = url.PathEscape(part)
	}
	return "/" + strings.Join(escaped, "/")
}

func setInt(values url.Values, name string, n int) {
	if n > 0 {
		values.Set(name, strconv.Itoa(n))
	}
}

func setString(values url.Values, name, s string) {
	if s = strings.TrimSpace(s); s != "" {
		values.Set(name, s)
	}
}
