package query

import (
	"context"
	"fmt"

	"github.com/spdeepak/backoffice/cache"
)

// Get is Fetch with a typed result.
func Get[T any](ctx context.Context, c *Client, key cache.Key, fn func(context.Context) (T, error)) (T, error) {
	value, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	return typed[T](key, value, err)
}

// Reload is Refetch with a typed result.
func Reload[T any](ctx context.Context, c *Client, key cache.Key, fn func(context.Context) (T, error)) (T, error) {
	value, err := c.Refetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	return typed[T](key, value, err)
}

// Update is Patch with a typed updater. Values of another type are left untouched.
func Update[T any](c *Client, key cache.Key, fn func(T) T, related ...cache.Key) bool {
	return c.Patch(key, typedUpdater(fn), related...)
}

// UpdateAll is PatchAll with a typed updater.
func UpdateAll[T any](c *Client, prefix cache.Key, fn func(T) T) int {
	return c.PatchAll(prefix, typedUpdater(fn))
}

func typedUpdater[T any](fn func(T) T) func(any) any {
	return func(value any) any {
		current, ok := value.(T)
		if !ok {
			return value
		}
		return fn(current)
	}
}

func typed[T any](key cache.Key, value any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	result, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("query: cached value for %s is %T, not %T", key, value, zero)
	}
	return result, nil
}
