// Package normalize turns the backend's inconsistent response shapes into one
// canonical form. Every list endpoint goes through List or Collection, every
// mutation response through Entity, so call sites never inspect raw shapes.
//
// Nothing in this package returns an error for a malformed list: a response that
// matches no known shape degrades to an empty page with HasMore false.
package normalize

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformed is returned by Decode when a response holds no entity.
var ErrMalformed = errors.New("normalize: malformed entity response")

// Shape names the raw response layout a page was read from.
type Shape int

const (
	ShapeMalformed  Shape = iota
	ShapeArray            // [ ... ]
	ShapeEnvelope         // {"data": [...], "meta": {...}}
	ShapeCollection       // {"<name>": [...], "pagination": {...}}
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeEnvelope:
		return "envelope"
	case ShapeCollection:
		return "collection"
	default:
		return "malformed"
	}
}

// Meta describes where a page sits in the full result set.
type Meta struct {
	Total   int  `json:"total"`
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

// Page is the canonical list response.
type Page[T any] struct {
	Data  []T   `json:"data"`
	Meta  Meta  `json:"meta"`
	Shape Shape `json:"-"`
}

// Empty returns a page with no items and no further pages.
func Empty[T any](offset, limit int) Page[T] {
	return Page[T]{
		Data: []T{},
		Meta: Meta{Offset: offset, Limit: limit},
	}
}

// List normalizes a bare array or a {data, meta} envelope requested at offset/limit.
func List[T any](raw []byte, offset, limit int) Page[T] {
	if !gjson.ValidBytes(raw) {
		return Empty[T](offset, limit)
	}
	root := gjson.ParseBytes(raw)

	switch {
	case root.IsArray():
		items := decodeItems[T](root)
		return Page[T]{
			Data:  items,
			Meta:  resolveMeta(gjson.Result{}, len(items), offset, limit),
			Shape: ShapeArray,
		}
	case root.IsObject() && root.Get("data").IsArray():
		items := decodeItems[T](root.Get("data"))
		return Page[T]{
			Data:  items,
			Meta:  resolveMeta(root.Get("meta"), len(items), offset, limit),
			Shape: ShapeEnvelope,
		}
	default:
		return Empty[T](offset, limit)
	}
}

// Collection normalizes {name: [...], pagination: {page, limit, total, total_pages}} and
// falls back to List for the other shapes.
func Collection[T any](raw []byte, name string, offset, limit int) Page[T] {
	if !gjson.ValidBytes(raw) {
		return Empty[T](offset, limit)
	}
	root := gjson.ParseBytes(raw)
	collection := root.Get(gjson.Escape(name))
	if !root.IsObject() || !collection.IsArray() {
		return List[T](raw, offset, limit)
	}

	items := decodeItems[T](collection)
	return Page[T]{
		Data:  items,
		Meta:  resolveMeta(root.Get("pagination"), len(items), offset, limit),
		Shape: ShapeCollection,
	}
}

// Entity unwraps {"data": {...}} or passes a bare object through. It returns nil when
// raw holds neither.
func Entity(raw []byte) []byte {
	if !gjson.ValidBytes(raw) {
		return nil
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil
	}
	if data := root.Get("data"); data.IsObject() {
		return []byte(data.Raw)
	}
	return []byte(root.Raw)
}

// Decode unwraps a mutation or detail response into T.
func Decode[T any](raw []byte) (T, error) {
	var out T
	body := Entity(raw)
	if body == nil {
		return out, ErrMalformed
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, errors.Join(ErrMalformed, err)
	}
	return out, nil
}

// Coalesce returns the first non-blank string among the named fields of obj, so
// snake_case and camelCase spellings of one field read the same.
func Coalesce(obj gjson.Result, names ...string) string {
	for _, name := range names {
		value := obj.Get(gjson.Escape(name))
		if !value.Exists() || value.Type == gjson.Null {
			continue
		}
		if s := value.String(); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// FirstArray returns the first of the named fields of obj that holds an array.
func FirstArray(obj gjson.Result, names ...string) (gjson.Result, bool) {
	for _, name := range names {
		if value := obj.Get(gjson.Escape(name)); value.IsArray() {
			return value, true
		}
	}
	return gjson.Result{}, false
}

// ErrorBody reads a structured {error, details} body. details may be a string or a
// list of strings; "message" is accepted in place of "error".
func ErrorBody(raw []byte) (message string, details []string) {
	if !gjson.ValidBytes(raw) {
		return "", nil
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return "", nil
	}
	message = Coalesce(root, "error", "message")

	detailsValue := root.Get("details")
	switch {
	case detailsValue.IsArray():
		detailsValue.ForEach(func(_, item gjson.Result) bool {
			if s := strings.TrimSpace(item.String()); s != "" {
				details = append(details, s)
			}
			return true
		})
	case detailsValue.Type == gjson.String:
		if s := strings.TrimSpace(detailsValue.String()); s != "" {
			details = []string{s}
		}
	}
	return message, details
}

func decodeItems[T any](array gjson.Result) []T {
	items := make([]T, 0)
	dropped := 0
	array.ForEach(func(_, value gjson.Result) bool {
		var item T
		if err := json.Unmarshal([]byte(value.Raw), &item); err != nil {
			dropped++
			return true
		}
		items = append(items, item)
		return true
	})
	if dropped > 0 {
		slog.Debug("normalize dropped undecodable items", slog.Int("dropped", dropped), slog.Int("kept", len(items)))
	}
	return items
}

// resolveMeta prefers what the server states: an explicit hasMore, then a total,
// then page counts. Only when none is present does it guess from a full page.
func resolveMeta(meta gjson.Result, count, offset, limit int) Meta {
	out := Meta{Total: count, Offset: offset, Limit: limit}
	if !meta.IsObject() {
		out.HasMore = limit > 0 && count >= limit
		return out
	}

	if value := first(meta, "limit", "page_size", "pageSize"); value.Exists() && value.Int() > 0 {
		out.Limit = int(value.Int())
	}
	page := first(meta, "page")
	if value := first(meta, "offset"); value.Exists() {
		out.Offset = int(value.Int())
	} else if page.Exists() && page.Int() > 0 && out.Limit > 0 {
		out.Offset = int(page.Int()-1) * out.Limit
	}

	total := first(meta, "total", "total_count", "totalCount")
	if total.Exists() {
		out.Total = int(total.Int())
	}

	if value := first(meta, "hasMore", "has_more"); value.IsBool() {
		out.HasMore = value.Bool()
		return out
	}
	if total.Exists() {
		out.HasMore = out.Offset+count < out.Total
		return out
	}
	if totalPages := first(meta, "total_pages", "totalPages"); page.Exists() && totalPages.Exists() {
		out.HasMore = page.Int() < totalPages.Int()
		return out
	}
	out.HasMore = out.Limit > 0 && count >= out.Limit
	return out
}

func first(obj gjson.Result, names ...string) gjson.Result {
	for _, name := range names {
		if value := obj.Get(name); value.Exists() && value.Type != gjson.Null {
			return value
		}
	}
	return gjson.Result{}
}
