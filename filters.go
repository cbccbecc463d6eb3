package backoffice

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/spdeepak/backoffice/normalize"
	"github.com/spdeepak/backoffice/query"
	"github.com/tidwall/gjson"
)

// Filter is a facet of a category, e.g. "Color" with its options.
type Filter struct {
	ID         string         `json:"id"`
	CategoryID string         `json:"category_id"`
	Name       string         `json:"name"`
	Options    []FilterOption `json:"options"`
}

type FilterOption struct {
	ID       string `json:"id"`
	FilterID string `json:"filter_id"`
	Value    string `json:"value"`
}

// FilterInput creates a filter with optional initial option values.
type FilterInput struct {
	CategoryID string   `json:"category_id"`
	Name       string   `json:"name"`
	Options    []string `json:"options,omitempty"`
}

func (in FilterInput) Validate() error {
	v := violations{}
	v.check(!blank(in.CategoryID), "category_id", "Category is required")
	v.check(!blank(in.Name), "name", "Filter name is required")
	return v.err()
}

// ParseFilters reads the filters list. Field names are accepted in snake_case or
// camelCase, options may be under options, filter_options or filterOptions, and
// options without an id or with a blank value are dropped.
func ParseFilters(raw []byte) []Filter {
	filters := []Filter{}
	if !gjson.ValidBytes(raw) {
		return filters
	}
	root := gjson.ParseBytes(raw)
	list := root
	if root.IsObject() {
		list = root.Get("data")
	}
	if !list.IsArray() {
		return filters
	}

	list.ForEach(func(_, row gjson.Result) bool {
		if !row.IsObject() {
			return true
		}
		filter := Filter{
			ID:         normalize.Coalesce(row, "id", "Id"),
			CategoryID: normalize.Coalesce(row, "category_id", "categoryId"),
			Name:       row.Get("name").String(),
			Options:    []FilterOption{},
		}
		if options, ok := normalize.FirstArray(row, "options", "filter_options", "filterOptions"); ok {
			options.ForEach(func(_, opt gjson.Result) bool {
				option := FilterOption{
					ID:       normalize.Coalesce(opt, "id", "Id"),
					FilterID: normalize.Coalesce(opt, "filter_id", "filterId"),
					Value:    opt.Get("value").String(),
				}
				if option.ID != "" && !blank(option.Value) {
					filter.Options = append(filter.Options, option)
				}
				return true
			})
		}
		filters = append(filters, filter)
		return true
	})
	return filters
}

// ListFilters returns the filters of a category.
func (a *Admin) ListFilters(ctx context.Context, categoryID string) ([]Filter, error) {
	if blank(categoryID) {
		return nil, ErrMissingID
	}
	return query.Get(ctx, a.queries, FilterList(categoryID), func(ctx context.Context) ([]Filter, error) {
		raw, err := a.api.Get(ctx, "/filters", url.Values{"category_id": {categoryID}})
		if err != nil {
			return nil, err
		}
		return ParseFilters(raw), nil
	})
}

// CreateFilter creates a filter in a category.
func (a *Admin) CreateFilter(ctx context.Context, in FilterInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Options = nonBlank(in.Options)
	if _, err := a.api.Post(ctx, "/filters", in); err != nil {
		return fmt.Errorf("create filter: %w", err)
	}
	a.queries.Invalidate(FilterList(in.CategoryID))
	a.logger.Info("Filter created", slog.String("category", in.CategoryID), slog.String("name", in.Name))
	return nil
}

// CreateFilterOption adds value to a filter. When the response carries the new
// option id, the option is appended to the cached list before it is refetched.
func (a *Admin) CreateFilterOption(ctx context.Context, categoryID, filterID, value string) (FilterOption, error) {
	v := violations{}
	v.check(!blank(filterID), "filter_id", "Filter is required")
	v.check(!blank(value), "value", "Option value is required")
	if err := v.err(); err != nil {
		return FilterOption{}, err
	}

	option := FilterOption{FilterID: filterID, Value: strings.TrimSpace(value)}
	raw, err := a.api.Post(ctx, "/filters/options", map[string]string{"filter_id": filterID, "value": option.Value})
	if err != nil {
		return FilterOption{}, fmt.Errorf("create filter option: %w", err)
	}
	if body := normalize.Entity(raw); body != nil {
		option.ID = normalize.Coalesce(gjson.ParseBytes(body), "id", "Id")
	}

	list := FilterList(categoryID)
	if option.ID == "" || !query.Update(a.queries, list, func(filters []Filter) []Filter {
		return appendOption(filters, option)
	}) {
		a.queries.Invalidate(list)
	}
	a.logger.Info("Filter option added", slog.String("filter", filterID), slog.String("option", option.ID))
	return option, nil
}

func appendOption(filters []Filter, option FilterOption) []Filter {
	out := make([]Filter, len(filters))
	for i, f := range filters {
		if f.ID == option.FilterID {
			options := make([]FilterOption, len(f.Options), len(f.Options)+1)
			copy(options, f.Options)
			f.Options = append(options, option)
		}
		out[i] = f
	}
	return out
}

// UpdateFilter renames a filter.
func (a *Admin) UpdateFilter(ctx context.Context, categoryID, filterID, name string) error {
	if blank(filterID) {
		return ErrMissingID
	}
	if blank(name) {
		return &ValidationError{Fields: map[string]string{"name": "Filter name is required"}}
	}
	if _, err := a.api.Put(ctx, resourcePath("filters", filterID), map[string]string{"name": strings.TrimSpace(name)}); err != nil {
		return fmt.Errorf("update filter %s: %w", filterID, err)
	}
	a.queries.Invalidate(FilterList(categoryID))
	a.logger.Info("Filter updated", slog.String("filter", filterID))
	return nil
}

// UpdateFilterOption changes the value of an option.
func (a *Admin) UpdateFilterOption(ctx context.Context, categoryID, optionID, value string) error {
	if blank(optionID) {
		return ErrMissingID
	}
	if blank(value) {
		return &ValidationError{Fields: map[string]string{"value": "Option value is required"}}
	}
	if _, err := a.api.Put(ctx, resourcePath("filters", "options", optionID), map[string]string{"value": strings.TrimSpace(value)}); err != nil {
		return fmt.Errorf("update filter option %s: %w", optionID, err)
	}
	a.queries.Invalidate(FilterList(categoryID))
	a.logger.Info("Filter option updated", slog.String("option", optionID))
	return nil
}

// DeleteFilter removes a filter and its options.
func (a *Admin) DeleteFilter(ctx context.Context, categoryID, filterID string) error {
	if blank(filterID) {
		return ErrMissingID
	}
	if _, err := a.api.Delete(ctx, resourcePath("filters", filterID)); err != nil {
		return fmt.Errorf("delete filter %s: %w", filterID, err)
	}
	a.queries.Invalidate(FilterList(categoryID))
	a.logger.Info("Filter deleted", slog.String("filter", filterID))
	return nil
}

// DeleteFilterOption removes one option.
func (a *Admin) DeleteFilterOption(ctx context.Context, categoryID, optionID string) error {
	if blank(optionID) {
		return ErrMissingID
	}
	if _, err := a.api.Delete(ctx, resourcePath("filters", "options", optionID)); err != nil {
		return fmt.Errorf("delete filter option %s: %w", optionID, err)
	}
	a.queries.Invalidate(FilterList(categoryID))
	a.logger.Info("Filter option deleted", slog.String("option", optionID))
	return nil
}
