package backoffice

import (
	"net/url"

	"github.com/spdeepak/backoffice/cache"
)

// ResourceKeys builds the cache keys of one REST resource:
//
//	<resource>                       everything
//	<resource>/list/<encoded params> one list page
//	<resource>/detail/<id>           one entity
//
// Invalidating Lists() reaches every page of every filter combination without
// touching the details.
type ResourceKeys struct {
	resource string
}

var (
	CustomerKeys  = ResourceKeys{resource: "customers"}
	InquiryKeys   = ResourceKeys{resource: "inquiries"}
	ProductKeys   = ResourceKeys{resource: "products"}
	CategoryKeys  = ResourceKeys{resource: "product-categories"}
	FilterKeys    = ResourceKeys{resource: "filters"}
	DashboardKeys = ResourceKeys{resource: "dashboard"}
)

func (k ResourceKeys) All() cache.Key { return cache.Key{k.resource} }

func (k ResourceKeys) Lists() cache.Key { return cache.Key{k.resource, "list"} }

// List is the key of the page described by params. url.Values.Encode sorts by
// name so equal parameter sets produce equal keys.
func (k ResourceKeys) List(params url.Values) cache.Key {
	return k.Lists().Append(params.Encode())
}

func (k ResourceKeys) Details() cache.Key { return cache.Key{k.resource, "detail"} }

func (k ResourceKeys) Detail(id string) cache.Key { return k.Details().Append(id) }

// Stats is the dashboard counters key.
func (k ResourceKeys) Stats() cache.Key { return cache.Key{k.resource, "stats"} }

// FilterList is the key of the filters of one category.
func FilterList(categoryID string) cache.Key {
	return FilterKeys.Lists().Append(categoryID)
}
