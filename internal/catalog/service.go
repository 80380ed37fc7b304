// Package catalog is the query-construction and facet-aggregation engine.
//
// It turns loosely-typed request parameters into Elasticsearch queries,
// pages and maps the hits back to items, shapes aggregation results into
// facet buckets, extracts autocomplete suggestions, and applies the item
// mutation rules. Every operation returns either a value or one of the
// error kinds in errors.go; nothing is retried.
package catalog

import (
	"github.com/google/uuid"
)

// Service is the catalog engine. It holds no state across requests.
type Service struct {
	index Index
	store Store
	newID func() string
}

// New creates a catalog engine over an index and an item store.
// Both are usually the same *search.Client.
func New(index Index, store Store) *Service {
	return &Service{index: index, store: store, newID: uuid.NewString}
}
