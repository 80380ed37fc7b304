package search

import (
	"encoding/json"
	"fmt"
)

// Aggregation names of the facet request.
const (
	AggCategories    = "categories"
	AggManufacturers = "manufacturers"
	AggPriceRanges   = "price_ranges"
	AggPriceStats    = "price_stats"
)

// TermFacetSize caps term facets to the highest-count values.
const TermFacetSize = 50

// Band is a price interval (From, To]. A nil bound is open.
type Band struct {
	From *float64
	To   *float64
}

func (b Band) filter() Query {
	bounds := map[string]any{}
	if b.From != nil {
		bounds["gt"] = *b.From
	}
	if b.To != nil {
		bounds["lte"] = *b.To
	}
	return Query{"range": map[string]any{FieldPrice: bounds}}
}

func termsAgg(field string) map[string]any {
	return map[string]any{"terms": map[string]any{
		"field": field,
		"size":  TermFacetSize,
		"order": map[string]any{"_count": "desc"},
	}}
}

// FacetAggs builds the facet aggregations. Price bands are sent as an
// anonymous filters list so the response buckets come back in band order.
func FacetAggs(bands []Band) map[string]any {
	filters := make([]Query, 0, len(bands))
	for _, b := range bands {
		filters = append(filters, b.filter())
	}
	return map[string]any{
		AggCategories:    termsAgg(FieldCategory),
		AggManufacturers: termsAgg(FieldManufacturer),
		AggPriceRanges:   map[string]any{"filters": map[string]any{"filters": filters}},
		AggPriceStats:    map[string]any{"stats": map[string]any{"field": FieldPrice}},
	}
}

// TermBucket is one value of a terms aggregation.
type TermBucket struct {
	Key      string `json:"key"`
	DocCount int64  `json:"doc_count"`
}

// TermsAgg is a terms aggregation result. SumOtherDocCount counts documents
// whose value did not make the returned buckets.
type TermsAgg struct {
	SumOtherDocCount int64        `json:"sum_other_doc_count"`
	Buckets          []TermBucket `json:"buckets"`
}

// CountBucket is one positional filters bucket.
type CountBucket struct {
	DocCount int64 `json:"doc_count"`
}

// FiltersAgg is an anonymous filters aggregation result.
type FiltersAgg struct {
	Buckets []CountBucket `json:"buckets"`
}

// StatsAgg is a stats aggregation result; Elasticsearch reports null for
// min/max/avg when nothing matched.
type StatsAgg struct {
	Count int64    `json:"count"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Avg   *float64 `json:"avg"`
	Sum   *float64 `json:"sum"`
}

// FacetAggregations is the typed aggregations section of a facet response.
type FacetAggregations struct {
	Categories    TermsAgg   `json:"categories"`
	Manufacturers TermsAgg   `json:"manufacturers"`
	PriceRanges   FiltersAgg `json:"price_ranges"`
	PriceStats    StatsAgg   `json:"price_stats"`
}

// DecodeFacets decodes the aggregations section of a facet response.
func DecodeFacets(raw json.RawMessage) (FacetAggregations, error) {
	var aggs FacetAggregations
	if len(raw) == 0 {
		return aggs, fmt.Errorf("search: facet response has no aggregations")
	}
	if err := json.Unmarshal(raw, &aggs); err != nil {
		return aggs, fmt.Errorf("search: decode aggregations: %w", err)
	}
	return aggs, nil
}
