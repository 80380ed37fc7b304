package catalog

import (
	"context"
	"fmt"
	"math"

	"go-catalog-search/internal/models"
	"go-catalog-search/internal/search"
)

// FacetParams selects the document set to aggregate over.
type FacetParams struct {
	Query        string
	Category     string
	Manufacturer string
}

// categoryDisplayNames translates known category keys; unknown keys are shown raw.
var categoryDisplayNames = map[string]string{
	"electronics": "Electronics",
	"clothing":    "Clothing & Apparel",
	"shoes":       "Footwear",
	"home":        "Home & Kitchen",
	"sports":      "Sports & Outdoors",
	"toys":        "Toys & Games",
	"books":       "Books",
	"beauty":      "Beauty & Personal Care",
}

type priceBand struct {
	key   string
	from  *float64
	to    *float64
	label string
}

func bound(v float64) *float64 { return &v }

// priceBands are contiguous (from, to] bands covering every price.
var priceBands = []priceBand{
	{key: "*-50", to: bound(50), label: "Up to $50"},
	{key: "50-100", from: bound(50), to: bound(100), label: "$50 - $100"},
	{key: "100-300", from: bound(100), to: bound(300), label: "$100 - $300"},
	{key: "300-500", from: bound(300), to: bound(500), label: "$300 - $500"},
	{key: "500-1000", from: bound(500), to: bound(1000), label: "$500 - $1,000"},
	{key: "1000-2000", from: bound(1000), to: bound(2000), label: "$1,000 - $2,000"},
	{key: "2000-*", from: bound(2000), label: "More than $2,000"},
}

var priceBandLabels = func() map[string]string {
	m := make(map[string]string, len(priceBands))
	for _, b := range priceBands {
		m[b.key] = b.label
	}
	return m
}()

func searchBands() []search.Band {
	out := make([]search.Band, len(priceBands))
	for i, b := range priceBands {
		out[i] = search.Band{From: b.from, To: b.to}
	}
	return out
}

// Facets aggregates categories, manufacturers, price bands and price
// statistics over the documents matching p.
func (s *Service) Facets(ctx context.Context, p FacetParams) (models.FacetsResponse, error) {
	q, err := advancedQuery(p.Query, p.Category, p.Manufacturer, "", "")
	if err != nil {
		return models.FacetsResponse{}, err
	}

	size := 0
	res, err := s.index.Search(ctx, "facets", search.Request{
		Query:          q,
		Size:           &size,
		Aggs:           search.FacetAggs(searchBands()),
		TrackTotalHits: true,
	})
	if err != nil {
		return models.FacetsResponse{}, operational("facets", err)
	}

	aggs, err := search.DecodeFacets(res.Aggregations)
	if err != nil {
		return models.FacetsResponse{}, operational("facets", err)
	}
	if len(aggs.PriceRanges.Buckets) != len(priceBands) {
		return models.FacetsResponse{}, operational("facets",
			fmt.Errorf("got %d price buckets, want %d", len(aggs.PriceRanges.Buckets), len(priceBands)))
	}

	return models.FacetsResponse{
		TotalDocuments:  res.Total,
		Categories:      termBuckets(aggs.Categories, categoryDisplayName),
		Manufacturers:   termBuckets(aggs.Manufacturers, nil),
		PriceRanges:     priceRangeBuckets(aggs.PriceRanges),
		PriceStatistics: priceStatistics(aggs.PriceStats),
	}, nil
}

func categoryDisplayName(key string) string {
	if name, ok := categoryDisplayNames[key]; ok {
		return name
	}
	return key
}

// termBuckets shapes a terms aggregation. The percentage denominator
// includes the documents folded into sum_other_doc_count.
func termBuckets(agg search.TermsAgg, display func(string) string) []models.FacetBucket {
	total := agg.SumOtherDocCount
	for _, b := range agg.Buckets {
		total += b.DocCount
	}

	out := make([]models.FacetBucket, 0, len(agg.Buckets))
	for _, b := range agg.Buckets {
		name := b.Key
		if display != nil {
			name = display(b.Key)
		}
		out = append(out, models.FacetBucket{
			Key:         b.Key,
			DisplayName: name,
			DocCount:    b.DocCount,
			Percentage:  percentage(b.DocCount, total),
		})
	}
	return out
}

// priceRangeBuckets pairs the positional buckets with the band table and
// drops empty bands. The denominator is the sum of the kept bands.
func priceRangeBuckets(agg search.FiltersAgg) []models.PriceRangeBucket {
	var total int64
	for _, b := range agg.Buckets {
		total += b.DocCount
	}

	out := make([]models.PriceRangeBucket, 0, len(priceBands))
	for i, b := range agg.Buckets {
		if b.DocCount == 0 {
			continue
		}
		band := priceBands[i]
		out = append(out, models.PriceRangeBucket{
			Key:         band.key,
			From:        band.from,
			To:          band.to,
			DocCount:    b.DocCount,
			Percentage:  percentage(b.DocCount, total),
			DisplayName: priceRangeLabel(band.key, band.from, band.to),
		})
	}
	return out
}

// priceRangeLabel returns the fixed label of a known band, or a generic one.
func priceRangeLabel(key string, from, to *float64) string {
	if label, ok := priceBandLabels[key]; ok {
		return label
	}
	switch {
	case from != nil && to != nil:
		return fmt.Sprintf("$%s - $%s", formatPrice(*from), formatPrice(*to))
	case from != nil:
		return fmt.Sprintf("More than $%s", formatPrice(*from))
	case to != nil:
		return fmt.Sprintf("Up to $%s", formatPrice(*to))
	default:
		return "Any price"
	}
}

func formatPrice(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func priceStatistics(st search.StatsAgg) models.PriceStatistics {
	out := models.PriceStatistics{
		Min:   finite(st.Min),
		Max:   finite(st.Max),
		Count: st.Count,
		Sum:   finite(st.Sum),
	}
	if avg := finite(st.Avg); avg != nil {
		r := round2(*avg)
		out.Avg = &r
	}
	return out
}

// percentage is count*100/total rounded to two decimals, or 0 when total is 0.
func percentage(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(count) * 100 / float64(total))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	x := *v
	return &x
}
