package models

// FacetsResponse is the client-facing breakdown of the matching document set.
type FacetsResponse struct {
	TotalDocuments  int64              `json:"totalDocuments"`
	Categories      []FacetBucket      `json:"categories"`
	Manufacturers   []FacetBucket      `json:"manufacturers"`
	PriceRanges     []PriceRangeBucket `json:"priceRanges"`
	PriceStatistics PriceStatistics    `json:"priceStatistics"`
}

// FacetBucket is one term value with its count.
type FacetBucket struct {
	Key         string  `json:"key"`
	DisplayName string  `json:"displayName"`
	DocCount    int64   `json:"docCount"`
	Percentage  float64 `json:"percentage"`
}

// PriceRangeBucket is one price band. From and To are nil at the open ends.
type PriceRangeBucket struct {
	Key         string   `json:"key"`
	From        *float64 `json:"from"`
	To          *float64 `json:"to"`
	DocCount    int64    `json:"docCount"`
	Percentage  float64  `json:"percentage"`
	DisplayName string   `json:"displayName"`
}

// PriceStatistics summarises the price field. Values are nil when the
// index reports nothing finite for them (e.g. no matching documents).
type PriceStatistics struct {
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Avg   *float64 `json:"avg"`
	Count int64    `json:"count"`
	Sum   *float64 `json:"sum"`
}

// StockDay is one row of the daily stock report.
type StockDay struct {
	Date         string `json:"date"`
	UnitsAdded   int64  `json:"units_added"`
	UnitsRemoved int64  `json:"units_removed"`
	ItemsCreated int64  `json:"items_created"`
	ItemsDeleted int64  `json:"items_deleted"`
}
