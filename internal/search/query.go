package search

// Query is one node of the Elasticsearch query DSL.
type Query map[string]any

// Document field names.
const (
	FieldID           = "id"
	FieldProduct      = "product"
	FieldColor        = "color"
	FieldCategory     = "category"
	FieldManufacturer = "manufacturer"
	FieldPrice        = "price"
	FieldTotal        = "total"
)

// Fuzzy text matching limits.
const (
	FuzzyPrefixLength  = 1
	FuzzyMaxExpansions = 50
)

// productPrefixFields is the search_as_you_type field family of product.
var productPrefixFields = []string{
	FieldProduct,
	FieldProduct + "._2gram",
	FieldProduct + "._3gram",
}

// weightedFields drive full-text relevance: the product name counts double,
// the exact-match labels one and a half, color once.
var weightedFields = []string{
	FieldProduct + "^2.0",
	FieldCategory + "^1.5",
	FieldManufacturer + "^1.5",
	FieldColor + "^1.0",
}

// MatchAll matches every document.
func MatchAll() Query {
	return Query{"match_all": map[string]any{}}
}

// Term is an exact match on a keyword field.
func Term(field, value string) Query {
	return Query{"term": map[string]any{field: value}}
}

// ProductPrefix matches text as a phrase prefix across the product field family.
func ProductPrefix(text string) Query {
	return Query{"multi_match": map[string]any{
		"query":  text,
		"type":   "bool_prefix",
		"fields": productPrefixFields,
	}}
}

// WeightedFuzzy matches text against the weighted fields; the best single
// field wins.
func WeightedFuzzy(text, fuzziness string) Query {
	return Query{"multi_match": map[string]any{
		"query":          text,
		"type":           "best_fields",
		"fields":         weightedFields,
		"fuzziness":      fuzziness,
		"prefix_length":  FuzzyPrefixLength,
		"max_expansions": FuzzyMaxExpansions,
	}}
}

// PriceRange bounds price inclusively. Returns nil when both bounds are nil.
func PriceRange(min, max *float64) Query {
	if min == nil && max == nil {
		return nil
	}
	bounds := map[string]any{}
	if min != nil {
		bounds["gte"] = *min
	}
	if max != nil {
		bounds["lte"] = *max
	}
	return Query{"range": map[string]any{FieldPrice: bounds}}
}

// CaseInsensitivePrefix matches keyword values starting with prefix, ignoring case.
func CaseInsensitivePrefix(field, prefix string) Query {
	return Query{"prefix": map[string]any{
		field: map[string]any{
			"value":            prefix,
			"case_insensitive": true,
		},
	}}
}

// PhrasePrefix matches an analyzed text field by phrase prefix.
func PhrasePrefix(field, text string) Query {
	return Query{"match_phrase_prefix": map[string]any{field: text}}
}

// BoolQuery accumulates clauses of a bool query.
type BoolQuery struct {
	Must               []Query
	Filter             []Query
	Should             []Query
	MinimumShouldMatch int
}

// HasClauses reports whether any clause was added.
func (b *BoolQuery) HasClauses() bool {
	return len(b.Must)+len(b.Filter)+len(b.Should) > 0
}

// Build renders the bool query, or match_all when it has no clauses.
func (b *BoolQuery) Build() Query {
	if !b.HasClauses() {
		return MatchAll()
	}
	inner := map[string]any{}
	if len(b.Must) > 0 {
		inner["must"] = b.Must
	}
	if len(b.Filter) > 0 {
		inner["filter"] = b.Filter
	}
	if len(b.Should) > 0 {
		inner["should"] = b.Should
		if b.MinimumShouldMatch > 0 {
			inner["minimum_should_match"] = b.MinimumShouldMatch
		}
	}
	return Query{"bool": inner}
}

// ListQuery is the listing query: mandatory exact filters on category and
// manufacturer plus a product prefix match.
func ListQuery(category, manufacturer, product string) Query {
	var b BoolQuery
	if category != "" {
		b.Must = append(b.Must, Term(FieldCategory, category))
	}
	if manufacturer != "" {
		b.Must = append(b.Must, Term(FieldManufacturer, manufacturer))
	}
	if product != "" {
		b.Must = append(b.Must, ProductPrefix(product))
	}
	return b.Build()
}

// FullTextQuery matches one query string against the weighted fields.
func FullTextQuery(text, fuzziness string) Query {
	if text == "" {
		return MatchAll()
	}
	return WeightedFuzzy(text, fuzziness)
}

// AdvancedParams are the already-parsed inputs of an advanced search.
type AdvancedParams struct {
	Text         string
	Fuzziness    string
	Category     string
	Manufacturer string
	MinPrice     *float64
	MaxPrice     *float64
}

// AdvancedQuery scores on the fuzzy text clause and filters, without
// scoring, on category, manufacturer and price.
func AdvancedQuery(p AdvancedParams) Query {
	var b BoolQuery
	if p.Text != "" {
		b.Must = append(b.Must, WeightedFuzzy(p.Text, p.Fuzziness))
	}
	if p.Category != "" {
		b.Filter = append(b.Filter, Term(FieldCategory, p.Category))
	}
	if p.Manufacturer != "" {
		b.Filter = append(b.Filter, Term(FieldManufacturer, p.Manufacturer))
	}
	if r := PriceRange(p.MinPrice, p.MaxPrice); r != nil {
		b.Filter = append(b.Filter, r)
	}
	return b.Build()
}

// AutocompleteQuery should-matches prefix on every suggestion source.
func AutocompleteQuery(prefix string) Query {
	b := BoolQuery{
		Should: []Query{
			ProductPrefix(prefix),
			CaseInsensitivePrefix(FieldManufacturer, prefix),
			CaseInsensitivePrefix(FieldCategory, prefix),
			PhrasePrefix(FieldColor, prefix),
		},
		MinimumShouldMatch: 1,
	}
	return b.Build()
}
