package catalog

import (
	"context"
	"strconv"
	"strings"

	"go-catalog-search/internal/models"
	"go-catalog-search/internal/search"
)

// Suggestion limits.
const (
	DefaultSuggestionLimit = 5
	MaxSuggestionLimit     = 20
)

// ParseLimit parses the requested suggestion count. Anything that is not
// a number in [1, MaxSuggestionLimit] falls back to DefaultSuggestionLimit.
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > MaxSuggestionLimit {
		return DefaultSuggestionLimit
	}
	return n
}

// Autocomplete returns up to limit distinct suggestions for prefix, in the
// order they were found.
func (s *Service) Autocomplete(ctx context.Context, prefix, rawLimit string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, invalid("prefix", "is required")
	}
	limit := ParseLimit(rawLimit)

	// Over-fetch: hits whose fields fail the prefix check are skipped.
	size := limit * 2
	res, err := s.index.Search(ctx, "autocomplete", search.Request{
		Query: search.AutocompleteQuery(prefix),
		Size:  &size,
	})
	if err != nil {
		return nil, operational("autocomplete", err)
	}

	items, err := decodeItems(res.Hits)
	if err != nil {
		return nil, operational("autocomplete", err)
	}
	return collectSuggestions(items, prefix, limit), nil
}

// collectSuggestions walks hits in order, taking product, manufacturer and
// category values that start with prefix and color values that contain it.
func collectSuggestions(items []models.Item, prefix string, limit int) []string {
	needle := strings.ToLower(prefix)
	seen := make(map[string]struct{})
	out := make([]string, 0, limit)

	add := func(candidate string, ok func(string, string) bool) {
		if len(out) >= limit || candidate == "" {
			return
		}
		if !ok(strings.ToLower(candidate), needle) {
			return
		}
		if _, dup := seen[candidate]; dup {
			return
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}

	for _, it := range items {
		if len(out) >= limit {
			break
		}
		add(it.Product, strings.HasPrefix)
		add(it.Manufacturer, strings.HasPrefix)
		add(it.Category, strings.HasPrefix)
		add(it.Color, strings.Contains)
	}
	return out
}
