package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go-catalog-search/internal/models"
	"go-catalog-search/internal/search"
)

// ListParams filters the item listing. All fields are optional.
type ListParams struct {
	Category     string
	Manufacturer string
	Product      string
	Page         string
}

// FullTextParams is a full-text search request.
type FullTextParams struct {
	Query     string
	Fuzziness string
	Page      string
}

// AdvancedParams combines an optional text query with filters.
// Prices arrive as raw strings and are parsed here.
type AdvancedParams struct {
	Query        string
	Category     string
	Manufacturer string
	MinPrice     string
	MaxPrice     string
	Page         string
}

// ListItems lists items by exact category/manufacturer and product prefix.
func (s *Service) ListItems(ctx context.Context, p ListParams) (models.ItemsPage, error) {
	page, err := ParsePage(p.Page)
	if err != nil {
		return models.ItemsPage{}, err
	}
	q := search.ListQuery(
		strings.TrimSpace(p.Category),
		strings.TrimSpace(p.Manufacturer),
		strings.TrimSpace(p.Product),
	)
	return s.execute(ctx, "list", q, page)
}

// FullTextSearch runs a weighted, typo-tolerant match of one query string.
func (s *Service) FullTextSearch(ctx context.Context, p FullTextParams) (models.ItemsPage, error) {
	text := strings.TrimSpace(p.Query)
	if text == "" {
		return models.ItemsPage{}, invalid("query", "is required")
	}
	fuzziness, err := ParseFuzziness(p.Fuzziness)
	if err != nil {
		return models.ItemsPage{}, err
	}
	page, err := ParsePage(p.Page)
	if err != nil {
		return models.ItemsPage{}, err
	}
	return s.execute(ctx, "full_text", search.FullTextQuery(text, fuzziness), page)
}

// AdvancedSearch scores on the optional text query and filters on category,
// manufacturer and price range.
func (s *Service) AdvancedSearch(ctx context.Context, p AdvancedParams) (models.ItemsPage, error) {
	q, err := advancedQuery(p.Query, p.Category, p.Manufacturer, p.MinPrice, p.MaxPrice)
	if err != nil {
		return models.ItemsPage{}, err
	}
	page, err := ParsePage(p.Page)
	if err != nil {
		return models.ItemsPage{}, err
	}
	return s.execute(ctx, "advanced", q, page)
}

func advancedQuery(text, category, manufacturer, minRaw, maxRaw string) (search.Query, error) {
	minPrice, err := ParsePriceBound("minPrice", minRaw)
	if err != nil {
		return nil, err
	}
	maxPrice, err := ParsePriceBound("maxPrice", maxRaw)
	if err != nil {
		return nil, err
	}
	return search.AdvancedQuery(search.AdvancedParams{
		Text:         strings.TrimSpace(text),
		Fuzziness:    DefaultFuzziness,
		Category:     strings.TrimSpace(category),
		Manufacturer: strings.TrimSpace(manufacturer),
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
	}), nil
}

func (s *Service) execute(ctx context.Context, op string, q search.Query, page Page) (models.ItemsPage, error) {
	req := search.Request{Query: q}
	page.apply(&req)

	res, err := s.index.Search(ctx, op, req)
	if err != nil {
		return models.ItemsPage{}, operational(op, err)
	}

	items, err := decodeItems(res.Hits)
	if err != nil {
		return models.ItemsPage{}, operational(op, err)
	}
	return models.ItemsPage{Items: items, Total: res.Total}, nil
}

func decodeItems(hits []search.Hit) ([]models.Item, error) {
	items := make([]models.Item, 0, len(hits))
	for _, h := range hits {
		var it models.Item
		if err := json.Unmarshal(h.Source, &it); err != nil {
			return nil, fmt.Errorf("decode hit %s: %w", h.ID, err)
		}
		if it.ID == "" {
			it.ID = h.ID
		}
		items = append(items, it)
	}
	return items, nil
}
