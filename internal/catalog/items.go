package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go-catalog-search/internal/models"
	"go-catalog-search/internal/search"
)

// MaxTotal is the largest stock count the index can hold (total is
// mapped as a 32-bit integer).
const MaxTotal = math.MaxInt32

// AddItem validates in, assigns a fresh ID and stores the item.
func (s *Service) AddItem(ctx context.Context, in models.ItemInput) (models.Item, error) {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{search.FieldProduct, in.Product},
		{search.FieldColor, in.Color},
		{search.FieldCategory, in.Category},
		{search.FieldManufacturer, in.Manufacturer},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if in.Price == nil {
		missing = append(missing, search.FieldPrice)
	}
	if in.Total == nil {
		missing = append(missing, search.FieldTotal)
	}
	if len(missing) > 0 {
		return models.Item{}, invalid(strings.Join(missing, ","), "is required")
	}
	if *in.Price < 0 {
		return models.Item{}, invalid(search.FieldPrice, "must not be negative, got %v", *in.Price)
	}
	if *in.Total < 0 || *in.Total > MaxTotal {
		return models.Item{}, invalid(search.FieldTotal, "must be between 0 and %d, got %d", MaxTotal, *in.Total)
	}

	item := models.Item{
		ID:           s.newID(),
		Product:      in.Product,
		Color:        in.Color,
		Category:     in.Category,
		Manufacturer: in.Manufacturer,
		Price:        *in.Price,
		Total:        *in.Total,
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return models.Item{}, operational("add_item", err)
	}
	return item, nil
}

// GetItem reads one item by ID.
func (s *Service) GetItem(ctx context.Context, id string) (models.Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Item{}, invalid("id", "is required")
	}
	doc, err := s.store.GetItem(ctx, id)
	if errors.Is(err, search.ErrNotFound) {
		return models.Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return models.Item{}, operational("get_item", err)
	}
	return doc.Item, nil
}

// UpdateItem subtracts the delta in in.Total from the stored total. All
// other fields of in are ignored. The write is conditional on the version
// read, so a concurrent update makes this one fail with ErrConflict instead
// of losing a decrement. A delta larger than the stock on hand, or a
// restock past MaxTotal, is rejected.
func (s *Service) UpdateItem(ctx context.Context, id string, in models.ItemInput) (models.Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Item{}, invalid("id", "is required")
	}
	if in.Total == nil {
		return models.Item{}, invalid(search.FieldTotal, "delta is required")
	}
	delta := *in.Total

	doc, err := s.store.GetItem(ctx, id)
	if errors.Is(err, search.ErrNotFound) {
		return models.Item{}, invalid("id", "no item %q", id)
	}
	if err != nil {
		return models.Item{}, operational("update_item", err)
	}

	if delta > doc.Item.Total {
		return models.Item{}, invalid(search.FieldTotal,
			"insufficient stock: %d on hand, %d requested", doc.Item.Total, delta)
	}
	// Stored totals are within [0, MaxTotal], so neither side of this
	// comparison can overflow.
	if delta < doc.Item.Total-MaxTotal {
		return models.Item{}, invalid(search.FieldTotal,
			"restock by %d would exceed %d units", delta, MaxTotal)
	}
	doc.Item.Total -= delta

	err = s.store.ReplaceItem(ctx, *doc)
	if errors.Is(err, search.ErrVersionConflict) {
		return models.Item{}, fmt.Errorf("%w: %s", ErrConflict, id)
	}
	if err != nil {
		return models.Item{}, operational("update_item", err)
	}
	return doc.Item, nil
}

// DeleteItem removes an item and returns the copy that was removed, so the
// caller can account for the units that left stock with it. A missing item
// is not reported; the returned item is then zero. The delete is conditional
// on the version read, like UpdateItem.
func (s *Service) DeleteItem(ctx context.Context, id string) (models.Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Item{}, invalid("id", "is required")
	}

	doc, err := s.store.GetItem(ctx, id)
	if errors.Is(err, search.ErrNotFound) {
		return models.Item{}, nil
	}
	if err != nil {
		return models.Item{}, operational("delete_item", err)
	}

	err = s.store.DeleteItem(ctx, *doc)
	if errors.Is(err, search.ErrVersionConflict) {
		return models.Item{}, fmt.Errorf("%w: %s", ErrConflict, id)
	}
	if err != nil {
		return models.Item{}, operational("delete_item", err)
	}
	return doc.Item, nil
}
