package catalog

import (
	"context"

	"go-catalog-search/internal/models"
	"go-catalog-search/internal/search"
)

// Index executes structured queries and returns ranked hits with aggregations.
type Index interface {
	Search(ctx context.Context, op string, req search.Request) (*search.Result, error)
}

// Store reads and writes single item documents.
type Store interface {
	GetItem(ctx context.Context, id string) (*search.Document, error)
	CreateItem(ctx context.Context, item models.Item) error
	ReplaceItem(ctx context.Context, doc search.Document) error
	DeleteItem(ctx context.Context, doc search.Document) error
}
