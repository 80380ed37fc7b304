package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// itemsMapping returns the index body for the items index.
func itemsMapping() map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				FieldID:           map[string]any{"type": "keyword"},
				FieldProduct:      map[string]any{"type": "search_as_you_type", "analyzer": "standard"},
				FieldColor:        map[string]any{"type": "text", "analyzer": "standard"},
				FieldCategory:     map[string]any{"type": "keyword"},
				FieldPrice:        map[string]any{"type": "double"},
				FieldManufacturer: map[string]any{"type": "keyword"},
				FieldTotal:        map[string]any{"type": "integer"},
			},
		},
	}
}

// EnsureIndex creates the items index with its mapping if it does not exist.
// An existing index is left untouched.
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: index exists request: %w", err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		slog.Info("index already exists", "component", "search", "index", c.index)
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("search: index exists error [%s]", res.Status())
	}

	body, err := json.Marshal(itemsMapping())
	if err != nil {
		return err
	}

	res, err = c.es.Indices.Create(c.index,
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("search: create index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("search: create index error [%s]: %s", res.Status(), body)
	}

	slog.Info("index created", "component", "search", "index", c.index)
	return nil
}
