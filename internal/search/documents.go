package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go-catalog-search/internal/metrics"
	"go-catalog-search/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrNotFound is returned by GetItem when no document has the ID.
	ErrNotFound = errors.New("search: document not found")
	// ErrVersionConflict is returned when a conditional write loses a race.
	ErrVersionConflict = errors.New("search: version conflict")
)

// Document is a stored item plus the version token Elasticsearch assigned
// to the copy that was read. Writing it back with ReplaceItem succeeds only
// if nobody wrote the document in between.
type Document struct {
	Item        models.Item
	SeqNo       int64
	PrimaryTerm int64
}

type getResponse struct {
	Found       bool            `json:"found"`
	SeqNo       int64           `json:"_seq_no"`
	PrimaryTerm int64           `json:"_primary_term"`
	Source      json.RawMessage `json:"_source"`
}

// GetItem reads one item with its version token.
func (c *Client) GetItem(ctx context.Context, id string) (*Document, error) {
	timer := prometheus.NewTimer(metrics.IndexRequestDuration.WithLabelValues("get"))
	defer timer.ObserveDuration()

	res, err := c.es.Get(c.index, id, c.es.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("search: get request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search: get error [%s]: %s", res.Status(), body)
	}

	var gr getResponse
	if err := json.NewDecoder(res.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("search: decode get response: %w", err)
	}
	if !gr.Found {
		return nil, ErrNotFound
	}

	doc := &Document{SeqNo: gr.SeqNo, PrimaryTerm: gr.PrimaryTerm}
	if err := json.Unmarshal(gr.Source, &doc.Item); err != nil {
		return nil, fmt.Errorf("search: decode item %s: %w", id, err)
	}
	return doc, nil
}

// CreateItem writes a new item. It fails with ErrVersionConflict if a
// document with the same ID already exists.
func (c *Client) CreateItem(ctx context.Context, item models.Item) error {
	return c.write(ctx, "create", item,
		c.es.Index.WithOpType("create"),
	)
}

// ReplaceItem overwrites an item only if the stored copy still carries the
// version token of doc.
func (c *Client) ReplaceItem(ctx context.Context, doc Document) error {
	return c.write(ctx, "replace", doc.Item,
		c.es.Index.WithIfSeqNo(int(doc.SeqNo)),
		c.es.Index.WithIfPrimaryTerm(int(doc.PrimaryTerm)),
	)
}

func (c *Client) write(ctx context.Context, op string, item models.Item, opts ...func(*esapi.IndexRequest)) error {
	timer := prometheus.NewTimer(metrics.IndexRequestDuration.WithLabelValues(op))
	defer timer.ObserveDuration()

	body, err := json.Marshal(item)
	if err != nil {
		return err
	}

	opts = append(opts,
		c.es.Index.WithDocumentID(item.ID),
		c.es.Index.WithRefresh("wait_for"),
		c.es.Index.WithContext(ctx),
	)
	res, err := c.es.Index(c.index, bytes.NewReader(body), opts...)
	if err != nil {
		return fmt.Errorf("search: %s request: %w", op, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusConflict {
		return ErrVersionConflict
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("search: %s error [%s]: %s", op, res.Status(), body)
	}
	return nil
}

// DeleteItem removes the stored copy of doc if it still carries doc's
// version token. A document that is already gone is not an error.
func (c *Client) DeleteItem(ctx context.Context, doc Document) error {
	timer := prometheus.NewTimer(metrics.IndexRequestDuration.WithLabelValues("delete"))
	defer timer.ObserveDuration()

	res, err := c.es.Delete(c.index, doc.Item.ID,
		c.es.Delete.WithIfSeqNo(int(doc.SeqNo)),
		c.es.Delete.WithIfPrimaryTerm(int(doc.PrimaryTerm)),
		c.es.Delete.WithRefresh("wait_for"),
		c.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("search: delete request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.StatusCode == http.StatusConflict {
		return ErrVersionConflict
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("search: delete error [%s]: %s", res.Status(), body)
	}
	return nil
}
