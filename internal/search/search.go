// Package search provides the Elasticsearch client behind the catalog:
// query DSL builders, the facet aggregation request and its typed decoding,
// item document reads/writes, and index bootstrap.
//
// The index holds one document per item keyed by the item ID. The product
// field is mapped as search_as_you_type so prefix queries can use its
// _2gram/_3gram sub-fields; category and manufacturer are keywords.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"go-catalog-search/internal/metrics"

	"github.com/elastic/elastic-transport-go/v8/elastictransport"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultIndex is the index name used when none is configured.
const DefaultIndex = "items"

// Config holds the connection settings.
type Config struct {
	URL      string
	Username string
	Password string
	Index    string

	// Debug logs every request/response pair as JSON on stderr.
	Debug bool

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Client wraps the Elasticsearch client with catalog-level operations.
type Client struct {
	es    *elasticsearch.Client
	index string
}

// New creates an Elasticsearch client. It does not contact the cluster.
func New(cfg Config) (*Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	}
	if cfg.Debug {
		esCfg.Logger = &elastictransport.JSONLogger{
			Output:             os.Stderr,
			EnableRequestBody:  true,
			EnableResponseBody: true,
		}
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("search: create client: %w", err)
	}

	index := cfg.Index
	if index == "" {
		index = DefaultIndex
	}
	return &Client{es: es, index: index}, nil
}

// Index returns the name of the index this client reads and writes.
func (c *Client) Index() string { return c.index }

// Ping checks that the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: ping: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("search: ping error [%s]", res.Status())
	}
	return nil
}

// Request is a search request body. A nil From/Size leaves paging to the
// index defaults.
type Request struct {
	Query          Query
	From           *int
	Size           *int
	Aggs           map[string]any
	TrackTotalHits bool
}

func (r Request) body() map[string]any {
	body := map[string]any{"query": r.Query}
	if r.From != nil {
		body["from"] = *r.From
	}
	if r.Size != nil {
		body["size"] = *r.Size
	}
	if len(r.Aggs) > 0 {
		body["aggs"] = r.Aggs
	}
	if r.TrackTotalHits {
		body["track_total_hits"] = true
	}
	return body
}

// Hit is one ranked document.
type Hit struct {
	ID     string
	Source json.RawMessage
}

// Result is the decoded part of a search response the catalog needs.
type Result struct {
	Total        int64
	Hits         []Hit
	Aggregations json.RawMessage
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations json.RawMessage `json:"aggregations"`
}

// Search runs req against the items index. op labels the request in metrics.
func (c *Client) Search(ctx context.Context, op string, req Request) (*Result, error) {
	timer := prometheus.NewTimer(metrics.IndexRequestDuration.WithLabelValues(op))
	defer timer.ObserveDuration()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req.body()); err != nil {
		return nil, fmt.Errorf("search: encode %s query: %w", op, err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %s request: %w", op, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search: %s error [%s]: %s", op, res.Status(), body)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("search: decode %s response: %w", op, err)
	}

	out := &Result{
		Total:        sr.Hits.Total.Value,
		Hits:         make([]Hit, 0, len(sr.Hits.Hits)),
		Aggregations: sr.Aggregations,
	}
	for _, h := range sr.Hits.Hits {
		out.Hits = append(out.Hits, Hit{ID: h.ID, Source: h.Source})
	}
	return out, nil
}
