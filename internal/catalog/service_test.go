package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"go-catalog-search/internal/models"
	"go-catalog-search/internal/search"

	"github.com/stretchr/testify/require"
)

// --- Fakes ---

type indexCall struct {
	op  string
	req search.Request
}

type fakeIndex struct {
	result *search.Result
	err    error
	calls  []indexCall
}

func (f *fakeIndex) Search(_ context.Context, op string, req search.Request) (*search.Result, error) {
	f.calls = append(f.calls, indexCall{op: op, req: req})
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &search.Result{}, nil
	}
	return f.result, nil
}

func (f *fakeIndex) lastCall(t *testing.T) indexCall {
	t.Helper()
	require.NotEmpty(t, f.calls, "index was not queried")
	return f.calls[len(f.calls)-1]
}

// memStore keeps documents in memory and versions them the way
// Elasticsearch does: every write bumps the sequence number.
type memStore struct {
	docs map[string]search.Document
	seq  int64

	createErr  error
	getErr     error
	replaceErr error
	deleteErr  error
	deleted    []string
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]search.Document{}}
}

func (m *memStore) GetItem(_ context.Context, id string) (*search.Document, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, search.ErrNotFound
	}
	return &doc, nil
}

func (m *memStore) CreateItem(_ context.Context, item models.Item) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.docs[item.ID]; ok {
		return search.ErrVersionConflict
	}
	m.seq++
	m.docs[item.ID] = search.Document{Item: item, SeqNo: m.seq, PrimaryTerm: 1}
	return nil
}

func (m *memStore) ReplaceItem(_ context.Context, doc search.Document) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	cur, ok := m.docs[doc.Item.ID]
	if !ok || cur.SeqNo != doc.SeqNo || cur.PrimaryTerm != doc.PrimaryTerm {
		return search.ErrVersionConflict
	}
	m.seq++
	m.docs[doc.Item.ID] = search.Document{Item: doc.Item, SeqNo: m.seq, PrimaryTerm: 1}
	return nil
}

func (m *memStore) DeleteItem(_ context.Context, doc search.Document) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	cur, ok := m.docs[doc.Item.ID]
	if !ok {
		return nil
	}
	if cur.SeqNo != doc.SeqNo || cur.PrimaryTerm != doc.PrimaryTerm {
		return search.ErrVersionConflict
	}
	m.deleted = append(m.deleted, doc.Item.ID)
	delete(m.docs, doc.Item.ID)
	return nil
}

// --- Helpers ---

func hitsOf(t *testing.T, items ...models.Item) []search.Hit {
	t.Helper()
	hits := make([]search.Hit, 0, len(items))
	for _, it := range items {
		b, err := json.Marshal(it)
		require.NoError(t, err)
		hits = append(hits, search.Hit{ID: it.ID, Source: b})
	}
	return hits
}

func queryJSON(t *testing.T, q search.Query) string {
	t.Helper()
	b, err := json.Marshal(q)
	require.NoError(t, err)
	return string(b)
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
