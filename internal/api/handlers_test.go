package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-catalog-search/internal/cache"
	"go-catalog-search/internal/catalog"
	"go-catalog-search/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

type fakeCatalog struct {
	item        models.Item
	page        models.ItemsPage
	suggestions []string
	facets      models.FacetsResponse
	removed     models.Item
	err         error

	// onGet runs inside GetItem, between the cache miss and the back-fill.
	onGet func()

	getCalls   int
	lastList   catalog.ListParams
	lastAdv    catalog.AdvancedParams
	lastUpdate models.ItemInput
}

func (f *fakeCatalog) AddItem(_ context.Context, in models.ItemInput) (models.Item, error) {
	if f.err != nil {
		return models.Item{}, f.err
	}
	return f.item, nil
}

func (f *fakeCatalog) GetItem(_ context.Context, id string) (models.Item, error) {
	f.getCalls++
	if f.onGet != nil {
		f.onGet()
	}
	return f.item, f.err
}

func (f *fakeCatalog) UpdateItem(_ context.Context, id string, in models.ItemInput) (models.Item, error) {
	f.lastUpdate = in
	return f.item, f.err
}

func (f *fakeCatalog) DeleteItem(context.Context, string) (models.Item, error) {
	return f.removed, f.err
}

func (f *fakeCatalog) ListItems(_ context.Context, p catalog.ListParams) (models.ItemsPage, error) {
	f.lastList = p
	return f.page, f.err
}

func (f *fakeCatalog) FullTextSearch(context.Context, catalog.FullTextParams) (models.ItemsPage, error) {
	return f.page, f.err
}

func (f *fakeCatalog) AdvancedSearch(_ context.Context, p catalog.AdvancedParams) (models.ItemsPage, error) {
	f.lastAdv = p
	return f.page, f.err
}

func (f *fakeCatalog) Autocomplete(context.Context, string, string) ([]string, error) {
	return f.suggestions, f.err
}

func (f *fakeCatalog) Facets(context.Context, catalog.FacetParams) (models.FacetsResponse, error) {
	return f.facets, f.err
}

type fakeCache struct {
	items       map[string]models.Item
	gens        map[string]int64
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string]models.Item{}, gens: map[string]int64{}}
}

func (f *fakeCache) GetItem(_ context.Context, id string) (*models.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return &item, nil
}

func (f *fakeCache) Generation(_ context.Context, id string) (int64, error) {
	return f.gens[id], nil
}

func (f *fakeCache) Backfill(_ context.Context, item *models.Item, gen int64) error {
	if f.gens[item.ID] != gen {
		return cache.ErrStale
	}
	f.items[item.ID] = *item
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, id string) error {
	f.invalidated = append(f.invalidated, id)
	f.gens[id]++
	delete(f.items, id)
	return nil
}

type fakeQueue struct {
	err    error
	events []models.ItemEvent
}

func (f *fakeQueue) PublishEvent(_ context.Context, e models.ItemEvent) error {
	f.events = append(f.events, e)
	return f.err
}

type fakeReports struct {
	days []models.StockDay
	err  error
}

func (f *fakeReports) GetStockReport(context.Context) ([]models.StockDay, error) {
	return f.days, f.err
}

func (f *fakeReports) RefreshMaterializedView(context.Context) error { return f.err }

type fakeHealth struct{ err error }

func (f fakeHealth) Ping(context.Context) error { return f.err }

// --- Helpers ---

type env struct {
	catalog *fakeCatalog
	cache   *fakeCache
	queue   *fakeQueue
	reports *fakeReports
	mux     *http.ServeMux
}

func newEnv() *env {
	e := &env{
		catalog: &fakeCatalog{},
		cache:   newFakeCache(),
		queue:   &fakeQueue{},
		reports: &fakeReports{},
		mux:     http.NewServeMux(),
	}
	h := &Handler{Catalog: e.catalog, Cache: e.cache, Publisher: e.queue, Reports: e.reports, Health: fakeHealth{}}
	h.RegisterRoutes(e.mux)
	return e
}

func (e *env) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

var shoes = models.Item{ID: "i-1", Product: "Red Shoes", Color: "red", Category: "shoes", Manufacturer: "Acme", Price: 60, Total: 5}

// --- Tests ---

func TestAddItem_Accepted(t *testing.T) {
	e := newEnv()
	e.catalog.item = shoes

	rec := e.do(http.MethodPost, "/v1/items", `{"product":"Red Shoes","price":60,"total":5}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "i-1", body["id"])
	assert.NotEmpty(t, body["message"])

	require.Len(t, e.queue.events, 1)
	ev := e.queue.events[0]
	assert.Equal(t, models.EventCreated, ev.Kind)
	assert.Equal(t, 5, ev.Delta)
	assert.NotEmpty(t, ev.EventID)
}

func TestAddItem_BadJSON(t *testing.T) {
	e := newEnv()
	rec := e.do(http.MethodPost, "/v1/items", `{"price":"free"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, e.queue.events)
}

func TestAddItem_PublishFailureStillAccepted(t *testing.T) {
	e := newEnv()
	e.catalog.item = shoes
	e.queue.err = errors.New("broker down")

	rec := e.do(http.MethodPost, "/v1/items", `{}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &catalog.ValidationError{Field: "page", Reason: "not a number"}, http.StatusBadRequest},
		{"not found", catalog.ErrNotFound, http.StatusNotFound},
		{"conflict", catalog.ErrConflict, http.StatusConflict},
		{"operational", &catalog.OperationalError{Op: "list", Err: errors.New("secret detail")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			e.catalog.err = tt.err

			rec := e.do(http.MethodGet, "/v1/items/abc", "")
			assert.Equal(t, tt.want, rec.Code)
			assert.NotContains(t, rec.Body.String(), "secret detail")
		})
	}
}

func TestValidationMessageNamesField(t *testing.T) {
	e := newEnv()
	e.catalog.err = &catalog.ValidationError{Field: "maxPrice", Reason: `not a number: "lots"`}

	rec := e.do(http.MethodGet, "/v1/search/advanced?maxPrice=lots", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "maxPrice")
}

func TestGetItem_CacheMissThenHit(t *testing.T) {
	e := newEnv()
	e.catalog.item = shoes

	rec := e.do(http.MethodGet, "/v1/items/i-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	rec = e.do(http.MethodGet, "/v1/items/i-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, e.catalog.getCalls)

	var got models.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, shoes, got)
}

func TestUpdateItem_InvalidatesAndPublishes(t *testing.T) {
	e := newEnv()
	e.cache.items["i-1"] = shoes
	updated := shoes
	updated.Total = 3
	e.catalog.item = updated

	rec := e.do(http.MethodPatch, "/v1/items/i-1", `{"total":2}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.NotNil(t, e.catalog.lastUpdate.Total)
	assert.Equal(t, 2, *e.catalog.lastUpdate.Total)
	assert.Equal(t, []string{"i-1"}, e.cache.invalidated)

	require.Len(t, e.queue.events, 1)
	assert.Equal(t, models.EventUpdated, e.queue.events[0].Kind)
	assert.Equal(t, -2, e.queue.events[0].Delta)
	assert.Equal(t, 3, e.queue.events[0].TotalAfter)
}

func TestUpdateItem_FailureDoesNotPublish(t *testing.T) {
	e := newEnv()
	e.catalog.err = catalog.ErrConflict

	rec := e.do(http.MethodPatch, "/v1/items/i-1", `{"total":2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, e.queue.events)
	assert.Empty(t, e.cache.invalidated)
}

func TestDeleteItem_PublishesUnitsRemoved(t *testing.T) {
	e := newEnv()
	e.catalog.removed = shoes

	rec := e.do(http.MethodDelete, "/v1/items/i-1", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"i-1"}, e.cache.invalidated)

	require.Len(t, e.queue.events, 1)
	ev := e.queue.events[0]
	assert.Equal(t, models.EventDeleted, ev.Kind)
	assert.Equal(t, "i-1", ev.ItemID)
	assert.Equal(t, -shoes.Total, ev.Delta)
	assert.Zero(t, ev.TotalAfter)
}

func TestDeleteItem_UnknownIDPublishesNothing(t *testing.T) {
	e := newEnv()

	rec := e.do(http.MethodDelete, "/v1/items/i-9", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, e.queue.events)
}

func TestDeleteItem_Conflict(t *testing.T) {
	e := newEnv()
	e.catalog.err = catalog.ErrConflict

	rec := e.do(http.MethodDelete, "/v1/items/i-1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, e.queue.events)
}

func TestGetItem_WriteDuringReadSkipsBackfill(t *testing.T) {
	e := newEnv()
	e.catalog.item = shoes
	// A concurrent update lands after the miss and before the back-fill.
	e.catalog.onGet = func() {
		e.catalog.onGet = nil
		e.cache.Invalidate(context.Background(), "i-1")
	}

	rec := e.do(http.MethodGet, "/v1/items/i-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.NotContains(t, e.cache.items, "i-1")

	rec = e.do(http.MethodGet, "/v1/items/i-1", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Contains(t, e.cache.items, "i-1")
	assert.Equal(t, 2, e.catalog.getCalls)
}

func TestListItems_PassesFilters(t *testing.T) {
	e := newEnv()
	e.catalog.page = models.ItemsPage{Items: []models.Item{shoes}, Total: 1}

	rec := e.do(http.MethodGet, "/v1/items?category=shoes&manufacturer=Acme&product=Re&page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, catalog.ListParams{Category: "shoes", Manufacturer: "Acme", Product: "Re", Page: "2"}, e.catalog.lastList)

	var page models.ItemsPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)
}

func TestAdvancedSearch_PassesParams(t *testing.T) {
	e := newEnv()

	rec := e.do(http.MethodGet, "/v1/search/advanced?q=lamp&minPrice=10&maxPrice=20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, catalog.AdvancedParams{Query: "lamp", MinPrice: "10", MaxPrice: "20"}, e.catalog.lastAdv)
}

func TestAutocomplete_EmptyIsArray(t *testing.T) {
	e := newEnv()
	e.catalog.suggestions = []string{}

	rec := e.do(http.MethodGet, "/v1/autocomplete?prefix=zz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"suggestions":[]}`, rec.Body.String())
}

func TestStockDashboard(t *testing.T) {
	e := newEnv()
	e.reports.days = []models.StockDay{{Date: "2026-10-18", UnitsAdded: 7}}

	rec := e.do(http.MethodGet, "/v1/dashboard/stock", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2026-10-18")

	e.reports.err = errors.New("relation does not exist")
	rec = e.do(http.MethodGet, "/v1/dashboard/stock", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthz(t *testing.T) {
	e := newEnv()
	rec := e.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	h := &Handler{Health: fakeHealth{err: errors.New("no route")}}
	rec = httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
