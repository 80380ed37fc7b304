package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go-catalog-search/internal/cache"
	"go-catalog-search/internal/catalog"
	"go-catalog-search/internal/metrics"
	"go-catalog-search/internal/models"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Dependency interfaces
//
// Each interface captures exactly the methods this package needs.
// Callers (main, tests) inject the real implementations or fakes.
// ---------------------------------------------------------------------------

// Catalog is the query engine and item store.
type Catalog interface {
	AddItem(ctx context.Context, in models.ItemInput) (models.Item, error)
	GetItem(ctx context.Context, id string) (models.Item, error)
	UpdateItem(ctx context.Context, id string, in models.ItemInput) (models.Item, error)
	DeleteItem(ctx context.Context, id string) (models.Item, error)
	ListItems(ctx context.Context, p catalog.ListParams) (models.ItemsPage, error)
	FullTextSearch(ctx context.Context, p catalog.FullTextParams) (models.ItemsPage, error)
	AdvancedSearch(ctx context.Context, p catalog.AdvancedParams) (models.ItemsPage, error)
	Autocomplete(ctx context.Context, prefix, limit string) ([]string, error)
	Facets(ctx context.Context, p catalog.FacetParams) (models.FacetsResponse, error)
}

// ItemCache is the read-through cache contract.
type ItemCache interface {
	GetItem(ctx context.Context, id string) (*models.Item, error)
	Generation(ctx context.Context, id string) (int64, error)
	Backfill(ctx context.Context, item *models.Item, gen int64) error
	Invalidate(ctx context.Context, id string) error
}

// EventQueue is the publish contract for the message broker.
type EventQueue interface {
	PublishEvent(ctx context.Context, event models.ItemEvent) error
}

// StockReport reads and rebuilds the daily stock view.
type StockReport interface {
	GetStockReport(ctx context.Context) ([]models.StockDay, error)
	RefreshMaterializedView(ctx context.Context) error
}

// HealthChecker reports whether the index answers.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// ---------------------------------------------------------------------------
// Handler
// ---------------------------------------------------------------------------

// Handler holds every dependency the HTTP layer needs.
// All fields are interfaces: main injects the real implementations,
// tests inject fakes.
type Handler struct {
	Catalog   Catalog
	Cache     ItemCache
	Publisher EventQueue
	Reports   StockReport
	Health    HealthChecker
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

// AddItem — POST /v1/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var in models.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	item, err := h.Catalog.AddItem(r.Context(), in)
	if err != nil {
		h.fail(w, "add_item", err)
		return
	}

	h.publish(r.Context(), models.EventCreated, item.ID, item.Total, item.Total)

	slog.Info("item added", "component", "api", "item_id", item.ID, "product", item.Product)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "item added",
		"id":      item.ID,
	})
}

// GetItem — GET /v1/items/{id}
//
// Read path:
//   - Redis HIT  → return instantly           (X-Cache: HIT)
//   - Redis MISS → index lookup → back-fill   (X-Cache: MISS)
//
// The generation is read before the index lookup; a write that lands in
// between makes the back-fill a no-op instead of caching the old copy.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	if item, err := h.Cache.GetItem(ctx, id); err == nil {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, item)
		return
	}

	gen, genErr := h.Cache.Generation(ctx, id)

	item, err := h.Catalog.GetItem(ctx, id)
	if err != nil {
		h.fail(w, "get_item", err)
		return
	}

	if genErr != nil {
		slog.Warn("cache generation read failed, skipping back-fill", "component", "api", "item_id", id, "error", genErr)
	} else if err := h.Cache.Backfill(ctx, &item, gen); errors.Is(err, cache.ErrStale) {
		slog.Debug("cache back-fill skipped, item changed", "component", "api", "item_id", id)
	} else if err != nil {
		slog.Warn("cache back-fill failed", "component", "api", "item_id", id, "error", err)
	}

	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, item)
}

// UpdateItem — PATCH /v1/items/{id}
//
// The body carries {"total": n}; n units are taken out of stock
// (a negative n restocks).
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var in models.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	ctx := r.Context()

	item, err := h.Catalog.UpdateItem(ctx, id, in)
	if err != nil {
		h.fail(w, "update_item", err)
		return
	}

	h.invalidate(ctx, item.ID)
	h.publish(ctx, models.EventUpdated, item.ID, -*in.Total, item.Total)

	slog.Info("item updated", "component", "api", "item_id", item.ID, "total", item.Total)
	writeJSON(w, http.StatusAccepted, item)
}

// DeleteItem — DELETE /v1/items/{id}
//
// The units still on hand leave stock with the item, so the delete event
// carries -total. Deleting an unknown ID publishes nothing.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	removed, err := h.Catalog.DeleteItem(ctx, id)
	if err != nil {
		h.fail(w, "delete_item", err)
		return
	}

	h.invalidate(ctx, id)
	if removed.ID != "" {
		h.publish(ctx, models.EventDeleted, removed.ID, -removed.Total, 0)
	}

	slog.Info("item deleted", "component", "api", "item_id", id, "found", removed.ID != "")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "item deleted",
		"id":      id,
	})
}

// ListItems — GET /v1/items?category=&manufacturer=&product=&page=
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.Catalog.ListItems(r.Context(), catalog.ListParams{
		Category:     q.Get("category"),
		Manufacturer: q.Get("manufacturer"),
		Product:      q.Get("product"),
		Page:         q.Get("page"),
	})
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

// Search — GET /v1/search?q=&fuzziness=&page=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.Catalog.FullTextSearch(r.Context(), catalog.FullTextParams{
		Query:     q.Get("q"),
		Fuzziness: q.Get("fuzziness"),
		Page:      q.Get("page"),
	})
	if err != nil {
		h.fail(w, "full_text", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// AdvancedSearch — GET /v1/search/advanced?q=&category=&manufacturer=&minPrice=&maxPrice=&page=
func (h *Handler) AdvancedSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.Catalog.AdvancedSearch(r.Context(), catalog.AdvancedParams{
		Query:        q.Get("q"),
		Category:     q.Get("category"),
		Manufacturer: q.Get("manufacturer"),
		MinPrice:     q.Get("minPrice"),
		MaxPrice:     q.Get("maxPrice"),
		Page:         q.Get("page"),
	})
	if err != nil {
		h.fail(w, "advanced", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Autocomplete — GET /v1/autocomplete?prefix=&limit=
func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	suggestions, err := h.Catalog.Autocomplete(r.Context(), q.Get("prefix"), q.Get("limit"))
	if err != nil {
		h.fail(w, "autocomplete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": suggestions})
}

// Facets — GET /v1/facets?q=&category=&manufacturer=
func (h *Handler) Facets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	facets, err := h.Catalog.Facets(r.Context(), catalog.FacetParams{
		Query:        q.Get("q"),
		Category:     q.Get("category"),
		Manufacturer: q.Get("manufacturer"),
	})
	if err != nil {
		h.fail(w, "facets", err)
		return
	}
	writeJSON(w, http.StatusOK, facets)
}

// ---------------------------------------------------------------------------
// Dashboard
// ---------------------------------------------------------------------------

// GetStockDashboard — GET /v1/dashboard/stock
//
// Returns the last 30 days of pre-aggregated stock movements from daily_stock_mv.
func (h *Handler) GetStockDashboard(w http.ResponseWriter, r *http.Request) {
	days, err := h.Reports.GetStockReport(r.Context())
	if err != nil {
		slog.Error("dashboard query failed",
			"component", "api",
			"client_ip", r.RemoteAddr,
			"error", err,
		)
		http.Error(w, "failed to fetch dashboard data", http.StatusInternalServerError)
		return
	}

	slog.Info("dashboard fetched", "component", "api", "records", len(days))
	writeJSON(w, http.StatusOK, days)
}

// ---------------------------------------------------------------------------
// Admin
// ---------------------------------------------------------------------------

// RefreshMaterializedView — POST /v1/admin/refresh
func (h *Handler) RefreshMaterializedView(w http.ResponseWriter, r *http.Request) {
	if err := h.Reports.RefreshMaterializedView(r.Context()); err != nil {
		slog.Error("manual mv refresh failed", "component", "api", "error", err)
		http.Error(w, "failed to refresh view", http.StatusInternalServerError)
		return
	}
	slog.Info("materialized view refreshed", "component", "api", "trigger", "manual")
	w.Write([]byte("Materialized view refreshed successfully.\n"))
}

// Healthz — GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.Health.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "component", "api", "error", err)
		http.Error(w, "elasticsearch unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok\n"))
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// fail maps a catalog error to a status code. Operational failures get a
// generic body; the cause only goes to the log.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, catalog.ErrValidation):
		metrics.RequestErrors.WithLabelValues(op, "validation").Inc()
		slog.Warn("request rejected", "component", "api", "op", op, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)

	case errors.Is(err, catalog.ErrNotFound):
		metrics.RequestErrors.WithLabelValues(op, "not_found").Inc()
		http.Error(w, "item not found", http.StatusNotFound)

	case errors.Is(err, catalog.ErrConflict):
		metrics.RequestErrors.WithLabelValues(op, "conflict").Inc()
		slog.Warn("concurrent update", "component", "api", "op", op, "error", err)
		http.Error(w, "item was modified concurrently, retry", http.StatusConflict)

	default:
		metrics.RequestErrors.WithLabelValues(op, "operational").Inc()
		slog.Error("request failed", "component", "api", "op", op, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// publish sends an item event. The index already holds the change, so a
// broker failure is logged and counted but does not fail the request.
func (h *Handler) publish(ctx context.Context, kind models.EventKind, itemID string, delta, totalAfter int) {
	event := models.ItemEvent{
		EventID:    uuid.NewString(),
		Kind:       kind,
		ItemID:     itemID,
		Delta:      delta,
		TotalAfter: totalAfter,
		OccurredAt: time.Now().UTC(),
	}
	if err := h.Publisher.PublishEvent(ctx, event); err != nil {
		metrics.ItemEvents.WithLabelValues(string(kind), "publish_failed").Inc()
		slog.Error("queue publish failed",
			"component", "api",
			"item_id", itemID,
			"kind", kind,
			"error", err,
		)
		return
	}
	metrics.ItemEvents.WithLabelValues(string(kind), "published").Inc()
}

// invalidate drops a cached item after a write. Entries expire on their own,
// so a failure only widens the staleness window.
func (h *Handler) invalidate(ctx context.Context, id string) {
	if err := h.Cache.Invalidate(ctx, id); err != nil {
		slog.Warn("cache invalidation failed", "component", "api", "item_id", id, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "component", "api", "error", err)
	}
}
