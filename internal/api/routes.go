package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes attaches all application routes to mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Items
	mux.HandleFunc("POST /v1/items", h.AddItem)
	mux.HandleFunc("GET /v1/items", h.ListItems)
	mux.HandleFunc("GET /v1/items/{id}", h.GetItem)
	mux.HandleFunc("PATCH /v1/items/{id}", h.UpdateItem)
	mux.HandleFunc("DELETE /v1/items/{id}", h.DeleteItem)

	// Search
	mux.HandleFunc("GET /v1/search", h.Search)
	mux.HandleFunc("GET /v1/search/advanced", h.AdvancedSearch)
	mux.HandleFunc("GET /v1/autocomplete", h.Autocomplete)
	mux.HandleFunc("GET /v1/facets", h.Facets)

	// Dashboard (materialized view)
	mux.HandleFunc("GET /v1/dashboard/stock", h.GetStockDashboard)

	// Admin
	mux.HandleFunc("POST /v1/admin/refresh", h.RefreshMaterializedView)

	// Observability
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.Handle("GET /metrics", promhttp.Handler())
}
