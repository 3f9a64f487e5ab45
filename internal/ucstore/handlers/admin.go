package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/25x8/uc-store/internal/ucstore/models"
	"github.com/go-chi/chi/v5"
)

// DashboardRecentOrders is how many orders the dashboard shows
const DashboardRecentOrders = 10

type dashboardResponse struct {
	Stats        *models.OrderStats `json:"stats"`
	RecentOrders []models.Order     `json:"recentOrders"`
}

// Dashboard returns the order counters and the latest orders
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.Orders.Stats(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	recent, err := h.Orders.Recent(ctx, DashboardRecentOrders)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if recent == nil {
		recent = []models.Order{}
	}

	writeData(w, dashboardResponse{Stats: stats, RecentOrders: recent})
}

// ListOrders returns orders, optionally filtered by ?status=
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	writeData(w, orders)
}

// GetOrder returns one order with its payment
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, detail)
}

// ListAllProducts returns the whole catalog including inactive bundles
func (h *Handler) ListAllProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, products)
}

// UpdateProduct applies a partial update to a product
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var upd models.ProductUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, err)
		return
	}

	product, err := h.Catalog.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, product)
}

// DeleteProduct soft-deletes a product
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.SoftDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

// AuditLogs returns persisted audit events, filtered by ?action=, ?entityType= and ?limit=
func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.AuditFilter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, fmt.Errorf("limit must be a number: %w", models.ErrValidation))
			return
		}
		filter.Limit = limit
	}

	logs, err := h.Audit.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, logs)
}
