package handlers

import (
	"net/http"
	"time"

	"github.com/25x8/uc-store/internal/ucstore/middleware"
	"github.com/25x8/uc-store/internal/ucstore/models"
	"github.com/25x8/uc-store/internal/ucstore/service"
)

// Handler handles all HTTP requests
type Handler struct {
	Catalog  *service.CatalogService
	Players  *service.PlayerResolver
	Orders   *service.OrderService
	Sessions *service.SessionService
	Audit    *service.Auditor
}

// NewHandler creates a new handler
func NewHandler(catalog *service.CatalogService, players *service.PlayerResolver, orders *service.OrderService,
	sessions *service.SessionService, audit *service.Auditor) *Handler {
	return &Handler{
		Catalog:  catalog,
		Players:  players,
		Orders:   orders,
		Sessions: sessions,
		Audit:    audit,
	}
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListProducts returns the active catalog
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.ListActive(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, products)
}

// ResolvePlayer validates a player id and returns its display name
func (h *Handler) ResolvePlayer(w http.ResponseWriter, r *http.Request) {
	player, err := h.Players.Resolve(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, player)
}

type createOrderResponse struct {
	Order       *models.Order `json:"order"`
	PaymentURL  string        `json:"paymentUrl"`
	PaymentData string        `json:"paymentData"`
	Signature   string        `json:"signature,omitempty"`
}

// CreateOrder places a pending order and returns the checkout for it
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.Orders.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, createOrderResponse{
		Order:       created.Order,
		PaymentURL:  created.Checkout.PaymentURL,
		PaymentData: created.Checkout.PaymentData,
		Signature:   created.Checkout.Signature,
	})
}

type callbackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// ShopierCallback settles an order from the provider callback
func (h *Handler) ShopierCallback(w http.ResponseWriter, r *http.Request) {
	var cb service.PaymentCallback
	if err := decodeJSON(w, r, &cb); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Orders.Settle(r.Context(), cb)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, callbackResponse{Status: res.Order.Status, Duplicate: res.Duplicate})
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login authenticates the administrator and issues a bearer token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	token, session, err := h.Sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.SetAuthCookie(w, token, session.ExpiresAt)
	writeData(w, loginResponse{Token: token, ExpiresAt: session.ExpiresAt})
}

// Logout revokes the presented admin token
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(r.Context(), middleware.ExtractToken(r)); err != nil {
		writeError(w, r, err)
		return
	}
	middleware.ClearAuthCookie(w)
	writeJSON(w, http.StatusOK, envelope{Success: true})
}
