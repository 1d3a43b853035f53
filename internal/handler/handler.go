// Package handler exposes the order engine over HTTP JSON endpoints.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warestock/warestock/internal/domain/order"
	"github.com/warestock/warestock/internal/domain/payment"
	"github.com/warestock/warestock/internal/domain/product"
	"github.com/warestock/warestock/internal/domain/stock"
	"github.com/warestock/warestock/internal/domain/stockin"
)

// Handler wires the HTTP routes to the domain services.
type Handler struct {
	products product.Repository
	stocks   stock.Reader
	orders   *order.Service
	payments *payment.Reconciler
	stockIn  *stockin.Service
}

// New constructs a Handler with the required domain dependencies.
func New(
	products product.Repository,
	stocks stock.Reader,
	orders *order.Service,
	payments *payment.Reconciler,
	stockIn *stockin.Service,
) *Handler {
	return &Handler{
		products: products,
		stocks:   stocks,
		orders:   orders,
		payments: payments,
		stockIn:  stockIn,
	}
}

// Routes returns the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/payment", h.confirmPayment)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Post("/orders/{id}/complete", h.completeOrder)
	r.Post("/stock-in", h.receiveStock)
	return r
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`

	// Set for insufficient_stock responses.
	ProductID string `json:"productId,omitempty"`
	Available *int64 `json:"available,omitempty"`
	Requested *int64 `json:"requested,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: code, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return false
	}
	return true
}
