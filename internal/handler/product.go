package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/warestock/warestock/internal/domain/product"
)

type productResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CostPrice    string    `json:"costPrice"`
	SellingPrice string    `json:"sellingPrice"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`

	// Stock is included on single-product reads.
	Available *int64 `json:"available,omitempty"`
	Frozen    *int64 `json:"frozen,omitempty"`
}

func toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:           p.ID,
		Name:         p.Name,
		CostPrice:    p.CostPrice.StringFixed(2),
		SellingPrice: p.SellingPrice.StringFixed(2),
		Active:       p.Active,
		CreatedAt:    p.CreatedAt,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		mapError(w, r, err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.products.GetByID(r.Context(), id)
	if errors.Is(err, product.ErrNotFound) {
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
		return
	}
	if err != nil {
		mapError(w, r, err)
		return
	}

	resp := toProductResponse(*p)
	level, err := h.stocks.Get(r.Context(), id)
	if err != nil {
		mapError(w, r, err)
		return
	}
	resp.Available = &level.Available
	resp.Frozen = &level.Frozen

	respondJSON(w, http.StatusOK, resp)
}
