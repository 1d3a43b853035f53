package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/warestock/warestock/internal/domain/order"
	"github.com/warestock/warestock/internal/domain/payment"
	"github.com/warestock/warestock/internal/domain/product"
	"github.com/warestock/warestock/internal/domain/stock"
	"github.com/warestock/warestock/internal/domain/stockin"
)

// mapError converts domain errors to HTTP error responses. User-triggered
// failures become 4xx with stable error codes; invariant violations and
// unknown errors are logged and become 500.
func mapError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficientErr *stock.InsufficientStockError
	if errors.As(err, &insufficientErr) {
		respondJSON(w, http.StatusConflict, errorResponse{
			Error:     "insufficient_stock",
			Message:   insufficientErr.Error(),
			ProductID: insufficientErr.ProductID,
			Available: &insufficientErr.Available,
			Requested: &insufficientErr.Requested,
		})
		return
	}

	var transitionErr *order.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		respondError(w, http.StatusConflict, "invalid_transition", transitionErr.Error())
		return
	}

	if errors.Is(err, payment.ErrOrderNotPayable) {
		respondError(w, http.StatusConflict, "order_not_payable", err.Error())
		return
	}

	if errors.Is(err, stock.ErrConflict) {
		respondError(w, http.StatusConflict, "conflict", "concurrent update, retry the request")
		return
	}

	if errors.Is(err, order.ErrEmptyLines) {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var qtyErr *order.InvalidQuantityError
	if errors.As(err, &qtyErr) {
		respondError(w, http.StatusBadRequest, "bad_request", qtyErr.Error())
		return
	}

	var receiptQtyErr *stockin.InvalidQuantityError
	if errors.As(err, &receiptQtyErr) {
		respondError(w, http.StatusBadRequest, "bad_request", receiptQtyErr.Error())
		return
	}

	var inactiveErr *order.ProductNotSellableError
	if errors.As(err, &inactiveErr) {
		respondError(w, http.StatusUnprocessableEntity, "product_not_sellable", inactiveErr.Error())
		return
	}

	if errors.Is(err, product.ErrNotFound) {
		respondError(w, http.StatusUnprocessableEntity, "product_not_found", err.Error())
		return
	}

	if errors.Is(err, order.ErrNotFound) {
		respondError(w, http.StatusNotFound, "order_not_found", err.Error())
		return
	}

	// Invariant violations indicate a bug, never a user error. They are
	// surfaced loudly and must not be clamped.
	var invariantErr *stock.InvariantViolationError
	if errors.As(err, &invariantErr) {
		zctx.From(r.Context()).Error("stock invariant violated", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal", "internal error")
}
