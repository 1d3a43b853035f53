package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warestock/warestock/internal/domain/order"
	"github.com/warestock/warestock/internal/domain/payment"
)

type orderLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type createOrderRequest struct {
	UserID string             `json:"userId"`
	Lines  []orderLineRequest `json:"lines"`
	Remark string             `json:"remark,omitempty"`
}

type orderLineResponse struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	UnitCost  string `json:"unitCost"`
	Subtotal  string `json:"subtotal"`
}

type orderResponse struct {
	OrderID     string              `json:"orderId"`
	OrderNo     string              `json:"orderNo"`
	UserID      string              `json:"userId"`
	Status      string              `json:"status"`
	TotalAmount string              `json:"totalAmount"`
	TotalCost   string              `json:"totalCost"`
	Profit      string              `json:"profit"`
	Remark      string              `json:"remark,omitempty"`
	Lines       []orderLineResponse `json:"lines"`
	PaidAt      *time.Time          `json:"paidAt,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	lines := make([]orderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			UnitCost:  l.UnitCost.StringFixed(2),
			Subtotal:  l.Subtotal().StringFixed(2),
		}
	}
	return orderResponse{
		OrderID:     o.ID,
		OrderNo:     o.OrderNo,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.StringFixed(2),
		TotalCost:   o.TotalCost.StringFixed(2),
		Profit:      o.Profit().StringFixed(2),
		Remark:      o.Remark,
		Lines:       lines,
		PaidAt:      o.PaidAt,
		CreatedAt:   o.CreatedAt,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "bad_request", "userId required")
		return
	}

	lines := make([]order.LineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = order.LineInput{ProductID: l.ProductID, Quantity: l.Quantity}
	}

	o, err := h.orders.CreateOrder(r.Context(), order.CreateOrderRequest{
		UserID: req.UserID,
		Lines:  lines,
		Remark: req.Remark,
	})
	if err != nil {
		mapError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

type confirmPaymentRequest struct {
	Method  string `json:"method"`
	TradeNo string `json:"tradeNo,omitempty"`
}

type confirmPaymentResponse struct {
	PaymentID string    `json:"paymentId"`
	PaymentNo string    `json:"paymentNo"`
	OrderID   string    `json:"orderId"`
	Amount    string    `json:"amount"`
	Status    string    `json:"status"`
	PaidAt    time.Time `json:"paidAt"`
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Method == "" {
		respondError(w, http.StatusBadRequest, "bad_request", "method required")
		return
	}

	p, err := h.payments.Confirm(r.Context(), payment.ConfirmRequest{
		OrderID: chi.URLParam(r, "id"),
		Method:  req.Method,
		TradeNo: req.TradeNo,
	})
	if err != nil {
		mapError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, confirmPaymentResponse{
		PaymentID: p.ID,
		PaymentNo: p.PaymentNo,
		OrderID:   p.OrderID,
		Amount:    p.Amount.StringFixed(2),
		Status:    "paid",
		PaidAt:    p.PaidAt,
	})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) completeOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}
