package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warestock/warestock/internal/domain/stockin"
)

type receiveStockRequest struct {
	ProductID   string `json:"productId"`
	Quantity    int64  `json:"quantity"`
	UnitCost    string `json:"unitCost,omitempty"`
	SupplierRef string `json:"supplierRef,omitempty"`
	Remark      string `json:"remark,omitempty"`
}

type receiveStockResponse struct {
	ReceiptID    string    `json:"receiptId"`
	ReceiptNo    string    `json:"receiptNo"`
	ProductID    string    `json:"productId"`
	Quantity     int64     `json:"quantity"`
	UnitCost     string    `json:"unitCost"`
	NewAvailable int64     `json:"newAvailable"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (h *Handler) receiveStock(w http.ResponseWriter, r *http.Request) {
	var req receiveStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var unitCost *decimal.Decimal
	if req.UnitCost != "" {
		c, err := decimal.NewFromString(req.UnitCost)
		if err != nil {
			respondError(w, http.StatusBadRequest, "bad_request", "invalid unitCost")
			return
		}
		unitCost = &c
	}

	res, err := h.stockIn.Receive(r.Context(), stockin.ReceiveRequest{
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		UnitCost:    unitCost,
		SupplierRef: req.SupplierRef,
		Remark:      req.Remark,
	})
	if err != nil {
		mapError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, receiveStockResponse{
		ReceiptID:    res.Receipt.ID,
		ReceiptNo:    res.Receipt.ReceiptNo,
		ProductID:    res.Receipt.ProductID,
		Quantity:     res.Receipt.Quantity,
		UnitCost:     res.Receipt.UnitCost.StringFixed(2),
		NewAvailable: res.NewAvailable,
		CreatedAt:    res.Receipt.CreatedAt,
	})
}
