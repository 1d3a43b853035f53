package stockin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warestock/warestock/internal/domain/product"
)

// InvalidQuantityError indicates a receipt with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("receipt quantity must be at least 1 for product %s", e.ProductID)
}

// ReceiveRequest holds the input of an inbound stock event.
type ReceiveRequest struct {
	ProductID   string
	Quantity    int64
	UnitCost    *decimal.Decimal // nil: use the product's catalog cost price
	SupplierRef string
	Remark      string
}

// Result is a created receipt together with the product's new available
// quantity.
type Result struct {
	Receipt      *Receipt
	NewAvailable int64
}

// Service validates and records inbound stock receipts.
type Service struct {
	products product.Repository
	receipts Repository
	now      func() time.Time
}

// NewService creates a stock-in Service.
func NewService(products product.Repository, receipts Repository) *Service {
	return &Service{products: products, receipts: receipts, now: time.Now}
}

// Receive records one inbound receipt and increments the product's
// available stock. When no unit cost is given the product's catalog cost
// price is snapshotted instead.
func (s *Service) Receive(ctx context.Context, req ReceiveRequest) (*Result, error) {
	if req.Quantity < 1 {
		return nil, &InvalidQuantityError{ProductID: req.ProductID}
	}

	p, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	unitCost := p.CostPrice
	if req.UnitCost != nil {
		unitCost = *req.UnitCost
	}

	now := s.now()
	r := &Receipt{
		ID:          uuid.New().String(),
		ReceiptNo:   ReceiptNo(now),
		ProductID:   p.ID,
		Quantity:    req.Quantity,
		UnitCost:    unitCost,
		SupplierRef: req.SupplierRef,
		Remark:      req.Remark,
		CreatedAt:   now,
	}

	newAvailable, err := s.receipts.Create(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("create receipt: %w", err)
	}
	return &Result{Receipt: r, NewAvailable: newAvailable}, nil
}
