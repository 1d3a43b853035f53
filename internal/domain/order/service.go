package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warestock/warestock/internal/domain/product"
)

// Sentinel errors for order creation.
var (
	ErrEmptyLines = fmt.Errorf("order lines required")
)

// InvalidQuantityError indicates a line with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for product %s", e.ProductID)
}

// ProductNotSellableError indicates a line referencing a product that has
// been deactivated in the catalog.
type ProductNotSellableError struct {
	ProductID string
}

func (e *ProductNotSellableError) Error() string {
	return fmt.Sprintf("product %s is not active", e.ProductID)
}

// LineInput is one (product, quantity) pair of a checkout request.
type LineInput struct {
	ProductID string
	Quantity  int64
}

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	UserID string
	Lines  []LineInput
	Remark string
}

// Service converts cart lines into priced pending orders and drives the
// order lifecycle. Stock movement happens inside the repository's atomic
// operations; the service owns validation, price snapshotting and totals.
type Service struct {
	products product.Repository
	orders   Repository
	now      func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(products product.Repository, orders Repository) *Service {
	return &Service{
		products: products,
		orders:   orders,
		now:      time.Now,
	}
}

// CreateOrder validates the lines, snapshots prices and costs from the
// catalog, and persists a pending order while reserving stock for every
// line. The whole batch succeeds or fails together: any shortage returns
// stock.InsufficientStockError and leaves no trace.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}

	ids := make([]string, len(req.Lines))
	for i, line := range req.Lines {
		if line.Quantity < 1 {
			return nil, &InvalidQuantityError{ProductID: line.ProductID}
		}
		ids[i] = line.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	now := s.now()
	o := &Order{
		ID:          uuid.New().String(),
		OrderNo:     OrderNo(now, shortSuffix()),
		UserID:      req.UserID,
		Status:      StatusPending,
		TotalAmount: decimal.Zero,
		TotalCost:   decimal.Zero,
		Remark:      req.Remark,
		CreatedAt:   now,
	}

	// Snapshot unit price and cost per line; totals derive from the
	// snapshots, never from live catalog prices.
	o.Lines = make([]Line, len(req.Lines))
	for i, line := range req.Lines {
		p, ok := productMap[line.ProductID]
		if !ok {
			return nil, product.ErrNotFound
		}
		if !p.Active {
			return nil, &ProductNotSellableError{ProductID: p.ID}
		}

		o.Lines[i] = Line{
			ID:        uuid.New().String(),
			OrderID:   o.ID,
			ProductID: p.ID,
			Quantity:  line.Quantity,
			UnitPrice: p.SellingPrice,
			UnitCost:  p.CostPrice,
		}

		qty := decimal.NewFromInt(line.Quantity)
		o.TotalAmount = o.TotalAmount.Add(p.SellingPrice.Mul(qty))
		o.TotalCost = o.TotalCost.Add(p.CostPrice.Mul(qty))
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

// Get returns an order with its lines.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// Cancel transitions the order to cancelled. A pending order's reservation
// is released back to available stock; cancelling a paid order is
// status-only bookkeeping.
func (s *Service) Cancel(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.Transition(ctx, orderID, StatusCancelled)
}

// Complete marks a paid order as completed. Status-only, no stock effect.
func (s *Service) Complete(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.Transition(ctx, orderID, StatusCompleted)
}

// shortSuffix returns a six character hex suffix for human-facing numbers.
func shortSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
}
