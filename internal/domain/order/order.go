package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an order does not exist.
var ErrNotFound = errors.New("order not found")

// Order is a placed order. Monetary totals are snapshotted from the catalog
// at creation time and never recomputed from live prices.
type Order struct {
	ID          string
	OrderNo     string
	UserID      string
	Status      Status
	TotalAmount decimal.Decimal
	TotalCost   decimal.Decimal
	Remark      string
	Lines       []Line
	PaidAt      *time.Time
	CreatedAt   time.Time
}

// Profit is the snapshotted margin of the order: amount minus cost.
func (o *Order) Profit() decimal.Decimal {
	return o.TotalAmount.Sub(o.TotalCost)
}

// Line is a single order line. Unit price and cost are snapshots taken when
// the order was created; the line is immutable afterwards.
type Line struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
	UnitCost  decimal.Decimal
}

// Subtotal is quantity times the snapshotted unit price.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// Repository defines the transactional persistence operations for orders.
//
// Create persists the order with all its lines and moves every line's
// quantity from available to frozen stock, atomically: if any line cannot be
// satisfied, nothing is persisted and no stock changes
// (stock.InsufficientStockError names the failing line).
//
// Transition moves the order to the given status after checking the guard
// (InvalidTransitionError otherwise) and applies the matching stock effect
// inside the same transaction. It returns the order in its new state.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	Transition(ctx context.Context, orderID string, to Status) (*Order, error)
}

// OrderNo builds a human-facing order number: ORD + timestamp + short suffix.
func OrderNo(now time.Time, suffix string) string {
	return fmt.Sprintf("ORD%s%s", now.UTC().Format("20060102150405"), suffix)
}
