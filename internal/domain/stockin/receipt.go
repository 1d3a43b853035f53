// Package stockin is the append-only inbound side of the stock ledger:
// every receipt increments a product's available quantity, atomically with
// the receipt insert.
package stockin

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is one inbound stock event. Receipts are never updated or
// deleted; the sum of receipt quantities is part of the ledger's
// conservation proof.
type Receipt struct {
	ID          string
	ReceiptNo   string
	ProductID   string
	Quantity    int64
	UnitCost    decimal.Decimal
	SupplierRef string
	Remark      string
	CreatedAt   time.Time
}

// Repository persists receipts. Create inserts the receipt and adds its
// quantity to the product's available stock in one transaction, creating
// the ledger row from zero when the product has none yet. It returns the
// new available quantity.
type Repository interface {
	Create(ctx context.Context, r *Receipt) (newAvailable int64, err error)
}

// ReceiptNo builds a human-facing receipt number: SI + unix milliseconds.
func ReceiptNo(now time.Time) string {
	return fmt.Sprintf("SI%d", now.UnixMilli())
}
