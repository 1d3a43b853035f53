// Package payment records payment confirmations and drives the owning order
// from pending to paid exactly once.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrOrderNotPayable is returned when a payment confirmation arrives for an
// order that is not pending. The confirmation is rejected without creating
// a payment record or touching stock.
var ErrOrderNotPayable = errors.New("order is not payable")

// Status of a payment record.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Payment is a confirmed payment against one order. The amount is filled
// from the order's snapshotted total inside the confirmation transaction.
type Payment struct {
	ID        string
	PaymentNo string
	OrderID   string
	Amount    decimal.Decimal
	Method    string
	Status    Status
	TradeNo   string
	PaidAt    time.Time
	CreatedAt time.Time
}

// Repository persists payment confirmations.
//
// Confirm is a single atomic operation: it verifies the order is pending,
// fills the payment amount from the order total, inserts the record, commits
// the order's frozen stock and marks the order paid. A non-pending order
// fails the whole operation with ErrOrderNotPayable and changes nothing,
// which makes a duplicate confirmation a safe no-op with an error.
type Repository interface {
	Confirm(ctx context.Context, p *Payment) error
}

// PaymentNo builds a human-facing payment number: PAY + timestamp + suffix.
func PaymentNo(now time.Time, suffix string) string {
	return fmt.Sprintf("PAY%s%s", now.UTC().Format("20060102150405"), suffix)
}
