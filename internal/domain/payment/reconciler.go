package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConfirmRequest holds the input of a payment confirmation event.
type ConfirmRequest struct {
	OrderID string
	Method  string
	TradeNo string
}

// Reconciler turns external payment confirmations into payment records and
// the matching order transition. The exactly-once guarantee lives in the
// repository's atomic Confirm operation; the reconciler owns identity and
// timestamps.
type Reconciler struct {
	payments Repository
	now      func() time.Time
}

// NewReconciler creates a Reconciler backed by the given repository.
func NewReconciler(payments Repository) *Reconciler {
	return &Reconciler{payments: payments, now: time.Now}
}

// Confirm records a successful payment for the order and moves it from
// pending to paid. Confirming an order that is not pending fails with
// ErrOrderNotPayable and leaves all state untouched.
func (r *Reconciler) Confirm(ctx context.Context, req ConfirmRequest) (*Payment, error) {
	now := r.now()
	p := &Payment{
		ID:        uuid.New().String(),
		PaymentNo: PaymentNo(now, shortSuffix()),
		OrderID:   req.OrderID,
		Method:    req.Method,
		Status:    StatusSuccess,
		TradeNo:   req.TradeNo,
		PaidAt:    now,
		CreatedAt: now,
	}
	if err := r.payments.Confirm(ctx, p); err != nil {
		return nil, fmt.Errorf("confirm payment for order %s: %w", req.OrderID, err)
	}
	return p, nil
}

func shortSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
}
