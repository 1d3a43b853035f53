package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warestock/warestock/internal/domain/order"
	"github.com/warestock/warestock/internal/domain/payment"
)

const insertPaymentSQL = `INSERT INTO payments (id, payment_no, order_id, amount, method, status, trade_no, paid_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Confirm records a successful payment and moves the order pending -> paid
// in one transaction. The order row lock serializes concurrent
// confirmations: the first one wins, every later one sees a non-pending
// order and fails with payment.ErrOrderNotPayable before writing anything.
func (r *PaymentRepository) Confirm(ctx context.Context, p *payment.Payment) error {
	return inTxRetry(ctx, r.pool, func(tx pgx.Tx) error {
		o, err := loadOrder(ctx, tx, p.OrderID, true)
		if err != nil {
			return err
		}
		if o.Status != order.StatusPending {
			return payment.ErrOrderNotPayable
		}

		// The payment amount is the order's snapshotted total, read under
		// the same lock that guards the transition.
		p.Amount = o.TotalAmount

		if _, err := tx.Exec(ctx, insertPaymentSQL,
			p.ID, p.PaymentNo, p.OrderID, p.Amount, p.Method, p.Status, p.TradeNo, p.PaidAt, p.CreatedAt,
		); err != nil {
			return fmt.Errorf("creating payment %q: %w", p.ID, err)
		}

		return applyTransition(ctx, tx, o, order.StatusPaid, p.PaidAt)
	})
}
