package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warestock/warestock/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, order_no, user_id, status, total_amount, total_cost, remark, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertLineSQL = `INSERT INTO order_lines (id, order_id, product_id, quantity, unit_price, unit_cost)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderSQL = `SELECT id, order_no, user_id, status, total_amount, total_cost, remark, paid_at, created_at
		FROM orders WHERE id = $1`

	getOrderForUpdateSQL = getOrderSQL + ` FOR UPDATE`

	getLinesSQL = `SELECT id, order_id, product_id, quantity, unit_price, unit_cost
		FROM order_lines WHERE order_id = $1 ORDER BY id`

	updateStatusSQL = `UPDATE orders SET status = $2, paid_at = $3, updated_at = now() WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order with its lines and reserves stock for every
// line, all in one transaction. Any shortage aborts the whole batch: the
// transaction rolls back and the shortage error carries the failing line.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return inTxRetry(ctx, r.pool, func(tx pgx.Tx) error {
		ids := make([]string, len(o.Lines))
		for i, line := range o.Lines {
			ids[i] = line.ProductID
		}

		levels, err := lockLevels(ctx, tx, ids)
		if err != nil {
			return err
		}
		for _, line := range o.Lines {
			if err := levels[line.ProductID].Reserve(line.Quantity); err != nil {
				return err
			}
		}
		for _, l := range levels {
			if err := saveLevel(ctx, tx, l); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.OrderNo, o.UserID, o.Status, o.TotalAmount, o.TotalCost, o.Remark, o.CreatedAt,
		); err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}
		for _, line := range o.Lines {
			if _, err := tx.Exec(ctx, insertLineSQL,
				line.ID, line.OrderID, line.ProductID, line.Quantity, line.UnitPrice, line.UnitCost,
			); err != nil {
				return fmt.Errorf("creating order line for product %q: %w", line.ProductID, err)
			}
		}
		return nil
	})
}

// GetByID returns an order with its lines.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	var o *order.Order
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		o, err = loadOrder(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Transition moves the order to the target status and applies the matching
// stock effect in one transaction. The order row is locked first so that
// concurrent transitions serialize on it and the guard fires exactly once.
func (r *OrderRepository) Transition(ctx context.Context, orderID string, to order.Status) (*order.Order, error) {
	var o *order.Order
	err := inTxRetry(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		o, err = loadOrder(ctx, tx, orderID, true)
		if err != nil {
			return err
		}
		return applyTransition(ctx, tx, o, to, time.Now())
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// applyTransition checks the transition guard, applies the stock effect of
// the transition to every line's ledger entry, and updates the order row.
// The caller must hold the order's row lock; o is mutated to its new state.
func applyTransition(ctx context.Context, tx pgx.Tx, o *order.Order, to order.Status, now time.Time) error {
	if !order.CanTransition(o.Status, to) {
		return &order.InvalidTransitionError{OrderID: o.ID, From: o.Status, To: to}
	}

	effect := order.TransitionEffect(o.Status, to)
	if effect != order.EffectNone {
		ids := make([]string, len(o.Lines))
		for i, line := range o.Lines {
			ids[i] = line.ProductID
		}
		levels, err := lockLevels(ctx, tx, ids)
		if err != nil {
			return err
		}
		for _, line := range o.Lines {
			l := levels[line.ProductID]
			switch effect {
			case order.EffectRelease:
				err = l.Release(line.Quantity)
			case order.EffectCommit:
				err = l.Commit(line.Quantity)
			}
			if err != nil {
				return err
			}
		}
		for _, l := range levels {
			if err := saveLevel(ctx, tx, l); err != nil {
				return err
			}
		}
	}

	o.Status = to
	if to == order.StatusPaid {
		o.PaidAt = &now
	}
	var paidAt any
	if o.PaidAt != nil {
		paidAt = *o.PaidAt
	}
	if _, err := tx.Exec(ctx, updateStatusSQL, o.ID, o.Status, paidAt); err != nil {
		return fmt.Errorf("updating order %q status: %w", o.ID, err)
	}
	return nil
}

// loadOrder reads an order and its lines, optionally locking the order row.
func loadOrder(ctx context.Context, tx pgx.Tx, id string, forUpdate bool) (*order.Order, error) {
	q := getOrderSQL
	if forUpdate {
		q = getOrderForUpdateSQL
	}

	o := &order.Order{}
	err := tx.QueryRow(ctx, q, id).Scan(
		&o.ID, &o.OrderNo, &o.UserID, &o.Status,
		&o.TotalAmount, &o.TotalCost, &o.Remark, &o.PaidAt, &o.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	rows, err := tx.Query(ctx, getLinesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order lines for %q: %w", id, err)
	}
	o.Lines, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Line, error) {
		var l order.Line
		err := row.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.UnitCost)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning order lines for %q: %w", id, err)
	}
	return o, nil
}
