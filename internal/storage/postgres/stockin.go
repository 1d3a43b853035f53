package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warestock/warestock/internal/domain/stockin"
)

const (
	insertReceiptSQL = `INSERT INTO stock_in_receipts (id, receipt_no, product_id, quantity, unit_cost, supplier_ref, remark, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	receiptExistsSQL = `SELECT EXISTS (SELECT 1 FROM stock_in_receipts WHERE receipt_no = $1)`
)

var _ stockin.Repository = (*ReceiptRepository)(nil)

// ReceiptRepository implements stockin.Repository backed by PostgreSQL.
type ReceiptRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptRepository returns a ReceiptRepository that uses the given pool.
func NewReceiptRepository(pool *pgxpool.Pool) *ReceiptRepository {
	return &ReceiptRepository{pool: pool}
}

// Create inserts the receipt and adds its quantity to the product's
// available stock in one transaction, creating the ledger row from zero
// when absent. Both writes land together or not at all.
func (r *ReceiptRepository) Create(ctx context.Context, rec *stockin.Receipt) (int64, error) {
	var newAvailable int64
	err := inTxRetry(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertReceiptSQL,
			rec.ID, rec.ReceiptNo, rec.ProductID, rec.Quantity,
			rec.UnitCost, rec.SupplierRef, rec.Remark, rec.CreatedAt,
		); err != nil {
			return fmt.Errorf("creating receipt %q: %w", rec.ReceiptNo, err)
		}

		l, err := lockLevelForUpdate(ctx, tx, rec.ProductID)
		if err != nil {
			return err
		}
		l.Receive(rec.Quantity)
		if err := saveLevel(ctx, tx, l); err != nil {
			return err
		}
		newAvailable = l.Available
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newAvailable, nil
}

// ReceiptNoExists reports whether a receipt number is already recorded.
// Used by the bulk ingest tool to confirm bloom-filter hits.
func (r *ReceiptRepository) ReceiptNoExists(ctx context.Context, receiptNo string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, receiptExistsSQL, receiptNo).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking receipt %q: %w", receiptNo, err)
	}
	return exists, nil
}

// ListReceiptNos streams all recorded receipt numbers to fn. The bulk
// ingest tool uses it to seed its duplicate prefilter.
func (r *ReceiptRepository) ListReceiptNos(ctx context.Context, fn func(receiptNo string)) error {
	rows, err := r.pool.Query(ctx, `SELECT receipt_no FROM stock_in_receipts`)
	if err != nil {
		return fmt.Errorf("listing receipt numbers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var no string
		if err := rows.Scan(&no); err != nil {
			return fmt.Errorf("scanning receipt number: %w", err)
		}
		fn(no)
	}
	return rows.Err()
}
