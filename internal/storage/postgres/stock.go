package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warestock/warestock/internal/domain/stock"
)

const (
	getLevelSQL = `SELECT product_id, available, frozen FROM stock_levels WHERE product_id = $1`

	// Locks are taken in ascending product-ID order so that concurrent
	// multi-product operations cannot deadlock each other.
	lockLevelsSQL = `SELECT product_id, available, frozen FROM stock_levels
		WHERE product_id = ANY($1) ORDER BY product_id FOR UPDATE`

	saveLevelSQL = `UPDATE stock_levels SET available = $2, frozen = $3, updated_at = now()
		WHERE product_id = $1`

	ensureLevelSQL = `INSERT INTO stock_levels (product_id, available, frozen)
		VALUES ($1, 0, 0) ON CONFLICT (product_id) DO NOTHING`
)

var _ stock.Reader = (*StockReader)(nil)

// StockReader implements stock.Reader backed by PostgreSQL. Reads never
// lock; all mutation happens inside the repositories' transactions.
type StockReader struct {
	pool *pgxpool.Pool
}

// NewStockReader returns a StockReader that uses the given pool.
func NewStockReader(pool *pgxpool.Pool) *StockReader {
	return &StockReader{pool: pool}
}

// Get returns the ledger entry for one product. Products without a ledger
// row report zero stock.
func (r *StockReader) Get(ctx context.Context, productID string) (*stock.Level, error) {
	l := &stock.Level{ProductID: productID}
	err := r.pool.QueryRow(ctx, getLevelSQL, productID).Scan(&l.ProductID, &l.Available, &l.Frozen)
	if errors.Is(err, pgx.ErrNoRows) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting stock level %q: %w", productID, err)
	}
	return l, nil
}

// lockLevels takes row locks for all given products in ascending ID order
// and returns their ledger entries. Products without a ledger row are
// returned as zero levels; they hold no lockable row yet, which is safe
// because zero stock can only fail a reservation, never corrupt one.
func lockLevels(ctx context.Context, tx pgx.Tx, productIDs []string) (map[string]*stock.Level, error) {
	ids := make([]string, 0, len(productIDs))
	seen := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	rows, err := tx.Query(ctx, lockLevelsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("locking stock levels: %w", err)
	}
	defer rows.Close()

	levels := make(map[string]*stock.Level, len(ids))
	for rows.Next() {
		l := &stock.Level{}
		if err := rows.Scan(&l.ProductID, &l.Available, &l.Frozen); err != nil {
			return nil, fmt.Errorf("scanning stock level: %w", err)
		}
		levels[l.ProductID] = l
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading stock levels: %w", err)
	}

	for _, id := range ids {
		if levels[id] == nil {
			levels[id] = &stock.Level{ProductID: id}
		}
	}
	return levels, nil
}

// saveLevel writes a mutated ledger entry back inside the transaction.
func saveLevel(ctx context.Context, tx pgx.Tx, l *stock.Level) error {
	ct, err := tx.Exec(ctx, saveLevelSQL, l.ProductID, l.Available, l.Frozen)
	if err != nil {
		return fmt.Errorf("saving stock level %q: %w", l.ProductID, err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("saving stock level %q: row missing", l.ProductID)
	}
	return nil
}

// lockLevelForUpdate ensures the product has a ledger row, then locks and
// returns it. Used by the inbound path, which must be able to start a
// product's ledger from zero.
func lockLevelForUpdate(ctx context.Context, tx pgx.Tx, productID string) (*stock.Level, error) {
	if _, err := tx.Exec(ctx, ensureLevelSQL, productID); err != nil {
		return nil, fmt.Errorf("ensuring stock level %q: %w", productID, err)
	}

	l := &stock.Level{}
	err := tx.QueryRow(ctx, getLevelSQL+" FOR UPDATE", productID).
		Scan(&l.ProductID, &l.Available, &l.Frozen)
	if err != nil {
		return nil, fmt.Errorf("locking stock level %q: %w", productID, err)
	}
	return l, nil
}
