// Package stock holds the per-product stock ledger: the available/frozen
// counter pair that every reservation, payment and inbound receipt mutates.
//
// The arithmetic lives here as pure functions on Level so that every code
// path applies the same rules. Storage implementations load a Level under a
// row lock, apply one of the mutations, and write it back inside the same
// transaction.
package stock

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// ErrConflict is returned when an operation repeatedly lost the race for a
// product's row lock. It is transient; callers may retry the whole operation.
var ErrConflict = errors.New("stock update conflict")

// InsufficientStockError indicates a reservation asked for more than the
// product's available quantity. The whole batch it belongs to is rejected.
type InsufficientStockError struct {
	ProductID string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// InvariantViolationError indicates a release or commit exceeding the frozen
// quantity. It is a bug in the caller, never a user-facing condition, and
// must abort the enclosing transaction.
type InvariantViolationError struct {
	ProductID string
	Op        string
	Frozen    int64
	Requested int64
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("stock invariant violated: %s of %d exceeds frozen %d for product %s",
		e.Op, e.Requested, e.Frozen, e.ProductID)
}

// Level is one product's ledger entry. Available quantity is free for new
// reservations; frozen quantity is held by pending orders. Their sum only
// changes through Receive (inbound) and Commit (sold).
type Level struct {
	ProductID string
	Available int64
	Frozen    int64
}

// Reserve moves qty from available to frozen. The sum is conserved.
func (l *Level) Reserve(qty int64) error {
	if l.Available < qty {
		return &InsufficientStockError{ProductID: l.ProductID, Available: l.Available, Requested: qty}
	}
	l.Available -= qty
	l.Frozen += qty
	return nil
}

// Release moves qty from frozen back to available, undoing a reservation.
// The caller must only release what it previously froze.
func (l *Level) Release(qty int64) error {
	if l.Frozen < qty {
		return &InvariantViolationError{ProductID: l.ProductID, Op: "release", Frozen: l.Frozen, Requested: qty}
	}
	l.Frozen -= qty
	l.Available += qty
	return nil
}

// Commit removes qty from frozen; the quantity has been sold and leaves the
// ledger. The caller must only commit what it previously froze.
func (l *Level) Commit(qty int64) error {
	if l.Frozen < qty {
		return &InvariantViolationError{ProductID: l.ProductID, Op: "commit", Frozen: l.Frozen, Requested: qty}
	}
	l.Frozen -= qty
	return nil
}

// Receive adds inbound quantity to available. It has no upper bound and
// never fails.
func (l *Level) Receive(qty int64) {
	l.Available += qty
}

// Total is the conserved quantity: available plus frozen.
func (l *Level) Total() int64 {
	return l.Available + l.Frozen
}

// Reader provides read access to ledger entries for reporting and handlers.
// Mutations never go through this interface; they happen inside the
// transactional repository operations that own the row locks.
type Reader interface {
	Get(ctx context.Context, productID string) (*Level, error)
}
