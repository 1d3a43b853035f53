package order

import "fmt"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// validNext enumerates the allowed transitions. completed and cancelled are
// terminal.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPaid: true, StatusCancelled: true},
	StatusPaid:      {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether from -> to is an allowed transition.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// InvalidTransitionError indicates a transition attempted from a state that
// does not allow it. Nothing changes when it is returned.
type InvalidTransitionError struct {
	OrderID string
	From    Status
	To      Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: invalid transition %s -> %s", e.OrderID, e.From, e.To)
}

// StockEffect is the ledger side effect a transition carries.
type StockEffect int

const (
	// EffectNone leaves stock untouched (status-only bookkeeping).
	EffectNone StockEffect = iota
	// EffectRelease moves every line's quantity frozen -> available.
	EffectRelease
	// EffectCommit removes every line's quantity from frozen (sold).
	EffectCommit
)

// TransitionEffect returns the stock effect of an allowed transition.
//
// Cancelling a pending order releases its reservation; paying commits it.
// Cancelling after payment has no stock effect: the committed quantity
// already left the ledger, and restocking is a manual inbound receipt.
func TransitionEffect(from, to Status) StockEffect {
	switch {
	case from == StatusPending && to == StatusCancelled:
		return EffectRelease
	case from == StatusPending && to == StatusPaid:
		return EffectCommit
	default:
		return EffectNone
	}
}
