package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog entry. The order engine reads its prices and active
// flag; catalog management itself is an external collaborator.
type Product struct {
	ID           string
	Name         string
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
	Active       bool
	CreatedAt    time.Time
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
