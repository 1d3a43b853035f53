package order

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/warestock/warestock/internal/domain/product"
	"github.com/warestock/warestock/internal/domain/stock"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]*product.Product
	getErr error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

// memRepo is an in-memory Repository that honours the same atomicity rules
// as the real storage: a whole batch reserves or nothing does, and
// transitions apply their stock effect under the same lock as the status
// change.
type memRepo struct {
	mu     sync.Mutex
	levels map[string]*stock.Level
	orders map[string]*Order
	err    error
}

func newMemRepo(levels map[string]*stock.Level) *memRepo {
	return &memRepo{
		levels: levels,
		orders: make(map[string]*Order),
	}
}

func (m *memRepo) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	// Verify the whole batch before touching anything.
	needed := make(map[string]int64)
	for _, line := range o.Lines {
		needed[line.ProductID] += line.Quantity
	}
	for pid, qty := range needed {
		l, ok := m.levels[pid]
		if !ok {
			return &stock.InsufficientStockError{ProductID: pid, Available: 0, Requested: qty}
		}
		if l.Available < qty {
			return &stock.InsufficientStockError{ProductID: pid, Available: l.Available, Requested: qty}
		}
	}
	for _, line := range o.Lines {
		if err := m.levels[line.ProductID].Reserve(line.Quantity); err != nil {
			return err
		}
	}

	m.orders[o.ID] = o
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *memRepo) Transition(_ context.Context, orderID string, to Status) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	if !CanTransition(o.Status, to) {
		return nil, &InvalidTransitionError{OrderID: orderID, From: o.Status, To: to}
	}

	for _, line := range o.Lines {
		l := m.levels[line.ProductID]
		var err error
		switch TransitionEffect(o.Status, to) {
		case EffectRelease:
			err = l.Release(line.Quantity)
		case EffectCommit:
			err = l.Commit(line.Quantity)
		}
		if err != nil {
			return nil, err
		}
	}

	o.Status = to
	if to == StatusPaid {
		now := time.Now()
		o.PaidAt = &now
	}
	return o, nil
}

// --- Helpers ---

func newTestProduct(id string, price, cost string) *product.Product {
	return &product.Product{
		ID:           id,
		Name:         "product " + id,
		SellingPrice: decimal.RequireFromString(price),
		CostPrice:    decimal.RequireFromString(cost),
		Active:       true,
	}
}

func newProductRepo(products ...*product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockProductRepo{byID: byID}
}

func levelsOf(avail map[string]int64) map[string]*stock.Level {
	levels := make(map[string]*stock.Level, len(avail))
	for pid, qty := range avail {
		levels[pid] = &stock.Level{ProductID: pid, Available: qty}
	}
	return levels
}

// --- Tests ---

func TestCreateOrder_EmptyLines(t *testing.T) {
	svc := NewService(newProductRepo(), newMemRepo(nil))

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{UserID: "u1"})
	require.ErrorIs(t, err, ErrEmptyLines)
}

func TestCreateOrder_InvalidQuantity(t *testing.T) {
	svc := NewService(newProductRepo(newTestProduct("p1", "10.00", "4.00")), newMemRepo(nil))

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: "u1",
		Lines:  []LineInput{{ProductID: "p1", Quantity: 0}},
	})

	var qtyErr *InvalidQuantityError
	require.ErrorAs(t, err, &qtyErr)
	assert.Equal(t, "p1", qtyErr.ProductID)
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	svc := NewService(newProductRepo(), newMemRepo(nil))

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: "u1",
		Lines:  []LineInput{{ProductID: "missing", Quantity: 1}},
	})
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestCreateOrder_InactiveProduct(t *testing.T) {
	p := newTestProduct("p1", "10.00", "4.00")
	p.Active = false
	svc := NewService(newProductRepo(p), newMemRepo(levelsOf(map[string]int64{"p1": 10})))

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: "u1",
		Lines:  []LineInput{{ProductID: "p1", Quantity: 1}},
	})

	var inactiveErr *ProductNotSellableError
	require.ErrorAs(t, err, &inactiveErr)
	assert.Equal(t, "p1", inactiveErr.ProductID)
}

func TestCreateOrder_SnapshotsPricesAndTotals(t *testing.T) {
	p1 := newTestProduct("p1", "10.00", "4.00")
	p2 := newTestProduct("p2", "20.50", "9.00")
	repo := newMemRepo(levelsOf(map[string]int64{"p1": 10, "p2": 10}))
	svc := NewService(newProductRepo(p1, p2), repo)

	o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: "u1",
		Lines: []LineInput{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "u1", o.UserID)
	assert.True(t, strings.HasPrefix(o.OrderNo, "ORD"))
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("40.50")))
	assert.True(t, o.TotalCost.Equal(decimal.RequireFromString("17.00")))
	assert.True(t, o.Profit().Equal(decimal.RequireFromString("23.50")))

	require.Len(t, o.Lines, 2)
	assert.True(t, o.Lines[0].UnitPrice.Equal(p1.SellingPrice))
	assert.True(t, o.Lines[0].UnitCost.Equal(p1.CostPrice))
	assert.True(t, o.Lines[1].Subtotal().Equal(decimal.RequireFromString("20.50")))

	// Changing the catalog price afterwards must not affect the order.
	p1.SellingPrice = decimal.RequireFromString("99.99")
	stored, err := repo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(decimal.RequireFromString("40.50")))
}

func TestCreateOrder_InsufficientStock_NothingChanges(t *testing.T) {
	p1 := newTestProduct("p1", "10.00", "4.00")
	p2 := newTestProduct("p2", "20.00", "9.00")
	levels := levelsOf(map[string]int64{"p1": 10, "p2": 1})
	repo := newMemRepo(levels)
	svc := NewService(newProductRepo(p1, p2), repo)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: "u1",
		Lines: []LineInput{
			{ProductID: "p1", Quantity: 3},
			{ProductID: "p2", Quantity: 2},
		},
	})

	var insErr *stock.InsufficientStockError
	require.ErrorAs(t, err, &insErr)
	assert.Equal(t, "p2", insErr.ProductID)
	assert.Equal(t, int64(1), insErr.Available)
	assert.Equal(t, int64(2), insErr.Requested)

	// All-or-nothing: the satisfiable line must not have reserved either.
	assert.Equal(t, int64(10), levels["p1"].Available)
	assert.Equal(t, int64(0), levels["p1"].Frozen)
	assert.Empty(t, repo.orders)
}

func TestCancel_ReleasesReservation(t *testing.T) {
	p1 := newTestProduct("p1", "10.00", "4.00")
	levels := levelsOf(map[string]int64{"p1": 10})
	repo := newMemRepo(levels)
	svc := NewService(newProductRepo(p1), repo)

	o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: "u1",
		Lines:  []LineInput{{ProductID: "p1", Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), levels["p1"].Available)
	assert.Equal(t, int64(4), levels["p1"].Frozen)

	cancelled, err := svc.Cancel(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, int64(10), levels["p1"].Available)
	assert.Equal(t, int64(0), levels["p1"].Frozen)
}

func TestCancel_TerminalOrder_NoOp(t *testing.T) {
	p1 := newTestProduct("p1", "10.00", "4.00")
	levels := levelsOf(map[string]int64{"p1": 10})
	repo := newMemRepo(levels)
	svc := NewService(newProductRepo(p1), repo)

	o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: "u1",
		Lines:  []LineInput{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), o.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), o.ID)
	var transErr *InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, StatusCancelled, transErr.From)

	// Double cancel must not release twice.
	assert.Equal(t, int64(10), levels["p1"].Available)
	assert.Equal(t, int64(0), levels["p1"].Frozen)
}

func TestComplete_FromPaidOnly(t *testing.T) {
	p1 := newTestProduct("p1", "10.00", "4.00")
	repo := newMemRepo(levelsOf(map[string]int64{"p1": 10}))
	svc := NewService(newProductRepo(p1), repo)

	o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: "u1",
		Lines:  []LineInput{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), o.ID)
	var transErr *InvalidTransitionError
	require.ErrorAs(t, err, &transErr)

	_, err = repo.Transition(context.Background(), o.ID, StatusPaid)
	require.NoError(t, err)

	completed, err := svc.Complete(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
}

func TestCreateOrder_RepoError(t *testing.T) {
	p1 := newTestProduct("p1", "10.00", "4.00")
	repo := newMemRepo(levelsOf(map[string]int64{"p1": 10}))
	repo.err = errors.New("db down")
	svc := NewService(newProductRepo(p1), repo)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: "u1",
		Lines:  []LineInput{{ProductID: "p1", Quantity: 1}},
	})
	require.ErrorContains(t, err, "db down")
}

// N concurrent single-unit checkouts against N-1 units of stock: exactly
// one loses, and the ledger ends at available=0, frozen=N-1.
func TestCreateOrder_ConcurrentContention(t *testing.T) {
	const n = 20

	p1 := newTestProduct("p1", "10.00", "4.00")
	levels := levelsOf(map[string]int64{"p1": n - 1})
	repo := newMemRepo(levels)
	svc := NewService(newProductRepo(p1), repo)

	var (
		mu            sync.Mutex
		succeeded     int
		insufficients int
	)

	var g errgroup.Group
	for range n {
		g.Go(func() error {
			_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
				UserID: "u1",
				Lines:  []LineInput{{ProductID: "p1", Quantity: 1}},
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			default:
				var insErr *stock.InsufficientStockError
				if !errors.As(err, &insErr) {
					return err
				}
				insufficients++
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, n-1, succeeded)
	assert.Equal(t, 1, insufficients)
	assert.Equal(t, int64(0), levels["p1"].Available)
	assert.Equal(t, int64(n-1), levels["p1"].Frozen)
}
