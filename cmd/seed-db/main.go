// Command seed-db loads catalog products and their opening stock levels
// from a JSON file into the database. Existing products are updated in
// place; opening stock is only applied when the product has no ledger row
// yet, so re-running the seed never fabricates stock.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/warestock/warestock/internal/storage/postgres"
)

type productJSON struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	Active       *bool           `json:"active,omitempty"`
	OpeningStock int64           `json:"openingStock,omitempty"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrapf(err, "read %s", productsFile)
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	for _, p := range products {
		active := true
		if p.Active != nil {
			active = *p.Active
		}

		if _, err := pool.Exec(ctx, `
			INSERT INTO products (id, name, cost_price, selling_price, active)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				cost_price = EXCLUDED.cost_price,
				selling_price = EXCLUDED.selling_price,
				active = EXCLUDED.active`,
			p.ID, p.Name, p.CostPrice, p.SellingPrice, active,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		if _, err := pool.Exec(ctx, `
			INSERT INTO stock_levels (product_id, available, frozen)
			VALUES ($1, $2, 0)
			ON CONFLICT (product_id) DO NOTHING`,
			p.ID, p.OpeningStock,
		); err != nil {
			return errors.Wrapf(err, "seed stock for product %s", p.ID)
		}

		slog.Info("seeded product",
			slog.String("id", p.ID),
			slog.String("name", p.Name),
			slog.Int64("opening_stock", p.OpeningStock),
		)
	}

	return nil
}
