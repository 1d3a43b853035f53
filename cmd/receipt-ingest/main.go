// Command receipt-ingest bulk-loads inbound stock receipts from gzipped
// JSONL files, e.g. exports from a supplier portal. Each line is one
// receipt:
//
//	{"receiptNo":"SI173...","productId":"p-x","quantity":3,"unitCost":"8.50","supplierRef":"ACME"}
//
// Receipt numbers are globally unique; re-running an ingest must not apply
// a receipt twice. A bloom filter seeded with the already-recorded receipt
// numbers prefilters duplicates cheaply, and positive hits are confirmed
// against the database before skipping.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/warestock/warestock/internal/domain/stockin"
	"github.com/warestock/warestock/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000
)

// receiptJSON is one line of an ingest file.
type receiptJSON struct {
	ReceiptNo   string          `json:"receiptNo"`
	ProductID   string          `json:"productId"`
	Quantity    int64           `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unitCost"`
	SupplierRef string          `json:"supplierRef"`
	Remark      string          `json:"remark"`
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing receipt .jsonl.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("receipt ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("receipt ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "list ingest files")
	}
	if len(files) == 0 {
		slog.Info("no ingest files found", slog.String("dir", dataDir))
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	receipts := postgres.NewReceiptRepository(pool)

	// Seed the duplicate prefilter with every recorded receipt number.
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	var seeded uint64
	if err := receipts.ListReceiptNos(ctx, func(no string) {
		filter.AddString(no)
		seeded++
	}); err != nil {
		return errors.Wrap(err, "seed duplicate filter")
	}
	slog.Info("duplicate filter seeded", slog.Uint64("receipts", seeded))

	// Parse files concurrently; a single writer applies receipts so that
	// duplicate checks and filter updates stay ordered.
	records := make(chan receiptJSON, 1024)

	g, ctx := errgroup.WithContext(ctx)
	parsers, parseCtx := errgroup.WithContext(ctx)
	for _, f := range files {
		parsers.Go(parseFile(parseCtx, f, records))
	}
	g.Go(func() error {
		defer close(records)
		return parsers.Wait()
	})

	var inserted, skipped uint64
	g.Go(func() error {
		for rec := range records {
			dup, err := isDuplicate(ctx, receipts, filter, rec.ReceiptNo)
			if err != nil {
				return err
			}
			if dup {
				skipped++
				continue
			}

			if _, err := receipts.Create(ctx, &stockin.Receipt{
				ID:          uuid.New().String(),
				ReceiptNo:   rec.ReceiptNo,
				ProductID:   rec.ProductID,
				Quantity:    rec.Quantity,
				UnitCost:    rec.UnitCost,
				SupplierRef: rec.SupplierRef,
				Remark:      rec.Remark,
				CreatedAt:   time.Now(),
			}); err != nil {
				return errors.Wrapf(err, "apply receipt %s", rec.ReceiptNo)
			}
			filter.AddString(rec.ReceiptNo)

			inserted++
			if inserted%progressEvery == 0 {
				slog.Info("ingest progress",
					slog.Uint64("inserted", inserted),
					slog.Uint64("skipped", skipped),
				)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest finished",
		slog.Uint64("inserted", inserted),
		slog.Uint64("skipped", skipped),
	)
	return nil
}

// isDuplicate checks the bloom filter first and only confirms positive hits
// against the database; the filter has no false negatives, so a miss is a
// guaranteed new receipt.
func isDuplicate(ctx context.Context, receipts *postgres.ReceiptRepository, filter *bloom.BloomFilter, receiptNo string) (bool, error) {
	if !filter.TestString(receiptNo) {
		return false, nil
	}
	exists, err := receipts.ReceiptNoExists(ctx, receiptNo)
	if err != nil {
		return false, errors.Wrapf(err, "confirm duplicate %s", receiptNo)
	}
	return exists, nil
}

// parseFile streams one gzipped JSONL file and sends parsed records.
func parseFile(ctx context.Context, path string, out chan<- receiptJSON) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var line uint64
		scanner := bufio.NewScanner(gz)
		for scanner.Scan() {
			line++
			if len(scanner.Bytes()) == 0 {
				continue
			}

			var rec receiptJSON
			if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
				return errors.Wrapf(err, "parse %s line %d", path, line)
			}
			if rec.ReceiptNo == "" || rec.ProductID == "" || rec.Quantity < 1 {
				return errors.Errorf("invalid receipt at %s line %d", path, line)
			}

			select {
			case out <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}
		return nil
	}
}
