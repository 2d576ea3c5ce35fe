// Package dataset locates and reads the five processed Olist tables
// that feed the customer aggregate: orders, customers, order items,
// order reviews and products.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"olist-dashboard/internal/config"
	apperrors "olist-dashboard/internal/errors"
	"olist-dashboard/internal/models"
)

// Fixed table stems; the extension depends on the configured format.
const (
	tableOrders    = "proc_olist_orders_dataset"
	tableCustomers = "proc_olist_customers_dataset"
	tableItems     = "proc_olist_order_items_dataset"
	tableReviews   = "proc_olist_order_reviews_dataset"
	tableProducts  = "proc_olist_products_dataset"
)

type Loader struct {
	cfg    config.DatasetConfig
	logger *slog.Logger
}

func NewLoader(cfg config.DatasetConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		cfg:    cfg,
		logger: logger,
	}
}

// MarkerFile is the file whose presence qualifies a directory as the
// dataset root. The orders table doubles as the marker.
func (l *Loader) MarkerFile() string {
	return tableOrders + "." + string(l.cfg.Format)
}

// SearchPaths lists the candidate directories in probe order: the
// configured directory itself, its named subdirectory, then the fixed
// fallback location.
func (l *Loader) SearchPaths() []string {
	return []string{
		l.cfg.Dir,
		filepath.Join(l.cfg.Dir, l.cfg.Subdir),
		l.cfg.FallbackDir,
	}
}

// Resolve returns the first candidate directory containing the marker
// file. No candidate qualifying is a terminal condition for the
// session.
func (l *Loader) Resolve() (string, error) {
	paths := l.SearchPaths()
	for _, dir := range paths {
		if _, err := os.Stat(filepath.Join(dir, l.MarkerFile())); err == nil {
			return dir, nil
		}
	}
	return "", apperrors.DataNotFound(
		fmt.Sprintf("dataset not found: no candidate directory contains %s", l.MarkerFile()),
		"tried: "+strings.Join(paths, ", "),
	)
}

// SourceModTime reports the marker file's modification time under the
// resolved directory; the aggregate cache is invalidated against it.
func (l *Loader) SourceModTime() (time.Time, error) {
	dir, err := l.Resolve()
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(filepath.Join(dir, l.MarkerFile()))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Load resolves the dataset directory and reads all five tables
// concurrently. Any parse or schema failure aborts the whole load; the
// dashboard never renders over a partial snapshot.
func (l *Loader) Load(ctx context.Context) (*models.Dataset, error) {
	dir, err := l.Resolve()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	l.logger.Info("loading dataset", "dir", dir, "format", l.cfg.Format)

	ds := &models.Dataset{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := l.readOrders(ctx, dir)
		if err != nil {
			return err
		}
		ds.Orders = rows
		return nil
	})
	g.Go(func() error {
		rows, err := l.readCustomers(ctx, dir)
		if err != nil {
			return err
		}
		ds.Customers = rows
		return nil
	})
	g.Go(func() error {
		rows, err := l.readItems(ctx, dir)
		if err != nil {
			return err
		}
		ds.Items = rows
		return nil
	})
	g.Go(func() error {
		rows, err := l.readReviews(ctx, dir)
		if err != nil {
			return err
		}
		ds.Reviews = rows
		return nil
	})
	g.Go(func() error {
		rows, err := l.readProducts(ctx, dir)
		if err != nil {
			return err
		}
		ds.Products = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.Info("dataset loaded",
		"orders", len(ds.Orders),
		"customers", len(ds.Customers),
		"items", len(ds.Items),
		"reviews", len(ds.Reviews),
		"products", len(ds.Products),
		"duration", time.Since(start),
	)

	return ds, nil
}

func (l *Loader) tablePath(dir, stem string) string {
	return filepath.Join(dir, stem+"."+string(l.cfg.Format))
}

func (l *Loader) readOrders(ctx context.Context, dir string) ([]models.Order, error) {
	path := l.tablePath(dir, tableOrders)
	if l.cfg.Format == config.FormatParquet {
		return readOrdersParquet(path)
	}
	return readOrdersCSV(ctx, path)
}

func (l *Loader) readCustomers(ctx context.Context, dir string) ([]models.Customer, error) {
	path := l.tablePath(dir, tableCustomers)
	if l.cfg.Format == config.FormatParquet {
		return readCustomersParquet(path)
	}
	return readCustomersCSV(ctx, path)
}

func (l *Loader) readItems(ctx context.Context, dir string) ([]models.OrderItem, error) {
	path := l.tablePath(dir, tableItems)
	if l.cfg.Format == config.FormatParquet {
		return readItemsParquet(path)
	}
	return readItemsCSV(ctx, path)
}

func (l *Loader) readReviews(ctx context.Context, dir string) ([]models.Review, error) {
	path := l.tablePath(dir, tableReviews)
	if l.cfg.Format == config.FormatParquet {
		return readReviewsParquet(path)
	}
	return readReviewsCSV(ctx, path)
}

func (l *Loader) readProducts(ctx context.Context, dir string) ([]models.Product, error) {
	path := l.tablePath(dir, tableProducts)
	if l.cfg.Format == config.FormatParquet {
		return readProductsParquet(path)
	}
	return readProductsCSV(ctx, path)
}

// parseDate accepts the two timestamp layouts seen in the processed
// snapshot. An empty value means the event never happened (for
// example, an order that was never delivered) and maps to nil.
func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unparseable date %q", value)
}
