package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"olist-dashboard/internal/config"
	"olist-dashboard/internal/dataset"
)

// writeSnapshotCSV lays out the five tables as a CSV snapshot with a
// single customer whose one order carries the given item price.
func writeSnapshotCSV(t *testing.T, dir string, price float64) {
	t.Helper()

	tables := map[string]string{
		"proc_olist_orders_dataset.csv": "order_id,customer_id,order_delivered_customer_date,order_estimated_delivery_date\n" +
			"o1,c1,2018-03-14 10:00:00,2018-03-12 00:00:00\n",
		"proc_olist_customers_dataset.csv": "customer_id,customer_unique_id\nc1,u1\n",
		"proc_olist_order_items_dataset.csv": "order_id,product_id,price\n" +
			fmt.Sprintf("o1,p1,%.2f\n", price),
		"proc_olist_order_reviews_dataset.csv": "order_id,review_score\no1,4\n",
		"proc_olist_products_dataset.csv":      "product_id,product_category_name_english\np1,toys\n",
	}
	for name, content := range tables {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func newSnapshotLoader(t *testing.T, dir string) *dataset.Loader {
	t.Helper()
	return dataset.NewLoader(config.DatasetConfig{
		Dir:         dir,
		Subdir:      "DATA_PARQUET",
		FallbackDir: filepath.Join(dir, "missing"),
		Format:      config.FormatCSV,
	}, nil)
}

func TestAnalytics_Load_CacheRestore(t *testing.T) {
	dir := t.TempDir()
	cacheDir := t.TempDir()
	writeSnapshotCSV(t, dir, 100)
	loader := newSnapshotLoader(t, dir)

	first := NewAnalytics(defaultOpts(), cacheDir, nil)
	if err := first.Load(context.Background(), loader); err != nil {
		t.Fatalf("first Load() failed: %v", err)
	}
	firstTable, err := first.Table()
	if err != nil {
		t.Fatal(err)
	}

	// The marker file predates the cached build, so a fresh service
	// over the same cache directory must restore, not rebuild.
	marker := filepath.Join(dir, loader.MarkerFile())
	past := firstTable.BuiltAt.Add(-time.Hour)
	if err := os.Chtimes(marker, past, past); err != nil {
		t.Fatal(err)
	}

	second := NewAnalytics(defaultOpts(), cacheDir, nil)
	if err := second.Load(context.Background(), loader); err != nil {
		t.Fatalf("second Load() failed: %v", err)
	}
	secondTable, err := second.Table()
	if err != nil {
		t.Fatal(err)
	}

	if !secondTable.BuiltAt.Equal(firstTable.BuiltAt) {
		t.Errorf("restored BuiltAt = %v, want the cached %v", secondTable.BuiltAt, firstTable.BuiltAt)
	}
	if len(secondTable.Rows) != 1 || secondTable.Rows[0].Monetary != 100 {
		t.Errorf("restored rows = %+v, want the cached single customer with Monetary 100", secondTable.Rows)
	}
}

func TestAnalytics_Load_CacheInvalidatedByMarkerMtime(t *testing.T) {
	dir := t.TempDir()
	cacheDir := t.TempDir()
	writeSnapshotCSV(t, dir, 100)
	loader := newSnapshotLoader(t, dir)

	first := NewAnalytics(defaultOpts(), cacheDir, nil)
	if err := first.Load(context.Background(), loader); err != nil {
		t.Fatalf("first Load() failed: %v", err)
	}
	firstTable, err := first.Table()
	if err != nil {
		t.Fatal(err)
	}

	// A rewritten snapshot with a newer marker mtime must force a
	// rebuild that sees the new data.
	writeSnapshotCSV(t, dir, 999)
	marker := filepath.Join(dir, loader.MarkerFile())
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(marker, future, future); err != nil {
		t.Fatal(err)
	}

	second := NewAnalytics(defaultOpts(), cacheDir, nil)
	if err := second.Load(context.Background(), loader); err != nil {
		t.Fatalf("second Load() failed: %v", err)
	}
	secondTable, err := second.Table()
	if err != nil {
		t.Fatal(err)
	}

	if len(secondTable.Rows) != 1 || secondTable.Rows[0].Monetary != 999 {
		t.Errorf("rebuilt rows = %+v, want Monetary 999 from the rewritten snapshot", secondTable.Rows)
	}
	if !secondTable.BuiltAt.After(firstTable.BuiltAt) {
		t.Errorf("rebuilt BuiltAt = %v, want later than the first build %v", secondTable.BuiltAt, firstTable.BuiltAt)
	}
}

func TestAnalytics_Load_CacheDisabled(t *testing.T) {
	dir := t.TempDir()
	writeSnapshotCSV(t, dir, 100)
	loader := newSnapshotLoader(t, dir)

	a := NewAnalytics(defaultOpts(), "", nil)
	if err := a.Load(context.Background(), loader); err != nil {
		t.Fatalf("Load() without a cache dir failed: %v", err)
	}
	table, err := a.Table()
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Rows) != 1 {
		t.Errorf("expected 1 customer, got %d", len(table.Rows))
	}
}
