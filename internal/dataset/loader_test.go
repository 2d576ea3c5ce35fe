package dataset

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"olist-dashboard/internal/config"
	apperrors "olist-dashboard/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func csvConfig(dir string) config.DatasetConfig {
	return config.DatasetConfig{
		Dir:         dir,
		Subdir:      "DATA_PARQUET",
		FallbackDir: filepath.Join(dir, "does-not-exist"),
		Format:      config.FormatCSV,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// writeCSVFixtures lays down a minimal but join-complete dataset.
func writeCSVFixtures(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "proc_olist_orders_dataset.csv"),
		"order_id,customer_id,order_delivered_customer_date,order_estimated_delivery_date\n"+
			"o1,c1,2023-01-15 10:00:00,2023-01-10 10:00:00\n"+
			"o2,c2,,2023-02-05 10:00:00\n")
	writeFile(t, filepath.Join(dir, "proc_olist_customers_dataset.csv"),
		"customer_id,customer_unique_id\nc1,u1\nc2,u2\n")
	writeFile(t, filepath.Join(dir, "proc_olist_order_items_dataset.csv"),
		"order_id,product_id,price\no1,p1,99.90\no2,p2,25.50\n")
	writeFile(t, filepath.Join(dir, "proc_olist_order_reviews_dataset.csv"),
		"order_id,review_score\no1,5\no1,3\no2,4\n")
	writeFile(t, filepath.Join(dir, "proc_olist_products_dataset.csv"),
		"product_id,product_category_name_english\np1,toys\np2,books\n")
}

func TestLoader_Resolve_Priority(t *testing.T) {
	// Marker only in the named subdirectory: resolution must skip the
	// root and land there.
	dir := t.TempDir()
	sub := filepath.Join(dir, "DATA_PARQUET")
	writeCSVFixtures(t, sub)

	loader := NewLoader(csvConfig(dir), testLogger())

	resolved, err := loader.Resolve()
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if resolved != sub {
		t.Errorf("resolved = %q, want %q", resolved, sub)
	}

	// Marker in the root wins over the subdirectory.
	writeCSVFixtures(t, dir)
	resolved, err = loader.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if resolved != dir {
		t.Errorf("resolved = %q, want root %q", resolved, dir)
	}
}

func TestLoader_Resolve_NotFound(t *testing.T) {
	loader := NewLoader(csvConfig(t.TempDir()), testLogger())

	_, err := loader.Resolve()
	if err == nil {
		t.Fatal("expected data-not-found error")
	}
	if !apperrors.IsCode(err, apperrors.CodeDataNotFound) {
		t.Errorf("error = %v, want DATA_NOT_FOUND", err)
	}
}

func TestLoader_Load_CSV(t *testing.T) {
	dir := t.TempDir()
	writeCSVFixtures(t, dir)

	loader := NewLoader(csvConfig(dir), testLogger())
	ds, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(ds.Orders) != 2 || len(ds.Customers) != 2 || len(ds.Items) != 2 || len(ds.Reviews) != 3 || len(ds.Products) != 2 {
		t.Errorf("unexpected table sizes: %d orders, %d customers, %d items, %d reviews, %d products",
			len(ds.Orders), len(ds.Customers), len(ds.Items), len(ds.Reviews), len(ds.Products))
	}

	if ds.Orders[0].DeliveredAt == nil {
		t.Error("o1 should have a delivered date")
	}
	if ds.Orders[1].DeliveredAt != nil {
		t.Error("o2 has an empty delivered date and should map to nil")
	}
	if ds.Items[0].Price != 99.90 {
		t.Errorf("o1 price = %v, want 99.90", ds.Items[0].Price)
	}
}

func TestLoader_Load_SchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	writeCSVFixtures(t, dir)
	// Break the reviews table: required column renamed.
	writeFile(t, filepath.Join(dir, "proc_olist_order_reviews_dataset.csv"),
		"order_id,score\no1,5\n")

	loader := NewLoader(csvConfig(dir), testLogger())
	_, err := loader.Load(context.Background())
	if err == nil {
		t.Fatal("expected schema mismatch error")
	}
	if !apperrors.IsCode(err, apperrors.CodeDataIntegrity) {
		t.Errorf("error = %v, want DATA_INTEGRITY", err)
	}
}

func TestLoader_Load_BadValue(t *testing.T) {
	dir := t.TempDir()
	writeCSVFixtures(t, dir)
	writeFile(t, filepath.Join(dir, "proc_olist_order_items_dataset.csv"),
		"order_id,product_id,price\no1,p1,not-a-number\n")

	loader := NewLoader(csvConfig(dir), testLogger())
	_, err := loader.Load(context.Background())
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !apperrors.IsCode(err, apperrors.CodeDataIntegrity) {
		t.Errorf("error = %v, want DATA_INTEGRITY", err)
	}
}

func writeParquetFile[T any](t *testing.T, path string, rows []T) {
	t.Helper()
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	pw, err := writer.NewParquetWriter(fw, new(T), 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			t.Fatal(err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		t.Fatal(err)
	}
	if err := fw.Close(); err != nil {
		t.Fatal(err)
	}
}

func strPtr(s string) *string { return &s }

func TestLoader_Load_Parquet(t *testing.T) {
	dir := t.TempDir()

	writeParquetFile(t, filepath.Join(dir, "proc_olist_orders_dataset.parquet"), []parquetOrder{
		{OrderID: "o1", CustomerID: "c1", DeliveredAt: strPtr("2023-01-15 10:00:00"), EstimatedAt: strPtr("2023-01-10 10:00:00")},
		{OrderID: "o2", CustomerID: "c2", DeliveredAt: nil, EstimatedAt: strPtr("2023-02-05 10:00:00")},
	})
	writeParquetFile(t, filepath.Join(dir, "proc_olist_customers_dataset.parquet"), []parquetCustomer{
		{CustomerID: "c1", CustomerUniqueID: "u1"},
		{CustomerID: "c2", CustomerUniqueID: "u2"},
	})
	writeParquetFile(t, filepath.Join(dir, "proc_olist_order_items_dataset.parquet"), []parquetItem{
		{OrderID: "o1", ProductID: "p1", Price: 99.90},
		{OrderID: "o2", ProductID: "p2", Price: 25.50},
	})
	writeParquetFile(t, filepath.Join(dir, "proc_olist_order_reviews_dataset.parquet"), []parquetReview{
		{OrderID: "o1", Score: 5},
		{OrderID: "o2", Score: 4},
	})
	writeParquetFile(t, filepath.Join(dir, "proc_olist_products_dataset.parquet"), []parquetProduct{
		{ProductID: "p1", Category: strPtr("toys")},
		{ProductID: "p2", Category: nil},
	})

	cfg := csvConfig(dir)
	cfg.Format = config.FormatParquet
	loader := NewLoader(cfg, testLogger())

	ds, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(ds.Orders) != 2 || len(ds.Products) != 2 {
		t.Fatalf("unexpected table sizes: %d orders, %d products", len(ds.Orders), len(ds.Products))
	}
	if ds.Orders[0].DeliveredAt == nil {
		t.Error("o1 should have a delivered date")
	}
	if ds.Orders[1].DeliveredAt != nil {
		t.Error("o2 should have no delivered date")
	}
	if ds.Products[1].Category != "" {
		t.Errorf("null category should map to empty string, got %q", ds.Products[1].Category)
	}
}

func TestLoader_MarkerFile_FollowsFormat(t *testing.T) {
	cfg := csvConfig(t.TempDir())
	loader := NewLoader(cfg, testLogger())
	if got := loader.MarkerFile(); got != "proc_olist_orders_dataset.csv" {
		t.Errorf("marker = %q", got)
	}

	cfg.Format = config.FormatParquet
	loader = NewLoader(cfg, testLogger())
	if got := loader.MarkerFile(); got != "proc_olist_orders_dataset.parquet" {
		t.Errorf("marker = %q", got)
	}
}
