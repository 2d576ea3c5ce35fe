package services

import (
	"math"
	"testing"
	"time"

	"olist-dashboard/internal/config"
	apperrors "olist-dashboard/internal/errors"
	"olist-dashboard/internal/models"
)

func date(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04:05", value)
	if err != nil {
		t.Fatal(err)
	}
	return &parsed
}

func defaultOpts() BuildOptions {
	return BuildOptions{
		DelayPolicy: config.DelayZeroFill,
		Grades:      DefaultGradeBands(),
	}
}

// testDataset exercises every join rule: u1 owns two customer_ids, u2
// has an undelivered order, u3 lacks a review, u4 lacks a resolvable
// category.
func testDataset(t *testing.T) *models.Dataset {
	t.Helper()
	return &models.Dataset{
		Orders: []models.Order{
			{OrderID: "o1", CustomerID: "c1", DeliveredAt: date(t, "2023-01-15 10:00:00"), EstimatedAt: date(t, "2023-01-10 10:00:00")},
			{OrderID: "o2", CustomerID: "c2", DeliveredAt: date(t, "2023-02-01 10:00:00"), EstimatedAt: date(t, "2023-02-05 10:00:00")},
			{OrderID: "o3", CustomerID: "c3", DeliveredAt: nil, EstimatedAt: date(t, "2023-03-01 10:00:00")},
			{OrderID: "o4", CustomerID: "c4", DeliveredAt: date(t, "2023-03-10 10:00:00"), EstimatedAt: date(t, "2023-03-09 10:00:00")},
			{OrderID: "o5", CustomerID: "c5", DeliveredAt: date(t, "2023-03-12 10:00:00"), EstimatedAt: date(t, "2023-03-11 10:00:00")},
		},
		Customers: []models.Customer{
			{CustomerID: "c1", CustomerUniqueID: "u1"},
			{CustomerID: "c2", CustomerUniqueID: "u1"},
			{CustomerID: "c3", CustomerUniqueID: "u2"},
			{CustomerID: "c4", CustomerUniqueID: "u3"},
			{CustomerID: "c5", CustomerUniqueID: "u4"},
		},
		Items: []models.OrderItem{
			{OrderID: "o1", ProductID: "p1", Price: 100},
			{OrderID: "o2", ProductID: "p2", Price: 150},
			{OrderID: "o2", ProductID: "p1", Price: 50},
			{OrderID: "o3", ProductID: "p3", Price: 500},
			{OrderID: "o4", ProductID: "p1", Price: 30},
			{OrderID: "o5", ProductID: "p9", Price: 40},
		},
		Reviews: []models.Review{
			{OrderID: "o1", Score: 5},
			{OrderID: "o1", Score: 3},
			{OrderID: "o2", Score: 4},
			{OrderID: "o3", Score: 4.2},
			{OrderID: "o5", Score: 2},
		},
		Products: []models.Product{
			{ProductID: "p1", Category: "toys"},
			{ProductID: "p2", Category: "toys"},
			{ProductID: "p3", Category: "electronics"},
		},
	}
}

func findRow(t *testing.T, table *AggregateTable, id string) models.CustomerAggregate {
	t.Helper()
	for _, row := range table.Rows {
		if row.CustomerUniqueID == id {
			return row
		}
	}
	t.Fatalf("customer %s not in aggregate", id)
	return models.CustomerAggregate{}
}

func TestDelayDays(t *testing.T) {
	tests := []struct {
		name        string
		delivered   string
		estimated   string
		wantDelay   float64
		wantDefined bool
	}{
		{"five days late", "2023-01-15 10:00:00", "2023-01-10 10:00:00", 5, true},
		{"early delivery clamps to zero", "2023-01-08 10:00:00", "2023-01-10 10:00:00", 0, true},
		{"on time", "2023-01-10 10:00:00", "2023-01-10 10:00:00", 0, true},
		{"36 hours late truncates to one day", "2023-01-11 22:00:00", "2023-01-10 10:00:00", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, defined := DelayDays(date(t, tt.delivered), date(t, tt.estimated))
			if defined != tt.wantDefined {
				t.Errorf("defined = %v, want %v", defined, tt.wantDefined)
			}
			if delay != tt.wantDelay {
				t.Errorf("delay = %v, want %v", delay, tt.wantDelay)
			}
		})
	}

	if _, defined := DelayDays(nil, date(t, "2023-01-10 10:00:00")); defined {
		t.Error("missing delivered date should leave delay undefined")
	}
}

func TestBuildAggregate_Joins(t *testing.T) {
	table, err := BuildAggregate(testDataset(t), defaultOpts())
	if err != nil {
		t.Fatalf("BuildAggregate() failed: %v", err)
	}

	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 aggregate rows, got %d", len(table.Rows))
	}

	// u3 has no review, u4 has no resolvable category: both dropped.
	for _, row := range table.Rows {
		if row.CustomerUniqueID == "u3" || row.CustomerUniqueID == "u4" {
			t.Errorf("customer %s should have been dropped by the joins", row.CustomerUniqueID)
		}
	}
}

func TestBuildAggregate_SumsAcrossCustomerIDs(t *testing.T) {
	table, err := BuildAggregate(testDataset(t), defaultOpts())
	if err != nil {
		t.Fatal(err)
	}

	u1 := findRow(t, table, "u1")
	if u1.Monetary != 300 {
		t.Errorf("u1 Monetary = %v, want 300 (summed across both customer_ids)", u1.Monetary)
	}
	if u1.Frequency != 2 {
		t.Errorf("u1 Frequency = %d, want 2", u1.Frequency)
	}
	if u1.Satisfaction != 4 {
		t.Errorf("u1 Satisfaction = %v, want 4 (mean of per-order means)", u1.Satisfaction)
	}
	if u1.AvgDelay != 2.5 {
		t.Errorf("u1 AvgDelay = %v, want 2.5 (late order 5, early order clamped to 0)", u1.AvgDelay)
	}
	if u1.PrimaryCategory != "toys" {
		t.Errorf("u1 PrimaryCategory = %q, want %q", u1.PrimaryCategory, "toys")
	}
}

func TestBuildAggregate_Invariants(t *testing.T) {
	table, err := BuildAggregate(testDataset(t), defaultOpts())
	if err != nil {
		t.Fatal(err)
	}

	for _, row := range table.Rows {
		if row.Monetary <= 0 {
			t.Errorf("customer %s Monetary = %v, want > 0", row.CustomerUniqueID, row.Monetary)
		}
		if row.Frequency < 1 {
			t.Errorf("customer %s Frequency = %d, want >= 1", row.CustomerUniqueID, row.Frequency)
		}
		if row.AvgDelay < 0 {
			t.Errorf("customer %s AvgDelay = %v, want >= 0", row.CustomerUniqueID, row.AvgDelay)
		}
	}
}

func TestBuildAggregate_DelayPolicy(t *testing.T) {
	// One defined delay of 4 days, one undefined.
	ds := &models.Dataset{
		Orders: []models.Order{
			{OrderID: "o1", CustomerID: "c1", DeliveredAt: date(t, "2023-01-14 10:00:00"), EstimatedAt: date(t, "2023-01-10 10:00:00")},
			{OrderID: "o2", CustomerID: "c1", DeliveredAt: nil, EstimatedAt: date(t, "2023-02-01 10:00:00")},
		},
		Customers: []models.Customer{{CustomerID: "c1", CustomerUniqueID: "u1"}},
		Items: []models.OrderItem{
			{OrderID: "o1", ProductID: "p1", Price: 10},
			{OrderID: "o2", ProductID: "p1", Price: 10},
		},
		Reviews: []models.Review{
			{OrderID: "o1", Score: 5},
			{OrderID: "o2", Score: 5},
		},
		Products: []models.Product{{ProductID: "p1", Category: "toys"}},
	}

	zeroOpts := defaultOpts()
	table, err := BuildAggregate(ds, zeroOpts)
	if err != nil {
		t.Fatal(err)
	}
	if got := findRow(t, table, "u1").AvgDelay; got != 2 {
		t.Errorf("zero-fill AvgDelay = %v, want 2", got)
	}

	excludeOpts := defaultOpts()
	excludeOpts.DelayPolicy = config.DelayExclude
	table, err = BuildAggregate(ds, excludeOpts)
	if err != nil {
		t.Fatal(err)
	}
	if got := findRow(t, table, "u1").AvgDelay; got != 4 {
		t.Errorf("exclude AvgDelay = %v, want 4", got)
	}
}

func TestBuildAggregate_EmptyResult(t *testing.T) {
	ds := &models.Dataset{
		Orders:    []models.Order{{OrderID: "o1", CustomerID: "c1"}},
		Customers: []models.Customer{{CustomerID: "c1", CustomerUniqueID: "u1"}},
		// No reviews: every order fails the review join.
		Items:    []models.OrderItem{{OrderID: "o1", ProductID: "p1", Price: 10}},
		Products: []models.Product{{ProductID: "p1", Category: "toys"}},
	}

	_, err := BuildAggregate(ds, defaultOpts())
	if err == nil {
		t.Fatal("expected empty-dataset error")
	}
	if !apperrors.IsCode(err, apperrors.CodeEmptyDataset) {
		t.Errorf("error code = %v, want EMPTY_DATASET", err)
	}
}

func TestModeCategory_TieBreak(t *testing.T) {
	got, ok := modeCategory([]string{"toys", "books", "books", "toys"})
	if !ok {
		t.Fatal("mode should be defined")
	}
	if got != "books" {
		t.Errorf("mode = %q, want %q (lexicographic tie-break)", got, "books")
	}

	if _, ok := modeCategory(nil); ok {
		t.Error("empty multiset should have no mode")
	}
}

func TestGradeMonotonicity(t *testing.T) {
	cuts := []float64{100, 500}
	names := []string{"Regular", "Loyal", "VIP"}
	rank := map[string]int{"Regular": 0, "Loyal": 1, "VIP": 2}

	values := []float64{0, 50, 99.99, 100, 250, 499.99, 500, 10000}
	for i := 1; i < len(values); i++ {
		lo := gradeFor(values[i-1], cuts, names)
		hi := gradeFor(values[i], cuts, names)
		if rank[hi] < rank[lo] {
			t.Errorf("grade not monotonic: %v -> %s but %v -> %s", values[i-1], lo, values[i], hi)
		}
	}

	if got := gradeFor(500, cuts, names); got != "VIP" {
		t.Errorf("value at top cut = %s, want VIP", got)
	}
	if got := gradeFor(99, cuts, names); got != "Regular" {
		t.Errorf("value below first cut = %s, want Regular", got)
	}
}

func TestQuantile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{0.25, 20},
		{0.5, 30},
		{0.9, 46},
		{1, 50},
	}
	for _, tt := range tests {
		if got := Quantile(values, tt.p); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Quantile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	if got := Quantile(nil, 0.5); got != 0 {
		t.Errorf("Quantile of empty input = %v, want 0", got)
	}
}
