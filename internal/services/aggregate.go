package services

import (
	"fmt"
	"sort"
	"time"

	"olist-dashboard/internal/config"
	apperrors "olist-dashboard/internal/errors"
	"olist-dashboard/internal/models"
)

// GradeBands configures the monetary tiering: Cuts are quantile points
// in ascending order, Names has one entry more than Cuts, base tier
// first.
type GradeBands struct {
	Cuts  []float64
	Names []string
}

// DefaultGradeBands is the standard tiering: bottom half Regular, up
// to the 80th percentile Loyal, the rest VIP.
func DefaultGradeBands() GradeBands {
	return GradeBands{
		Cuts:  []float64{0.5, 0.8},
		Names: []string{"Regular", "Loyal", "VIP"},
	}
}

func (b GradeBands) validate() error {
	if len(b.Names) != len(b.Cuts)+1 {
		return fmt.Errorf("grade bands need %d names for %d cuts, got %d", len(b.Cuts)+1, len(b.Cuts), len(b.Names))
	}
	prev := 0.0
	for _, c := range b.Cuts {
		if c <= prev || c >= 1 {
			return fmt.Errorf("grade cuts must be ascending within (0,1), got %v", b.Cuts)
		}
		prev = c
	}
	return nil
}

// BuildOptions parameterize the aggregation pipeline. The delay policy
// resolves the undelivered-order ambiguity explicitly instead of
// hard-coding either behavior.
type BuildOptions struct {
	DelayPolicy config.DelayPolicy
	Grades      GradeBands
}

// AggregateTable is the materialized customer-level summary: one row
// per customer_unique_id plus the side products the dashboard needs
// (category multisets, resolved grade cut values, population marks).
// It is immutable after construction; segmentation derives views from
// it without writing back.
type AggregateTable struct {
	Rows       []models.CustomerAggregate
	Categories map[string][]string

	GradeCuts  []float64
	GradeNames []string

	MonetaryMedian float64
	MonetaryP95    float64

	BuiltAt      time.Time
	SourceCounts SourceCounts
}

type SourceCounts struct {
	Orders    int
	Customers int
	Items     int
	Reviews   int
	Products  int
}

// DelayDays computes the clamped lateness of a delivery in whole days.
// Early and on-time deliveries are zero. A missing date on either side
// leaves the delay undefined (ok=false); the delay policy decides what
// that means for the customer's mean.
func DelayDays(delivered, estimated *time.Time) (float64, bool) {
	if delivered == nil || estimated == nil {
		return 0, false
	}
	days := int(delivered.Sub(*estimated).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return float64(days), true
}

type orderFacts struct {
	customerUniqueID string
	satisfaction     float64 // mean review score for the order
	monetary         float64 // summed item prices for the order
	delay            float64
	delayDefined     bool
	categories       []string
}

// BuildAggregate runs the fixed join/aggregation pipeline over the
// five tables and produces the customer summary. All joins are inner:
// an order only contributes when it resolves to a person, carries at
// least one review and at least one priced item; a customer only gets
// a row when at least one purchased item resolves to a category.
func BuildAggregate(ds *models.Dataset, opts BuildOptions) (*AggregateTable, error) {
	if err := opts.Grades.validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "invalid grade bands")
	}

	// Order -> person.
	personByCustomerID := make(map[string]string, len(ds.Customers))
	for _, c := range ds.Customers {
		personByCustomerID[c.CustomerID] = c.CustomerUniqueID
	}

	// Per-order review mean; duplicate reviews collapse here.
	reviewSum := make(map[string]float64)
	reviewCount := make(map[string]int)
	for _, r := range ds.Reviews {
		reviewSum[r.OrderID] += r.Score
		reviewCount[r.OrderID]++
	}

	// Item -> category, then per-order price sum and category list.
	categoryByProductID := make(map[string]string, len(ds.Products))
	for _, p := range ds.Products {
		if p.Category != "" {
			categoryByProductID[p.ProductID] = p.Category
		}
	}
	priceSum := make(map[string]float64)
	pricedOrders := make(map[string]bool)
	orderCategories := make(map[string][]string)
	for _, it := range ds.Items {
		priceSum[it.OrderID] += it.Price
		pricedOrders[it.OrderID] = true
		if cat, ok := categoryByProductID[it.ProductID]; ok {
			orderCategories[it.OrderID] = append(orderCategories[it.OrderID], cat)
		}
	}

	// Order-level table: only orders that survive every join.
	facts := make([]orderFacts, 0, len(ds.Orders))
	for _, o := range ds.Orders {
		person, ok := personByCustomerID[o.CustomerID]
		if !ok {
			continue
		}
		count := reviewCount[o.OrderID]
		if count == 0 || !pricedOrders[o.OrderID] {
			continue
		}
		delay, defined := DelayDays(o.DeliveredAt, o.EstimatedAt)
		facts = append(facts, orderFacts{
			customerUniqueID: person,
			satisfaction:     reviewSum[o.OrderID] / float64(count),
			monetary:         priceSum[o.OrderID],
			delay:            delay,
			delayDefined:     defined,
			categories:       orderCategories[o.OrderID],
		})
	}

	// Group by person.
	type personAcc struct {
		satSum     float64
		monetary   float64
		frequency  int
		delaySum   float64
		delayCount int
		categories []string
	}
	accs := make(map[string]*personAcc)
	for _, f := range facts {
		acc := accs[f.customerUniqueID]
		if acc == nil {
			acc = &personAcc{}
			accs[f.customerUniqueID] = acc
		}
		acc.satSum += f.satisfaction
		acc.monetary += f.monetary
		acc.frequency++
		switch {
		case f.delayDefined:
			acc.delaySum += f.delay
			acc.delayCount++
		case opts.DelayPolicy == config.DelayZeroFill:
			// Undefined delay counts as an on-time delivery.
			acc.delayCount++
		}
		acc.categories = append(acc.categories, f.categories...)
	}

	table := &AggregateTable{
		Categories: make(map[string][]string),
		BuiltAt:    time.Now(),
		SourceCounts: SourceCounts{
			Orders:    len(ds.Orders),
			Customers: len(ds.Customers),
			Items:     len(ds.Items),
			Reviews:   len(ds.Reviews),
			Products:  len(ds.Products),
		},
	}

	for person, acc := range accs {
		primary, ok := modeCategory(acc.categories)
		if !ok {
			// No purchased item resolved to a category; the customer
			// drops out of the aggregate, same as any other failed join.
			continue
		}
		avgDelay := 0.0
		if acc.delayCount > 0 {
			avgDelay = acc.delaySum / float64(acc.delayCount)
		}
		table.Rows = append(table.Rows, models.CustomerAggregate{
			CustomerUniqueID: person,
			Satisfaction:     acc.satSum / float64(acc.frequency),
			Monetary:         acc.monetary,
			Frequency:        acc.frequency,
			AvgDelay:         avgDelay,
			PrimaryCategory:  primary,
		})
		table.Categories[person] = acc.categories
	}

	if len(table.Rows) == 0 {
		return nil, apperrors.EmptyDataset("aggregation produced no customers: the joins eliminated every row")
	}

	sort.Slice(table.Rows, func(i, j int) bool {
		return table.Rows[i].CustomerUniqueID < table.Rows[j].CustomerUniqueID
	})

	table.applyGrades(opts.Grades)

	return table, nil
}

// applyGrades computes the monetary cut points over the full
// population and stamps each row with its tier.
func (t *AggregateTable) applyGrades(bands GradeBands) {
	monetary := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		monetary[i] = row.Monetary
	}

	t.GradeNames = bands.Names
	t.GradeCuts = make([]float64, len(bands.Cuts))
	for i, q := range bands.Cuts {
		t.GradeCuts[i] = Quantile(monetary, q)
	}
	t.MonetaryMedian = Quantile(monetary, 0.5)
	t.MonetaryP95 = Quantile(monetary, 0.95)

	for i := range t.Rows {
		t.Rows[i].RFMGrade = gradeFor(t.Rows[i].Monetary, t.GradeCuts, t.GradeNames)
	}
}

// gradeFor picks the highest tier whose cut the value reaches. With
// cuts c1 <= c2: value >= c2 is the top tier, value >= c1 the middle,
// anything lower the base. Monotonic in value by construction.
func gradeFor(value float64, cuts []float64, names []string) string {
	for i := len(cuts) - 1; i >= 0; i-- {
		if value >= cuts[i] {
			return names[i+1]
		}
	}
	return names[0]
}

// modeCategory returns the most frequent label; frequency ties break
// toward the lexicographically smallest label so the result does not
// depend on row order.
func modeCategory(categories []string) (string, bool) {
	if len(categories) == 0 {
		return "", false
	}
	counts := make(map[string]int, len(categories))
	for _, c := range categories {
		counts[c]++
	}
	best := ""
	bestCount := 0
	for c, n := range counts {
		if n > bestCount || (n == bestCount && c < best) {
			best = c
			bestCount = n
		}
	}
	return best, true
}
