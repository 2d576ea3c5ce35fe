package models

import "time"

// Order is one row of the processed orders table. Delivered and
// estimated dates may be absent for orders that never reached the
// customer.
type Order struct {
	OrderID     string
	CustomerID  string
	DeliveredAt *time.Time
	EstimatedAt *time.Time
}

// Customer maps a per-order customer_id to the person behind it. One
// customer_unique_id may own several customer_id values, one per order.
type Customer struct {
	CustomerID       string
	CustomerUniqueID string
}

// OrderItem is a single priced line within an order.
type OrderItem struct {
	OrderID   string
	ProductID string
	Price     float64
}

// Review carries a 1-5 score for an order. Orders can collect more
// than one review; they are averaged per order before aggregation.
type Review struct {
	OrderID string
	Score   float64
}

// Product attaches an English category label to a product. The label
// may be empty for uncategorized products.
type Product struct {
	ProductID string
	Category  string
}

// Dataset bundles the five source tables as loaded from disk.
type Dataset struct {
	Orders    []Order
	Customers []Customer
	Items     []OrderItem
	Reviews   []Review
	Products  []Product
}

// CustomerAggregate is one row of the customer-level summary table:
// everything the dashboard knows about a single person.
type CustomerAggregate struct {
	CustomerUniqueID string  `json:"customer_unique_id"`
	Satisfaction     float64 `json:"satisfaction"`
	Monetary         float64 `json:"monetary"`
	Frequency        int     `json:"frequency"`
	AvgDelay         float64 `json:"avg_delay"`
	PrimaryCategory  string  `json:"primary_category"`
	RFMGrade         string  `json:"rfm_grade"`
}

// Quadrant identifies one cell of the 2x2 monetary/satisfaction
// decision table. Display names live in the active profile; these keys
// are stable across languages.
type Quadrant string

const (
	QuadrantCore      Quadrant = "core"      // high monetary, high satisfaction
	QuadrantUpset     Quadrant = "upset"     // high monetary, low satisfaction
	QuadrantEfficient Quadrant = "efficient" // low monetary, high satisfaction
	QuadrantAtRisk    Quadrant = "at_risk"   // low monetary, low satisfaction
)

// Quadrants lists all four cells in presentation order.
var Quadrants = []Quadrant{QuadrantCore, QuadrantUpset, QuadrantEfficient, QuadrantAtRisk}

// Thresholds are the two user-adjustable cut lines that drive
// segmentation.
type Thresholds struct {
	Monetary     float64 `json:"monetary"`
	Satisfaction float64 `json:"satisfaction"`
}

// SegmentedCustomer is an aggregate row with its quadrant under some
// pair of thresholds. The quadrant is derived per request, never
// stored on the aggregate itself.
type SegmentedCustomer struct {
	CustomerAggregate
	Quadrant Quadrant `json:"quadrant"`
}
