package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	apperrors "olist-dashboard/internal/errors"
	"olist-dashboard/internal/models"
)

// rowGetter returns the value of a named column for the current record.
type rowGetter func(col string) string

// readCSVTable streams a CSV file, maps columns by header name and
// invokes row once per record. A required header missing from the file
// is a schema mismatch and fails the load immediately.
func readCSVTable(ctx context.Context, path string, required []string, row func(get rowGetter) error) error {
	file, err := os.Open(path)
	if err != nil {
		return apperrors.DataIntegrity(err, fmt.Sprintf("cannot open %s", path))
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return apperrors.DataIntegrity(err, fmt.Sprintf("cannot read header of %s", path))
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return apperrors.DataIntegrity(
				fmt.Errorf("missing column %q", col),
				fmt.Sprintf("schema mismatch in %s", path),
			)
		}
	}

	line := 1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return apperrors.DataIntegrity(err, fmt.Sprintf("malformed record in %s", path))
		}
		line++

		get := func(col string) string {
			i := index[col]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		if err := row(get); err != nil {
			return apperrors.DataIntegrity(err, fmt.Sprintf("bad value at %s line %d", path, line))
		}
	}
}

func readOrdersCSV(ctx context.Context, path string) ([]models.Order, error) {
	var orders []models.Order
	err := readCSVTable(ctx, path,
		[]string{"order_id", "customer_id", "order_delivered_customer_date", "order_estimated_delivery_date"},
		func(get rowGetter) error {
			delivered, err := parseDate(get("order_delivered_customer_date"))
			if err != nil {
				return err
			}
			estimated, err := parseDate(get("order_estimated_delivery_date"))
			if err != nil {
				return err
			}
			orders = append(orders, models.Order{
				OrderID:     get("order_id"),
				CustomerID:  get("customer_id"),
				DeliveredAt: delivered,
				EstimatedAt: estimated,
			})
			return nil
		})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func readCustomersCSV(ctx context.Context, path string) ([]models.Customer, error) {
	var customers []models.Customer
	err := readCSVTable(ctx, path,
		[]string{"customer_id", "customer_unique_id"},
		func(get rowGetter) error {
			customers = append(customers, models.Customer{
				CustomerID:       get("customer_id"),
				CustomerUniqueID: get("customer_unique_id"),
			})
			return nil
		})
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func readItemsCSV(ctx context.Context, path string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := readCSVTable(ctx, path,
		[]string{"order_id", "product_id", "price"},
		func(get rowGetter) error {
			price, err := strconv.ParseFloat(get("price"), 64)
			if err != nil {
				return fmt.Errorf("invalid price: %w", err)
			}
			items = append(items, models.OrderItem{
				OrderID:   get("order_id"),
				ProductID: get("product_id"),
				Price:     price,
			})
			return nil
		})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func readReviewsCSV(ctx context.Context, path string) ([]models.Review, error) {
	var reviews []models.Review
	err := readCSVTable(ctx, path,
		[]string{"order_id", "review_score"},
		func(get rowGetter) error {
			score, err := strconv.ParseFloat(get("review_score"), 64)
			if err != nil {
				return fmt.Errorf("invalid review score: %w", err)
			}
			reviews = append(reviews, models.Review{
				OrderID: get("order_id"),
				Score:   score,
			})
			return nil
		})
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func readProductsCSV(ctx context.Context, path string) ([]models.Product, error) {
	var products []models.Product
	err := readCSVTable(ctx, path,
		[]string{"product_id", "product_category_name_english"},
		func(get rowGetter) error {
			products = append(products, models.Product{
				ProductID: get("product_id"),
				Category:  get("product_category_name_english"),
			})
			return nil
		})
	if err != nil {
		return nil, err
	}
	return products, nil
}
