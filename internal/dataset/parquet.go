package dataset

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	apperrors "olist-dashboard/internal/errors"
	"olist-dashboard/internal/models"
)

// The upstream preprocessing job writes timestamps as UTF8 strings, so
// the parquet row structs mirror that and dates are parsed after read.
// Nullable columns map to pointer fields.

type parquetOrder struct {
	OrderID     string  `parquet:"name=order_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	CustomerID  string  `parquet:"name=customer_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	DeliveredAt *string `parquet:"name=order_delivered_customer_date, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	EstimatedAt *string `parquet:"name=order_estimated_delivery_date, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

type parquetCustomer struct {
	CustomerID       string `parquet:"name=customer_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	CustomerUniqueID string `parquet:"name=customer_unique_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

type parquetItem struct {
	OrderID   string  `parquet:"name=order_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ProductID string  `parquet:"name=product_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Price     float64 `parquet:"name=price, type=DOUBLE"`
}

type parquetReview struct {
	OrderID string  `parquet:"name=order_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Score   float64 `parquet:"name=review_score, type=DOUBLE"`
}

type parquetProduct struct {
	ProductID string  `parquet:"name=product_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Category  *string `parquet:"name=product_category_name_english, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

const parquetReadParallelism = 4

func readParquet[T any](path string) ([]T, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, apperrors.DataIntegrity(err, fmt.Sprintf("cannot open %s", path))
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(T), parquetReadParallelism)
	if err != nil {
		return nil, apperrors.DataIntegrity(err, fmt.Sprintf("schema mismatch in %s", path))
	}
	defer pr.ReadStop()

	rows := make([]T, int(pr.GetNumRows()))
	if err := pr.Read(&rows); err != nil {
		return nil, apperrors.DataIntegrity(err, fmt.Sprintf("cannot read %s", path))
	}
	return rows, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func readOrdersParquet(path string) ([]models.Order, error) {
	raw, err := readParquet[parquetOrder](path)
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0, len(raw))
	for _, r := range raw {
		delivered, err := parseDate(deref(r.DeliveredAt))
		if err != nil {
			return nil, apperrors.DataIntegrity(err, fmt.Sprintf("bad delivered date in %s", path))
		}
		estimated, err := parseDate(deref(r.EstimatedAt))
		if err != nil {
			return nil, apperrors.DataIntegrity(err, fmt.Sprintf("bad estimated date in %s", path))
		}
		orders = append(orders, models.Order{
			OrderID:     r.OrderID,
			CustomerID:  r.CustomerID,
			DeliveredAt: delivered,
			EstimatedAt: estimated,
		})
	}
	return orders, nil
}

func readCustomersParquet(path string) ([]models.Customer, error) {
	raw, err := readParquet[parquetCustomer](path)
	if err != nil {
		return nil, err
	}
	customers := make([]models.Customer, len(raw))
	for i, r := range raw {
		customers[i] = models.Customer{
			CustomerID:       r.CustomerID,
			CustomerUniqueID: r.CustomerUniqueID,
		}
	}
	return customers, nil
}

func readItemsParquet(path string) ([]models.OrderItem, error) {
	raw, err := readParquet[parquetItem](path)
	if err != nil {
		return nil, err
	}
	items := make([]models.OrderItem, len(raw))
	for i, r := range raw {
		items[i] = models.OrderItem{
			OrderID:   r.OrderID,
			ProductID: r.ProductID,
			Price:     r.Price,
		}
	}
	return items, nil
}

func readReviewsParquet(path string) ([]models.Review, error) {
	raw, err := readParquet[parquetReview](path)
	if err != nil {
		return nil, err
	}
	reviews := make([]models.Review, len(raw))
	for i, r := range raw {
		reviews[i] = models.Review{
			OrderID: r.OrderID,
			Score:   r.Score,
		}
	}
	return reviews, nil
}

func readProductsParquet(path string) ([]models.Product, error) {
	raw, err := readParquet[parquetProduct](path)
	if err != nil {
		return nil, err
	}
	products := make([]models.Product, len(raw))
	for i, r := range raw {
		products[i] = models.Product{
			ProductID: r.ProductID,
			Category:  deref(r.Category),
		}
	}
	return products, nil
}
