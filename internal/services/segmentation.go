package services

import (
	"sort"

	"olist-dashboard/internal/models"
)

// Classify places a customer into one cell of the 2x2 decision table.
// Pure and total: every (monetary, satisfaction) pair maps to exactly
// one quadrant, with the threshold itself counting as "high" on both
// axes.
func Classify(monetary, satisfaction float64, th models.Thresholds) models.Quadrant {
	highMonetary := monetary >= th.Monetary
	highSatisfaction := satisfaction >= th.Satisfaction

	switch {
	case highMonetary && highSatisfaction:
		return models.QuadrantCore
	case highMonetary:
		return models.QuadrantUpset
	case highSatisfaction:
		return models.QuadrantEfficient
	default:
		return models.QuadrantAtRisk
	}
}

// QuadrantSummary describes one segment under a pair of thresholds.
type QuadrantSummary struct {
	Quadrant      models.Quadrant `json:"quadrant"`
	Count         int             `json:"count"`
	Share         float64         `json:"share"`
	TopCategories []string        `json:"top_categories"`
}

// SegmentationView is the full derived result of one threshold
// evaluation: per-quadrant counts and category highlights plus a
// plot-sized sample of classified rows. It never feeds back into the
// aggregate.
type SegmentationView struct {
	Thresholds models.Thresholds          `json:"thresholds"`
	Total      int                        `json:"total"`
	Summaries  []QuadrantSummary          `json:"summaries"`
	Points     []models.SegmentedCustomer `json:"points"`
}

const topCategoryCount = 3

// Segmentation re-evaluates the quadrant rule over the materialized
// aggregate in a single pass; the aggregate itself is never recomputed
// here.
func (a *Analytics) Segmentation(th models.Thresholds, sampleSize int) (*SegmentationView, error) {
	table, err := a.Table()
	if err != nil {
		return nil, err
	}

	counts := make(map[models.Quadrant]int, 4)
	categoryCounts := make(map[models.Quadrant]map[string]int, 4)
	for _, q := range models.Quadrants {
		categoryCounts[q] = make(map[string]int)
	}

	for _, row := range table.Rows {
		q := Classify(row.Monetary, row.Satisfaction, th)
		counts[q]++
		for _, cat := range table.Categories[row.CustomerUniqueID] {
			categoryCounts[q][cat]++
		}
	}

	view := &SegmentationView{
		Thresholds: th,
		Total:      len(table.Rows),
	}
	for _, q := range models.Quadrants {
		share := 0.0
		if view.Total > 0 {
			share = float64(counts[q]) / float64(view.Total)
		}
		view.Summaries = append(view.Summaries, QuadrantSummary{
			Quadrant:      q,
			Count:         counts[q],
			Share:         share,
			TopCategories: topCategories(categoryCounts[q], topCategoryCount),
		})
	}

	sample := a.Sample(sampleSize)
	view.Points = make([]models.SegmentedCustomer, len(sample))
	for i, row := range sample {
		view.Points[i] = models.SegmentedCustomer{
			CustomerAggregate: row,
			Quadrant:          Classify(row.Monetary, row.Satisfaction, th),
		}
	}

	return view, nil
}

// topCategories ranks labels by purchase count, ties broken
// alphabetically.
func topCategories(counts map[string]int, n int) []string {
	type entry struct {
		label string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for label, count := range counts {
		entries = append(entries, entry{label, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].label < entries[j].label
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.label
	}
	return out
}
