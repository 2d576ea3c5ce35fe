package services

import (
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"olist-dashboard/internal/config"
	"olist-dashboard/internal/dataset"
	apperrors "olist-dashboard/internal/errors"
	"olist-dashboard/internal/models"
)

const cacheVersion = "v1"

// Analytics owns the materialized customer aggregate. The table is
// built once per process (or restored from the on-disk cache when the
// source snapshot has not changed) and treated as immutable afterwards;
// threshold changes only ever derive views from it.
type Analytics struct {
	mu       sync.RWMutex
	table    *AggregateTable
	opts     BuildOptions
	cacheDir string
	logger   *slog.Logger
}

func NewAnalytics(opts BuildOptions, cacheDir string, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{
		opts:     opts,
		cacheDir: cacheDir,
		logger:   logger,
	}
}

// SetDataset builds the aggregate directly from an in-memory dataset,
// bypassing loader and cache. Used by tests and the CLI.
func (a *Analytics) SetDataset(ds *models.Dataset) error {
	table, err := BuildAggregate(ds, a.opts)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.table = table
	a.mu.Unlock()
	return nil
}

// Load materializes the aggregate from the loader's dataset, restoring
// a cached build when the marker file has not been modified since. The
// load is attempted once; any failure is terminal for the session.
func (a *Analytics) Load(ctx context.Context, loader *dataset.Loader) error {
	dir, err := loader.Resolve()
	if err != nil {
		return err
	}

	if sourceTime, err := loader.SourceModTime(); err == nil {
		if cached, err := a.loadFromCache(dir); err == nil && sourceTime.Before(cached.BuiltAt) {
			a.mu.Lock()
			a.table = cached
			a.mu.Unlock()
			a.logger.Info("aggregate restored from cache", "customers", len(cached.Rows), "built_at", cached.BuiltAt)
			return nil
		}
	}

	start := time.Now()
	ds, err := loader.Load(ctx)
	if err != nil {
		return err
	}

	table, err := BuildAggregate(ds, a.opts)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.table = table
	a.mu.Unlock()

	if err := a.saveToCache(dir, table); err != nil {
		a.logger.Warn("failed to save aggregate cache", "error", err)
	}

	a.logger.Info("aggregate built",
		"customers", len(table.Rows),
		"duration", time.Since(start),
	)
	return nil
}

// Table returns the materialized aggregate, or an error when no load
// has succeeded yet.
func (a *Analytics) Table() (*AggregateTable, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.table == nil {
		return nil, apperrors.ServiceUnavailable("customer aggregate is not loaded")
	}
	return a.table, nil
}

// Sample returns up to limit aggregate rows, picked deterministically
// by striding over the sorted table so the scatter plot is stable
// across requests and restarts.
func (a *Analytics) Sample(limit int) []models.CustomerAggregate {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.table == nil {
		return nil
	}
	rows := a.table.Rows
	if limit <= 0 || len(rows) <= limit {
		out := make([]models.CustomerAggregate, len(rows))
		copy(out, rows)
		return out
	}
	out := make([]models.CustomerAggregate, 0, limit)
	stride := float64(len(rows)) / float64(limit)
	for i := 0; i < limit; i++ {
		out = append(out, rows[int(float64(i)*stride)])
	}
	return out
}

// DefaultThresholds resolves the profile's defaults against the
// population: a zero monetary default means "use the population
// median".
func (a *Analytics) DefaultThresholds(profile models.Thresholds) models.Thresholds {
	a.mu.RLock()
	defer a.mu.RUnlock()
	th := profile
	if th.Monetary == 0 && a.table != nil {
		th.Monetary = a.table.MonetaryMedian
	}
	return th
}

// Stats reports aggregate-table metadata for the admin endpoint.
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.table == nil {
		return map[string]any{"loaded": false}
	}
	return map[string]any{
		"loaded":          true,
		"customers":       len(a.table.Rows),
		"built_at":        a.table.BuiltAt,
		"monetary_median": a.table.MonetaryMedian,
		"monetary_p95":    a.table.MonetaryP95,
		"grade_cuts":      a.table.GradeCuts,
		"source_orders":   a.table.SourceCounts.Orders,
		"source_reviews":  a.table.SourceCounts.Reviews,
		"source_items":    a.table.SourceCounts.Items,
		"delay_policy":    string(a.opts.DelayPolicy),
	}
}

// GradeDistribution counts customers per RFM tier, base tier first.
func (a *Analytics) GradeDistribution() []GradeCount {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.table == nil {
		return nil
	}
	counts := make(map[string]int)
	for _, row := range a.table.Rows {
		counts[row.RFMGrade]++
	}
	out := make([]GradeCount, 0, len(a.table.GradeNames))
	for _, name := range a.table.GradeNames {
		out = append(out, GradeCount{Grade: name, Count: counts[name]})
	}
	return out
}

type GradeCount struct {
	Grade string `json:"grade"`
	Count int    `json:"count"`
}

// The cache key covers everything that shapes the table: source
// directory, delay policy and grade bands, plus a version for layout
// changes.
func (a *Analytics) cacheFilename(dir string) string {
	fingerprint := fmt.Sprintf("%s|%s|%v|%v|%s", dir, a.opts.DelayPolicy, a.opts.Grades.Cuts, a.opts.Grades.Names, cacheVersion)
	sum := sha256.Sum256([]byte(fingerprint))
	return filepath.Join(a.cacheDir, "aggregate_"+hex.EncodeToString(sum[:8])+".gob")
}

func (a *Analytics) saveToCache(dir string, table *AggregateTable) error {
	if a.cacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(a.cacheDir, 0755); err != nil {
		return err
	}

	file, err := os.Create(a.cacheFilename(dir))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(table)
}

func (a *Analytics) loadFromCache(dir string) (*AggregateTable, error) {
	if a.cacheDir == "" {
		return nil, fmt.Errorf("cache disabled")
	}
	file, err := os.Open(a.cacheFilename(dir))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var table AggregateTable
	if err := gob.NewDecoder(file).Decode(&table); err != nil {
		return nil, err
	}
	return &table, nil
}

// DelayPolicy exposes the configured policy for display.
func (a *Analytics) DelayPolicy() config.DelayPolicy {
	return a.opts.DelayPolicy
}
