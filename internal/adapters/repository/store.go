// Package repository persists the catalog and the outcome log, and keeps an
// in-memory ranked view of the catalog.
package repository

import (
	"context"

	"github.com/okian/elobattle/internal/domain/model"
)

// Store is the durable home of the catalog and the outcome log.
type Store interface {
	// LoadCatalog returns every stored item keyed by ID.
	LoadCatalog(ctx context.Context) (model.Catalog, error)

	// SaveCatalog upserts every item of the catalog.
	SaveCatalog(ctx context.Context, catalog model.Catalog) error

	// RecordRound atomically upserts both updated items and appends the
	// comparison to the outcome log.
	RecordRound(ctx context.Context, a, b model.Item, c model.Comparison) error

	// CountComparisons returns the length of the outcome log.
	CountComparisons(ctx context.Context) (int, error)

	// Reset puts every rating back to baseline, zeroes the counters and
	// clears the outcome log.
	Reset(ctx context.Context, baseline float64) error

	Close() error
}
