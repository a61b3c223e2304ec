package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	// batchSize is the fixed page size for row retrieval. Independent of
	// result size so batch boundaries stay stable across identical runs.
	batchSize = 5000

	// maxTotalRows is the hard safety cap on rows collected for one
	// period. Reaching it stops pagination and marks the result truncated.
	maxTotalRows = 500_000
)

// Repository handles read access to tier_days
type Repository struct {
	db *Database
}

// NewRepository creates a new tier-day repository
func NewRepository(db *Database) *Repository {
	return &Repository{db: db}
}

// FetchRows retrieves all rows in [start, end] matching the filters,
// paginating in fixed-size batches ordered by (date, id). The composite
// order key is unique per row, so repeated runs against unchanged data
// produce identical batch boundaries and identical row order.
//
// A store error mid-pagination aborts retrieval but keeps the rows already
// collected, returned with Partial set. Context cancellation or deadline
// expiry discards everything and returns only the context error.
func (r *Repository) FetchRows(ctx context.Context, start, end time.Time, f Filters) FetchResult {
	var rows []TierDay
	offset := 0

	for {
		var page []TierDay
		err := r.scoped(ctx, start, end, f).
			Order("date ASC, id ASC").
			Offset(offset).
			Limit(batchSize).
			Find(&page).Error
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return FetchResult{Err: err}
			}
			return FetchResult{
				Rows:    rows,
				Partial: true,
				Err:     fmt.Errorf("FetchRows at offset %d: %w", offset, err),
			}
		}

		rows = append(rows, page...)
		if len(rows) >= maxTotalRows {
			return FetchResult{Rows: rows[:maxTotalRows], Truncated: true}
		}
		if len(page) < batchSize {
			return FetchResult{Rows: rows}
		}
		offset += batchSize
	}
}

// MaxAvailableDate returns the latest date present in the store for the
// given filters. The second return value is false when no rows match.
func (r *Repository) MaxAvailableDate(ctx context.Context, f Filters) (time.Time, bool, error) {
	var max sql.NullTime
	err := r.scopedAll(ctx, f).
		Select("MAX(date)").
		Scan(&max).Error
	if err != nil {
		return time.Time{}, false, fmt.Errorf("MaxAvailableDate: %w", err)
	}
	if !max.Valid {
		return time.Time{}, false, nil
	}
	return max.Time, true, nil
}

// CountRows returns the number of rows in [start, end] matching the
// filters, without retrieving them.
func (r *Repository) CountRows(ctx context.Context, start, end time.Time, f Filters) (int64, error) {
	var count int64
	err := r.scoped(ctx, start, end, f).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("CountRows: %w", err)
	}
	return count, nil
}

// scoped builds the base query for a date window plus dimension filters
func (r *Repository) scoped(ctx context.Context, start, end time.Time, f Filters) *gorm.DB {
	return r.scopedAll(ctx, f).Where("date BETWEEN ? AND ?", start, end)
}

// scopedAll builds the base query for dimension filters only
func (r *Repository) scopedAll(ctx context.Context, f Filters) *gorm.DB {
	query := r.db.db.WithContext(ctx).Model(&TierDay{})

	if f.Brand != "" {
		query = query.Where("brand = ?", f.Brand)
	}
	if f.SquadLead != "" {
		query = query.Where("squad_lead = ?", f.SquadLead)
	}
	if f.Channel != "" {
		query = query.Where("channel = ?", f.Channel)
	}
	if len(f.TierNames) > 0 {
		query = query.Where("tier_label IN ?", f.TierNames)
	}

	return query
}
