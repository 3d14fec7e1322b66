package postgres

import (
	"context"
	"database/sql"

	"coursepdf/internal/repository"
)

// StatsPostgres recomputes the platform snapshot from scratch on every call.
// O(n) over documents, which is fine at the expected scale; running counters
// would have to be kept consistent with the is_active filter.
type StatsPostgres struct {
	db *sql.DB
}

// NewStatsPostgres creates a new StatsPostgres repository.
func NewStatsPostgres(db *sql.DB) *StatsPostgres {
	return &StatsPostgres{db: db}
}

var _ repository.StatsRepository = (*StatsPostgres)(nil)

// Collect gathers all four aggregates in a single round trip. Soft-deleted
// documents are excluded from both the document count and the download sum.
func (r *StatsPostgres) Collect(ctx context.Context) (*repository.Stats, error) {
	const q = `
		SELECT
			(SELECT COUNT(*) FROM documents WHERE is_active = TRUE),
			(SELECT COUNT(*) FROM courses),
			(SELECT COUNT(*) FROM users),
			(SELECT COALESCE(SUM(download_count), 0) FROM documents WHERE is_active = TRUE)
	`
	var s repository.Stats
	err := r.db.QueryRowContext(ctx, q).Scan(
		&s.TotalDocuments,
		&s.TotalCourses,
		&s.TotalUsers,
		&s.TotalDownloads,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
