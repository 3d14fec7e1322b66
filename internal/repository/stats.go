package repository

import "context"

// Stats is a point-in-time platform snapshot. TotalDownloads sums the
// counters of active documents only, so a soft delete removes a document's
// historical downloads from the aggregate.
type Stats struct {
	TotalDocuments int64 `json:"total_documents"`
	TotalCourses   int64 `json:"total_courses"`
	TotalUsers     int64 `json:"total_users"`
	TotalDownloads int64 `json:"total_downloads"`
}

// StatsRepository recomputes the snapshot live on every call. There are no
// running counters to drift out of sync with the underlying filtered set.
type StatsRepository interface {
	Collect(ctx context.Context) (*Stats, error)
}
