package repository

import (
	"context"

	"coursepdf/internal/model"
)

// DocumentFilter narrows List results. Filters combine with AND; zero values
// mean "no constraint". Listing is always restricted to active documents and
// ordered newest first (created_at DESC, id DESC for a stable tie-break).
type DocumentFilter struct {
	// CourseID matches the owning course exactly.
	CourseID string
	// Domain is a case-insensitive substring match against the owning
	// course's domain slug.
	Domain string
	// Search is a case-insensitive substring match against title OR
	// description.
	Search string
	// OwnerID matches the uploading identity exactly.
	OwnerID string
	// Limit <= 0 returns the full filtered set.
	Limit  int
	Offset int
}

// DocumentUpdate carries the only client-settable fields. Ownership, size,
// download count and the active flag are deliberately absent.
type DocumentUpdate struct {
	Title       string
	Description string
	CourseID    string
}

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here — strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document row and returns the stored record.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns an active document by ID. Soft-deleted rows behave
	// exactly like missing rows (sql.ErrNoRows).
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns active documents matching the filter.
	List(ctx context.Context, f DocumentFilter) ([]model.Document, error)

	// Update rewrites the mutable fields of an active document and bumps
	// updated_at. Returns sql.ErrNoRows for missing or inactive rows.
	Update(ctx context.Context, id string, upd DocumentUpdate) (*model.Document, error)

	// SoftDelete marks an active document inactive. The transition is
	// terminal: no repository method can flip it back.
	SoftDelete(ctx context.Context, id string) error

	// IncrementDownload atomically bumps the download counter of an active
	// document in a single UPDATE and returns the new value. Safe under
	// concurrent callers on the same id.
	IncrementDownload(ctx context.Context, id string) (int64, error)
}
