package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"coursepdf/internal/model"
	"coursepdf/internal/repository"
)

const documentColumns = `d.id, d.title, d.description, d.course_id, d.owner_id,
	       d.storage_key, d.size, d.download_count, d.is_active, d.created_at, d.updated_at`

// DocumentPostgres is a PostgreSQL implementation of
// repository.DocumentRepository. It uses database/sql with parameterized
// queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

func scanDocument(row interface{ Scan(dest ...any) error }) (*model.Document, error) {
	var d model.Document
	err := row.Scan(
		&d.ID,
		&d.Title,
		&d.Description,
		&d.CourseID,
		&d.OwnerID,
		&d.StorageKey,
		&d.Size,
		&d.DownloadCount,
		&d.Active,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, title, description, course_id, owner_id,
		                       storage_key, size, download_count, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, TRUE, $8, $8)
		RETURNING id, title, description, course_id, owner_id,
		          storage_key, size, download_count, is_active, created_at, updated_at
	`
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Title,
		doc.Description,
		doc.CourseID,
		doc.OwnerID,
		doc.StorageKey,
		doc.Size,
		doc.CreatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single active document by its ID. Inactive rows are
// indistinguishable from missing ones.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := `
		SELECT ` + documentColumns + `
		FROM documents d
		WHERE d.id = $1 AND d.is_active = TRUE
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// List returns active documents matching the filter, newest first with a
// stable tie-break on id. The conditions are conjunctive; domain and search
// are case-insensitive substring matches (ILIKE).
func (r *DocumentPostgres) List(ctx context.Context, f repository.DocumentFilter) ([]model.Document, error) {
	conds := []string{"d.is_active = TRUE"}
	args := []any{}

	if f.CourseID != "" {
		args = append(args, f.CourseID)
		conds = append(conds, fmt.Sprintf("d.course_id = $%d", len(args)))
	}
	if f.Domain != "" {
		args = append(args, f.Domain)
		conds = append(conds, fmt.Sprintf("c.domain ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if f.Search != "" {
		args = append(args, f.Search)
		conds = append(conds, fmt.Sprintf(
			"(d.title ILIKE '%%' || $%d || '%%' OR d.description ILIKE '%%' || $%d || '%%')",
			len(args), len(args)))
	}
	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		conds = append(conds, fmt.Sprintf("d.owner_id = $%d", len(args)))
	}

	q := `
		SELECT ` + documentColumns + `
		FROM documents d
		JOIN courses c ON c.id = d.course_id
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY d.created_at DESC, d.id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update rewrites the client-settable fields of an active document and bumps
// updated_at. Missing or soft-deleted rows yield sql.ErrNoRows.
func (r *DocumentPostgres) Update(ctx context.Context, id string, upd repository.DocumentUpdate) (*model.Document, error) {
	const q = `
		UPDATE documents d
		SET title = $2, description = $3, course_id = $4, updated_at = now()
		WHERE d.id = $1 AND d.is_active = TRUE
		RETURNING d.id, d.title, d.description, d.course_id, d.owner_id,
		          d.storage_key, d.size, d.download_count, d.is_active, d.created_at, d.updated_at
	`
	row := r.db.QueryRowContext(ctx, q, id, upd.Title, upd.Description, upd.CourseID)
	return scanDocument(row)
}

// SoftDelete flips is_active to false. The WHERE clause only matches active
// rows, so the transition happens at most once; repeated calls and calls on
// missing rows return sql.ErrNoRows.
func (r *DocumentPostgres) SoftDelete(ctx context.Context, id string) error {
	const q = `
		UPDATE documents
		SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active = TRUE
	`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IncrementDownload bumps the counter in a single conditional UPDATE so that
// concurrent downloads of the same document cannot lose increments. It does
// not touch updated_at.
func (r *DocumentPostgres) IncrementDownload(ctx context.Context, id string) (int64, error) {
	const q = `
		UPDATE documents
		SET download_count = download_count + 1
		WHERE id = $1 AND is_active = TRUE
		RETURNING download_count
	`
	var count int64
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
