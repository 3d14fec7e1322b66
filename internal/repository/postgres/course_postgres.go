package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"coursepdf/internal/model"
	"coursepdf/internal/repository"
)

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// documentsCountExpr derives the live active-document count for a course row
// aliased as c. Always computed, never cached.
const documentsCountExpr = `(SELECT COUNT(*) FROM documents d
	            WHERE d.course_id = c.id AND d.is_active = TRUE)`

// CoursePostgres is a PostgreSQL implementation of repository.CourseRepository.
type CoursePostgres struct {
	db *sql.DB
}

// NewCoursePostgres creates a new CoursePostgres repository.
func NewCoursePostgres(db *sql.DB) *CoursePostgres {
	return &CoursePostgres{db: db}
}

var _ repository.CourseRepository = (*CoursePostgres)(nil)

func scanCourse(row interface{ Scan(dest ...any) error }) (*model.Course, error) {
	var c model.Course
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Domain,
		&c.Description,
		&c.DocumentsCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new course. A domain collision surfaces as
// repository.ErrDuplicateDomain.
func (r *CoursePostgres) Create(ctx context.Context, course *model.Course) (*model.Course, error) {
	const q = `
		INSERT INTO courses (id, name, domain, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id, name, domain, description, 0::BIGINT, created_at, updated_at
	`
	row := r.db.QueryRowContext(ctx, q,
		course.ID,
		course.Name,
		course.Domain,
		course.Description,
		course.CreatedAt,
	)
	out, err := scanCourse(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicateDomain
		}
		return nil, err
	}
	return out, nil
}

// FindByID fetches a single course with its live documents count.
func (r *CoursePostgres) FindByID(ctx context.Context, id string) (*model.Course, error) {
	q := `
		SELECT c.id, c.name, c.domain, c.description,
		       ` + documentsCountExpr + `,
		       c.created_at, c.updated_at
		FROM courses c
		WHERE c.id = $1
	`
	return scanCourse(r.db.QueryRowContext(ctx, q, id))
}

// List returns all courses ordered by name ascending.
func (r *CoursePostgres) List(ctx context.Context) ([]model.Course, error) {
	q := `
		SELECT c.id, c.name, c.domain, c.description,
		       ` + documentsCountExpr + `,
		       c.created_at, c.updated_at
		FROM courses c
		ORDER BY c.name ASC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update rewrites name, domain and description. Domain collisions surface as
// repository.ErrDuplicateDomain, missing rows as sql.ErrNoRows.
func (r *CoursePostgres) Update(ctx context.Context, course *model.Course) (*model.Course, error) {
	q := `
		UPDATE courses c
		SET name = $2, domain = $3, description = $4, updated_at = now()
		WHERE c.id = $1
		RETURNING c.id, c.name, c.domain, c.description,
		          ` + documentsCountExpr + `,
		          c.created_at, c.updated_at
	`
	row := r.db.QueryRowContext(ctx, q, course.ID, course.Name, course.Domain, course.Description)
	out, err := scanCourse(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicateDomain
		}
		return nil, err
	}
	return out, nil
}

// Delete removes a course. Document rows under it go with it via the
// ON DELETE CASCADE foreign key; their blobs are not touched here.
func (r *CoursePostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM courses WHERE id = $1`
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
