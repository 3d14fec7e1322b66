package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"coursepdf/internal/model"
	"coursepdf/internal/repository"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

var courseTestColumns = []string{
	"id", "name", "domain", "description", "documents_count", "created_at", "updated_at",
}

func courseRow(id string, docCount int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(courseTestColumns).
		AddRow(id, "Algorithms", "algorithms", "core CS course", docCount, now, now)
}

func TestCoursePostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewCoursePostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	course := &model.Course{
		ID:          "course-1",
		Name:        "Algorithms",
		Domain:      "algorithms",
		Description: "core CS course",
		CreatedAt:   now,
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO courses").
			WithArgs(course.ID, course.Name, course.Domain, course.Description, course.CreatedAt).
			WillReturnRows(courseRow(course.ID, 0))

		result, err := repo.Create(ctx, course)

		assert.NoError(t, err)
		assert.Equal(t, course.ID, result.ID)
		assert.Zero(t, result.DocumentsCount)
	})

	t.Run("duplicate domain", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO courses").
			WithArgs(course.ID, course.Name, course.Domain, course.Description, course.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "courses_domain_key"})

		result, err := repo.Create(ctx, course)

		assert.ErrorIs(t, err, repository.ErrDuplicateDomain)
		assert.Nil(t, result)
	})
}

func TestCoursePostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewCoursePostgres(db)
	ctx := context.Background()

	t.Run("found with live count", func(t *testing.T) {
		mock.ExpectQuery("SELECT c.id, c.name, c.domain, c.description, \\(SELECT COUNT\\(\\*\\) FROM documents d WHERE d.course_id = c.id AND d.is_active = TRUE\\)").
			WithArgs("course-1").
			WillReturnRows(courseRow("course-1", 7))

		course, err := repo.FindByID(ctx, "course-1")

		assert.NoError(t, err)
		assert.Equal(t, int64(7), course.DocumentsCount)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT c.id, c.name").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		course, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, course)
	})
}

func TestCoursePostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewCoursePostgres(db)
	ctx := context.Background()

	rows := courseRow("course-1", 3).
		AddRow("course-2", "Databases", "databases", "", int64(0),
			time.Now().UTC(), time.Now().UTC())

	mock.ExpectQuery("SELECT c.id, c.name, c.domain, c.description, (.+) FROM courses c ORDER BY c.name ASC").
		WillReturnRows(rows)

	courses, err := repo.List(ctx)

	assert.NoError(t, err)
	assert.Len(t, courses, 2)
	assert.Equal(t, int64(3), courses[0].DocumentsCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoursePostgres_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewCoursePostgres(db)
	ctx := context.Background()

	course := &model.Course{
		ID:          "course-1",
		Name:        "Algorithms",
		Domain:      "algorithms",
		Description: "core CS course",
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("UPDATE courses c SET name = (.+), domain = (.+), description = (.+), updated_at = now\\(\\)").
			WithArgs(course.ID, course.Name, course.Domain, course.Description).
			WillReturnRows(courseRow(course.ID, 3))

		result, err := repo.Update(ctx, course)

		assert.NoError(t, err)
		assert.Equal(t, course.ID, result.ID)
	})

	t.Run("duplicate domain", func(t *testing.T) {
		mock.ExpectQuery("UPDATE courses c SET name =").
			WithArgs(course.ID, course.Name, course.Domain, course.Description).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		result, err := repo.Update(ctx, course)

		assert.ErrorIs(t, err, repository.ErrDuplicateDomain)
		assert.Nil(t, result)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("UPDATE courses c SET name =").
			WithArgs(course.ID, course.Name, course.Domain, course.Description).
			WillReturnError(sql.ErrNoRows)

		result, err := repo.Update(ctx, course)

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, result)
	})
}

func TestCoursePostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewCoursePostgres(db)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM courses WHERE id = ?").
			WithArgs("course-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(ctx, "course-1"))
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM courses WHERE id = ?").
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Delete(ctx, "missing"), sql.ErrNoRows)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(sql.ErrNoRows))
	assert.False(t, isUniqueViolation(nil))
}
