package repository

import (
	"context"
	"errors"

	"coursepdf/internal/model"
)

// ErrDuplicateDomain is returned when a course insert or update collides with
// an existing domain slug (unique constraint).
var ErrDuplicateDomain = errors.New("course domain already exists")

// CourseRepository defines data access for the course taxonomy. Every read
// computes DocumentsCount live from the active documents under the course.
type CourseRepository interface {
	Create(ctx context.Context, c *model.Course) (*model.Course, error)
	FindByID(ctx context.Context, id string) (*model.Course, error)

	// List returns all courses ordered by name ascending.
	List(ctx context.Context) ([]model.Course, error)

	Update(ctx context.Context, c *model.Course) (*model.Course, error)

	// Delete removes the course; document metadata under it is removed by
	// the ON DELETE CASCADE relational contract.
	Delete(ctx context.Context, id string) error
}
