package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"coursepdf/internal/model"
	"coursepdf/internal/repository"
)

// CourseInput carries the client-settable course fields.
type CourseInput struct {
	Name        string
	Domain      string
	Description string
}

// CourseService defines the use cases for the course taxonomy.
type CourseService interface {
	Create(ctx context.Context, in CourseInput) (*model.Course, error)
	List(ctx context.Context) ([]model.Course, error)
	Get(ctx context.Context, id string) (*model.Course, error)
	Update(ctx context.Context, id string, in CourseInput) (*model.Course, error)
	// Delete removes the course and, by cascade, its documents' metadata.
	// Blobs under the course's domain remain in storage.
	Delete(ctx context.Context, id string) error
}

type courseService struct {
	courses repository.CourseRepository
}

// NewCourseService constructs a new CourseService.
func NewCourseService(courses repository.CourseRepository) CourseService {
	return &courseService{courses: courses}
}

func validateCourseInput(in CourseInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(in.Domain) == "" {
		return fmt.Errorf("%w: domain is required", ErrValidation)
	}
	return nil
}

func (s *courseService) Create(ctx context.Context, in CourseInput) (*model.Course, error) {
	if err := validateCourseInput(in); err != nil {
		return nil, err
	}
	course := &model.Course{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Domain:      in.Domain,
		Description: in.Description,
		CreatedAt:   time.Now().UTC(),
	}
	out, err := s.courses.Create(ctx, course)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateDomain) {
			return nil, fmt.Errorf("%w: domain %q already exists", ErrConflict, in.Domain)
		}
		return nil, err
	}
	return out, nil
}

func (s *courseService) List(ctx context.Context) ([]model.Course, error) {
	return s.courses.List(ctx)
}

func (s *courseService) Get(ctx context.Context, id string) (*model.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return course, nil
}

// Update renames the course entry. Documents created before the rename keep
// their storage keys; only the catalog row changes.
func (s *courseService) Update(ctx context.Context, id string, in CourseInput) (*model.Course, error) {
	if err := validateCourseInput(in); err != nil {
		return nil, err
	}
	out, err := s.courses.Update(ctx, &model.Course{
		ID:          id,
		Name:        in.Name,
		Domain:      in.Domain,
		Description: in.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateDomain):
			return nil, fmt.Errorf("%w: domain %q already exists", ErrConflict, in.Domain)
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (s *courseService) Delete(ctx context.Context, id string) error {
	if err := s.courses.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
