package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"coursepdf/internal/access"
	"coursepdf/internal/model"
	"coursepdf/internal/repository"
	"coursepdf/internal/storage"
)

// UploadInput carries everything needed to create a document. Size is the
// client-declared length, passed through to the blob store as a streaming
// hint; the persisted size always comes from the bytes actually written.
type UploadInput struct {
	Title       string
	Description string
	CourseID    string
	OwnerID     string
	Filename    string
	File        io.Reader
	Size        int64
}

// UpdateInput holds the client-settable document fields. Nil means "keep the
// current value".
type UpdateInput struct {
	Title       *string
	Description *string
	CourseID    *string
}

// ListQuery mirrors the public listing filters.
type ListQuery struct {
	CourseID string
	Domain   string
	Search   string
	Limit    int
	Offset   int
}

// FileResult describes a payload handed back by Download or Preview.
type FileResult struct {
	Filename      string
	ContentType   string
	Size          int64
	DownloadCount int64
}

// DocumentListResult is the service-level DTO for document listings.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload validates the course and filename, writes the blob first, then
	// persists metadata; the blob is deleted again if persistence fails.
	Upload(ctx context.Context, in UploadInput) (*model.Document, error)

	// List returns active documents matching the query, newest first.
	List(ctx context.Context, q ListQuery) (*DocumentListResult, error)

	// ListByOwner returns the requester's own active documents, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error)

	// Get returns a single active document; soft-deleted ones are NotFound.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Update applies field changes after the ownership check.
	Update(ctx context.Context, id, requesterID string, in UpdateInput) (*model.Document, error)

	// SoftDelete marks the document inactive after the ownership check. The
	// blob stays in storage (recoverable, but not via any exposed path).
	SoftDelete(ctx context.Context, id, requesterID string) error

	// Download streams the blob, increments the download counter and
	// suggests "{title}.pdf" as filename.
	Download(ctx context.Context, id string) (io.ReadCloser, *FileResult, error)

	// Preview streams the same blob without touching the counter. The
	// asymmetry with Download is a behavioral contract, not an oversight.
	Preview(ctx context.Context, id string) (io.ReadCloser, *FileResult, error)
}

type documentService struct {
	store   storage.Storage
	docs    repository.DocumentRepository
	courses repository.CourseRepository
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, docs repository.DocumentRepository, courses repository.CourseRepository) DocumentService {
	return &documentService{store: store, docs: docs, courses: courses}
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*model.Document, error) {
	if in.File == nil {
		return nil, fmt.Errorf("%w: file is required", ErrValidation)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !strings.EqualFold(filepath.Ext(in.Filename), ".pdf") {
		return nil, fmt.Errorf("%w: only .pdf files are accepted", ErrValidation)
	}

	course, err := s.courses.FindByID(ctx, in.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: course %s", ErrNotFound, in.CourseID)
		}
		return nil, err
	}

	// The key is frozen here and never recomputed, even if the course's
	// domain is later renamed. Re-uploading the same filename to the same
	// course overwrites the previous blob.
	key := course.Domain + "/" + filepath.Base(in.Filename)

	objInfo, err := s.store.Put(ctx, key, in.File, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: "application/pdf",
		Metadata: map[string]string{
			"original-filename": filepath.Base(in.Filename),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Description: in.Description,
		CourseID:    course.ID,
		OwnerID:     in.OwnerID,
		StorageKey:  objInfo.Key,
		Size:        objInfo.Size,
		CreatedAt:   time.Now().UTC(),
	}
	stored, err := s.docs.Create(ctx, doc)
	if err != nil {
		// Blob first, metadata second: an orphan blob is acceptable, the
		// reverse is not. Roll the blob back so metadata never points at
		// bytes that were never committed alongside it.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

func (s *documentService) List(ctx context.Context, q ListQuery) (*DocumentListResult, error) {
	if q.Offset < 0 {
		q.Offset = 0
	}
	items, err := s.docs.List(ctx, repository.DocumentFilter{
		CourseID: q.CourseID,
		Domain:   q.Domain,
		Search:   q.Search,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: items, Total: len(items)}, nil
}

func (s *documentService) ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}
	return s.docs.List(ctx, repository.DocumentFilter{OwnerID: ownerID})
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Update(ctx context.Context, id, requesterID string, in UpdateInput) (*model.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanMutate(doc, requesterID) {
		return nil, ErrForbidden
	}

	upd := repository.DocumentUpdate{
		Title:       doc.Title,
		Description: doc.Description,
		CourseID:    doc.CourseID,
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, fmt.Errorf("%w: title is required", ErrValidation)
		}
		upd.Title = *in.Title
	}
	if in.Description != nil {
		upd.Description = *in.Description
	}
	if in.CourseID != nil && *in.CourseID != doc.CourseID {
		if _, err := s.courses.FindByID(ctx, *in.CourseID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: course %s", ErrNotFound, *in.CourseID)
			}
			return nil, err
		}
		upd.CourseID = *in.CourseID
	}

	out, err := s.docs.Update(ctx, id, upd)
	if err != nil {
		// Lost the race against a concurrent soft delete.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (s *documentService) SoftDelete(ctx context.Context, id, requesterID string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !access.CanMutate(doc, requesterID) {
		return ErrForbidden
	}
	if err := s.docs.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *documentService) Download(ctx context.Context, id string) (io.ReadCloser, *FileResult, error) {
	doc, rc, info, err := s.open(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	count, err := s.docs.IncrementDownload(ctx, id)
	if err != nil {
		rc.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return rc, s.fileResult(doc, info, count), nil
}

func (s *documentService) Preview(ctx context.Context, id string) (io.ReadCloser, *FileResult, error) {
	doc, rc, info, err := s.open(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return rc, s.fileResult(doc, info, doc.DownloadCount), nil
}

// open resolves the document and its blob. A blob missing despite live
// metadata is a NotFound condition, detected via Exists before reading.
func (s *documentService) open(ctx context.Context, id string) (*model.Document, io.ReadCloser, storage.ObjectInfo, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, storage.ObjectInfo{}, err
	}
	ok, err := s.store.Exists(ctx, doc.StorageKey)
	if err != nil {
		return nil, nil, storage.ObjectInfo{}, fmt.Errorf("stat blob: %w", err)
	}
	if !ok {
		return nil, nil, storage.ObjectInfo{}, ErrNotFound
	}
	rc, info, err := s.store.Get(ctx, doc.StorageKey)
	if err != nil {
		return nil, nil, storage.ObjectInfo{}, fmt.Errorf("read blob: %w", err)
	}
	return doc, rc, info, nil
}

func (s *documentService) fileResult(doc *model.Document, info storage.ObjectInfo, count int64) *FileResult {
	return &FileResult{
		Filename:      doc.Title + ".pdf",
		ContentType:   "application/pdf",
		Size:          info.Size,
		DownloadCount: count,
	}
}
