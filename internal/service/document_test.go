package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coursepdf/internal/model"
	"coursepdf/internal/repository"
	repoMocks "coursepdf/internal/repository/mocks"
	"coursepdf/internal/storage"
	storeMocks "coursepdf/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func activeDoc(id, ownerID string) *model.Document {
	return &model.Document{
		ID:            id,
		Title:         "Intro to Graphs",
		CourseID:      "course-1",
		OwnerID:       ownerID,
		StorageKey:    "algorithms/graphs.pdf",
		Size:          2048,
		DownloadCount: 3,
		Active:        true,
	}
}

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()

	course := &model.Course{ID: "course-1", Name: "Algorithms", Domain: "algorithms"}

	tests := []struct {
		name       string
		input      UploadInput
		setupMocks func(mStore *storeMocks.MockStorage, mDocs *repoMocks.MockDocumentRepository, mCourses *repoMocks.MockCourseRepository) io.Reader
		wantErr    error
		wantErrMsg string
	}{
		{
			name: "happy path keys blob under the course domain",
			input: UploadInput{
				Title:    "Intro to Graphs",
				CourseID: "course-1",
				OwnerID:  "owner-1",
				Filename: "graphs.pdf",
				Size:     2048,
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mDocs *repoMocks.MockDocumentRepository, mCourses *repoMocks.MockCourseRepository) io.Reader {
				r := strings.NewReader("%PDF-1.4")
				mCourses.On("FindByID", ctx, "course-1").Return(course, nil)
				mStore.On("Put", ctx, "algorithms/graphs.pdf", r, storage.PutObjectOptions{
					Size:        2048,
					ContentType: "application/pdf",
					Metadata:    map[string]string{"original-filename": "graphs.pdf"},
				}).Return(storage.ObjectInfo{Key: "algorithms/graphs.pdf", Size: 2048}, nil)
				mDocs.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.StorageKey == "algorithms/graphs.pdf" && doc.Size == 2048 &&
						doc.OwnerID == "owner-1" && doc.CourseID == "course-1"
				})).Return(activeDoc("gen-id", "owner-1"), nil)
				return r
			},
		},
		{
			name:  "validation - nil reader",
			input: UploadInput{Title: "x", CourseID: "course-1", Filename: "a.pdf"},
			setupMocks: func(mStore *storeMocks.MockStorage, mDocs *repoMocks.MockDocumentRepository, mCourses *repoMocks.MockCourseRepository) io.Reader {
				return nil
			},
			wantErr: ErrValidation,
		},
		{
			name:  "validation - blank title",
			input: UploadInput{Title: "   ", CourseID: "course-1", Filename: "a.pdf"},
			setupMocks: func(mStore *storeMocks.MockStorage, mDocs *repoMocks.MockDocumentRepository, mCourses *repoMocks.MockCourseRepository) io.Reader {
				return strings.NewReader("%PDF-1.4")
			},
			wantErr: ErrValidation,
		},
		{
			name:  "validation - non-pdf extension",
			input: UploadInput{Title: "x", CourseID: "course-1", Filename: "notes.docx"},
			setupMocks: func(mStore *storeMocks.MockStorage, mDocs *repoMocks.MockDocumentRepository, mCourses *repoMocks.MockCourseRepository) io.Reader {
				return strings.NewReader("%PDF-1.4")
			},
			wantErr: ErrValidation,
		},
		{
			name:  "extension check is case-insensitive",
			input: UploadInput{Title: "x", CourseID: "course-1", OwnerID: "owner-1", Filename: "NOTES.PDF", Size: 4},
			setupMocks: func(mStore *storeMocks.MockStorage, mDocs *repoMocks.MockDocumentRepository, mCourses *repoMocks.MockCourseRepository) io.Reader {
				r := strings.NewReader("%PDF")
				mCourses.On("FindByID", ctx, "course-1").Return(course, nil)
				mStore.On("Put", ctx, "algorithms/NOTES.PDF", r, mock.Anything).
					Return(storage.ObjectInfo{Key: "algorithms/NOTES.PDF", Size: 4}, nil)
				mDocs.On("Create", ctx, mock.Anything).Return(activeDoc("gen-id", "owner-1"), nil)
				return r
			},
		},
		{
			name:  "unknown course",
			input: UploadInput{Title: "x", CourseID: "missing", Filename: "a.pdf"},
			setupMocks: func(mStore *storeMocks.MockStorage, mDocs *repoMocks.MockDocumentRepository, mCourses *repoMocks.MockCourseRepository) io.Reader {
				mCourses.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)
				return strings.NewReader("%PDF-1.4")
			},
			wantErr: ErrNotFound,
		},
		{
			name:  "storage error",
			input: UploadInput{Title: "x", CourseID: "course-1", Filename: "a.pdf", Size: 4},
			setupMocks: func(mStore *storeMocks.MockStorage, mDocs *repoMocks.MockDocumentRepository, mCourses *repoMocks.MockCourseRepository) io.Reader {
				r := strings.NewReader("%PDF")
				mCourses.On("FindByID", ctx, "course-1").Return(course, nil)
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
				return r
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name:  "repository error with successful rollback",
			input: UploadInput{Title: "x", CourseID: "course-1", Filename: "a.pdf", Size: 4},
			setupMocks: func(mStore *storeMocks.MockStorage, mDocs *repoMocks.MockDocumentRepository, mCourses *repoMocks.MockCourseRepository) io.Reader {
				r := strings.NewReader("%PDF")
				mCourses.On("FindByID", ctx, "course-1").Return(course, nil)
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mDocs.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, "algorithms/a.pdf").Return(nil)
				return r
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name:  "repository error with failed rollback",
			input: UploadInput{Title: "x", CourseID: "course-1", Filename: "a.pdf", Size: 4},
			setupMocks: func(mStore *storeMocks.MockStorage, mDocs *repoMocks.MockDocumentRepository, mCourses *repoMocks.MockCourseRepository) io.Reader {
				r := strings.NewReader("%PDF")
				mCourses.On("FindByID", ctx, "course-1").Return(course, nil)
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mDocs.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(errors.New("delete fail"))
				return r
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mDocs := new(repoMocks.MockDocumentRepository)
			mCourses := new(repoMocks.MockCourseRepository)
			svc := NewDocumentService(mStore, mDocs, mCourses)

			tt.input.File = tt.setupMocks(mStore, mDocs, mCourses)

			doc, err := svc.Upload(ctx, tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else if tt.wantErrMsg != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, doc)
			}

			mStore.AssertExpectations(t)
			mDocs.AssertExpectations(t)
			mCourses.AssertExpectations(t)
		})
	}
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("filters pass through", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mDocs, nil)

		mDocs.On("List", ctx, repository.DocumentFilter{
			CourseID: "course-1", Domain: "algo", Search: "graph", Limit: 10, Offset: 5,
		}).Return([]model.Document{{ID: "1"}, {ID: "2"}}, nil)

		res, err := svc.List(ctx, ListQuery{CourseID: "course-1", Domain: "algo", Search: "graph", Limit: 10, Offset: 5})

		assert.NoError(t, err)
		assert.Len(t, res.Items, 2)
		assert.Equal(t, 2, res.Total)
		mDocs.AssertExpectations(t)
	})

	t.Run("non-positive limit requests the full set", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mDocs, nil)

		mDocs.On("List", ctx, repository.DocumentFilter{Limit: 0, Offset: 0}).
			Return([]model.Document{}, nil)

		res, err := svc.List(ctx, ListQuery{Limit: 0, Offset: -3})

		assert.NoError(t, err)
		assert.Equal(t, 0, res.Total)
		mDocs.AssertExpectations(t)
	})

	t.Run("repository error", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mDocs, nil)

		mDocs.On("List", ctx, mock.Anything).Return(nil, errors.New("db fail"))

		res, err := svc.List(ctx, ListQuery{})

		assert.Error(t, err)
		assert.Nil(t, res)
	})
}

func TestDocumentService_ListByOwner(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mDocs, nil)

		mDocs.On("List", ctx, repository.DocumentFilter{OwnerID: "owner-1"}).
			Return([]model.Document{{ID: "1"}}, nil)

		docs, err := svc.ListByOwner(ctx, "owner-1")

		assert.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("anonymous caller", func(t *testing.T) {
		svc := NewDocumentService(nil, new(repoMocks.MockDocumentRepository), nil)

		docs, err := svc.ListByOwner(ctx, "")

		assert.ErrorIs(t, err, ErrValidation)
		assert.Nil(t, docs)
	})
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mDocs, nil)

		mDocs.On("FindByID", ctx, "doc-1").Return(activeDoc("doc-1", "owner-1"), nil)

		doc, err := svc.Get(ctx, "doc-1")

		assert.NoError(t, err)
		assert.Equal(t, "doc-1", doc.ID)
	})

	t.Run("missing or soft-deleted maps to not found", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mDocs, nil)

		mDocs.On("FindByID", ctx, "gone").Return(nil, sql.ErrNoRows)

		doc, err := svc.Get(ctx, "gone")

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, doc)
	})

	t.Run("generic repository error", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mDocs, nil)

		mDocs.On("FindByID", ctx, "doc-1").Return(nil, errors.New("db fail"))

		doc, err := svc.Get(ctx, "doc-1")

		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Nil(t, doc)
	})
}

func TestDocumentService_Update(t *testing.T) {
	ctx := context.Background()
	strPtr := func(s string) *string { return &s }

	t.Run("owner can change title, other fields stay", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mDocs, nil)

		doc := activeDoc("doc-1", "owner-1")
		doc.Description = "old description"
		mDocs.On("FindByID", ctx, "doc-1").Return(doc, nil)
		mDocs.On("Update", ctx, "doc-1", repository.DocumentUpdate{
			Title:       "New Title",
			Description: "old description",
			CourseID:    "course-1",
		}).Return(activeDoc("doc-1", "owner-1"), nil)

		out, err := svc.Update(ctx, "doc-1", "owner-1", UpdateInput{Title: strPtr("New Title")})

		assert.NoError(t, err)
		assert.NotNil(t, out)
		mDocs.AssertExpectations(t)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mDocs, nil)

		mDocs.On("FindByID", ctx, "doc-1").Return(activeDoc("doc-1", "owner-1"), nil)

		out, err := svc.Update(ctx, "doc-1", "intruder", UpdateInput{Title: strPtr("x")})

		assert.ErrorIs(t, err, ErrForbidden)
		assert.Nil(t, out)
		mDocs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("anonymous is forbidden", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mDocs, nil)

		mDocs.On("FindByID", ctx, "doc-1").Return(activeDoc("doc-1", "owner-1"), nil)

		_, err := svc.Update(ctx, "doc-1", "", UpdateInput{Title: strPtr("x")})

		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("moving to an unknown course is not found", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		mCourses := new(repoMocks.MockCourseRepository)
		svc := NewDocumentService(nil, mDocs, mCourses)

		mDocs.On("FindByID", ctx, "doc-1").Return(activeDoc("doc-1", "owner-1"), nil)
		mCourses.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		out, err := svc.Update(ctx, "doc-1", "owner-1", UpdateInput{CourseID: strPtr("missing")})

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, out)
	})

	t.Run("blank title rejected", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mDocs, nil)

		mDocs.On("FindByID", ctx, "doc-1").Return(activeDoc("doc-1", "owner-1"), nil)

		_, err := svc.Update(ctx, "doc-1", "owner-1", UpdateInput{Title: strPtr("  ")})

		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("concurrent soft delete loses the row", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mDocs, nil)

		mDocs.On("FindByID", ctx, "doc-1").Return(activeDoc("doc-1", "owner-1"), nil)
		mDocs.On("Update", ctx, "doc-1", mock.Anything).Return(nil, sql.ErrNoRows)

		out, err := svc.Update(ctx, "doc-1", "owner-1", UpdateInput{Title: strPtr("x")})

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, out)
	})
}

func TestDocumentService_SoftDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("owner can delete", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mDocs, nil)

		mDocs.On("FindByID", ctx, "doc-1").Return(activeDoc("doc-1", "owner-1"), nil)
		mDocs.On("SoftDelete", ctx, "doc-1").Return(nil)

		assert.NoError(t, svc.SoftDelete(ctx, "doc-1", "owner-1"))
		mDocs.AssertExpectations(t)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mDocs, nil)

		mDocs.On("FindByID", ctx, "doc-1").Return(activeDoc("doc-1", "owner-1"), nil)

		err := svc.SoftDelete(ctx, "doc-1", "intruder")

		assert.ErrorIs(t, err, ErrForbidden)
		mDocs.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
	})

	t.Run("second delete is not found", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mDocs, nil)

		// After the first delete the read already misses the row.
		mDocs.On("FindByID", ctx, "doc-1").Return(nil, sql.ErrNoRows)

		assert.ErrorIs(t, svc.SoftDelete(ctx, "doc-1", "owner-1"), ErrNotFound)
	})
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestDocumentService_Download(t *testing.T) {
	ctx := context.Background()

	t.Run("streams the blob and bumps the counter", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mDocs, nil)

		mDocs.On("FindByID", ctx, "doc-1").Return(activeDoc("doc-1", "owner-1"), nil)
		mStore.On("Exists", ctx, "algorithms/graphs.pdf").Return(true, nil)
		mStore.On("Get", ctx, "algorithms/graphs.pdf").
			Return(io.NopCloser(strings.NewReader("%PDF-1.4")), storage.ObjectInfo{Size: 2048}, nil)
		mDocs.On("IncrementDownload", ctx, "doc-1").Return(int64(4), nil)

		rc, res, err := svc.Download(ctx, "doc-1")

		require.NoError(t, err)
		defer rc.Close()
		assert.Equal(t, "Intro to Graphs.pdf", res.Filename)
		assert.Equal(t, "application/pdf", res.ContentType)
		assert.Equal(t, int64(2048), res.Size)
		assert.Equal(t, int64(4), res.DownloadCount)
		mDocs.AssertExpectations(t)
	})

	t.Run("missing blob under live metadata is not found", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mDocs, nil)

		mDocs.On("FindByID", ctx, "doc-1").Return(activeDoc("doc-1", "owner-1"), nil)
		mStore.On("Exists", ctx, "algorithms/graphs.pdf").Return(false, nil)

		_, _, err := svc.Download(ctx, "doc-1")

		assert.ErrorIs(t, err, ErrNotFound)
		mStore.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
		mDocs.AssertNotCalled(t, "IncrementDownload", mock.Anything, mock.Anything)
	})

	t.Run("increment failure closes the reader", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mDocs, nil)

		rc := &closeTracker{Reader: strings.NewReader("%PDF-1.4")}
		mDocs.On("FindByID", ctx, "doc-1").Return(activeDoc("doc-1", "owner-1"), nil)
		mStore.On("Exists", ctx, "algorithms/graphs.pdf").Return(true, nil)
		mStore.On("Get", ctx, "algorithms/graphs.pdf").Return(rc, storage.ObjectInfo{Size: 2048}, nil)
		mDocs.On("IncrementDownload", ctx, "doc-1").Return(int64(0), sql.ErrNoRows)

		_, _, err := svc.Download(ctx, "doc-1")

		assert.ErrorIs(t, err, ErrNotFound)
		assert.True(t, rc.closed)
	})
}

func TestDocumentService_Preview(t *testing.T) {
	ctx := context.Background()

	t.Run("does not touch the counter", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mDocs, nil)

		mDocs.On("FindByID", ctx, "doc-1").Return(activeDoc("doc-1", "owner-1"), nil)
		mStore.On("Exists", ctx, "algorithms/graphs.pdf").Return(true, nil)
		mStore.On("Get", ctx, "algorithms/graphs.pdf").
			Return(io.NopCloser(strings.NewReader("%PDF-1.4")), storage.ObjectInfo{Size: 2048}, nil)

		rc, res, err := svc.Preview(ctx, "doc-1")

		require.NoError(t, err)
		defer rc.Close()
		assert.Equal(t, int64(3), res.DownloadCount)
		mDocs.AssertNotCalled(t, "IncrementDownload", mock.Anything, mock.Anything)
	})
}

// countingDocRepo is a minimal thread-safe repository used to exercise the
// download path under concurrency.
type countingDocRepo struct {
	doc   model.Document
	count atomic.Int64
}

func (r *countingDocRepo) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	return doc, nil
}

func (r *countingDocRepo) FindByID(ctx context.Context, id string) (*model.Document, error) {
	d := r.doc
	return &d, nil
}

func (r *countingDocRepo) List(ctx context.Context, f repository.DocumentFilter) ([]model.Document, error) {
	return nil, nil
}

func (r *countingDocRepo) Update(ctx context.Context, id string, upd repository.DocumentUpdate) (*model.Document, error) {
	return nil, sql.ErrNoRows
}

func (r *countingDocRepo) SoftDelete(ctx context.Context, id string) error {
	return sql.ErrNoRows
}

func (r *countingDocRepo) IncrementDownload(ctx context.Context, id string) (int64, error) {
	return r.count.Add(1), nil
}

type stubStorage struct{}

func (stubStorage) Put(ctx context.Context, key string, rd io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{Key: key}, nil
}

func (stubStorage) Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	return io.NopCloser(strings.NewReader("%PDF-1.4")), storage.ObjectInfo{Size: 8}, nil
}

func (stubStorage) Exists(ctx context.Context, key string) (bool, error) { return true, nil }

func (stubStorage) Delete(ctx context.Context, key string) error { return nil }

func (stubStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "", nil
}

func TestDocumentService_DownloadConcurrent(t *testing.T) {
	ctx := context.Background()

	repo := &countingDocRepo{doc: *activeDoc("doc-1", "owner-1")}
	svc := NewDocumentService(stubStorage{}, repo, nil)

	const workers = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			rc, _, err := svc.Download(ctx, "doc-1")
			if err == nil {
				rc.Close()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(workers), repo.count.Load())
}
