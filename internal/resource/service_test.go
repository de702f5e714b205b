package resource

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"course-portal/internal/apperr"
	"course-portal/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	rows      map[uuid.UUID]models.Resource
	failWrite bool
}

func newMemStore() *memStore { return &memStore{rows: map[uuid.UUID]models.Resource{}} }

func (m *memStore) Create(_ context.Context, res *models.Resource) error {
	if m.failWrite {
		return errors.New("permission denied for table resources")
	}
	res.ID = uuid.New()
	res.CreatedAt = time.Now()
	m.rows[res.ID] = *res
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*models.Resource, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFound("resource not found")
	}
	return &r, nil
}

func (m *memStore) Update(_ context.Context, res *models.Resource) error {
	if m.failWrite {
		return errors.New("permission denied for table resources")
	}
	m.rows[res.ID] = *res
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.rows, id)
	return nil
}

func (m *memStore) ListByCourse(_ context.Context, courseID uuid.UUID) ([]models.Resource, error) {
	var out []models.Resource
	for _, r := range m.rows {
		if r.CourseID == courseID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memBlobs struct {
	objects    map[string]string
	failRemove bool
}

func newMemBlobs() *memBlobs { return &memBlobs{objects: map[string]string{}} }

func (b *memBlobs) Put(_ context.Context, key string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.objects[key] = string(data)
	return key, nil
}

func (b *memBlobs) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(b.objects[key])), nil
}

func (b *memBlobs) Remove(_ context.Context, keys ...string) error {
	if b.failRemove {
		return errors.New("storage unavailable")
	}
	for _, k := range keys {
		delete(b.objects, k)
	}
	return nil
}

func (b *memBlobs) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "http://files.test/files?key=" + url.QueryEscape(key) + "&ttl=" + ttl.String(), nil
}

type noLectures struct{ list []models.Lecture }

func (n noLectures) ListLectures(context.Context, uuid.UUID) ([]models.Lecture, error) {
	return n.list, nil
}

func newTestService() (*Service, *memStore, *memBlobs) {
	store, blobs := newMemStore(), newMemBlobs()
	svc := NewService(store, noLectures{}, blobs, time.Minute)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc, store, blobs
}

func TestCreateRequiresFileOrLink(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	courseID := uuid.New()

	_, err := svc.Create(ctx, uuid.Nil, CreateRequest{CourseID: courseID, Title: "Slides", Type: "slides"}, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(ctx, uuid.Nil, CreateRequest{Title: "Slides", Type: "slides", ExternalURL: "https://x.io"}, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(ctx, uuid.Nil, CreateRequest{CourseID: courseID, Title: " ", Type: "slides", ExternalURL: "https://x.io"}, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	res, err := svc.Create(ctx, uuid.Nil, CreateRequest{CourseID: courseID, Title: " Recording ", Type: "link", ExternalURL: " https://x.io/v "}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Recording", res.Title)
	assert.Equal(t, "https://x.io/v", *res.ExternalURL)
	assert.Nil(t, res.StoragePath)
	assert.Nil(t, res.UploaderID)
}

func TestCreateStoresFileUnderLecture(t *testing.T) {
	svc, _, blobs := newTestService()
	courseID, lectureID, uploader := uuid.New(), uuid.New(), uuid.New()

	res, err := svc.Create(context.Background(), uploader,
		CreateRequest{CourseID: courseID, LectureID: &lectureID, Title: "Slides", Type: "slides"},
		&Upload{Name: "week 1?.pdf", Body: strings.NewReader("pdf")})
	require.NoError(t, err)

	want := courseID.String() + "/" + lectureID.String() + "/1700000000000_week 1_.pdf"
	require.NotNil(t, res.StoragePath)
	assert.Equal(t, want, *res.StoragePath)
	assert.Equal(t, "pdf", blobs.objects[want])
	assert.Equal(t, uploader, *res.UploaderID)
}

func TestCreateRowFailureRemovesUpload(t *testing.T) {
	svc, store, blobs := newTestService()
	store.failWrite = true

	_, err := svc.Create(context.Background(), uuid.Nil,
		CreateRequest{CourseID: uuid.New(), Title: "Slides", Type: "slides"},
		&Upload{Name: "a.pdf", Body: strings.NewReader("pdf")})
	require.Error(t, err)
	assert.Empty(t, blobs.objects)
}

func TestUpdateReplacesFile(t *testing.T) {
	svc, store, blobs := newTestService()
	ctx := context.Background()
	res, err := svc.Create(ctx, uuid.Nil, CreateRequest{CourseID: uuid.New(), Title: "Slides", Type: "slides"},
		&Upload{Name: "old.pdf", Body: strings.NewReader("v1")})
	require.NoError(t, err)
	oldKey := *res.StoragePath

	svc.now = func() time.Time { return time.UnixMilli(1700000005000) }
	updated, warning, err := svc.Update(ctx, res.ID, UpdateRequest{Title: "Slides v2", Type: "slides", DeleteOldFile: true},
		&Upload{Name: "new.pdf", Body: strings.NewReader("v2")})
	require.NoError(t, err)
	assert.Empty(t, warning)
	assert.NotEqual(t, oldKey, *updated.StoragePath)
	assert.NotContains(t, blobs.objects, oldKey)
	assert.Equal(t, "v2", blobs.objects[*updated.StoragePath])
	assert.Equal(t, "Slides v2", store.rows[res.ID].Title)
}

func TestUpdateWarnsWhenOldFileStays(t *testing.T) {
	svc, _, blobs := newTestService()
	ctx := context.Background()
	res, err := svc.Create(ctx, uuid.Nil, CreateRequest{CourseID: uuid.New(), Title: "Slides", Type: "slides"},
		&Upload{Name: "old.pdf", Body: strings.NewReader("v1")})
	require.NoError(t, err)

	blobs.failRemove = true
	svc.now = func() time.Time { return time.UnixMilli(1700000009000) }
	_, warning, err := svc.Update(ctx, res.ID, UpdateRequest{Title: "Slides", Type: "slides", DeleteOldFile: true},
		&Upload{Name: "new.pdf", Body: strings.NewReader("v2")})
	require.NoError(t, err)
	assert.Equal(t, warnOldFileKept, warning)
}

func TestUpdateFailureRemovesNewUpload(t *testing.T) {
	svc, store, blobs := newTestService()
	ctx := context.Background()
	res, err := svc.Create(ctx, uuid.Nil, CreateRequest{CourseID: uuid.New(), Title: "Slides", Type: "slides"},
		&Upload{Name: "old.pdf", Body: strings.NewReader("v1")})
	require.NoError(t, err)

	store.failWrite = true
	svc.now = func() time.Time { return time.UnixMilli(1700000009000) }
	_, _, err = svc.Update(ctx, res.ID, UpdateRequest{Title: "Slides", Type: "slides"},
		&Upload{Name: "new.pdf", Body: strings.NewReader("v2")})
	require.Error(t, err)
	assert.Len(t, blobs.objects, 1)
	assert.Contains(t, blobs.objects, *res.StoragePath)
}

func TestUpdateNeedsFileOrLink(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	res, err := svc.Create(ctx, uuid.Nil, CreateRequest{CourseID: uuid.New(), Title: "Link", Type: "link", ExternalURL: "https://x.io"}, nil)
	require.NoError(t, err)

	_, _, err = svc.Update(ctx, res.ID, UpdateRequest{Title: "Link", Type: "link"}, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteAndSignedURL(t *testing.T) {
	svc, store, blobs := newTestService()
	ctx := context.Background()
	file, err := svc.Create(ctx, uuid.Nil, CreateRequest{CourseID: uuid.New(), Title: "Slides", Type: "slides"},
		&Upload{Name: "a.pdf", Body: strings.NewReader("pdf")})
	require.NoError(t, err)
	link, err := svc.Create(ctx, uuid.Nil, CreateRequest{CourseID: uuid.New(), Title: "Link", Type: "link", ExternalURL: "https://x.io"}, nil)
	require.NoError(t, err)

	u, err := svc.SignedURL(ctx, file.ID)
	require.NoError(t, err)
	assert.Contains(t, u, "ttl=1m0s")

	_, err = svc.SignedURL(ctx, link.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	blobs.failRemove = true
	warning, err := svc.Delete(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, warnFileKept, warning)
	assert.NotContains(t, store.rows, file.ID)

	_, err = svc.Delete(ctx, file.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
