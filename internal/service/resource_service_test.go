package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozee/docchat/internal/ingest"
	"github.com/cozee/docchat/internal/model"
	appErr "github.com/cozee/docchat/internal/pkg/errors"
)

type memResourceStore struct {
	resources map[string]*model.Resource
	members   map[string][]string
}

func newMemResourceStore() *memResourceStore {
	return &memResourceStore{
		resources: map[string]*model.Resource{},
		members:   map[string][]string{},
	}
}

func (m *memResourceStore) Create(_ context.Context, res *model.Resource) error {
	m.resources[res.ID] = res
	return nil
}

func (m *memResourceStore) GetByID(_ context.Context, id string) (*model.Resource, error) {
	res, ok := m.resources[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return res, nil
}

func (m *memResourceStore) ListByUser(_ context.Context, userID string) ([]*model.Resource, error) {
	var out []*model.Resource
	for _, res := range m.resources {
		if res.UserID == userID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (m *memResourceStore) Delete(_ context.Context, userID, id string) error {
	res, ok := m.resources[id]
	if !ok || res.UserID != userID {
		return appErr.ErrNotFound
	}
	delete(m.resources, id)
	return nil
}

func (m *memResourceStore) AddBatchMembers(_ context.Context, batchID string, memberIDs []string) error {
	m.members[batchID] = append(m.members[batchID], memberIDs...)
	return nil
}

func (m *memResourceStore) ListBatchMembers(_ context.Context, batchID string) ([]*model.Resource, error) {
	var out []*model.Resource
	for _, id := range m.members[batchID] {
		if res, ok := m.resources[id]; ok {
			out = append(out, res)
		}
	}
	return out, nil
}

type memFileStore struct {
	files   map[string][]byte
	saveErr error
}

func newMemFileStore() *memFileStore {
	return &memFileStore{files: map[string][]byte{}}
}

func (m *memFileStore) Type() string { return "mem" }

func (m *memFileStore) Save(_ context.Context, key string, r io.ReadSeeker, _ int64) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.files[key] = data
	return nil
}

func (m *memFileStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.files[key]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (m *memFileStore) Delete(_ context.Context, key string) error {
	delete(m.files, key)
	return nil
}

type recordingQueue struct {
	tasks      []ingest.Task
	enqueueErr error
}

func (q *recordingQueue) Enqueue(task ingest.Task) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func newResourceFixture() (*ResourceService, *memResourceStore, *memFileStore, *recordingQueue) {
	store := newMemResourceStore()
	files := newMemFileStore()
	queue := &recordingQueue{}
	svc := NewResourceService(store, files, queue, ingest.NewMemoryTracker())
	return svc, store, files, queue
}

func TestUploadDocument(t *testing.T) {
	svc, store, files, queue := newResourceFixture()

	body := strings.NewReader("plain text body")
	res, err := svc.UploadDocument(context.Background(), "u1", "notes.txt", "text/plain", int64(body.Len()), body)
	require.NoError(t, err)
	assert.Equal(t, model.KindDocument, res.Kind)
	assert.Equal(t, "notes.txt", res.Title)
	assert.True(t, strings.HasSuffix(res.FileKey, ".txt"))

	assert.Contains(t, store.resources, res.ID)
	assert.Equal(t, []byte("plain text body"), files.files[res.FileKey])

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, res.FileKey, queue.tasks[0].FileKey)
	assert.Equal(t, "text/plain", queue.tasks[0].MimeType)
}

func TestUploadDocumentValidation(t *testing.T) {
	svc, _, _, queue := newResourceFixture()

	_, err := svc.UploadDocument(context.Background(), "u1", "", "text/plain", 10, strings.NewReader("x"))
	assert.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = svc.UploadDocument(context.Background(), "u1", "big.txt", "text/plain", MaxUploadBytes+1, strings.NewReader("x"))
	assert.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = svc.UploadDocument(context.Background(), "u1", "empty.txt", "text/plain", 0, strings.NewReader(""))
	assert.ErrorIs(t, err, appErr.ErrInvalid)

	assert.Empty(t, queue.tasks)
}

func TestUploadDocumentStoreFailure(t *testing.T) {
	svc, store, files, queue := newResourceFixture()
	files.saveErr = fmt.Errorf("disk full")

	_, err := svc.UploadDocument(context.Background(), "u1", "notes.txt", "text/plain", 5, strings.NewReader("smoke"))
	assert.ErrorIs(t, err, appErr.ErrExternal)
	assert.Empty(t, store.resources)
	assert.Empty(t, queue.tasks)
}

func TestAddURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><title>Sample Page</title></head><body><p>hello web</p></body></html>`)
	}))
	defer server.Close()

	svc, store, _, queue := newResourceFixture()
	res, err := svc.AddURL(context.Background(), "u1", server.URL)
	require.NoError(t, err)
	assert.Equal(t, model.KindWebPage, res.Kind)
	assert.Equal(t, "Sample Page", res.Title)
	assert.Equal(t, server.URL, res.URL)
	assert.Contains(t, store.resources, res.ID)

	require.Len(t, queue.tasks, 1)
	// title text is part of the visible page text and stays in the chunk input
	assert.Equal(t, "Sample Page hello web", queue.tasks[0].Text)
}

func TestAddURLRejectsBadSchemes(t *testing.T) {
	svc, _, _, _ := newResourceFixture()
	for _, raw := range []string{"", "ftp://host/file", "not a url", "file:///etc/passwd"} {
		_, err := svc.AddURL(context.Background(), "u1", raw)
		assert.ErrorIs(t, err, appErr.ErrInvalid, raw)
	}
}

func TestAddURLFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc, store, _, _ := newResourceFixture()
	_, err := svc.AddURL(context.Background(), "u1", server.URL)
	assert.ErrorIs(t, err, appErr.ErrExternal)
	assert.Empty(t, store.resources)
}

func TestCreateBatch(t *testing.T) {
	svc, store, _, _ := newResourceFixture()
	store.resources["d1"] = &model.Resource{ID: "d1", UserID: "u1", Kind: model.KindDocument}
	store.resources["d2"] = &model.Resource{ID: "d2", UserID: "u1", Kind: model.KindWebPage}

	batch, err := svc.CreateBatch(context.Background(), "u1", "my batch", []string{"d1", "d2"})
	require.NoError(t, err)
	assert.Equal(t, model.KindBatch, batch.Kind)

	members, err := store.ListBatchMembers(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestCreateBatchRejections(t *testing.T) {
	svc, store, _, _ := newResourceFixture()
	store.resources["d1"] = &model.Resource{ID: "d1", UserID: "u1", Kind: model.KindDocument}
	store.resources["other"] = &model.Resource{ID: "other", UserID: "u2", Kind: model.KindDocument}
	store.resources["b1"] = &model.Resource{ID: "b1", UserID: "u1", Kind: model.KindBatch}

	_, err := svc.CreateBatch(context.Background(), "u1", "", []string{"d1"})
	assert.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = svc.CreateBatch(context.Background(), "u1", "b", nil)
	assert.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = svc.CreateBatch(context.Background(), "u1", "b", []string{"missing"})
	assert.ErrorIs(t, err, appErr.ErrNotFound)

	_, err = svc.CreateBatch(context.Background(), "u1", "b", []string{"other"})
	assert.ErrorIs(t, err, appErr.ErrForbidden)

	// batches never nest
	_, err = svc.CreateBatch(context.Background(), "u1", "b", []string{"b1"})
	assert.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestResourceGetOwnership(t *testing.T) {
	svc, store, _, _ := newResourceFixture()
	store.resources["d1"] = &model.Resource{ID: "d1", UserID: "u1", Kind: model.KindDocument}

	res, err := svc.Get(context.Background(), "u1", "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", res.ID)

	_, err = svc.Get(context.Background(), "u2", "d1")
	assert.ErrorIs(t, err, appErr.ErrForbidden)
}

func TestResourceDeleteRemovesFile(t *testing.T) {
	svc, store, files, _ := newResourceFixture()
	store.resources["d1"] = &model.Resource{ID: "d1", UserID: "u1", Kind: model.KindDocument, FileKey: "u1_abc.txt"}
	files.files["u1_abc.txt"] = []byte("data")

	require.NoError(t, svc.Delete(context.Background(), "u1", "d1"))
	assert.NotContains(t, store.resources, "d1")
	assert.NotContains(t, files.files, "u1_abc.txt")

	assert.ErrorIs(t, svc.Delete(context.Background(), "u1", "d1"), appErr.ErrNotFound)
}

func TestStatusUnknownResource(t *testing.T) {
	svc, _, _, _ := newResourceFixture()
	status, err := svc.Status(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, 0, status.Progress)
	assert.Equal(t, model.IngestStatusProcessing, status.Status)
}
