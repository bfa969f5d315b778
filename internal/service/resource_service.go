package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cozee/docchat/internal/filestore"
	"github.com/cozee/docchat/internal/ingest"
	"github.com/cozee/docchat/internal/model"
	appErr "github.com/cozee/docchat/internal/pkg/errors"
	"github.com/cozee/docchat/internal/pkg/logutil"
)

// MaxUploadBytes caps uploaded document size.
const MaxUploadBytes = 10 * 1024 * 1024

type ResourceStore interface {
	Create(ctx context.Context, res *model.Resource) error
	GetByID(ctx context.Context, id string) (*model.Resource, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Resource, error)
	Delete(ctx context.Context, userID, id string) error
	AddBatchMembers(ctx context.Context, batchID string, memberIDs []string) error
	ListBatchMembers(ctx context.Context, batchID string) ([]*model.Resource, error)
}

// IngestQueue accepts detached ingestion tasks.
type IngestQueue interface {
	Enqueue(task ingest.Task) error
}

type ResourceService struct {
	resources ResourceStore
	files     filestore.Store
	queue     IngestQueue
	tracker   ingest.ProgressTracker
	client    *http.Client
}

func NewResourceService(resources ResourceStore, files filestore.Store, queue IngestQueue, tracker ingest.ProgressTracker) *ResourceService {
	return &ResourceService{
		resources: resources,
		files:     files,
		queue:     queue,
		tracker:   tracker,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// UploadDocument validates and stores the file, records the resource and
// enqueues ingestion. It returns as soon as the task is queued; callers
// poll Status for completion.
func (s *ResourceService) UploadDocument(ctx context.Context, userID, filename, contentType string, size int64, r io.ReadSeeker) (*model.Resource, error) {
	if filename == "" || size <= 0 {
		return nil, appErr.ErrInvalid
	}
	if size > MaxUploadBytes {
		return nil, appErr.ErrInvalid
	}
	res := &model.Resource{
		ID:       newID(),
		UserID:   userID,
		Kind:     model.KindDocument,
		Title:    filename,
		FileKey:  buildFileKey(userID, filename),
		FileType: contentType,
		FileSize: size,
		State:    model.ResourceStateNormal,
		Ctime:    time.Now().UnixMilli(),
	}
	if err := s.files.Save(ctx, res.FileKey, r, size); err != nil {
		return nil, fmt.Errorf("%w: store upload: %v", appErr.ErrExternal, err)
	}
	if err := s.resources.Create(ctx, res); err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ingest.Task{Resource: res, FileKey: res.FileKey, MimeType: res.FileType}); err != nil {
		return nil, err
	}
	return res, nil
}

// AddURL fetches the page synchronously; ingestion of the extracted text
// runs detached.
func (s *ResourceService) AddURL(ctx context.Context, userID, rawURL string) (*model.Resource, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, appErr.ErrInvalid
	}
	page, err := s.fetchPage(ctx, parsed.String())
	if err != nil {
		return nil, err
	}
	title := ingest.ExtractHTMLTitle(page)
	if title == "" {
		title = parsed.String()
	}
	res := &model.Resource{
		ID:     newID(),
		UserID: userID,
		Kind:   model.KindWebPage,
		Title:  title,
		URL:    parsed.String(),
		State:  model.ResourceStateNormal,
		Ctime:  time.Now().UnixMilli(),
	}
	if err := s.resources.Create(ctx, res); err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ingest.Task{Resource: res, Text: ingest.ExtractHTMLText(page)}); err != nil {
		return nil, err
	}
	return res, nil
}

// CreateBatch bundles already-ingested resources; chat over the batch
// retrieves across the union of member vectors.
func (s *ResourceService) CreateBatch(ctx context.Context, userID, title string, memberIDs []string) (*model.Resource, error) {
	if title == "" || len(memberIDs) == 0 {
		return nil, appErr.ErrInvalid
	}
	for _, memberID := range memberIDs {
		member, err := s.resources.GetByID(ctx, memberID)
		if err != nil {
			return nil, err
		}
		if member.UserID != userID {
			return nil, appErr.ErrForbidden
		}
		if member.Kind == model.KindBatch {
			return nil, appErr.ErrInvalid
		}
	}
	res := &model.Resource{
		ID:     newID(),
		UserID: userID,
		Kind:   model.KindBatch,
		Title:  title,
		State:  model.ResourceStateNormal,
		Ctime:  time.Now().UnixMilli(),
	}
	if err := s.resources.Create(ctx, res); err != nil {
		return nil, err
	}
	if err := s.resources.AddBatchMembers(ctx, res.ID, memberIDs); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ResourceService) Get(ctx context.Context, userID, resourceID string) (*model.Resource, error) {
	res, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, appErr.ErrForbidden
	}
	return res, nil
}

func (s *ResourceService) List(ctx context.Context, userID string) ([]*model.Resource, error) {
	return s.resources.ListByUser(ctx, userID)
}

func (s *ResourceService) Delete(ctx context.Context, userID, resourceID string) error {
	res, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		return err
	}
	if res.UserID != userID {
		return appErr.ErrForbidden
	}
	if err := s.resources.Delete(ctx, userID, resourceID); err != nil {
		return err
	}
	if res.FileKey != "" {
		if err := s.files.Delete(ctx, res.FileKey); err != nil {
			logutil.GetLogger(ctx).Warn("delete stored file failed",
				zap.String("file_key", res.FileKey), zap.Error(err))
		}
	}
	return nil
}

// Status reports ingestion progress. Unknown ids poll as 0/processing so
// clients can start polling before the first chunk is embedded.
func (s *ResourceService) Status(ctx context.Context, resourceID string) (*model.IngestStatus, error) {
	return s.tracker.Get(ctx, resourceID)
}

func (s *ResourceService) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", appErr.ErrInvalid
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch %s: %v", appErr.ErrExternal, pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: fetch %s: %s", appErr.ErrExternal, pageURL, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxUploadBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", appErr.ErrExternal, pageURL, err)
	}
	return string(body), nil
}

func buildFileKey(userID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return userID + "_" + newToken()[:16] + ext
}
