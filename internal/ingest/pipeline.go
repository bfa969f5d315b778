package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/cozee/docchat/internal/ai"
	"github.com/cozee/docchat/internal/filestore"
	"github.com/cozee/docchat/internal/model"
	"github.com/cozee/docchat/internal/pkg/logutil"
	"github.com/cozee/docchat/internal/rag"
)

// VectorSink persists one embedded chunk.
type VectorSink interface {
	Save(ctx context.Context, v *model.Vector) error
}

type Pipeline struct {
	embedder  ai.IEmbedder
	vectors   VectorSink
	progress  ProgressTracker
	files     filestore.Store
	chunkSize int
	cache     *expirable.LRU[string, []float32]
}

func NewPipeline(embedder ai.IEmbedder, vectors VectorSink, progress ProgressTracker, files filestore.Store, chunkSize int) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = rag.DefaultChunkSize
	}
	// Identical chunks (boilerplate headers, repeated pages) reuse a cached
	// embedding instead of a second provider call.
	cache := expirable.NewLRU[string, []float32](4096, nil, 2*time.Hour)
	return &Pipeline{
		embedder:  embedder,
		vectors:   vectors,
		progress:  progress,
		files:     files,
		chunkSize: chunkSize,
		cache:     cache,
	}
}

// Task is one ingestion run. Text carries pre-extracted content (URL
// fetches); otherwise the pipeline loads FileKey from the file store and
// extracts text itself.
type Task struct {
	Resource *model.Resource
	Text     string
	FileKey  string
	MimeType string
}

// Run executes a single ingestion: extract, chunk, embed and store each
// chunk in order, advancing progress after every stored chunk. Any failure
// records the failure sentinel and returns; chunks stored before the
// failure stay persisted.
func (p *Pipeline) Run(ctx context.Context, task Task) error {
	resourceID := task.Resource.ID
	logger := logutil.GetLogger(ctx).With(
		zap.String("resource_id", resourceID),
		zap.String("kind", string(task.Resource.Kind)),
	)
	if err := p.progress.Set(ctx, resourceID, 0); err != nil {
		return err
	}

	text := task.Text
	if text == "" && task.FileKey != "" {
		loaded, err := p.loadFileText(ctx, task.FileKey, task.MimeType)
		if err != nil {
			logger.Error("load resource content failed", zap.Error(err))
			return p.fail(ctx, resourceID, err)
		}
		text = loaded
	}

	total := rag.ChunkCount(text, p.chunkSize)
	logger.Info("ingestion started", zap.Int("chunks", total), zap.Int("chunk_size", p.chunkSize))

	i := 0
	for chunk := range rag.Chunks(text, p.chunkSize) {
		if err := ctx.Err(); err != nil {
			logger.Warn("ingestion interrupted", zap.Int("chunk", i), zap.Error(err))
			return p.fail(ctx, resourceID, err)
		}
		embedding, err := p.embed(ctx, chunk)
		if err != nil {
			logger.Error("embed chunk failed", zap.Int("chunk", i), zap.Error(err))
			return p.fail(ctx, resourceID, err)
		}
		vector := &model.Vector{
			ResourceID: resourceID,
			UserID:     task.Resource.UserID,
			Content:    chunk,
			Embedding:  embedding,
			Ctime:      time.Now().UnixMilli(),
		}
		if err := p.vectors.Save(ctx, vector); err != nil {
			logger.Error("store vector failed", zap.Int("chunk", i), zap.Error(err))
			return p.fail(ctx, resourceID, err)
		}
		i++
		progress := (i*100 + total - 1) / total
		if err := p.progress.Set(ctx, resourceID, progress); err != nil {
			return p.fail(ctx, resourceID, err)
		}
	}

	if err := p.progress.Set(ctx, resourceID, 100); err != nil {
		return err
	}
	logger.Info("ingestion completed", zap.Int("chunks", total))
	return nil
}

func (p *Pipeline) fail(ctx context.Context, resourceID string, cause error) error {
	// The sentinel must land even when the run died of context cancellation,
	// otherwise the row stays mid-range and the cleanup job never reaps it.
	ctx = context.WithoutCancel(ctx)
	if err := p.progress.Set(ctx, resourceID, model.ProgressFailed); err != nil {
		logutil.GetLogger(ctx).Error("record ingest failure", zap.String("resource_id", resourceID), zap.Error(err))
	}
	return cause
}

func (p *Pipeline) embed(ctx context.Context, chunk string) ([]float32, error) {
	key := p.cacheKey(chunk)
	if cached, ok := p.cache.Get(key); ok {
		return cached, nil
	}
	embedding, err := p.embedder.Embed(ctx, chunk)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, embedding)
	return embedding, nil
}

func (p *Pipeline) cacheKey(chunk string) string {
	sum := sha256.Sum256([]byte(p.embedder.ModelName() + "\x00" + chunk))
	return hex.EncodeToString(sum[:])
}

func (p *Pipeline) loadFileText(ctx context.Context, key, mimeType string) (string, error) {
	if p.files == nil {
		return "", fmt.Errorf("file store not configured")
	}
	file, err := p.files.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("open stored file: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("read stored file: %w", err)
	}
	return ExtractText(data, mimeType)
}
