package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cozee/docchat/internal/pkg/logutil"
	"github.com/cozee/docchat/internal/repo"
)

// FailedVectorCleanupJob removes partially ingested vectors left behind by
// failed runs. A failed resource keeps its stored chunks so the user can
// retry, but after maxAge the partial data is garbage.
type FailedVectorCleanupJob struct {
	resources *repo.ResourceRepo
	vectors   *repo.VectorRepo
	maxAge    time.Duration
	batchSize int
}

func NewFailedVectorCleanupJob(resources *repo.ResourceRepo, vectors *repo.VectorRepo, maxAge time.Duration) *FailedVectorCleanupJob {
	return &FailedVectorCleanupJob{
		resources: resources,
		vectors:   vectors,
		maxAge:    maxAge,
		batchSize: 100,
	}
}

func (j *FailedVectorCleanupJob) Name() string {
	return "failed_vector_cleanup"
}

func (j *FailedVectorCleanupJob) Run(ctx context.Context) error {
	if j.resources == nil || j.vectors == nil {
		return nil
	}
	maxAge := j.maxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	failed, err := j.resources.ListFailedBefore(ctx, cutoff, j.batchSize)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx)
	for _, res := range failed {
		removed, err := j.vectors.DeleteByResource(ctx, res.ID)
		if err != nil {
			return err
		}
		if removed > 0 {
			logger.Info("removed partial vectors",
				zap.String("resource_id", res.ID),
				zap.Int64("count", removed),
			)
		}
	}
	return nil
}
