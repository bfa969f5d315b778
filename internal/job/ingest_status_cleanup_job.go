package job

import (
	"context"
	"time"

	"github.com/cozee/docchat/internal/repo"
)

// IngestStatusCleanupJob drops completed and failed progress rows once
// clients have had long enough to observe them.
type IngestStatusCleanupJob struct {
	repo       *repo.IngestStatusRepo
	maxAgeDays int
}

func NewIngestStatusCleanupJob(repo *repo.IngestStatusRepo, maxAgeDays int) *IngestStatusCleanupJob {
	return &IngestStatusCleanupJob{repo: repo, maxAgeDays: maxAgeDays}
}

func (j *IngestStatusCleanupJob) Name() string {
	return "ingest_status_cleanup"
}

func (j *IngestStatusCleanupJob) Run(ctx context.Context) error {
	if j.repo == nil {
		return nil
	}
	maxAgeDays := j.maxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = 7
	}
	cutoff := time.Now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour).UnixMilli()
	_, err := j.repo.DeleteTerminalBefore(ctx, cutoff)
	return err
}
