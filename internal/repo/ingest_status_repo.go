package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/cozee/docchat/internal/model"
)

// IngestStatusRepo is the persisted progress store. It implements
// ingest.ProgressTracker so polling works across restarts and multiple
// server instances.
type IngestStatusRepo struct {
	db *sql.DB
}

func NewIngestStatusRepo(db *sql.DB) *IngestStatusRepo {
	return &IngestStatusRepo{db: db}
}

func (r *IngestStatusRepo) Set(ctx context.Context, resourceID string, progress int) error {
	const query = `
		INSERT INTO ingest_status (resource_id, progress, mtime)
		VALUES ($1, $2, $3)
		ON CONFLICT (resource_id) DO UPDATE SET
			progress = EXCLUDED.progress,
			mtime = EXCLUDED.mtime
	`
	_, err := r.db.ExecContext(ctx, query, resourceID, progress, time.Now().UnixMilli())
	return err
}

func (r *IngestStatusRepo) Get(ctx context.Context, resourceID string) (*model.IngestStatus, error) {
	const query = `SELECT progress, mtime FROM ingest_status WHERE resource_id = $1`
	row := r.db.QueryRowContext(ctx, query, resourceID)
	status := &model.IngestStatus{ResourceID: resourceID}
	if err := row.Scan(&status.Progress, &status.Mtime); err != nil {
		if err != sql.ErrNoRows {
			return nil, err
		}
		// unknown resource polls as 0/processing
	}
	status.Status = model.StatusForProgress(status.Progress)
	return status, nil
}

// DeleteTerminalBefore clears completed and failed entries older than
// cutoff; progress for live runs is never touched.
func (r *IngestStatusRepo) DeleteTerminalBefore(ctx context.Context, cutoff int64) (int64, error) {
	const query = `DELETE FROM ingest_status WHERE mtime < $1 AND (progress >= 100 OR progress = -1)`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
