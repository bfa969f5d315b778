package ingest

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/cozee/docchat/internal/pkg/errors"
	"github.com/cozee/docchat/internal/pkg/logutil"
)

// Queue decouples ingestion from the HTTP request that triggers it: the
// handler enqueues a task and returns, workers run the pipeline. Failures
// are recorded by the progress tracker and otherwise swallowed; callers
// discover them by polling.
type Queue struct {
	pipeline *Pipeline
	tasks    chan Task
	wg       sync.WaitGroup
	workers  int
}

func NewQueue(pipeline *Pipeline, workers, backlog int) *Queue {
	if workers <= 0 {
		workers = 2
	}
	if backlog <= 0 {
		backlog = 64
	}
	return &Queue{
		pipeline: pipeline,
		tasks:    make(chan Task, backlog),
		workers:  workers,
	}
}

func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Enqueue submits a task without blocking; a full backlog is reported as
// ErrTooMany rather than stalling the upload request.
func (q *Queue) Enqueue(task Task) error {
	select {
	case q.tasks <- task:
		return nil
	default:
		return errors.ErrTooMany
	}
}

func (q *Queue) Stop() {
	close(q.tasks)
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			if err := q.pipeline.Run(ctx, task); err != nil {
				logutil.GetLogger(ctx).Warn("ingestion run failed",
					zap.String("resource_id", task.Resource.ID),
					zap.Error(err),
				)
			}
		}
	}
}
