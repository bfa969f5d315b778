package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cozee/docchat/internal/model"
)

type fakeEmbedder struct {
	mu      sync.Mutex
	calls   int
	failOn  int // 1-based call number that fails, 0 for never
	failErr error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn != 0 && f.calls == f.failOn {
		return nil, f.failErr
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-model" }

type fakeSink struct {
	mu      sync.Mutex
	saved   []*model.Vector
	failOn  int
	failErr error
}

func (f *fakeSink) Save(_ context.Context, v *model.Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != 0 && len(f.saved)+1 == f.failOn {
		return f.failErr
	}
	f.saved = append(f.saved, v)
	return nil
}

type recordingTracker struct {
	*MemoryTracker
	mu     sync.Mutex
	values []int
}

func newRecordingTracker() *recordingTracker {
	return &recordingTracker{MemoryTracker: NewMemoryTracker()}
}

func (t *recordingTracker) Set(ctx context.Context, resourceID string, progress int) error {
	t.mu.Lock()
	t.values = append(t.values, progress)
	t.mu.Unlock()
	return t.MemoryTracker.Set(ctx, resourceID, progress)
}

func newTestResource() *model.Resource {
	return &model.Resource{ID: "res-1", UserID: "user-1", Kind: model.KindDocument}
}

// distinctText produces n chars with no two chunks identical, so the
// embedding dedupe cache stays out of the way.
func distinctText(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte('a' + i%26)
	}
	return string(buf)
}

func TestPipelineRunProgressSequence(t *testing.T) {
	embedder := &fakeEmbedder{}
	sink := &fakeSink{}
	tracker := newRecordingTracker()
	pipeline := NewPipeline(embedder, sink, tracker, nil, 1000)

	text := distinctText(2500)
	err := pipeline.Run(context.Background(), Task{Resource: newTestResource(), Text: text})
	require.NoError(t, err)

	require.Equal(t, 3, embedder.calls)
	require.Len(t, sink.saved, 3)
	require.Equal(t, 1000, len(sink.saved[0].Content))
	require.Equal(t, 1000, len(sink.saved[1].Content))
	require.Equal(t, 500, len(sink.saved[2].Content))

	require.Equal(t, []int{0, 34, 67, 100, 100}, tracker.values)

	status, err := tracker.Get(context.Background(), "res-1")
	require.NoError(t, err)
	require.Equal(t, 100, status.Progress)
	require.Equal(t, model.IngestStatusCompleted, status.Status)
}

func TestPipelineRunEmbedFailure(t *testing.T) {
	embedder := &fakeEmbedder{failOn: 2, failErr: errors.New("provider down")}
	sink := &fakeSink{}
	tracker := newRecordingTracker()
	pipeline := NewPipeline(embedder, sink, tracker, nil, 10)

	err := pipeline.Run(context.Background(), Task{Resource: newTestResource(), Text: distinctText(35)})
	require.Error(t, err)

	// first chunk persisted, second failed, nothing after
	require.Len(t, sink.saved, 1)

	status, err := tracker.Get(context.Background(), "res-1")
	require.NoError(t, err)
	require.Equal(t, model.ProgressFailed, status.Progress)
	require.Equal(t, model.IngestStatusFailed, status.Status)
}

func TestPipelineRunStoreFailure(t *testing.T) {
	embedder := &fakeEmbedder{}
	sink := &fakeSink{failOn: 3, failErr: errors.New("db down")}
	tracker := newRecordingTracker()
	pipeline := NewPipeline(embedder, sink, tracker, nil, 10)

	err := pipeline.Run(context.Background(), Task{Resource: newTestResource(), Text: strings.Repeat("x", 40)})
	require.Error(t, err)
	require.Len(t, sink.saved, 2)

	status, _ := tracker.Get(context.Background(), "res-1")
	require.Equal(t, model.IngestStatusFailed, status.Status)
}

func TestPipelineRunEmptyText(t *testing.T) {
	embedder := &fakeEmbedder{}
	sink := &fakeSink{}
	tracker := newRecordingTracker()
	pipeline := NewPipeline(embedder, sink, tracker, nil, 1000)

	err := pipeline.Run(context.Background(), Task{Resource: newTestResource(), Text: ""})
	require.NoError(t, err)
	require.Zero(t, embedder.calls)
	require.Empty(t, sink.saved)

	status, _ := tracker.Get(context.Background(), "res-1")
	require.Equal(t, model.IngestStatusCompleted, status.Status)
}

// cancelingEmbedder cancels the run's context after cancelOn calls.
type cancelingEmbedder struct {
	*fakeEmbedder
	cancelOn int
	cancel   context.CancelFunc
}

func (e *cancelingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.fakeEmbedder.Embed(ctx, text)
	if e.fakeEmbedder.calls == e.cancelOn {
		e.cancel()
	}
	return out, err
}

// ctxAwareTracker refuses writes on a canceled context, like a real
// database-backed tracker would.
type ctxAwareTracker struct {
	*recordingTracker
}

func (t *ctxAwareTracker) Set(ctx context.Context, resourceID string, progress int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.recordingTracker.Set(ctx, resourceID, progress)
}

func TestPipelineRunStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	embedder := &cancelingEmbedder{fakeEmbedder: &fakeEmbedder{}, cancelOn: 1, cancel: cancel}
	sink := &fakeSink{}
	tracker := newRecordingTracker()
	pipeline := NewPipeline(embedder, sink, tracker, nil, 10)

	err := pipeline.Run(ctx, Task{Resource: newTestResource(), Text: distinctText(35)})
	require.ErrorIs(t, err, context.Canceled)

	// first chunk finished before the cancel landed, nothing after
	require.Len(t, sink.saved, 1)
	require.Equal(t, []int{0, 25, model.ProgressFailed}, tracker.values)

	status, _ := tracker.Get(context.Background(), "res-1")
	require.Equal(t, model.IngestStatusFailed, status.Status)
}

func TestPipelineRunFailureRecordedAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	embedder := &cancelingEmbedder{fakeEmbedder: &fakeEmbedder{}, cancelOn: 1, cancel: cancel}
	sink := &fakeSink{}
	tracker := &ctxAwareTracker{recordingTracker: newRecordingTracker()}
	pipeline := NewPipeline(embedder, sink, tracker, nil, 10)

	err := pipeline.Run(ctx, Task{Resource: newTestResource(), Text: distinctText(35)})
	require.Error(t, err)

	// the progress write after the first chunk was rejected by the canceled
	// context, but the failure sentinel still lands
	require.Equal(t, []int{0, model.ProgressFailed}, tracker.values)

	status, _ := tracker.Get(context.Background(), "res-1")
	require.Equal(t, model.ProgressFailed, status.Progress)
	require.Equal(t, model.IngestStatusFailed, status.Status)
}

func TestPipelineEmbedCacheDedupes(t *testing.T) {
	embedder := &fakeEmbedder{}
	sink := &fakeSink{}
	pipeline := NewPipeline(embedder, sink, NewMemoryTracker(), nil, 4)

	// four identical chunks
	err := pipeline.Run(context.Background(), Task{Resource: newTestResource(), Text: strings.Repeat("abcd", 4)})
	require.NoError(t, err)
	require.Len(t, sink.saved, 4)
	require.Equal(t, 1, embedder.calls)
}

func TestQueueRunsTasks(t *testing.T) {
	embedder := &fakeEmbedder{}
	sink := &fakeSink{}
	tracker := NewMemoryTracker()
	pipeline := NewPipeline(embedder, sink, tracker, nil, 1000)

	queue := NewQueue(pipeline, 1, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	require.NoError(t, queue.Enqueue(Task{Resource: newTestResource(), Text: "hello world"}))
	queue.Stop()

	status, err := tracker.Get(context.Background(), "res-1")
	require.NoError(t, err)
	require.Equal(t, model.IngestStatusCompleted, status.Status)
	require.Len(t, sink.saved, 1)
}
