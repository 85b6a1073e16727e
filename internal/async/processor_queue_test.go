package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/pipeline"
)

type fakeProcessor struct {
	inFlight, maxInFlight atomic.Int32
	delay                 time.Duration
}

func (f *fakeProcessor) ProcessDocument(ctx context.Context, locator, subjectID string) (*pipeline.Result, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	switch locator {
	case "bad.pdf":
		return nil, errors.New("malformed response")
	case "panic.pdf":
		panic("nil map")
	case "slow.pdf":
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &pipeline.Result{Locator: locator, SubjectID: subjectID}, nil
}

type collector struct {
	mu       sync.Mutex
	outcomes map[string]Outcome
}

func (c *collector) add(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[o.Job.Locator] = o
}

func TestProcessorQueueIsolatesFailures(t *testing.T) {
	c := &collector{outcomes: map[string]Outcome{}}
	q := NewProcessorQueue(&fakeProcessor{}, nil, WithWorkers(2), WithOnResult(c.add))
	ctx := context.Background()

	for _, loc := range []string{"a.pdf", "bad.pdf", "panic.pdf", "b.pdf"} {
		require.NoError(t, q.Enqueue(ctx, Job{Locator: loc, SubjectID: "p"}))
	}
	q.Shutdown(ctx)

	require.Len(t, c.outcomes, 4)
	assert.NoError(t, c.outcomes["a.pdf"].Err)
	assert.Equal(t, "p", c.outcomes["a.pdf"].Result.SubjectID)
	assert.NoError(t, c.outcomes["b.pdf"].Err)
	assert.EqualError(t, c.outcomes["bad.pdf"].Err, "malformed response")
	assert.ErrorContains(t, c.outcomes["panic.pdf"].Err, "panic processing panic.pdf")
	assert.ErrorIs(t, c.outcomes["panic.pdf"].Err, common.ErrInternal)
	assert.False(t, c.outcomes["a.pdf"].Job.SubmittedAt.IsZero())
}

func TestProcessorQueueBoundsConcurrency(t *testing.T) {
	proc := &fakeProcessor{delay: 20 * time.Millisecond}
	var done atomic.Int32
	q := NewProcessorQueue(proc, nil, WithWorkers(3), WithQueueSize(1), WithOnResult(func(Outcome) { done.Add(1) }))

	for i := 0; i < 12; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{Locator: "doc.pdf", SubjectID: "p"}))
	}
	q.Shutdown(context.Background())

	assert.Equal(t, int32(12), done.Load())
	assert.LessOrEqual(t, proc.maxInFlight.Load(), int32(3))
}

func TestProcessorQueueAppliesTimeout(t *testing.T) {
	c := &collector{outcomes: map[string]Outcome{}}
	q := NewProcessorQueue(&fakeProcessor{}, nil, WithWorkers(1), WithProcessTimeout(50*time.Millisecond), WithOnResult(c.add))
	require.NoError(t, q.Enqueue(context.Background(), Job{Locator: "slow.pdf"}))
	q.Shutdown(context.Background())

	assert.ErrorIs(t, c.outcomes["slow.pdf"].Err, context.DeadlineExceeded)
}

func TestProcessorQueueRejectsAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{}, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Locator: "late.pdf"}), ErrQueueClosed)
}
