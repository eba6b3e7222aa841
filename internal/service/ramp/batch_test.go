package ramp

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BotBlake/jellybench/internal/benchmark"
	"github.com/BotBlake/jellybench/internal/catalog"
)

// fakeRunner implements Runner with scripted outcomes, one per call.
type fakeRunner struct {
	mu       sync.Mutex
	outcomes []benchmark.WorkerOutcome
	err      error
	delay    time.Duration

	calls       int32
	inflight    int32
	maxInflight int32
}

func (f *fakeRunner) Run(ctx context.Context, tc catalog.TestCase) (benchmark.WorkerOutcome, error) {
	cur := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInflight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInflight, max, cur) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	call := atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return benchmark.WorkerOutcome{}, f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	idx := int(call-1) % len(f.outcomes)
	return f.outcomes[idx], nil
}

func TestExecutor_CollectsAllOutcomes(t *testing.T) {
	runner := &fakeRunner{
		outcomes: []benchmark.WorkerOutcome{
			{Status: benchmark.StatusSuccess, RealTimeFactor: 1.5},
		},
		delay: 20 * time.Millisecond,
	}
	exec := NewExecutor(runner, nil)

	result, err := exec.Run(context.Background(), cpuCase("t1"), 4)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Workers)
	assert.Len(t, result.Outcomes, 4)
	assert.True(t, result.Passed)

	// The gate releases all workers together, so they must overlap
	assert.Equal(t, int32(4), atomic.LoadInt32(&runner.maxInflight))
}

func TestExecutor_NoShortCircuitOnFailure(t *testing.T) {
	// Every worker reports a terminal state even though one fails
	runner := &fakeRunner{
		outcomes: []benchmark.WorkerOutcome{
			{Status: benchmark.StatusFailure, ExitCode: 1},
			{Status: benchmark.StatusSuccess, RealTimeFactor: 1.5},
			{Status: benchmark.StatusSuccess, RealTimeFactor: 1.4},
		},
	}
	exec := NewExecutor(runner, nil)

	result, err := exec.Run(context.Background(), cpuCase("t1"), 3)
	require.NoError(t, err)

	assert.False(t, result.Passed)
	assert.Len(t, result.Outcomes, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(&runner.calls))
}

func TestExecutor_TimeoutIsolation(t *testing.T) {
	// One timed-out worker must not block collection of its siblings
	runner := &fakeRunner{
		outcomes: []benchmark.WorkerOutcome{
			{Status: benchmark.StatusTimeout},
			{Status: benchmark.StatusSuccess, RealTimeFactor: 1.3},
			{Status: benchmark.StatusSuccess, RealTimeFactor: 1.2},
		},
	}
	exec := NewExecutor(runner, nil)

	result, err := exec.Run(context.Background(), cpuCase("t1"), 3)
	require.NoError(t, err)

	assert.Len(t, result.Outcomes, 3)
	assert.False(t, result.Passed)

	var timeouts, successes int
	for _, o := range result.Outcomes {
		switch o.Status {
		case benchmark.StatusTimeout:
			timeouts++
		case benchmark.StatusSuccess:
			successes++
		}
	}
	assert.Equal(t, 1, timeouts)
	assert.Equal(t, 2, successes)
}

func TestExecutor_PropagatesFatalError(t *testing.T) {
	runner := &fakeRunner{err: benchmark.ErrEnvironment}
	exec := NewExecutor(runner, nil)

	_, err := exec.Run(context.Background(), cpuCase("t1"), 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, benchmark.ErrEnvironment))
}

func TestExecutor_ThresholdApplied(t *testing.T) {
	runner := &fakeRunner{
		outcomes: []benchmark.WorkerOutcome{
			{Status: benchmark.StatusSuccess, RealTimeFactor: 1.1},
		},
	}
	exec := NewExecutor(runner, nil)

	tc := cpuCase("t1")
	tc.PassThreshold = 1.5

	result, err := exec.Run(context.Background(), tc, 2)
	require.NoError(t, err)
	assert.False(t, result.Passed, "factors below the case threshold must fail the batch")
}
