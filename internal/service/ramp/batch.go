package ramp

import (
	"context"
	"log/slog"
	"sync"

	"github.com/BotBlake/jellybench/internal/benchmark"
	"github.com/BotBlake/jellybench/internal/catalog"
)

// Executor runs one batch: n workers on the same test case, launched
// together, collected in full.
type Executor struct {
	runner Runner
	logger *slog.Logger
}

// NewExecutor creates a batch executor backed by the given worker runner.
func NewExecutor(runner Runner, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{runner: runner, logger: logger}
}

// Run launches n workers for tc and waits for every one of them to reach a
// terminal state. There is no short-circuit on the first failure: a failing
// batch still needs the full set of outcomes for its aggregate stats. A
// worker timing out does not cancel its siblings.
func (e *Executor) Run(ctx context.Context, tc catalog.TestCase, n int) (benchmark.BatchResult, error) {
	outcomes := make([]benchmark.WorkerOutcome, n)
	errs := make([]error, n)

	// Workers block on the gate so the batch starts as one unit.
	gate := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			select {
			case <-gate:
			case <-ctx.Done():
				errs[idx] = ctx.Err()
				return
			}
			outcomes[idx], errs[idx] = e.runner.Run(ctx, tc)
		}(i)
	}
	close(gate)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return benchmark.BatchResult{}, err
		}
	}

	result := benchmark.EvaluateBatch(tc.ID, tc.Path, tc.PassThreshold, outcomes)

	e.logger.Debug("batch finished",
		slog.String("test_id", tc.ID),
		slog.String("path", string(tc.Path)),
		slog.Int("workers", n),
		slog.Bool("passed", result.Passed),
		slog.Float64("min_factor", result.Stats.MinFactor))

	return result, nil
}
