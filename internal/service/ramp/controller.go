// Package ramp implements the capacity ramp for one hardware path:
// escalating batches of concurrent transcode workers until a batch can no
// longer hold real-time speed, with the last passing count reported as the
// path's capacity.
package ramp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BotBlake/jellybench/internal/benchmark"
	"github.com/BotBlake/jellybench/internal/catalog"
	"github.com/BotBlake/jellybench/pkg/models"
)

// DefaultStep is the worker-count increment between batches.
const DefaultStep = 1

// BatchRunner abstracts batch execution so the escalation logic is testable
// without spawning subprocesses.
type BatchRunner interface {
	Run(ctx context.Context, tc catalog.TestCase, n int) (benchmark.BatchResult, error)
}

// Controller drives the escalation loop for hardware paths.
type Controller struct {
	batches  BatchRunner
	observer Observer
	logger   *slog.Logger

	step       int
	maxWorkers int // 0 = no ceiling
}

// Option configures the controller.
type Option func(*Controller)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithObserver sets the progress observer.
func WithObserver(obs Observer) Option {
	return func(c *Controller) {
		c.observer = obs
	}
}

// WithStep sets the worker-count increment between batches.
func WithStep(step int) Option {
	return func(c *Controller) {
		if step >= 1 {
			c.step = step
		}
	}
}

// WithMaxWorkers caps the ramp at a worker-count ceiling. Reaching the
// ceiling counts as passing, not as the capacity boundary.
func WithMaxWorkers(max int) Option {
	return func(c *Controller) {
		c.maxWorkers = max
	}
}

// New creates a ramp controller.
func New(batches BatchRunner, opts ...Option) *Controller {
	c := &Controller{
		batches:  batches,
		observer: nopObserver{},
		logger:   slog.Default(),
		step:     DefaultStep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunPath determines max_concurrent_streams for one hardware path. All test
// cases of the path ramp in lock step: a worker count passes only when every
// case's batch passes at that count. The first failing batch ends the ramp;
// batches are never retried.
//
// Worker crashes and timeouts are ordinary data here. The error return is
// reserved for environment failures that abort the path and for context
// cancellation.
func (c *Controller) RunPath(ctx context.Context, path models.HardwarePath, cases []catalog.TestCase) (benchmark.CapacityRecord, error) {
	record := benchmark.CapacityRecord{Path: path}

	if len(cases) == 0 {
		record.FailureReason = "no test cases for this hardware path"
		return record, fmt.Errorf("%s path has no test cases: %w", path, benchmark.ErrEnvironment)
	}

	c.logger.Info("capacity ramp starting",
		slog.String("path", string(path)),
		slog.Int("cases", len(cases)),
		slog.Int("step", c.step),
		slog.Int("max_workers", c.maxWorkers))
	c.observer.RampStarted(path, len(cases))

	n := 1
	for {
		if err := ctx.Err(); err != nil {
			return record, err
		}

		stepPassed := true
		for _, tc := range cases {
			c.observer.BatchStarted(tc, n)

			result, err := c.batches.Run(ctx, tc, n)
			if err != nil {
				if ctx.Err() != nil {
					return record, ctx.Err()
				}
				c.logger.Error("hardware path aborted",
					slog.String("path", string(path)),
					slog.String("test_id", tc.ID),
					slog.String("error", err.Error()))
				record.FailureReason = err.Error()
				c.observer.RampFinished(record)
				return record, fmt.Errorf("%s path, test %s: %w", path, tc.ID, err)
			}

			record.Batches = append(record.Batches, result)
			c.observer.BatchFinished(result)

			// The step verdict is decided.
			if !result.Passed {
				stepPassed = false
				break
			}
		}

		if !stepPassed {
			break
		}
		record.MaxStreams = n

		next := n + c.step
		if c.maxWorkers > 0 && next > c.maxWorkers {
			record.AtCeiling = true
			c.logger.Info("ramp halted at configured ceiling",
				slog.String("path", string(path)),
				slog.Int("max_workers", c.maxWorkers))
			break
		}
		n = next
	}

	c.logger.Info("capacity ramp finished",
		slog.String("path", string(path)),
		slog.Int("max_streams", record.MaxStreams),
		slog.Int("batches", len(record.Batches)),
		slog.Bool("at_ceiling", record.AtCeiling))
	c.observer.RampFinished(record)

	return record, nil
}
