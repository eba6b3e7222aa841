// Package benchmark holds the result types produced by a capacity ramp and
// the compiler that folds them into the report uploaded to the survey
// service. Outcomes flow one way: worker outcomes into batch results, batch
// results into capacity records, capacity records into the final report.
package benchmark

import (
	"time"

	"github.com/montanaflynn/stats"

	"github.com/BotBlake/jellybench/pkg/models"
)

// OutcomeStatus is the terminal state of one transcode worker.
type OutcomeStatus string

const (
	StatusSuccess OutcomeStatus = "success"
	StatusFailure OutcomeStatus = "failure"
	StatusTimeout OutcomeStatus = "timeout"
)

// WorkerOutcome is the result of a single transcode subprocess run. It is
// created by the worker runner and consumed once when the batch is evaluated.
type WorkerOutcome struct {
	Status         OutcomeStatus
	Duration       time.Duration
	RealTimeFactor float64 // media duration / elapsed wall time, 0 unless successful
	ExitCode       int
	Stderr         string // tail of the transcoder's stderr, kept for diagnosis
}

// Succeeded reports whether the worker exited cleanly.
func (o WorkerOutcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// BatchResult is the verdict for one ramp step: n workers run concurrently
// against the same test case.
type BatchResult struct {
	TestID   string
	Path     models.HardwarePath
	Workers  int
	Outcomes []WorkerOutcome
	Passed   bool
	Stats    models.BatchStats
}

// EvaluateBatch reduces the collected outcomes into a BatchResult. A batch
// passes only when every worker succeeded and every real-time factor meets
// the threshold; a single slow or crashed worker fails the whole batch.
func EvaluateBatch(testID string, path models.HardwarePath, threshold float64, outcomes []WorkerOutcome) BatchResult {
	result := BatchResult{
		TestID:   testID,
		Path:     path,
		Workers:  len(outcomes),
		Outcomes: outcomes,
		Passed:   len(outcomes) > 0,
	}

	factors := make([]float64, 0, len(outcomes))
	for _, o := range outcomes {
		factors = append(factors, o.RealTimeFactor)
		if !o.Succeeded() || o.RealTimeFactor < threshold {
			result.Passed = false
		}
	}
	result.Stats = factorStats(factors)

	return result
}

// factorStats computes min/median/max over the observed real-time factors.
// Factors of failed workers are included so a failing batch still shows how
// far off it was.
func factorStats(factors []float64) models.BatchStats {
	if len(factors) == 0 {
		return models.BatchStats{}
	}

	// stats only errors on empty input, which is excluded above
	min, _ := stats.Min(factors)
	median, _ := stats.Median(factors)
	max, _ := stats.Max(factors)

	return models.BatchStats{
		MinFactor:    min,
		MedianFactor: median,
		MaxFactor:    max,
	}
}

// CapacityRecord is the outcome of ramping one hardware path: every batch
// attempted in order plus the derived capacity.
type CapacityRecord struct {
	Path          models.HardwarePath
	Batches       []BatchResult
	MaxStreams    int    // largest worker count with a passing batch, 0 if n=1 failed
	AtCeiling     bool   // ramp stopped at the configured ceiling while still passing
	FailureReason string // set when the path aborted on an environment failure
}
