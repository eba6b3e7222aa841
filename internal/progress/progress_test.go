package progress

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BotBlake/jellybench/internal/benchmark"
	"github.com/BotBlake/jellybench/internal/catalog"
	"github.com/BotBlake/jellybench/pkg/models"
)

func testCase() catalog.TestCase {
	return catalog.TestCase{
		ID:             "h264_1080p",
		Path:           models.PathCPU,
		FromResolution: "4K",
		ToResolution:   "1080p",
	}
}

func passingBatch(workers int) benchmark.BatchResult {
	return benchmark.BatchResult{
		TestID:  "h264_1080p",
		Path:    models.PathCPU,
		Workers: workers,
		Passed:  true,
		Stats:   models.BatchStats{MinFactor: 1.5, MedianFactor: 1.8, MaxFactor: 2.0},
	}
}

func TestConsole_FullRamp(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.RampStarted(models.PathCPU, 1)
	c.BatchStarted(testCase(), 1)
	c.BatchFinished(passingBatch(1))
	c.BatchStarted(testCase(), 2)
	failing := passingBatch(2)
	failing.Passed = false
	c.BatchFinished(failing)
	c.RampFinished(benchmark.CapacityRecord{Path: models.PathCPU, MaxStreams: 1})

	out := buf.String()
	assert.Contains(t, out, "Ramping CPU path (1 test case(s))")
	assert.Contains(t, out, "CPU path: 1 concurrent stream(s)")
}

func TestConsole_AbortedPath(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.RampStarted(models.PathGPU, 2)
	c.RampFinished(benchmark.CapacityRecord{
		Path:          models.PathGPU,
		FailureReason: "transcoder binary not found",
	})

	assert.Contains(t, buf.String(), "GPU path aborted: transcoder binary not found")
}

func TestConsole_NoCapacity(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.RampStarted(models.PathCPU, 1)
	c.RampFinished(benchmark.CapacityRecord{Path: models.PathCPU, MaxStreams: 0})

	assert.Contains(t, buf.String(), "no real-time capacity")
}

func TestConsole_CeilingNote(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.RampStarted(models.PathCPU, 1)
	c.RampFinished(benchmark.CapacityRecord{Path: models.PathCPU, MaxStreams: 8, AtCeiling: true})

	assert.Contains(t, buf.String(), "halted at configured ceiling")
}

func TestConsole_EventsWithoutRampAreIgnored(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	// No RampStarted: batch events must not panic on a missing bar.
	c.BatchStarted(testCase(), 1)
	c.BatchFinished(passingBatch(1))
}

func TestLog_BatchResultAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	l := NewLog(logger)

	l.RampStarted(models.PathCPU, 1)
	l.BatchStarted(testCase(), 3)
	result := passingBatch(3)
	result.Outcomes = []benchmark.WorkerOutcome{
		{Status: benchmark.StatusSuccess, RealTimeFactor: 1.8},
		{Status: benchmark.StatusSuccess, RealTimeFactor: 1.6},
		{Status: benchmark.StatusTimeout},
	}
	result.Passed = false
	l.BatchFinished(result)
	l.RampFinished(benchmark.CapacityRecord{Path: models.PathCPU, MaxStreams: 0})

	out := buf.String()
	assert.Contains(t, out, "batch finished")
	assert.Contains(t, out, "failed_workers=1")
	assert.Contains(t, out, "passed=false")
	// Ramp boundaries stay at debug so the controller's own logs are not duplicated.
	assert.NotContains(t, out, "ramp observer")
}

func TestLog_DebugShowsBatchStart(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l := NewLog(logger)

	l.BatchStarted(testCase(), 2)

	out := buf.String()
	assert.Contains(t, out, "batch starting")
	assert.Contains(t, out, "workers=2")
}
