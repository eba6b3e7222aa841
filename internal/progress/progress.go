// Package progress renders ramp events for humans. The engine never prints;
// it emits events through ramp.Observer and these implementations decide how
// a run looks on a terminal or in structured logs.
package progress

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/BotBlake/jellybench/internal/benchmark"
	"github.com/BotBlake/jellybench/internal/catalog"
	"github.com/BotBlake/jellybench/internal/service/ramp"
	"github.com/BotBlake/jellybench/pkg/models"
)

var (
	_ ramp.Observer = (*Console)(nil)
	_ ramp.Observer = (*Log)(nil)
)

// Console renders a live spinner per hardware path followed by a one-line
// verdict. The total number of batches is unknown until the ramp fails, so
// the bar counts batches instead of predicting completion.
type Console struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewConsole creates a console observer writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) RampStarted(path models.HardwarePath, cases int) {
	fmt.Fprintf(c.out, "Ramping %s path (%d test case(s))\n", path, cases)
	c.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription(fmt.Sprintf("%s ramp", path)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("batches"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (c *Console) BatchStarted(tc catalog.TestCase, workers int) {
	if c.bar == nil {
		return
	}
	c.bar.Describe(fmt.Sprintf("%s x%d", tc.Name(), workers))
}

func (c *Console) BatchFinished(result benchmark.BatchResult) {
	if c.bar == nil {
		return
	}
	_ = c.bar.Add(1)
}

func (c *Console) RampFinished(record benchmark.CapacityRecord) {
	if c.bar != nil {
		_ = c.bar.Finish()
		c.bar = nil
	}

	switch {
	case record.FailureReason != "":
		fmt.Fprintf(c.out, "%s path aborted: %s\n", record.Path, record.FailureReason)
	case record.MaxStreams == 0:
		fmt.Fprintf(c.out, "%s path: no real-time capacity (failed at 1 worker)\n", record.Path)
	case record.AtCeiling:
		fmt.Fprintf(c.out, "%s path: %d concurrent stream(s), halted at configured ceiling\n", record.Path, record.MaxStreams)
	default:
		fmt.Fprintf(c.out, "%s path: %d concurrent stream(s)\n", record.Path, record.MaxStreams)
	}
}

// Log is the quiet observer for non-interactive runs. The controller already
// logs ramp boundaries, so only per-batch results land at info level here.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log observer.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) RampStarted(path models.HardwarePath, cases int) {
	l.logger.Debug("ramp observer attached",
		slog.String("path", string(path)),
		slog.Int("cases", cases))
}

func (l *Log) BatchStarted(tc catalog.TestCase, workers int) {
	l.logger.Debug("batch starting",
		slog.String("test", tc.Name()),
		slog.Int("workers", workers))
}

func (l *Log) BatchFinished(result benchmark.BatchResult) {
	failed := 0
	for _, o := range result.Outcomes {
		if !o.Succeeded() {
			failed++
		}
	}
	l.logger.Info("batch finished",
		slog.String("test_id", result.TestID),
		slog.String("path", string(result.Path)),
		slog.Int("workers", result.Workers),
		slog.Bool("passed", result.Passed),
		slog.Int("failed_workers", failed),
		slog.Float64("median_factor", result.Stats.MedianFactor),
		slog.Float64("min_factor", result.Stats.MinFactor))
}

func (l *Log) RampFinished(record benchmark.CapacityRecord) {
	l.logger.Debug("ramp observer detached",
		slog.String("path", string(record.Path)),
		slog.Int("max_streams", record.MaxStreams))
}
