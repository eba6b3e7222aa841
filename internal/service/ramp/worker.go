package ramp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/BotBlake/jellybench/internal/benchmark"
	"github.com/BotBlake/jellybench/internal/catalog"
)

// stderrTailBytes bounds how much transcoder output is kept per worker.
// ffmpeg writes a progress line per frame; only the end matters for
// diagnosing a failure.
const stderrTailBytes = 2048

// Runner executes a single transcode worker and reports its outcome.
// Worker crashes and timeouts are folded into the outcome; the error return
// is reserved for conditions that make the whole hardware path unrunnable,
// such as a missing transcoder binary.
type Runner interface {
	Run(ctx context.Context, tc catalog.TestCase) (benchmark.WorkerOutcome, error)
}

// ProcessRunner runs workers as transcoder subprocesses.
type ProcessRunner struct {
	binary  string
	timeout time.Duration
	workDir string
	logger  *slog.Logger
}

// NewProcessRunner creates a runner that launches binary with a hard timeout
// per worker. workDir is the parent for per-worker scratch directories; empty
// means the system temp dir.
func NewProcessRunner(binary string, timeout time.Duration, workDir string, logger *slog.Logger) *ProcessRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessRunner{
		binary:  binary,
		timeout: timeout,
		workDir: workDir,
		logger:  logger,
	}
}

// Run launches one transcoder subprocess and waits for it to finish.
// The subprocess gets a private scratch directory as its working directory,
// removed on every exit path. Cancelling ctx kills the subprocess.
func (r *ProcessRunner) Run(ctx context.Context, tc catalog.TestCase) (benchmark.WorkerOutcome, error) {
	scratch, err := os.MkdirTemp(r.workDir, "jellybench-worker-*")
	if err != nil {
		return benchmark.WorkerOutcome{}, fmt.Errorf("create scratch dir: %v: %w", err, benchmark.ErrEnvironment)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			r.logger.Warn("failed to remove worker scratch dir",
				slog.String("dir", scratch),
				slog.String("error", err.Error()))
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.binary, tc.Args...)
	cmd.Dir = scratch
	// After a kill, Wait must still return even if something inherited the
	// stderr pipe and keeps it open.
	cmd.WaitDelay = 5 * time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return benchmark.WorkerOutcome{}, fmt.Errorf("start transcoder %s: %v: %w", r.binary, err, benchmark.ErrEnvironment)
	}

	waitErr := cmd.Wait()
	elapsed := time.Since(started)

	// A cancelled parent context means the whole run is being aborted;
	// the subprocess has already been killed by CommandContext.
	if ctx.Err() != nil {
		return benchmark.WorkerOutcome{}, ctx.Err()
	}

	outcome := benchmark.WorkerOutcome{
		Duration: elapsed,
		Stderr:   tail(stderr.Bytes(), stderrTailBytes),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		outcome.Status = benchmark.StatusTimeout
		outcome.ExitCode = -1
		return outcome, nil
	}

	if waitErr != nil {
		outcome.Status = benchmark.StatusFailure
		outcome.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			outcome.ExitCode = exitErr.ExitCode()
		}
		return outcome, nil
	}

	outcome.Status = benchmark.StatusSuccess
	if elapsed > 0 {
		outcome.RealTimeFactor = tc.MediaDuration.Seconds() / elapsed.Seconds()
	}
	return outcome, nil
}

// tail returns the last n bytes of b as a string.
func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
