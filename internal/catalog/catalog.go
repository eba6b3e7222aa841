// Package catalog turns the survey service's test manifest into the concrete
// test cases a benchmark run executes. Each case binds one transcoder command
// template to a hardware path, a local video file, and a pass threshold.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/BotBlake/jellybench/internal/benchmark"
	"github.com/BotBlake/jellybench/pkg/models"
)

// TestCase is one runnable benchmark scenario. Immutable once built; safe to
// share across concurrently executing workers.
type TestCase struct {
	ID             string
	Path           models.HardwarePath
	FromResolution string
	ToResolution   string
	Args           []string // substituted argv, transcoder binary not included
	VideoPath      string
	MediaDuration  time.Duration
	PassThreshold  float64
}

// Name returns a short human-readable identifier for logs and progress output.
func (tc TestCase) Name() string {
	return fmt.Sprintf("%s %s->%s [%s]", tc.ID, tc.FromResolution, tc.ToResolution, tc.Path)
}

// Selection controls which device commands become test cases.
type Selection struct {
	EnableCPU     bool
	EnableGPU     bool
	GPUVendor     string // lowercase vendor of the selected GPU: "nvidia", "amd", "intel"
	GPUDevice     string // value substituted for the {gpu} placeholder
	PassThreshold float64
}

// Build expands the manifest into test cases for the enabled hardware paths.
// videoPaths maps asset names to local files already downloaded and verified.
// Returns a configuration failure if the manifest yields no runnable cases.
func Build(data *models.TestData, videoPaths map[string]string, sel Selection) ([]TestCase, error) {
	if data == nil || len(data.Assets) == 0 {
		return nil, fmt.Errorf("test manifest has no assets: %w", benchmark.ErrConfiguration)
	}

	var cases []TestCase
	for _, asset := range data.Assets {
		videoPath, ok := videoPaths[asset.Name]
		if !ok {
			return nil, fmt.Errorf("no local file for asset %q: %w", asset.Name, benchmark.ErrConfiguration)
		}
		if asset.DurationSeconds <= 0 {
			return nil, fmt.Errorf("asset %q has no playback duration: %w", asset.Name, benchmark.ErrConfiguration)
		}
		duration := time.Duration(asset.DurationSeconds * float64(time.Second))

		for _, test := range asset.Tests {
			for _, cmd := range test.Commands {
				path, ok := selectPath(cmd.Device, sel)
				if !ok {
					continue
				}
				cases = append(cases, TestCase{
					ID:             test.ID,
					Path:           path,
					FromResolution: test.FromResolution,
					ToResolution:   test.ToResolution,
					Args:           substituteArgs(cmd.Args, videoPath, sel.GPUDevice),
					VideoPath:      videoPath,
					MediaDuration:  duration,
					PassThreshold:  sel.PassThreshold,
				})
			}
		}
	}

	if len(cases) == 0 {
		return nil, fmt.Errorf("no runnable test cases for the enabled hardware paths: %w", benchmark.ErrConfiguration)
	}
	return cases, nil
}

// ForPath filters cases down to one hardware path, preserving manifest order.
func ForPath(cases []TestCase, path models.HardwarePath) []TestCase {
	var out []TestCase
	for _, tc := range cases {
		if tc.Path == path {
			out = append(out, tc)
		}
	}
	return out
}

// selectPath maps a command's device kind onto an enabled hardware path.
// A GPU command only matches when its device equals the selected GPU vendor.
func selectPath(device string, sel Selection) (models.HardwarePath, bool) {
	if strings.EqualFold(device, "cpu") {
		if sel.EnableCPU {
			return models.PathCPU, true
		}
		return "", false
	}
	if sel.EnableGPU && strings.EqualFold(device, sel.GPUVendor) {
		return models.PathGPU, true
	}
	return "", false
}

// substituteArgs splits the template into argv first and substitutes
// placeholders per field, so a video path containing spaces stays one
// argument.
func substituteArgs(template, videoPath, gpuDevice string) []string {
	fields := strings.Fields(template)
	args := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, "{video_file}", videoPath)
		f = strings.ReplaceAll(f, "{gpu}", gpuDevice)
		args = append(args, f)
	}
	return args
}
