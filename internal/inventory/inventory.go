// Package inventory collects the hardware identity snapshot attached to every
// report: CPU model, OS details, and the GPUs available for hardware encoding.
package inventory

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/BotBlake/jellybench/pkg/models"
)

const (
	// probeTimeout is the timeout for external detection commands
	probeTimeout = 5 * time.Second
)

// GPU is one detected hardware encoder device.
type GPU struct {
	Index  int
	Vendor string // "nvidia", "amd" or "intel"
	Model  string
	BusID  string
}

// DeviceArg returns the value substituted for the {gpu} placeholder in
// command templates. Devices are addressed by index.
func (g GPU) DeviceArg() string {
	return strconv.Itoa(g.Index)
}

// Collector queries host and GPU identity.
type Collector struct {
	logger *slog.Logger
}

// NewCollector creates a new hardware collector.
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		logger: logger,
	}
}

// CollectHost returns the host identity snapshot, queried once before any
// ramp starts. Fields that cannot be determined degrade to "unknown" rather
// than failing the run.
func (c *Collector) CollectHost(ctx context.Context) models.HardwareInfo {
	info := models.HardwareInfo{
		CPUModel: "unknown",
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
	}

	cpus, err := cpu.InfoWithContext(ctx)
	if err != nil || len(cpus) == 0 {
		c.logger.Warn("cpu model detection failed",
			slog.Any("error", err))
	} else {
		info.CPUModel = strings.TrimSpace(cpus[0].ModelName)
	}

	if hi, err := host.InfoWithContext(ctx); err == nil && hi.Platform != "" {
		info.OSVersion = strings.TrimSpace(hi.Platform + " " + hi.PlatformVersion)
	}

	return info
}

// DetectGPUs probes for hardware encoder devices. nvidia-smi is tried first
// because it reports full device detail; lspci is the fallback so AMD and
// Intel adapters are still identified. A machine with neither tool simply
// reports no GPUs; detection problems never abort a run.
func (c *Collector) DetectGPUs(ctx context.Context) []GPU {
	if gpus := c.detectNvidia(ctx); len(gpus) > 0 {
		return gpus
	}
	return c.detectPCI(ctx)
}

func (c *Collector) detectNvidia(ctx context.Context) []GPU {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=index,name,pci.bus_id",
		"--format=csv,noheader")

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.Is(err, exec.ErrNotFound) {
			c.logger.Info("nvidia-smi not found, assuming no NVIDIA GPUs")
			return nil
		}
		if errors.As(err, &exitErr) {
			c.logger.Warn("nvidia-smi failed",
				slog.String("error", err.Error()),
				slog.String("stderr", string(exitErr.Stderr)))
			return nil
		}
		if ctx.Err() != nil {
			c.logger.Warn("nvidia-smi timed out",
				slog.Duration("timeout", probeTimeout))
			return nil
		}
		c.logger.Warn("nvidia-smi execution failed",
			slog.String("error", err.Error()))
		return nil
	}

	gpus, err := parseGPUList(string(output))
	if err != nil {
		c.logger.Warn("failed to parse nvidia-smi output",
			slog.String("error", err.Error()),
			slog.String("output", string(output)))
		return nil
	}

	return gpus
}

func (c *Collector) detectPCI(ctx context.Context) []GPU {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, "lspci").Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			c.logger.Debug("lspci not found, skipping pci probe")
		} else {
			c.logger.Warn("lspci execution failed",
				slog.String("error", err.Error()))
		}
		return nil
	}

	return parsePCIList(string(output))
}

// parseGPUList parses "index, name, pci.bus_id" CSV lines, one per GPU.
func parseGPUList(output string) ([]GPU, error) {
	var gpus []GPU

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ",", 3)
		if len(parts) != 3 {
			return nil, errors.New("unexpected csv format: expected 3 fields")
		}

		idx, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, errors.New("failed to parse gpu index: " + err.Error())
		}

		gpus = append(gpus, GPU{
			Index:  idx,
			Vendor: "nvidia",
			Model:  strings.TrimSpace(parts[1]),
			BusID:  strings.TrimSpace(parts[2]),
		})
	}

	if len(gpus) == 0 {
		return nil, errors.New("no GPU data found")
	}
	return gpus, nil
}

// parsePCIList extracts display controllers from plain lspci output. Lines
// look like "01:00.0 VGA compatible controller: NVIDIA Corporation GA106".
// Devices whose vendor has no encode command set are skipped.
func parsePCIList(output string) []GPU {
	var gpus []GPU

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		slot, rest, ok := strings.Cut(strings.TrimSpace(line), " ")
		if !ok {
			continue
		}
		class, model, ok := strings.Cut(rest, ": ")
		if !ok || !isDisplayClass(class) {
			continue
		}
		vendor := vendorFromDescription(model)
		if vendor == "" {
			continue
		}

		gpus = append(gpus, GPU{
			Index:  len(gpus),
			Vendor: vendor,
			Model:  strings.TrimSpace(model),
			BusID:  slot,
		})
	}

	return gpus
}

func isDisplayClass(class string) bool {
	switch class {
	case "VGA compatible controller", "3D controller", "Display controller":
		return true
	}
	return false
}

func vendorFromDescription(model string) string {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "nvidia"):
		return "nvidia"
	case strings.Contains(lower, "advanced micro devices"),
		strings.Contains(lower, "amd"),
		strings.Contains(lower, "ati "):
		return "amd"
	case strings.Contains(lower, "intel"):
		return "intel"
	}
	return ""
}
