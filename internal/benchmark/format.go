package benchmark

import (
	"fmt"
	"strings"

	"github.com/BotBlake/jellybench/pkg/models"
)

// FormatReportSummary creates a human-readable summary of a compiled report.
func FormatReportSummary(report *models.BenchmarkReport) string {
	var sb strings.Builder

	sb.WriteString(`
═══════════════════════════════════════════════════════════════
                 TRANSCODE CAPACITY RESULTS
═══════════════════════════════════════════════════════════════

`)

	sb.WriteString("Hardware\n")
	sb.WriteString(fmt.Sprintf("  CPU:              %s\n", report.Hardware.CPUModel))
	if report.Hardware.GPUModel != "" {
		sb.WriteString(fmt.Sprintf("  GPU:              %s (%s)\n", report.Hardware.GPUModel, report.Hardware.GPUVendor))
	}
	system := fmt.Sprintf("%s/%s", report.Hardware.OS, report.Hardware.Arch)
	if report.Hardware.OSVersion != "" {
		system += " (" + report.Hardware.OSVersion + ")"
	}
	sb.WriteString(fmt.Sprintf("  System:           %s\n", system))
	sb.WriteString("\n")

	for _, res := range report.Results {
		sb.WriteString(fmt.Sprintf("%s Path\n", res.Path))
		if res.Error != "" {
			sb.WriteString(fmt.Sprintf("  Aborted:          %s\n", res.Error))
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(fmt.Sprintf("  Max Streams:      %d\n", res.MaxConcurrentStreams))
		sb.WriteString(fmt.Sprintf("  Batches Run:      %d\n", len(res.Batches)))
		if last, ok := lastPassingBatch(res.Batches); ok {
			sb.WriteString(fmt.Sprintf("  Speed at Max:     %.2fx min / %.2fx median / %.2fx max\n",
				last.Stats.MinFactor, last.Stats.MedianFactor, last.Stats.MaxFactor))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("═══════════════════════════════════════════════════════════════\n")
	return sb.String()
}

// lastPassingBatch returns the highest-count passing batch, if any.
func lastPassingBatch(batches []models.BatchSummary) (models.BatchSummary, bool) {
	for i := len(batches) - 1; i >= 0; i-- {
		if batches[i].Passed {
			return batches[i], true
		}
	}
	return models.BatchSummary{}, false
}
