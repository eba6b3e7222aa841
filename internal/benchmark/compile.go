package benchmark

import (
	"encoding/json"
	"sort"

	"github.com/BotBlake/jellybench/pkg/models"
)

// pathRank fixes the report ordering: CPU results always precede GPU results.
func pathRank(p models.HardwarePath) int {
	switch p {
	case models.PathCPU:
		return 0
	case models.PathGPU:
		return 1
	default:
		return 2
	}
}

// Compile merges the capacity records of every ramped path with the hardware
// identity snapshot into the final report. Identical records and identity
// always produce the same document.
func Compile(hardware models.HardwareInfo, records []CapacityRecord) *models.BenchmarkReport {
	report := &models.BenchmarkReport{
		SchemaVersion: models.SchemaVersion,
		Hardware:      hardware,
		Results:       make([]models.CapacityResult, 0, len(records)),
	}

	ordered := make([]CapacityRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		if pathRank(ordered[i].Path) != pathRank(ordered[j].Path) {
			return pathRank(ordered[i].Path) < pathRank(ordered[j].Path)
		}
		return ordered[i].Path < ordered[j].Path
	})

	for _, rec := range ordered {
		result := models.CapacityResult{
			Path:                 rec.Path,
			MaxConcurrentStreams: rec.MaxStreams,
			Batches:              make([]models.BatchSummary, 0, len(rec.Batches)),
			Error:                rec.FailureReason,
		}
		for _, b := range rec.Batches {
			result.Batches = append(result.Batches, models.BatchSummary{
				Workers: b.Workers,
				Passed:  b.Passed,
				Stats:   b.Stats,
			})
		}
		report.Results = append(report.Results, result)
	}

	return report
}

// EncodeReport serializes a report for upload or file output. Field order
// follows the struct layout, so encoding the same report twice yields
// byte-identical documents.
func EncodeReport(report *models.BenchmarkReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
