package benchmark

import (
	"bytes"
	"strings"
	"testing"

	"github.com/BotBlake/jellybench/pkg/models"
)

func testHardware() models.HardwareInfo {
	return models.HardwareInfo{
		CPUModel:  "AMD Ryzen 9 5950X",
		GPUModel:  "NVIDIA GeForce RTX 3060",
		GPUVendor: "nvidia",
		OS:        "linux",
		Arch:      "amd64",
	}
}

func TestCompileOrdersCPUBeforeGPU(t *testing.T) {
	// Records arrive GPU-first; the report must still lead with CPU
	records := []CapacityRecord{
		{
			Path:       models.PathGPU,
			MaxStreams: 8,
			Batches: []BatchResult{
				{Workers: 1, Passed: true, Stats: models.BatchStats{MinFactor: 4.0, MedianFactor: 4.0, MaxFactor: 4.0}},
			},
		},
		{
			Path:       models.PathCPU,
			MaxStreams: 2,
			Batches: []BatchResult{
				{Workers: 1, Passed: true, Stats: models.BatchStats{MinFactor: 1.5, MedianFactor: 1.5, MaxFactor: 1.5}},
			},
		},
	}

	report := Compile(testHardware(), records)

	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Results[0].Path != models.PathCPU {
		t.Errorf("expected CPU first, got %s", report.Results[0].Path)
	}
	if report.Results[1].Path != models.PathGPU {
		t.Errorf("expected GPU second, got %s", report.Results[1].Path)
	}

	// Verify stream counts survive the conversion
	if report.Results[0].MaxConcurrentStreams != 2 {
		t.Errorf("expected 2 CPU streams, got %d", report.Results[0].MaxConcurrentStreams)
	}
	if report.Results[1].MaxConcurrentStreams != 8 {
		t.Errorf("expected 8 GPU streams, got %d", report.Results[1].MaxConcurrentStreams)
	}
}

func TestCompileCarriesFailureReason(t *testing.T) {
	records := []CapacityRecord{
		{
			Path:          models.PathGPU,
			MaxStreams:    0,
			FailureReason: "no GPU device found",
		},
	}

	report := Compile(testHardware(), records)

	if report.SchemaVersion != models.SchemaVersion {
		t.Errorf("expected schema version %s, got %s", models.SchemaVersion, report.SchemaVersion)
	}
	if report.Results[0].Error != "no GPU device found" {
		t.Errorf("expected failure reason, got %q", report.Results[0].Error)
	}
}

func TestEncodeReportDeterministic(t *testing.T) {
	records := []CapacityRecord{
		{
			Path:       models.PathCPU,
			MaxStreams: 3,
			Batches: []BatchResult{
				{Workers: 1, Passed: true, Stats: models.BatchStats{MinFactor: 2.0, MedianFactor: 2.0, MaxFactor: 2.0}},
				{Workers: 2, Passed: true, Stats: models.BatchStats{MinFactor: 1.4, MedianFactor: 1.5, MaxFactor: 1.6}},
				{Workers: 3, Passed: false, Stats: models.BatchStats{MinFactor: 0.8, MedianFactor: 0.9, MaxFactor: 1.1}},
			},
		},
	}
	report := Compile(testHardware(), records)

	first, err := EncodeReport(report)
	if err != nil {
		t.Fatalf("EncodeReport failed: %v", err)
	}
	second, err := EncodeReport(report)
	if err != nil {
		t.Fatalf("EncodeReport failed: %v", err)
	}

	// Same report must always produce identical bytes
	if !bytes.Equal(first, second) {
		t.Error("expected repeated encodings to be byte-identical")
	}

	out := string(first)
	if !strings.Contains(out, `"schema_version": "1.0"`) {
		t.Errorf("encoded report missing schema version: %s", out)
	}
	if !strings.Contains(out, `"max_concurrent_streams": 3`) {
		t.Errorf("encoded report missing stream count: %s", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("encoded report should end with a newline")
	}
}

func TestEncodeReportEmptyBatches(t *testing.T) {
	records := []CapacityRecord{
		{Path: models.PathCPU, MaxStreams: 0, FailureReason: "ffmpeg binary missing"},
	}
	report := Compile(testHardware(), records)

	data, err := EncodeReport(report)
	if err != nil {
		t.Fatalf("EncodeReport failed: %v", err)
	}

	// An aborted path still reports an empty batch list, not null
	if !strings.Contains(string(data), `"batches": []`) {
		t.Errorf("expected empty batches array, got: %s", data)
	}
}

func TestFormatReportSummary(t *testing.T) {
	records := []CapacityRecord{
		{
			Path:       models.PathCPU,
			MaxStreams: 2,
			Batches: []BatchResult{
				{Workers: 1, Passed: true, Stats: models.BatchStats{MinFactor: 2.0, MedianFactor: 2.0, MaxFactor: 2.0}},
				{Workers: 2, Passed: true, Stats: models.BatchStats{MinFactor: 1.2, MedianFactor: 1.3, MaxFactor: 1.4}},
				{Workers: 3, Passed: false, Stats: models.BatchStats{MinFactor: 0.7, MedianFactor: 0.9, MaxFactor: 1.0}},
			},
		},
		{Path: models.PathGPU, FailureReason: "no GPU device found"},
	}
	report := Compile(testHardware(), records)

	out := FormatReportSummary(report)

	if !strings.Contains(out, "AMD Ryzen 9 5950X") {
		t.Error("summary missing CPU model")
	}
	if !strings.Contains(out, "Max Streams:      2") {
		t.Error("summary missing max streams")
	}
	// Speed line comes from the last passing batch, not the failing one
	if !strings.Contains(out, "1.20x min") {
		t.Errorf("summary missing speed of last passing batch: %s", out)
	}
	if !strings.Contains(out, "Aborted:          no GPU device found") {
		t.Error("summary missing aborted path reason")
	}
}
