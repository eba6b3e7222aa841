package models

// SchemaVersion identifies the report format accepted by the survey service.
const SchemaVersion = "1.0"

// HardwarePath identifies which acceleration track a capacity result belongs to.
type HardwarePath string

const (
	PathCPU HardwarePath = "CPU" // software encode on the CPU
	PathGPU HardwarePath = "GPU" // hardware encode on a GPU
)

// Valid reports whether p is a known hardware path.
func (p HardwarePath) Valid() bool {
	return p == PathCPU || p == PathGPU
}

// BatchStats summarizes the real-time factors observed across one batch.
type BatchStats struct {
	MinFactor    float64 `json:"min_factor"`
	MedianFactor float64 `json:"median_factor"`
	MaxFactor    float64 `json:"max_factor"`
}

// BatchSummary is the wire form of one ramp step at a fixed worker count.
type BatchSummary struct {
	Workers int        `json:"n"`
	Passed  bool       `json:"passed"`
	Stats   BatchStats `json:"stats"`
}

// CapacityResult carries the capacity verdict for one hardware path.
type CapacityResult struct {
	Path                 HardwarePath   `json:"path"`
	MaxConcurrentStreams int            `json:"max_concurrent_streams"`
	Batches              []BatchSummary `json:"batches"`
	Error                string         `json:"error,omitempty"` // set when the path aborted before a verdict
}

// HardwareInfo is the identity snapshot attached to a report.
type HardwareInfo struct {
	CPUModel  string `json:"cpu_model"`
	GPUModel  string `json:"gpu_model,omitempty"`
	GPUVendor string `json:"gpu_vendor,omitempty"`
	OS        string `json:"os"`
	OSVersion string `json:"os_version,omitempty"` // distribution/release, e.g. "ubuntu 24.04"
	Arch      string `json:"arch"`
}

// BenchmarkReport is the terminal artifact of a benchmark run. Results are
// ordered CPU before GPU and the document is never modified once compiled.
type BenchmarkReport struct {
	SchemaVersion string           `json:"schema_version"`
	Hardware      HardwareInfo     `json:"hardware"`
	Results       []CapacityResult `json:"results"`
}

// Result returns the capacity result for the given path, if present.
func (r *BenchmarkReport) Result(path HardwarePath) (*CapacityResult, bool) {
	for i := range r.Results {
		if r.Results[i].Path == path {
			return &r.Results[i], true
		}
	}
	return nil, false
}
