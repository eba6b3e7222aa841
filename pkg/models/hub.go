package models

import "time"

// Platform describes one OS/arch combination the survey service has test data for.
type Platform struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OS        string `json:"os"`   // "linux", "windows", "darwin"
	Arch      string `json:"arch"` // "amd64", "arm64"
	Supported bool   `json:"supported"`
}

// PlatformsResponse is the body of GET /api/v1/platforms.
type PlatformsResponse struct {
	Platforms []Platform `json:"platforms"`
}

// FileHash pairs a hashing algorithm with its expected digest.
type FileHash struct {
	Type string `json:"type"` // currently only "sha256"
	Hash string `json:"hash"`
}

// ToolSource points at the transcoder build to download for a platform.
type ToolSource struct {
	Version   string     `json:"version"`
	SourceURL string     `json:"source_url"`
	Hashes    []FileHash `json:"hashes,omitempty"`
}

// DeviceCommand is one transcoder invocation template bound to a device kind.
// Args may contain {video_file} and {gpu} placeholders that are substituted
// before execution.
type DeviceCommand struct {
	Device string `json:"device"` // "cpu" or a GPU vendor: "nvidia", "amd", "intel"
	Args   string `json:"args"`
}

// TranscodeTest describes one conversion scenario for a media asset.
type TranscodeTest struct {
	ID             string          `json:"id"`
	FromResolution string          `json:"from_resolution"`
	ToResolution   string          `json:"to_resolution"`
	Commands       []DeviceCommand `json:"commands"`
}

// MediaAsset is a downloadable source file plus the tests that run against it.
// DurationSeconds is the playback length used to compute real-time factors.
type MediaAsset struct {
	Name            string          `json:"name"`
	SourceURL       string          `json:"source_url"`
	Hashes          []FileHash      `json:"hashes,omitempty"`
	DurationSeconds float64         `json:"duration_seconds"`
	Tests           []TranscodeTest `json:"tests"`
}

// TestData is the full test manifest issued for one platform. The token is
// echoed back with the submission so the service can correlate the two.
type TestData struct {
	Token  string       `json:"token"`
	FFmpeg ToolSource   `json:"ffmpeg"`
	Assets []MediaAsset `json:"assets"`
}

// SubmitRequest wraps a finished report for upload.
type SubmitRequest struct {
	Token  string           `json:"token" binding:"required"`
	Report *BenchmarkReport `json:"report" binding:"required"`
}

// SubmitResponse acknowledges a stored submission.
type SubmitResponse struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
}

// SubmissionRecord is a stored submission as returned by the hub API.
type SubmissionRecord struct {
	ID         string           `json:"id"`
	Token      string           `json:"token"`
	ReceivedAt time.Time        `json:"received_at"`
	Report     *BenchmarkReport `json:"report"`
}

// SubmissionsResponse is the body of GET /api/v1/submissions.
type SubmissionsResponse struct {
	Submissions []SubmissionRecord `json:"submissions"`
	Count       int                `json:"count"`
}
