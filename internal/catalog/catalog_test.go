package catalog

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BotBlake/jellybench/internal/benchmark"
	"github.com/BotBlake/jellybench/pkg/models"
)

func testManifest() *models.TestData {
	return &models.TestData{
		Token: "tok-123",
		Assets: []models.MediaAsset{
			{
				Name:            "jellyfish-1080p.mkv",
				DurationSeconds: 30,
				Tests: []models.TranscodeTest{
					{
						ID:             "h264-1080p",
						FromResolution: "1080p",
						ToResolution:   "720p",
						Commands: []models.DeviceCommand{
							{Device: "cpu", Args: "-y -i {video_file} -c:v libx264 -f null -"},
							{Device: "nvidia", Args: "-y -hwaccel_device {gpu} -i {video_file} -c:v h264_nvenc -f null -"},
							{Device: "amd", Args: "-y -i {video_file} -c:v h264_amf -f null -"},
						},
					},
				},
			},
		},
	}
}

func testVideos() map[string]string {
	return map[string]string{"jellyfish-1080p.mkv": "/tmp/videos/jellyfish-1080p.mkv"}
}

func TestBuildBothPaths(t *testing.T) {
	sel := Selection{
		EnableCPU:     true,
		EnableGPU:     true,
		GPUVendor:     "nvidia",
		GPUDevice:     "0",
		PassThreshold: 1.0,
	}

	cases, err := Build(testManifest(), testVideos(), sel)
	require.NoError(t, err)
	require.Len(t, cases, 2, "amd command should be filtered out")

	cpu := cases[0]
	assert.Equal(t, models.PathCPU, cpu.Path)
	assert.Equal(t, "h264-1080p", cpu.ID)
	assert.Equal(t, 30*time.Second, cpu.MediaDuration)
	assert.Contains(t, cpu.Args, "/tmp/videos/jellyfish-1080p.mkv")
	assert.NotContains(t, cpu.Args, "{video_file}")

	gpu := cases[1]
	assert.Equal(t, models.PathGPU, gpu.Path)
	assert.Contains(t, gpu.Args, "0", "gpu placeholder should be substituted")
	assert.NotContains(t, gpu.Args, "{gpu}")
}

func TestBuildCPUOnly(t *testing.T) {
	sel := Selection{EnableCPU: true, PassThreshold: 1.0}

	cases, err := Build(testManifest(), testVideos(), sel)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, models.PathCPU, cases[0].Path)
}

func TestBuildMatchesGPUVendor(t *testing.T) {
	sel := Selection{EnableGPU: true, GPUVendor: "amd", GPUDevice: "0", PassThreshold: 1.0}

	cases, err := Build(testManifest(), testVideos(), sel)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Contains(t, cases[0].Args, "h264_amf")
}

func TestBuildNoRunnableCases(t *testing.T) {
	// Intel GPU selected but the manifest has no intel commands
	sel := Selection{EnableGPU: true, GPUVendor: "intel", PassThreshold: 1.0}

	_, err := Build(testManifest(), testVideos(), sel)
	require.Error(t, err)
	assert.True(t, errors.Is(err, benchmark.ErrConfiguration))
}

func TestBuildMissingVideo(t *testing.T) {
	sel := Selection{EnableCPU: true, PassThreshold: 1.0}

	_, err := Build(testManifest(), map[string]string{}, sel)
	require.Error(t, err)
	assert.True(t, errors.Is(err, benchmark.ErrConfiguration))
}

func TestBuildZeroDuration(t *testing.T) {
	data := testManifest()
	data.Assets[0].DurationSeconds = 0
	sel := Selection{EnableCPU: true, PassThreshold: 1.0}

	_, err := Build(data, testVideos(), sel)
	require.Error(t, err)
	assert.True(t, errors.Is(err, benchmark.ErrConfiguration))
}

func TestBuildKeepsPathWithSpacesIntact(t *testing.T) {
	videos := map[string]string{"jellyfish-1080p.mkv": "/tmp/test videos/jellyfish.mkv"}
	sel := Selection{EnableCPU: true, PassThreshold: 1.0}

	cases, err := Build(testManifest(), videos, sel)
	require.NoError(t, err)
	assert.Contains(t, cases[0].Args, "/tmp/test videos/jellyfish.mkv",
		"substituted path must stay a single argument")
}

func TestForPath(t *testing.T) {
	sel := Selection{EnableCPU: true, EnableGPU: true, GPUVendor: "nvidia", GPUDevice: "0", PassThreshold: 1.0}
	cases, err := Build(testManifest(), testVideos(), sel)
	require.NoError(t, err)

	cpuCases := ForPath(cases, models.PathCPU)
	require.Len(t, cpuCases, 1)
	assert.Equal(t, models.PathCPU, cpuCases[0].Path)

	gpuCases := ForPath(cases, models.PathGPU)
	require.Len(t, gpuCases, 1)
}
