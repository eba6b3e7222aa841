package hub

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validSeed = `{
	"platforms": [
		{"id": "linux-amd64", "name": "Linux x86_64", "os": "linux", "arch": "amd64", "supported": true},
		{"id": "freebsd-amd64", "name": "FreeBSD x86_64", "os": "freebsd", "arch": "amd64", "supported": false}
	],
	"test_data": {
		"linux-amd64": {
			"ffmpeg": {"version": "6.0", "source_url": "https://repo.jellyfin.org/ffmpeg.tar.gz"},
			"assets": [
				{"name": "jellyfish.mkv", "source_url": "https://repo.jellyfin.org/jellyfish.mkv", "duration_seconds": 30}
			]
		}
	}
}`

func TestLoadSeed_Valid(t *testing.T) {
	seed, err := LoadSeed(writeSeedFile(t, validSeed))
	require.NoError(t, err)

	assert.Len(t, seed.Platforms, 2)

	data, ok := seed.TestDataFor("linux-amd64")
	require.True(t, ok)
	assert.Equal(t, "6.0", data.FFmpeg.Version)
	require.Len(t, data.Assets, 1)
	assert.Equal(t, "jellyfish.mkv", data.Assets[0].Name)
}

func TestLoadSeed_EmptyPath(t *testing.T) {
	seed, err := LoadSeed("")
	require.NoError(t, err)
	assert.Empty(t, seed.Platforms)
	_, ok := seed.TestDataFor("linux-amd64")
	assert.False(t, ok)
}

func TestLoadSeed_MissingFile(t *testing.T) {
	_, err := LoadSeed(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoadSeed_BadJSON(t *testing.T) {
	_, err := LoadSeed(writeSeedFile(t, "{not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoadSeed_SupportedPlatformWithoutTestData(t *testing.T) {
	_, err := LoadSeed(writeSeedFile(t, `{
		"platforms": [{"id": "linux-amd64", "os": "linux", "arch": "amd64", "supported": true}],
		"test_data": {}
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no test data")
}

func TestLoadSeed_TestDataForUnknownPlatform(t *testing.T) {
	_, err := LoadSeed(writeSeedFile(t, `{
		"platforms": [],
		"test_data": {
			"mystery": {"ffmpeg": {"source_url": "https://example.com/ffmpeg.zip"}}
		}
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown platform")
}

func TestLoadSeed_DuplicatePlatform(t *testing.T) {
	_, err := LoadSeed(writeSeedFile(t, `{
		"platforms": [
			{"id": "linux-amd64", "os": "linux", "arch": "amd64", "supported": false},
			{"id": "linux-amd64", "os": "linux", "arch": "amd64", "supported": false}
		]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate platform")
}

func TestLoadSeed_MissingTranscoderSource(t *testing.T) {
	_, err := LoadSeed(writeSeedFile(t, `{
		"platforms": [{"id": "linux-amd64", "os": "linux", "arch": "amd64", "supported": true}],
		"test_data": {
			"linux-amd64": {"assets": []}
		}
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcoder source")
}
