package hub

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BotBlake/jellybench/pkg/models"
)

// Seed is the platform and test-data catalog the hub serves. It is loaded
// once at startup and read-only afterwards.
type Seed struct {
	Platforms []models.Platform          `json:"platforms"`
	TestData  map[string]models.TestData `json:"test_data"` // keyed by platform id
}

// LoadSeed reads the seed file. An empty path yields an empty catalog so a
// hub can run submissions-only.
func LoadSeed(path string) (*Seed, error) {
	if path == "" {
		return &Seed{TestData: map[string]models.TestData{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if seed.TestData == nil {
		seed.TestData = map[string]models.TestData{}
	}

	if err := seed.validate(); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}

	return &seed, nil
}

func (s *Seed) validate() error {
	ids := make(map[string]bool, len(s.Platforms))
	for _, p := range s.Platforms {
		if p.ID == "" {
			return fmt.Errorf("platform with empty id")
		}
		if ids[p.ID] {
			return fmt.Errorf("duplicate platform id %q", p.ID)
		}
		ids[p.ID] = true

		if !p.Supported {
			continue
		}
		data, ok := s.TestData[p.ID]
		if !ok {
			return fmt.Errorf("supported platform %q has no test data", p.ID)
		}
		if data.FFmpeg.SourceURL == "" {
			return fmt.Errorf("platform %q: test data names no transcoder source", p.ID)
		}
		for _, asset := range data.Assets {
			if asset.Name == "" || asset.SourceURL == "" {
				return fmt.Errorf("platform %q: asset with empty name or source url", p.ID)
			}
		}
	}

	for id := range s.TestData {
		if !ids[id] {
			return fmt.Errorf("test data for unknown platform %q", id)
		}
	}

	return nil
}

// TestDataFor returns a copy of the test data for one platform.
func (s *Seed) TestDataFor(platformID string) (models.TestData, bool) {
	data, ok := s.TestData[platformID]
	return data, ok
}
