package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mwidera/cityguide/internal/models"
)

// LoadPOIFile reads a JSON array of POIs from path.
func LoadPOIFile(path string) ([]*models.POI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read poi file: %w", err)
	}
	var pois []*models.POI
	if err := json.Unmarshal(data, &pois); err != nil {
		return nil, fmt.Errorf("failed to parse poi file %s: %w", path, err)
	}
	return pois, nil
}

// SavePOIFile writes pois as a JSON array to path, creating parent directories.
// The write is atomic (temp file + rename).
func SavePOIFile(path string, pois []*models.POI) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(pois, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pois: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write poi file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace poi file: %w", err)
	}
	return nil
}
