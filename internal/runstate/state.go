package runstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"MarketPulse/internal/model"
)

// LoadReport reads the last run report from a JSON file. Returns nil if the file doesn't exist.
func LoadReport(filePath string) (*model.Report, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return &report, nil
}

// SaveReport writes the run report to a JSON file, creating its directory.
func SaveReport(filePath string, report *model.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}
