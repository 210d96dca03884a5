package util

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/AnaEHC/semaforo-app/models"
)

// ReadClientRecordsFromJSON loads a record-store snapshot from JSON on disk.
func ReadClientRecordsFromJSON(filePath string) ([]models.DailyRecord, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", filePath, err)
	}
	var records []models.DailyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client records: %w", err)
	}
	return records, nil
}

// ReadHolidaysFromJSON loads a list of ISO dates from JSON on disk.
// Unparsable entries are dropped.
func ReadHolidaysFromJSON(filePath string) ([]models.Date, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", filePath, err)
	}
	var raw []models.Date
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal holidays: %w", err)
	}
	holidays := make([]models.Date, 0, len(raw))
	for _, d := range raw {
		if !d.IsZero() {
			holidays = append(holidays, d)
		}
	}
	return holidays, nil
}

// WriteClientRecordsToJSON stores a snapshot, used by the fixture-backed API.
func WriteClientRecordsToJSON(filePath string, records []models.DailyRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal client records: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file %q: %w", filePath, err)
	}
	return nil
}
