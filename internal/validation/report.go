package validation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/autoclaim-ml/internal/schemas"
	"github.com/jonathan/autoclaim-ml/internal/store"
)

// ReportFileName is the name of the report under the stage output directory
const ReportFileName = "report.json"

// Report is the persisted validation outcome
type Report struct {
	ValidationStatus bool    `json:"validation_status"`
	Message          string  `json:"message"`
	Checks           []Check `json:"checks,omitempty"`
}

// WriteReport validates the report against its schema and writes it atomically
func WriteReport(path string, report Report) error {
	data, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := schemas.Validate(schemas.ValidationReport, data); err != nil {
		return fmt.Errorf("report does not match schema: %w", err)
	}
	return store.WriteFileAtomic(path, data, 0644)
}

// ReadReport loads a report written by WriteReport
func ReadReport(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, err
	}
	if err := schemas.Validate(schemas.ValidationReport, data); err != nil {
		return Report{}, err
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, fmt.Errorf("failed to parse report: %w", err)
	}
	return report, nil
}
