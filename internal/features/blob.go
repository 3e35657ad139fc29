package features

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/autoclaim-ml/internal/store"
)

// Blob is a transformed feature matrix together with its labels
type Blob struct {
	Features []string    `json:"features"`
	X        [][]float64 `json:"x"`
	Y        []float64   `json:"y"`
}

// Validate checks that the matrix is rectangular and aligned with its labels
func (b *Blob) Validate() error {
	if len(b.X) != len(b.Y) {
		return fmt.Errorf("blob has %d rows and %d labels", len(b.X), len(b.Y))
	}
	for i, row := range b.X {
		if len(row) != len(b.Features) {
			return fmt.Errorf("blob row %d has %d values, expected %d", i, len(row), len(b.Features))
		}
	}
	return nil
}

// WriteBlob stores a blob as JSON
func WriteBlob(path string, b *Blob) error {
	if err := b.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal blob: %w", err)
	}
	return store.WriteFileAtomic(path, data, 0644)
}

// ReadBlob loads a blob written by WriteBlob
func ReadBlob(path string) (*Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b Blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse blob: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}
