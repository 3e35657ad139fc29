package ingestion

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/zeebo/blake3"

	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/dataset"
	"github.com/jonathan/autoclaim-ml/internal/store"
)

// MetadataFileName is written next to the feature store snapshot
const MetadataFileName = "metadata.json"

// Metadata describes one ingested snapshot
type Metadata struct {
	Source     string   `json:"source"`
	Collection string   `json:"collection"`
	Timestamp  string   `json:"timestamp"` // RFC3339 format
	Hash       string   `json:"hash"`      // blake3 hex digest of the snapshot rows
	Columns    []string `json:"columns"`
	Rows       int      `json:"rows"`
	TrainRows  int      `json:"train_rows"`
	TestRows   int      `json:"test_rows"`
	SplitRatio float64  `json:"split_ratio"`
	Seed       uint64   `json:"seed"`
}

// NewMetadata creates metadata for a fetched dataset with the current timestamp
func NewMetadata(cfg config.IngestionConfig, ds *dataset.Dataset, hash string, trainRows, testRows int) *Metadata {
	return &Metadata{
		Source:     cfg.Source,
		Collection: cfg.Collection,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Hash:       hash,
		Columns:    ds.Columns,
		Rows:       ds.Len(),
		TrainRows:  trainRows,
		TestRows:   testRows,
		SplitRatio: cfg.SplitRatio,
		Seed:       cfg.Seed,
	}
}

// SnapshotHash is the blake3 hex digest of the CSV rendering of the dataset
func SnapshotHash(ds *dataset.Dataset) (string, error) {
	h := blake3.New()
	if err := dataset.Encode(h, ds); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Write stores the metadata as pretty-printed JSON
func (m *Metadata) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return store.WriteFileAtomic(path, data, 0644)
}

// ReadMetadata loads metadata written by Write
func ReadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &m, nil
}
