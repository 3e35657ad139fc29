// Package ingestion fetches the raw collection from the data source, snapshots it into the
// feature store and splits it into train and test sets.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/dataset"
	"github.com/jonathan/autoclaim-ml/internal/datasource"
	"github.com/jonathan/autoclaim-ml/internal/observability"
	"github.com/jonathan/autoclaim-ml/internal/types"
)

// Output file names
const (
	FeatureStoreDir = "feature_store"
	IngestedDir     = "ingested"
	DataFileName    = "data.csv"
	TrainFileName   = "train.csv"
	TestFileName    = "test.csv"
)

// generationLen is the number of snapshot hash characters naming the output directory
const generationLen = 16

// Stage is the data ingestion stage
type Stage struct {
	cfg    config.IngestionConfig
	source datasource.DataSource
	logger *slog.Logger
}

// New creates the ingestion stage
func New(cfg config.IngestionConfig, source datasource.DataSource, logger *slog.Logger) *Stage {
	return &Stage{cfg: cfg, source: source, logger: observability.StageLogger(logger, types.StageIngestion)}
}

// Run fetches the collection and writes the snapshot and split under
// <dir>/<fingerprint>/<snapshot hash prefix>
func (s *Stage) Run(ctx context.Context, id types.StageIdentity) (types.IngestionArtifact, error) {
	start := time.Now()
	s.logger.Info("fetching records", "collection", s.cfg.Collection)

	ds, err := s.source.FetchRecords(ctx, s.cfg.Collection)
	if err != nil {
		return types.IngestionArtifact{}, &types.ComputeError{
			Stage:   types.StageIngestion,
			Message: fmt.Sprintf("failed to fetch collection %s", s.cfg.Collection),
			Cause:   err,
		}
	}

	hash, err := SnapshotHash(ds)
	if err != nil {
		return types.IngestionArtifact{}, &types.ComputeError{Stage: types.StageIngestion, Message: "failed to hash snapshot", Cause: err}
	}

	// one directory per snapshot content, so a re-fetch that returns new data leaves the
	// files of earlier cached artifacts in place
	root := filepath.Join(s.cfg.Dir, id.Fingerprint, hash[:generationLen])
	featureStorePath := filepath.Join(root, FeatureStoreDir, DataFileName)
	if err := dataset.WriteCSV(featureStorePath, ds); err != nil {
		return types.IngestionArtifact{}, &types.ComputeError{Stage: types.StageIngestion, Message: "failed to write feature store", Cause: err}
	}

	train, test, err := ds.Split(s.cfg.SplitRatio, s.cfg.Seed)
	if err != nil {
		return types.IngestionArtifact{}, &types.ComputeError{Stage: types.StageIngestion, Message: "failed to split dataset", Cause: err}
	}

	artifact := types.IngestionArtifact{
		FeatureStorePath: featureStorePath,
		TrainPath:        filepath.Join(root, IngestedDir, TrainFileName),
		TestPath:         filepath.Join(root, IngestedDir, TestFileName),
		RowCount:         ds.Len(),
		DataHash:         hash,
	}
	if err := dataset.WriteCSV(artifact.TrainPath, train); err != nil {
		return types.IngestionArtifact{}, &types.ComputeError{Stage: types.StageIngestion, Message: "failed to write train split", Cause: err}
	}
	if err := dataset.WriteCSV(artifact.TestPath, test); err != nil {
		return types.IngestionArtifact{}, &types.ComputeError{Stage: types.StageIngestion, Message: "failed to write test split", Cause: err}
	}

	meta := NewMetadata(s.cfg, ds, hash, train.Len(), test.Len())
	if err := meta.Write(filepath.Join(root, MetadataFileName)); err != nil {
		return types.IngestionArtifact{}, &types.ComputeError{Stage: types.StageIngestion, Message: "failed to write metadata", Cause: err}
	}

	s.logger.Info("ingestion complete",
		"rows", ds.Len(),
		"train_rows", train.Len(),
		"test_rows", test.Len(),
		"duration", time.Since(start))
	return artifact, nil
}
