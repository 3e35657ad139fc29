// Package transformation fits the preprocessor on the training split and writes transformed
// train and test matrices.
package transformation

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/dataset"
	"github.com/jonathan/autoclaim-ml/internal/features"
	"github.com/jonathan/autoclaim-ml/internal/observability"
	"github.com/jonathan/autoclaim-ml/internal/types"
)

// Output file names
const (
	TrainBlobFileName    = "train.json"
	TestBlobFileName     = "test.json"
	PreprocessorFileName = "preprocessor.json"
)

// Stage is the data transformation stage
type Stage struct {
	cfg    config.TransformationConfig
	logger *slog.Logger
}

// New creates the transformation stage
func New(cfg config.TransformationConfig, logger *slog.Logger) *Stage {
	return &Stage{cfg: cfg, logger: observability.StageLogger(logger, types.StageTransformation)}
}

// Run transforms the ingested splits. It refuses to run on data that failed validation.
func (s *Stage) Run(ctx context.Context, id types.StageIdentity, ing types.IngestionArtifact, val types.ValidationArtifact) (types.TransformationArtifact, error) {
	if !val.Status {
		return types.TransformationArtifact{}, &types.ValidationFailure{Message: val.Message, ReportPath: val.ReportPath}
	}

	train, err := readInput(ing.TrainPath, "train")
	if err != nil {
		return types.TransformationArtifact{}, err
	}
	test, err := readInput(ing.TestPath, "test")
	if err != nil {
		return types.TransformationArtifact{}, err
	}
	if err := ctx.Err(); err != nil {
		return types.TransformationArtifact{}, err
	}

	trainInputs, trainY, err := features.SplitTarget(train, s.cfg.TargetColumn)
	if err != nil {
		return types.TransformationArtifact{}, computeErr("failed to separate target from training data", err)
	}
	testInputs, testY, err := features.SplitTarget(test, s.cfg.TargetColumn)
	if err != nil {
		return types.TransformationArtifact{}, computeErr("failed to separate target from test data", err)
	}

	pre, err := features.Fit(s.cfg.Schema, trainInputs)
	if err != nil {
		return types.TransformationArtifact{}, computeErr("failed to fit preprocessor", err)
	}
	trainX, err := pre.Transform(trainInputs)
	if err != nil {
		return types.TransformationArtifact{}, computeErr("failed to transform training data", err)
	}
	testX, err := pre.Transform(testInputs)
	if err != nil {
		return types.TransformationArtifact{}, computeErr("failed to transform test data", err)
	}

	root := filepath.Join(s.cfg.Dir, id.Fingerprint)
	artifact := types.TransformationArtifact{
		TrainBlobPath:    filepath.Join(root, TrainBlobFileName),
		TestBlobPath:     filepath.Join(root, TestBlobFileName),
		PreprocessorPath: filepath.Join(root, PreprocessorFileName),
	}
	if err := features.WriteBlob(artifact.TrainBlobPath, &features.Blob{Features: pre.Features, X: trainX, Y: trainY}); err != nil {
		return types.TransformationArtifact{}, computeErr("failed to write training matrix", err)
	}
	if err := features.WriteBlob(artifact.TestBlobPath, &features.Blob{Features: pre.Features, X: testX, Y: testY}); err != nil {
		return types.TransformationArtifact{}, computeErr("failed to write test matrix", err)
	}
	if err := pre.Save(artifact.PreprocessorPath); err != nil {
		return types.TransformationArtifact{}, computeErr("failed to save preprocessor", err)
	}

	s.logger.Info("transformation complete",
		"features", len(pre.Features),
		"train_rows", len(trainX),
		"test_rows", len(testX))
	return artifact, nil
}

func readInput(path, input string) (*dataset.Dataset, error) {
	ds, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, &types.UpstreamDataError{
			Stage:   types.StageTransformation,
			Input:   input,
			Message: "failed to read ingested data",
			Cause:   err,
		}
	}
	return ds, nil
}

func computeErr(msg string, err error) error {
	return &types.ComputeError{Stage: types.StageTransformation, Message: msg, Cause: err}
}
