// Package training fits the classifier on the transformed training matrix, scores it on the
// transformed test matrix and writes the model bundle.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/features"
	"github.com/jonathan/autoclaim-ml/internal/model"
	"github.com/jonathan/autoclaim-ml/internal/observability"
	"github.com/jonathan/autoclaim-ml/internal/types"
)

// ModelFileName is the bundle written under the stage output directory
const ModelFileName = "model.json"

// ErrBelowBaseScore is the message of the ComputeError raised when training accuracy misses the floor
const ErrBelowBaseScore = "no model found with score above the base score"

// Stage is the model training stage
type Stage struct {
	cfg    config.TrainingConfig
	logger *slog.Logger
}

// New creates the training stage
func New(cfg config.TrainingConfig, logger *slog.Logger) *Stage {
	return &Stage{cfg: cfg, logger: observability.StageLogger(logger, types.StageTraining)}
}

// Run trains and scores the model
func (s *Stage) Run(ctx context.Context, id types.StageIdentity, tr types.TransformationArtifact) (types.TrainingArtifact, error) {
	start := time.Now()

	train, err := features.ReadBlob(tr.TrainBlobPath)
	if err != nil {
		return types.TrainingArtifact{}, upstreamErr("train_blob", err)
	}
	test, err := features.ReadBlob(tr.TestBlobPath)
	if err != nil {
		return types.TrainingArtifact{}, upstreamErr("test_blob", err)
	}
	pre, err := features.Load(tr.PreprocessorPath)
	if err != nil {
		return types.TrainingArtifact{}, upstreamErr("preprocessor", err)
	}

	s.logger.Info("fitting classifier",
		"rows", len(train.X),
		"features", len(train.Features),
		"epochs", s.cfg.Params.Epochs,
		"learning_rate", s.cfg.Params.LearningRate)
	clf, err := model.Fit(ctx, train.Features, train.X, train.Y, s.cfg.Params)
	if err != nil {
		return types.TrainingArtifact{}, computeErr("failed to fit classifier", err)
	}

	trainPred, err := clf.Predict(train.X)
	if err != nil {
		return types.TrainingArtifact{}, computeErr("failed to predict training data", err)
	}
	trainMetrics, err := model.Score(train.Y, trainPred)
	if err != nil {
		return types.TrainingArtifact{}, computeErr("failed to score training data", err)
	}
	if trainMetrics.Accuracy < s.cfg.ExpectedAccuracy {
		s.logger.Error("training accuracy below expected",
			"accuracy", trainMetrics.Accuracy,
			"expected", s.cfg.ExpectedAccuracy)
		return types.TrainingArtifact{}, &types.ComputeError{
			Stage:   types.StageTraining,
			Message: fmt.Sprintf("%s (accuracy %.4f < %.4f)", ErrBelowBaseScore, trainMetrics.Accuracy, s.cfg.ExpectedAccuracy),
		}
	}

	testPred, err := clf.Predict(test.X)
	if err != nil {
		return types.TrainingArtifact{}, computeErr("failed to predict test data", err)
	}
	metrics, err := model.Score(test.Y, testPred)
	if err != nil {
		return types.TrainingArtifact{}, computeErr("failed to score test data", err)
	}

	bundle, err := model.NewBundle(s.cfg.TargetColumn, pre, clf, metrics)
	if err != nil {
		return types.TrainingArtifact{}, computeErr("failed to bundle model", err)
	}
	modelPath := filepath.Join(s.cfg.Dir, id.Fingerprint, ModelFileName)
	if err := bundle.Save(modelPath); err != nil {
		return types.TrainingArtifact{}, computeErr("failed to save model", err)
	}

	s.logger.Info("training complete",
		"train_accuracy", trainMetrics.Accuracy,
		"accuracy", metrics.Accuracy,
		"f1", metrics.F1,
		"precision", metrics.Precision,
		"recall", metrics.Recall,
		"duration", time.Since(start))
	return types.TrainingArtifact{ModelPath: modelPath, Metrics: metrics.Classification()}, nil
}

func upstreamErr(input string, err error) error {
	return &types.UpstreamDataError{
		Stage:   types.StageTraining,
		Input:   input,
		Message: "failed to read transformation output",
		Cause:   err,
	}
}

func computeErr(msg string, err error) error {
	return &types.ComputeError{Stage: types.StageTraining, Message: msg, Cause: err}
}
