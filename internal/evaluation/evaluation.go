package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/dataset"
	"github.com/jonathan/autoclaim-ml/internal/model"
	"github.com/jonathan/autoclaim-ml/internal/observability"
	"github.com/jonathan/autoclaim-ml/internal/registry"
	"github.com/jonathan/autoclaim-ml/internal/store"
	"github.com/jonathan/autoclaim-ml/internal/types"
)

// ReportFileName is the decision report written under the stage output directory
const ReportFileName = "evaluation.json"

// Report is the persisted decision, including the champion's full metrics when one was scored
type Report struct {
	ModelKey         string         `json:"model_key"`
	ChampionDigest   string         `json:"champion_digest,omitempty"`
	ChampionMetrics  *model.Metrics `json:"champion_metrics,omitempty"`
	ChallengerScore  float64        `json:"challenger_score"`
	Baseline         float64        `json:"baseline"`
	ScoreDelta       float64        `json:"score_delta"`
	IsModelAccepted  bool           `json:"is_model_accepted"`
	ChallengerModel  string         `json:"challenger_model"`
	HeldOutTestSplit string         `json:"held_out_test_split"`
}

// Stage is the champion/challenger evaluation stage
type Stage struct {
	cfg      config.EvaluationConfig
	registry registry.Registry
	logger   *slog.Logger
}

// New creates the evaluation stage
func New(cfg config.EvaluationConfig, reg registry.Registry, logger *slog.Logger) *Stage {
	return &Stage{cfg: cfg, registry: reg, logger: observability.StageLogger(logger, types.StageEvaluation)}
}

// ChampionDigest returns the registry digest of the current champion, or "" when none exists
func (s *Stage) ChampionDigest(ctx context.Context) (string, error) {
	digest, exists, err := s.registry.Digest(ctx, s.cfg.ModelKey)
	if err != nil {
		return "", &types.StorageError{Op: "digest", Key: s.cfg.ModelKey, Cause: err}
	}
	if !exists {
		return "", nil
	}
	return digest, nil
}

// Run compares the challenger's F1 with the champion's F1 on the ingestion test split
func (s *Stage) Run(ctx context.Context, id types.StageIdentity, ing types.IngestionArtifact, train types.TrainingArtifact) (types.EvaluationArtifact, error) {
	challenger := train.Metrics.F1
	s.logger.Info("challenger score", "f1", challenger)

	champion, digest, err := s.championMetrics(ctx, ing)
	if err != nil {
		return types.EvaluationArtifact{}, err
	}

	var championScore *float64
	if champion != nil {
		f1 := champion.F1
		championScore = &f1
		s.logger.Info("champion score", "f1", f1, "digest", digest)
	} else {
		s.logger.Info("no champion model in registry", "key", s.cfg.ModelKey)
	}

	decision := Decide(challenger, championScore)
	artifact := types.EvaluationArtifact{
		Accepted:        decision.Accepted,
		ChampionScore:   championScore,
		ChallengerScore: challenger,
		ScoreDelta:      decision.Delta,
		ModelPath:       train.ModelPath,
		ModelKey:        s.cfg.ModelKey,
	}

	report := Report{
		ModelKey:         s.cfg.ModelKey,
		ChampionDigest:   digest,
		ChampionMetrics:  champion,
		ChallengerScore:  challenger,
		Baseline:         decision.Baseline,
		ScoreDelta:       decision.Delta,
		IsModelAccepted:  decision.Accepted,
		ChallengerModel:  train.ModelPath,
		HeldOutTestSplit: ing.TestPath,
	}
	if err := writeReport(filepath.Join(s.cfg.Dir, id.Fingerprint, ReportFileName), report); err != nil {
		return types.EvaluationArtifact{}, &types.ComputeError{Stage: types.StageEvaluation, Message: "failed to write evaluation report", Cause: err}
	}

	s.logger.Info("evaluation complete", "accepted", decision.Accepted, "delta", decision.Delta)
	return artifact, nil
}

// championMetrics loads and scores the champion. It returns nil metrics when no champion exists.
func (s *Stage) championMetrics(ctx context.Context, ing types.IngestionArtifact) (*model.Metrics, string, error) {
	data, err := s.registry.LoadModel(ctx, s.cfg.ModelKey)
	if errors.Is(err, registry.ErrModelNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", &types.StorageError{Op: "load_model", Key: s.cfg.ModelKey, Cause: err}
	}
	digest, err := s.ChampionDigest(ctx)
	if err != nil {
		return nil, "", err
	}

	bundle, err := model.DecodeBundle(data)
	if err != nil {
		return nil, "", &types.ComputeError{Stage: types.StageEvaluation, Message: "failed to decode champion model", Cause: err}
	}
	test, err := dataset.ReadCSV(ing.TestPath)
	if err != nil {
		return nil, "", &types.UpstreamDataError{
			Stage:   types.StageEvaluation,
			Input:   "test",
			Message: "failed to read held-out test data",
			Cause:   err,
		}
	}
	metrics, err := bundle.Evaluate(ctx, test)
	if err != nil {
		return nil, "", &types.ComputeError{Stage: types.StageEvaluation, Message: "failed to score champion model", Cause: err}
	}
	return &metrics, digest, nil
}

func writeReport(path string, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return store.WriteFileAtomic(path, data, 0644)
}
