// Package pusher publishes an accepted model bundle to the model registry.
package pusher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/observability"
	"github.com/jonathan/autoclaim-ml/internal/registry"
	"github.com/jonathan/autoclaim-ml/internal/types"
)

// Stage is the model push stage
type Stage struct {
	cfg      config.PusherConfig
	registry registry.Registry
	logger   *slog.Logger
}

// New creates the push stage
func New(cfg config.PusherConfig, reg registry.Registry, logger *slog.Logger) *Stage {
	return &Stage{cfg: cfg, registry: reg, logger: observability.StageLogger(logger, types.StagePush)}
}

// Run uploads the evaluated model to the configured key. It refuses a rejected evaluation.
func (s *Stage) Run(ctx context.Context, id types.StageIdentity, eval types.EvaluationArtifact) (types.PushArtifact, error) {
	if !eval.Accepted {
		return types.PushArtifact{}, &types.PromotionRejected{
			ChallengerScore: eval.ChallengerScore,
			ChampionScore:   eval.ChampionScore,
		}
	}

	if eval.ModelPath == "" {
		return types.PushArtifact{}, &types.UpstreamDataError{Stage: types.StagePush, Input: "model", Message: "evaluation artifact has no model path"}
	}
	if _, err := os.Stat(eval.ModelPath); err != nil {
		msg := "failed to stat trained model"
		if errors.Is(err, os.ErrNotExist) {
			msg = fmt.Sprintf("trained model %s does not exist", eval.ModelPath)
		}
		return types.PushArtifact{}, &types.UpstreamDataError{Stage: types.StagePush, Input: "model", Message: msg, Cause: err}
	}

	key := s.cfg.ModelKey
	s.logger.Info("pushing model", "model_path", eval.ModelPath, "key", key)
	if err := s.registry.SaveModel(ctx, eval.ModelPath, key); err != nil {
		return types.PushArtifact{}, &types.StorageError{Op: "save_model", Key: key, Cause: err}
	}

	location := s.registry.Location(key)
	s.logger.Info("model pushed", "location", location)
	return types.PushArtifact{RegistryLocation: location, ModelKey: key}, nil
}
