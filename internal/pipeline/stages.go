package pipeline

import (
	"context"
	"fmt"

	"github.com/jonathan/autoclaim-ml/internal/types"
)

// IngestionStage produces the train/test split
type IngestionStage interface {
	Run(ctx context.Context, id types.StageIdentity) (types.IngestionArtifact, error)
}

// ValidationStage checks the split against the schema
type ValidationStage interface {
	Run(ctx context.Context, id types.StageIdentity, ing types.IngestionArtifact) (types.ValidationArtifact, error)
}

// TransformationStage fits and applies the preprocessor
type TransformationStage interface {
	Run(ctx context.Context, id types.StageIdentity, ing types.IngestionArtifact, val types.ValidationArtifact) (types.TransformationArtifact, error)
}

// TrainingStage fits and scores the challenger
type TrainingStage interface {
	Run(ctx context.Context, id types.StageIdentity, tr types.TransformationArtifact) (types.TrainingArtifact, error)
}

// EvaluationStage compares the challenger with the champion. ChampionDigest feeds the identity.
type EvaluationStage interface {
	ChampionDigest(ctx context.Context) (string, error)
	Run(ctx context.Context, id types.StageIdentity, ing types.IngestionArtifact, train types.TrainingArtifact) (types.EvaluationArtifact, error)
}

// PushStage publishes an accepted model
type PushStage interface {
	Run(ctx context.Context, id types.StageIdentity, eval types.EvaluationArtifact) (types.PushArtifact, error)
}

// Stages are the stage implementations injected into the Runner
type Stages struct {
	Ingestion      IngestionStage
	Validation     ValidationStage
	Transformation TransformationStage
	Training       TrainingStage
	Evaluation     EvaluationStage
	Push           PushStage
}

func (s Stages) validate() error {
	var missing []string
	if s.Ingestion == nil {
		missing = append(missing, types.StageIngestion)
	}
	if s.Validation == nil {
		missing = append(missing, types.StageValidation)
	}
	if s.Transformation == nil {
		missing = append(missing, types.StageTransformation)
	}
	if s.Training == nil {
		missing = append(missing, types.StageTraining)
	}
	if s.Evaluation == nil {
		missing = append(missing, types.StageEvaluation)
	}
	if s.Push == nil {
		missing = append(missing, types.StagePush)
	}
	if len(missing) > 0 {
		return fmt.Errorf("pipeline: missing stage implementations: %v", missing)
	}
	return nil
}
