package steps

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"

	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/types"
)

// ChampionAbsent is the digest value used in the evaluation identity when no champion exists
const ChampionAbsent = "absent"

// Input is a resolved upstream stage: its identity and the artifact it resolved to.
// Downstream identities hash both, so recomputing an upstream stage into different content
// changes every identity below it.
type Input struct {
	Identity types.StageIdentity
	Artifact types.Artifact
}

// Canonicalize returns the canonical JSON that a stage identity is hashed from.
// Params are round-tripped through a generic value so that map keys sort and struct
// and map renderings of the same values hash alike. Upstream inputs are a set.
func Canonicalize(stage string, params any, upstream ...Input) ([]byte, error) {
	generic, err := normalize(params)
	if err != nil {
		return nil, fmt.Errorf("normalize %s params: %w", stage, err)
	}

	sorted := append([]Input(nil), upstream...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Identity.Key() < sorted[j].Identity.Key()
	})
	inputs := make([]map[string]string, 0, len(sorted))
	for _, in := range sorted {
		content, err := ArtifactDigest(in.Artifact)
		if err != nil {
			return nil, fmt.Errorf("digest %s input of %s: %w", in.Identity.Stage, stage, err)
		}
		inputs = append(inputs, map[string]string{
			"key":     in.Identity.Key(),
			"content": content,
		})
	}

	return json.Marshal(map[string]any{
		"stage":    stage,
		"params":   generic,
		"upstream": inputs,
	})
}

// ArtifactDigest is the blake3 hex digest of the canonical JSON of an artifact, or "" for nil.
// A cached artifact and the freshly computed one it was stored from digest alike.
func ArtifactDigest(artifact types.Artifact) (string, error) {
	if artifact == nil {
		return "", nil
	}
	generic, err := normalize(artifact)
	if err != nil {
		return "", err
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", err
	}
	return digest(canonical), nil
}

// Identity computes the stage identity for the given params and upstream inputs
func Identity(stage string, params any, upstream ...Input) (types.StageIdentity, error) {
	canonical, err := Canonicalize(stage, params, upstream...)
	if err != nil {
		return types.StageIdentity{}, err
	}
	return types.StageIdentity{Stage: stage, Fingerprint: digest(canonical)}, nil
}

func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

func digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IngestionIdentity depends on the data source descriptor, the collection and the split
func IngestionIdentity(cfg config.IngestionConfig) (types.StageIdentity, error) {
	return Identity(types.StageIngestion, map[string]any{
		"source":      cfg.Source,
		"collection":  cfg.Collection,
		"split_ratio": cfg.SplitRatio,
		"seed":        cfg.Seed,
	})
}

// ValidationIdentity depends on the column schema and the ingested data
func ValidationIdentity(cfg config.ValidationConfig, ingestion Input) (types.StageIdentity, error) {
	return Identity(types.StageValidation, map[string]any{
		"schema": cfg.Schema,
	}, ingestion)
}

// TransformationIdentity depends on the preprocessing schema, the target and both data stages
func TransformationIdentity(cfg config.TransformationConfig, ingestion, validation Input) (types.StageIdentity, error) {
	return Identity(types.StageTransformation, map[string]any{
		"schema": cfg.Schema,
		"target": cfg.TargetColumn,
	}, ingestion, validation)
}

// TrainingIdentity depends on the model parameters, the accuracy floor and the transformed data
func TrainingIdentity(cfg config.TrainingConfig, transformation Input) (types.StageIdentity, error) {
	return Identity(types.StageTraining, map[string]any{
		"model_params":      cfg.Params,
		"expected_accuracy": cfg.ExpectedAccuracy,
		"target":            cfg.TargetColumn,
	}, transformation)
}

// EvaluationIdentity depends on the champion's registry digest, so a new champion forces re-scoring
func EvaluationIdentity(cfg config.EvaluationConfig, championDigest string, ingestion, training Input) (types.StageIdentity, error) {
	if championDigest == "" {
		championDigest = ChampionAbsent
	}
	return Identity(types.StageEvaluation, map[string]any{
		"model_key":       cfg.ModelKey,
		"champion_digest": championDigest,
		"target":          cfg.TargetColumn,
	}, ingestion, training)
}

// PushIdentity depends on the destination key and the evaluation decision
func PushIdentity(cfg config.PusherConfig, evaluation Input) (types.StageIdentity, error) {
	return Identity(types.StagePush, map[string]any{
		"model_key": cfg.ModelKey,
	}, evaluation)
}
