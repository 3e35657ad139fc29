package config

import (
	"fmt"
	"path/filepath"
)

// IngestionConfig configures the data ingestion stage
type IngestionConfig struct {
	Dir        string
	Source     string // descriptor of the data source, part of the stage identity
	Collection string
	SplitRatio float64
	Seed       uint64
}

// ValidationConfig configures the data validation stage
type ValidationConfig struct {
	Dir    string
	Schema Schema
}

// TransformationConfig configures the data transformation stage
type TransformationConfig struct {
	Dir          string
	Schema       Schema
	TargetColumn string
}

// TrainingConfig configures the model training stage
type TrainingConfig struct {
	Dir              string
	Params           ModelParams
	ExpectedAccuracy float64
	TargetColumn     string
}

// EvaluationConfig configures the champion/challenger evaluation stage
type EvaluationConfig struct {
	Dir          string
	ModelKey     string
	TargetColumn string
}

// PusherConfig configures the model push stage
type PusherConfig struct {
	ModelKey string
}

// StageConfigs holds one typed configuration per stage. It is built once by Build and never mutated.
type StageConfigs struct {
	ArtifactDir    string
	Ingestion      IngestionConfig
	Validation     ValidationConfig
	Transformation TransformationConfig
	Training       TrainingConfig
	Evaluation     EvaluationConfig
	Pusher         PusherConfig
}

// RunsDir is where per-invocation run records are written
func (s StageConfigs) RunsDir() string {
	return filepath.Join(s.ArtifactDir, "runs")
}

// Build loads the schema and model parameters referenced by cfg and assembles the stage configs.
// cfg must already be merged with defaults and validated.
func Build(cfg Config) (StageConfigs, error) {
	schema, err := LoadSchema(cfg.SchemaPath)
	if err != nil {
		return StageConfigs{}, err
	}
	params, err := LoadModelParams(cfg.ModelConfigPath)
	if err != nil {
		return StageConfigs{}, err
	}
	return Assemble(cfg, schema, params), nil
}

// Assemble builds stage configs from already-loaded parts
func Assemble(cfg Config, schema Schema, params ModelParams) StageConfigs {
	dir := cfg.ArtifactDir
	return StageConfigs{
		ArtifactDir: dir,
		Ingestion: IngestionConfig{
			Dir:        filepath.Join(dir, "ingestion"),
			Source:     SourceDescriptor(cfg),
			Collection: cfg.Collection,
			SplitRatio: cfg.SplitRatio,
			Seed:       cfg.Seed,
		},
		Validation: ValidationConfig{
			Dir:    filepath.Join(dir, "validation"),
			Schema: schema,
		},
		Transformation: TransformationConfig{
			Dir:          filepath.Join(dir, "transformation"),
			Schema:       schema,
			TargetColumn: cfg.TargetColumn,
		},
		Training: TrainingConfig{
			Dir:              filepath.Join(dir, "training"),
			Params:           params,
			ExpectedAccuracy: cfg.ExpectedAccuracy,
			TargetColumn:     cfg.TargetColumn,
		},
		Evaluation: EvaluationConfig{
			Dir:          filepath.Join(dir, "evaluation"),
			ModelKey:     cfg.ModelKey,
			TargetColumn: cfg.TargetColumn,
		},
		Pusher: PusherConfig{
			ModelKey: cfg.ModelKey,
		},
	}
}

// SourceDescriptor names the configured data source without its credentials
func SourceDescriptor(cfg Config) string {
	switch cfg.Source {
	case "mongo":
		return fmt.Sprintf("mongo:%s", cfg.MongoDatabase)
	default:
		abs, err := filepath.Abs(cfg.SourceDir)
		if err != nil {
			abs = cfg.SourceDir
		}
		return fmt.Sprintf("csv:%s", abs)
	}
}
