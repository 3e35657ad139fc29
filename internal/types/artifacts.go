// Package types provides type definitions for the artifacts, identities and run records shared by
// every stage of the training pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Stage names as accepted by the command surface and used as artifact directory names
const (
	StageIngestion      = "ingestion"
	StageValidation     = "validation"
	StageTransformation = "transformation"
	StageTraining       = "training"
	StageEvaluation     = "evaluation"
	StagePush           = "push"

	// StageAll selects the full chain
	StageAll = "all"
)

// Artifact is the immutable output of exactly one stage
type Artifact interface {
	// StageName returns the name of the stage that produced the artifact
	StageName() string
}

// IngestionArtifact points at the train/test split produced from the data source.
// DataHash is the blake3 digest of the fetched snapshot; the files live in a directory
// named after it, so a snapshot with different content never overwrites them.
type IngestionArtifact struct {
	FeatureStorePath string `json:"feature_store_path"`
	TrainPath        string `json:"train_path"`
	TestPath         string `json:"test_path"`
	RowCount         int    `json:"row_count"`
	DataHash         string `json:"data_hash"`
}

// StageName implements Artifact
func (IngestionArtifact) StageName() string { return StageIngestion }

// ValidationArtifact records whether the ingested data matches the column schema
type ValidationArtifact struct {
	Status     bool   `json:"status"`
	Message    string `json:"message"`
	ReportPath string `json:"report_path"`
}

// StageName implements Artifact
func (ValidationArtifact) StageName() string { return StageValidation }

// TransformationArtifact points at the transformed matrices and the fitted preprocessor
type TransformationArtifact struct {
	TrainBlobPath    string `json:"train_blob_path"`
	TestBlobPath     string `json:"test_blob_path"`
	PreprocessorPath string `json:"preprocessor_path"`
}

// StageName implements Artifact
func (TransformationArtifact) StageName() string { return StageTransformation }

// ClassificationMetrics holds the offline quality metrics of a trained model
type ClassificationMetrics struct {
	F1        float64 `json:"f1"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// TrainingArtifact points at the trained model bundle and carries its held-out metrics
type TrainingArtifact struct {
	ModelPath string                `json:"model_path"`
	Metrics   ClassificationMetrics `json:"metrics"`
}

// StageName implements Artifact
func (TrainingArtifact) StageName() string { return StageTraining }

// EvaluationArtifact is the champion/challenger promotion decision
type EvaluationArtifact struct {
	Accepted        bool     `json:"accepted"`
	ChampionScore   *float64 `json:"champion_score"` // nil when no champion exists
	ChallengerScore float64  `json:"challenger_score"`
	ScoreDelta      float64  `json:"score_delta"`
	ModelPath       string   `json:"model_path"`
	ModelKey        string   `json:"model_key"`
}

// StageName implements Artifact
func (EvaluationArtifact) StageName() string { return StageEvaluation }

// PushArtifact records where the accepted model was published
type PushArtifact struct {
	RegistryLocation string `json:"registry_location"`
	ModelKey         string `json:"model_key"`
}

// StageName implements Artifact
func (PushArtifact) StageName() string { return StagePush }
