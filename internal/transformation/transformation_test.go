package transformation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/features"
	"github.com/jonathan/autoclaim-ml/internal/types"
)

var testID = types.StageIdentity{Stage: types.StageTransformation, Fingerprint: "tf01"}

func setup(t *testing.T) (*Stage, types.IngestionArtifact, config.TransformationConfig) {
	t.Helper()
	src := t.TempDir()
	train := filepath.Join(src, "train.csv")
	test := filepath.Join(src, "test.csv")
	require.NoError(t, os.WriteFile(train, []byte(
		"id,Gender,Age,Vehicle_Damage,Response\n1,Male,20,Yes,1\n2,Female,40,No,0\n3,Male,30,Yes,1\n"), 0644))
	require.NoError(t, os.WriteFile(test, []byte(
		"id,Gender,Age,Vehicle_Damage,Response\n4,Female,25,No,0\n"), 0644))

	cfg := config.TransformationConfig{
		Dir: t.TempDir(),
		Schema: config.Schema{
			Columns:     []config.ColumnSpec{{Name: "id"}, {Name: "Gender"}, {Name: "Age"}, {Name: "Vehicle_Damage"}, {Name: "Response"}},
			DropColumns: []string{"id"},
			NumFeatures: []string{"Age"},
			BinaryMaps:  map[string]map[string]float64{"Gender": {"Female": 0, "Male": 1}},
		},
		TargetColumn: "Response",
	}
	return New(cfg, nil), types.IngestionArtifact{TrainPath: train, TestPath: test}, cfg
}

func TestStage_Run(t *testing.T) {
	stage, ing, cfg := setup(t)

	artifact, err := stage.Run(context.Background(), testID, ing, types.ValidationArtifact{Status: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Dir, "tf01", PreprocessorFileName), artifact.PreprocessorPath)

	train, err := features.ReadBlob(artifact.TrainBlobPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"Age", "Gender", "Vehicle_Damage_Yes"}, train.Features)
	assert.Equal(t, []float64{1, 0, 1}, train.Y)

	test, err := features.ReadBlob(artifact.TestBlobPath)
	require.NoError(t, err)
	require.Len(t, test.X, 1)
	assert.Equal(t, []float64{0, 0}, test.X[0][1:])

	pre, err := features.Load(artifact.PreprocessorPath)
	require.NoError(t, err)
	assert.Equal(t, train.Features, pre.Features)
}

func TestStage_RunRefusesFailedValidation(t *testing.T) {
	stage, ing, _ := setup(t)

	_, err := stage.Run(context.Background(), testID, ing, types.ValidationArtifact{Status: false, Message: "Missing required columns in training data: Age."})
	var failure *types.ValidationFailure
	require.True(t, errors.As(err, &failure))
	assert.Contains(t, failure.Message, "Age")
}

func TestStage_RunMissingTarget(t *testing.T) {
	stage, ing, _ := setup(t)
	stage.cfg.TargetColumn = "Claimed"

	_, err := stage.Run(context.Background(), testID, ing, types.ValidationArtifact{Status: true})
	var computeErr *types.ComputeError
	require.True(t, errors.As(err, &computeErr))
	assert.Equal(t, types.StageTransformation, computeErr.Stage)
}

func TestStage_RunMissingInput(t *testing.T) {
	stage, ing, _ := setup(t)
	ing.TestPath = filepath.Join(t.TempDir(), "gone.csv")

	_, err := stage.Run(context.Background(), testID, ing, types.ValidationArtifact{Status: true})
	var upstream *types.UpstreamDataError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, "test", upstream.Input)
}
