package pusher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/registry"
	"github.com/jonathan/autoclaim-ml/internal/types"
)

const modelKey = "model-registry/model.json"

var testID = types.StageIdentity{Stage: types.StagePush, Fingerprint: "pu01"}

func modelFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1}`), 0644))
	return path
}

func TestStage_Run(t *testing.T) {
	dir := t.TempDir()
	reg := registry.NewLocal(dir)
	stage := New(config.PusherConfig{ModelKey: modelKey}, reg, nil)

	artifact, err := stage.Run(context.Background(), testID, types.EvaluationArtifact{Accepted: true, ChallengerScore: 0.71, ModelPath: modelFile(t)})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "model-registry", "model.json"), artifact.RegistryLocation)
	assert.Equal(t, modelKey, artifact.ModelKey)

	exists, err := reg.ModelExists(context.Background(), modelKey)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStage_RunRefusesRejected(t *testing.T) {
	reg := registry.NewLocal(t.TempDir())
	stage := New(config.PusherConfig{ModelKey: modelKey}, reg, nil)
	champion := 0.65

	_, err := stage.Run(context.Background(), testID, types.EvaluationArtifact{
		Accepted: false, ChallengerScore: 0.65, ChampionScore: &champion, ModelPath: modelFile(t),
	})
	var rejected *types.PromotionRejected
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, 0.65, rejected.ChallengerScore)

	exists, err := reg.ModelExists(context.Background(), modelKey)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStage_RunMissingModel(t *testing.T) {
	stage := New(config.PusherConfig{ModelKey: modelKey}, registry.NewLocal(t.TempDir()), nil)

	for name, path := range map[string]string{
		"empty":   "",
		"missing": filepath.Join(t.TempDir(), "gone.json"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := stage.Run(context.Background(), testID, types.EvaluationArtifact{Accepted: true, ModelPath: path})
			var upstream *types.UpstreamDataError
			require.True(t, errors.As(err, &upstream))
			assert.Equal(t, "model", upstream.Input)
		})
	}
}

type failingRegistry struct {
	registry.Registry
}

func (failingRegistry) SaveModel(ctx context.Context, localPath, key string) error {
	return errors.New("permission denied")
}

func TestStage_RunRegistryFailure(t *testing.T) {
	stage := New(config.PusherConfig{ModelKey: modelKey}, failingRegistry{}, nil)

	_, err := stage.Run(context.Background(), testID, types.EvaluationArtifact{Accepted: true, ModelPath: modelFile(t)})
	var storageErr *types.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "save_model", storageErr.Op)
}
