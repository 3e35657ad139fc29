package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/autoclaim-ml/internal/store"
	"github.com/jonathan/autoclaim-ml/internal/types"
)

var trainingID = types.StageIdentity{Stage: types.StageTraining, Fingerprint: "0f1e2d3c4b5a"}

func trainingArtifact(f1 float64) types.TrainingArtifact {
	return types.TrainingArtifact{
		ModelPath: "artifacts/training/model.json",
		Metrics:   types.ClassificationMetrics{F1: f1, Precision: 0.6, Recall: 0.8},
	}
}

type counter struct {
	calls atomic.Int32
	f1    float64
	err   error
}

func (c *counter) compute(ctx context.Context) (types.TrainingArtifact, error) {
	c.calls.Add(1)
	if c.err != nil {
		return types.TrainingArtifact{}, c.err
	}
	return trainingArtifact(c.f1), nil
}

func TestGetOrCompute_MissThenHit(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	c := New(mem, nil)
	comp := &counter{f1: 0.71}

	artifact, source, err := GetOrCompute(ctx, c.NewSession(), trainingID, false, comp.compute)
	require.NoError(t, err)
	assert.Equal(t, types.SourceComputed, source)
	assert.InDelta(t, 0.71, artifact.Metrics.F1, 1e-12)
	assert.Equal(t, 1, mem.SaveCalls)

	// a new invocation reads it back from the store
	artifact, source, err = GetOrCompute(ctx, c.NewSession(), trainingID, false, comp.compute)
	require.NoError(t, err)
	assert.Equal(t, types.SourceCache, source)
	assert.Equal(t, trainingArtifact(0.71), artifact)
	assert.Equal(t, int32(1), comp.calls.Load())
}

func TestGetOrCompute_SessionReuse(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	c := New(mem, nil)
	comp := &counter{f1: 0.7}
	session := c.NewSession()

	_, source, err := GetOrCompute(ctx, session, trainingID, true, comp.compute)
	require.NoError(t, err)
	assert.Equal(t, types.SourceComputed, source)

	// forced again within the same session: still computed once
	_, source, err = GetOrCompute(ctx, session, trainingID, true, comp.compute)
	require.NoError(t, err)
	assert.Equal(t, types.SourceReused, source)
	assert.Equal(t, int32(1), comp.calls.Load())
	assert.Equal(t, 1, mem.LoadCalls+mem.SaveCalls)
}

func TestGetOrCompute_ForceOverwrites(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	c := New(mem, nil)

	_, _, err := GetOrCompute(ctx, c.NewSession(), trainingID, false, (&counter{f1: 0.6}).compute)
	require.NoError(t, err)

	forced := &counter{f1: 0.9}
	artifact, source, err := GetOrCompute(ctx, c.NewSession(), trainingID, true, forced.compute)
	require.NoError(t, err)
	assert.Equal(t, types.SourceComputed, source)
	assert.InDelta(t, 0.9, artifact.Metrics.F1, 1e-12)
	assert.Equal(t, int32(1), forced.calls.Load())

	artifact, source, err = GetOrCompute(ctx, c.NewSession(), trainingID, false, forced.compute)
	require.NoError(t, err)
	assert.Equal(t, types.SourceCache, source)
	assert.InDelta(t, 0.9, artifact.Metrics.F1, 1e-12)
}

func TestGetOrCompute_CorruptEntryRecomputed(t *testing.T) {
	ctx := context.Background()
	tests := map[string][]byte{
		"not json":        []byte("{truncated"),
		"missing fields":  []byte(`{"stage":"training"}`),
		"wrong identity":  mustEncode(t, types.StageIdentity{Stage: types.StageTraining, Fingerprint: "other"}, trainingArtifact(0.5)),
		"invalid payload": []byte(`{"stage":"training","fingerprint":"0f1e2d3c4b5a","version":1,"artifact":{"model_path":""}}`),
		"old version":     []byte(`{"stage":"training","fingerprint":"0f1e2d3c4b5a","version":99,"artifact":{}}`),
	}

	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			mem := store.NewMemoryStore()
			require.NoError(t, mem.Save(ctx, trainingID.Key(), payload))
			c := New(mem, nil)
			comp := &counter{f1: 0.75}

			artifact, source, err := GetOrCompute(ctx, c.NewSession(), trainingID, false, comp.compute)
			require.NoError(t, err)
			assert.Equal(t, types.SourceComputed, source)
			assert.InDelta(t, 0.75, artifact.Metrics.F1, 1e-12)

			// entry was overwritten with a valid envelope
			data, found, err := mem.Load(ctx, trainingID.Key())
			require.NoError(t, err)
			require.True(t, found)
			decoded, err := Decode[types.TrainingArtifact](trainingID, data)
			require.NoError(t, err)
			assert.Equal(t, artifact, decoded)
		})
	}
}

func TestGetOrCompute_ComputeErrorNotCached(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	c := New(mem, nil)
	session := c.NewSession()

	boom := errors.New("fit failed")
	_, _, err := GetOrCompute(ctx, session, trainingID, false, (&counter{err: boom}).compute)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, mem.Keys())

	// the failure is not memoized either
	_, source, err := GetOrCompute(ctx, session, trainingID, false, (&counter{f1: 0.7}).compute)
	require.NoError(t, err)
	assert.Equal(t, types.SourceComputed, source)
}

func TestGetOrCompute_SaveFailureIsStorageError(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	mem.SaveErr = errors.New("read-only filesystem")
	c := New(mem, nil)

	_, _, err := GetOrCompute(ctx, c.NewSession(), trainingID, false, (&counter{f1: 0.7}).compute)
	require.Error(t, err)
	var storageErr *types.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "save", storageErr.Op)
	assert.Equal(t, trainingID.Key(), storageErr.Key)
	assert.ErrorIs(t, err, mem.SaveErr)
}

type failingStore struct {
	store.Store
	existsErr error
	loadErr   error
}

func (f *failingStore) Exists(ctx context.Context, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.Store.Exists(ctx, key)
}

func (f *failingStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if f.loadErr != nil {
		return nil, false, f.loadErr
	}
	return f.Store.Load(ctx, key)
}

func TestGetOrCompute_ReadFailuresFallBackToCompute(t *testing.T) {
	ctx := context.Background()
	for name, fs := range map[string]*failingStore{
		"exists": {Store: store.NewMemoryStore(), existsErr: errors.New("timeout")},
		"load":   {Store: store.NewMemoryStore(), loadErr: errors.New("timeout")},
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, fs.Store.Save(ctx, trainingID.Key(), mustEncode(t, trainingID, trainingArtifact(0.5))))
			c := New(fs, nil)
			comp := &counter{f1: 0.8}

			artifact, source, err := GetOrCompute(ctx, c.NewSession(), trainingID, false, comp.compute)
			require.NoError(t, err)
			assert.Equal(t, types.SourceComputed, source)
			assert.InDelta(t, 0.8, artifact.Metrics.F1, 1e-12)
		})
	}
}

func TestGetOrCompute_ConcurrentCallersComputeOnce(t *testing.T) {
	ctx := context.Background()
	c := New(store.NewMemoryStore(), nil)

	release := make(chan struct{})
	var calls atomic.Int32
	compute := func(ctx context.Context) (types.TrainingArtifact, error) {
		calls.Add(1)
		<-release
		return trainingArtifact(0.7), nil
	}

	var wg sync.WaitGroup
	results := make([]types.TrainingArtifact, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			artifact, _, err := GetOrCompute(ctx, c.NewSession(), trainingID, false, compute)
			assert.NoError(t, err)
			results[i] = artifact
		}(i)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, trainingArtifact(0.7), r)
	}
}

func TestEncode_RejectsMismatchedStage(t *testing.T) {
	_, err := Encode(types.StageIdentity{Stage: types.StagePush, Fingerprint: "x"}, trainingArtifact(0.7))
	assert.Error(t, err)
}

func TestDecode_NullChampionScore(t *testing.T) {
	id := types.StageIdentity{Stage: types.StageEvaluation, Fingerprint: "e"}
	artifact := types.EvaluationArtifact{Accepted: true, ChallengerScore: 0.7, ScoreDelta: 0.7, ModelKey: "model.json"}

	decoded, err := Decode[types.EvaluationArtifact](id, mustEncode(t, id, artifact))
	require.NoError(t, err)
	assert.Nil(t, decoded.ChampionScore)
	assert.Equal(t, artifact, decoded)
}

func mustEncode(t *testing.T, id types.StageIdentity, artifact types.Artifact) []byte {
	t.Helper()
	data, err := Encode(id, artifact)
	require.NoError(t, err)
	return data
}
