package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifacts_StageNames(t *testing.T) {
	cases := map[string]Artifact{
		StageIngestion:      IngestionArtifact{},
		StageValidation:     ValidationArtifact{},
		StageTransformation: TransformationArtifact{},
		StageTraining:       TrainingArtifact{},
		StageEvaluation:     EvaluationArtifact{},
		StagePush:           PushArtifact{},
	}
	for want, artifact := range cases {
		assert.Equal(t, want, artifact.StageName())
	}
}

func TestEvaluationArtifact_AbsentChampionIsNull(t *testing.T) {
	artifact := EvaluationArtifact{
		Accepted:        true,
		ChallengerScore: 0.7,
		ScoreDelta:      0.7,
	}

	data, err := json.Marshal(artifact)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"champion_score":null`)

	var decoded EvaluationArtifact
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Nil(t, decoded.ChampionScore)
	assert.True(t, decoded.Accepted)
}

func TestEvaluationArtifact_ChampionScoreRoundTrip(t *testing.T) {
	input := `{"accepted":false,"champion_score":0.65,"challenger_score":0.65,"score_delta":0}`

	var decoded EvaluationArtifact
	require.NoError(t, json.Unmarshal([]byte(input), &decoded))
	require.NotNil(t, decoded.ChampionScore)
	assert.InDelta(t, 0.65, *decoded.ChampionScore, 1e-12)
	assert.False(t, decoded.Accepted)
}

func TestStageIdentity_Key(t *testing.T) {
	id := StageIdentity{Stage: StageTraining, Fingerprint: "abcdef0123456789"}
	assert.Equal(t, "training/abcdef0123456789", id.Key())
	assert.Equal(t, "training@abcdef012345", id.Short())
	assert.False(t, id.IsZero())
	assert.True(t, StageIdentity{}.IsZero())

	parsed, err := ParseStageIdentity(id.Key())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseStageIdentity_Invalid(t *testing.T) {
	for _, key := range []string{"", "training", "/abc", "training/"} {
		_, err := ParseStageIdentity(key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestPipelineRun_Entries(t *testing.T) {
	run := NewPipelineRun(StageAll, false)
	assert.Equal(t, RunStatusRunning, run.Status)

	run.Append(RunEntry{Identity: StageIdentity{Stage: StageIngestion, Fingerprint: "a"}, Source: SourceCache})
	run.Append(RunEntry{Identity: StageIdentity{Stage: StageValidation, Fingerprint: "b"}, Source: SourceComputed})
	run.Append(RunEntry{Identity: StageIdentity{Stage: StageIngestion, Fingerprint: "a"}, Source: SourceReused})

	entry, ok := run.Entry(StageValidation)
	require.True(t, ok)
	assert.Equal(t, SourceComputed, entry.Source)
	assert.Equal(t, 1, run.CountSource(SourceCache))
	assert.Equal(t, 1, run.CountSource(SourceReused))

	run.Finish(RunStatusFailed, fmt.Errorf("boom"))
	assert.Equal(t, "boom", run.Error)
	require.NotNil(t, run.CompletedAt)
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("disk full")

	storageErr := &StorageError{Op: "save", Key: "training/abc", Cause: cause}
	assert.ErrorIs(t, storageErr, cause)
	assert.Contains(t, storageErr.Error(), "save training/abc")

	computeErr := &ComputeError{Stage: StageTraining, Message: "fit failed", Cause: cause}
	assert.ErrorIs(t, computeErr, cause)

	upstreamErr := &UpstreamDataError{Stage: StageValidation, Input: "train.csv", Message: "unreadable", Cause: cause}
	assert.ErrorIs(t, upstreamErr, cause)
	assert.Contains(t, upstreamErr.Error(), "train.csv")
}

func TestPromotionRejected_Message(t *testing.T) {
	champion := 0.8
	err := &PromotionRejected{ChallengerScore: 0.7, ChampionScore: &champion}
	assert.Contains(t, err.Error(), "does not beat champion score 0.8000")

	err = &PromotionRejected{ChallengerScore: 0}
	assert.Contains(t, err.Error(), "was not accepted")
}
