package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/autoclaim-ml/internal/dataset"
	"github.com/jonathan/autoclaim-ml/internal/prediction"
	"github.com/jonathan/autoclaim-ml/internal/registry"
)

const predictRecords = `id,Gender,Age,Vehicle_Age
1001,Male,21,< 1 Year
1002,Female,64,> 2 Years
1003,Male,58,1-2 Year
`

func writeRecords(t *testing.T, ws workspace) string {
	t.Helper()
	path := filepath.Join(ws.root, "new-customers.csv")
	require.NoError(t, os.WriteFile(path, []byte(predictRecords), 0644))
	return path
}

func TestPredictCommand_WritesOutput(t *testing.T) {
	ws := newWorkspace(t, testSchema)
	_, err := ws.execute(t, "run", "--stage", "all", "--force=false")
	require.NoError(t, err)

	output := filepath.Join(ws.root, "out", "predictions.csv")
	out, err := ws.execute(t, "predict", "--input", writeRecords(t, ws), "--output", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Classified 3 records")

	classified, err := dataset.ReadCSV(output)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "Gender", "Age", "Vehicle_Age", prediction.Column}, classified.Columns)
	labels, err := classified.Column(prediction.Column)
	require.NoError(t, err)
	require.Len(t, labels, 3)
	for _, label := range labels {
		assert.Contains(t, []string{"0", "1"}, label)
	}
}

func TestPredictCommand_Stdout(t *testing.T) {
	ws := newWorkspace(t, testSchema)
	_, err := ws.execute(t, "run", "--stage", "all", "--force=false")
	require.NoError(t, err)

	out, err := ws.execute(t, "predict", "--input", writeRecords(t, ws), "--output", "")
	require.NoError(t, err)

	classified, err := dataset.Decode(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 3, classified.Len())
	assert.True(t, classified.HasColumn(prediction.Column))
}

func TestPredictCommand_NoChampion(t *testing.T) {
	ws := newWorkspace(t, testSchema)

	_, err := ws.execute(t, "predict", "--input", writeRecords(t, ws), "--output", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrModelNotFound))
	assert.Equal(t, exitFailure, exitCode(err))
}
