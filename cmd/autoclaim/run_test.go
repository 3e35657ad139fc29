package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `columns:
  - id: int
  - Gender: category
  - Age: int
  - Vehicle_Age: category
  - Response: int
numerical_columns: [Age, Response]
categorical_columns: [Gender, Vehicle_Age]
drop_columns: id
binary_maps:
  Gender:
    Female: 0
    Male: 1
num_features: [Age]
`

type workspace struct {
	root      string
	artifacts string
	data      string
	schema    string
	registry  string
}

func newWorkspace(t *testing.T, schema string) workspace {
	t.Helper()
	root := t.TempDir()
	ws := workspace{
		root:      root,
		artifacts: filepath.Join(root, "artifacts"),
		data:      filepath.Join(root, "data"),
		schema:    filepath.Join(root, "schema.yaml"),
		registry:  filepath.Join(root, "registry"),
	}
	require.NoError(t, os.MkdirAll(ws.data, 0755))
	require.NoError(t, os.WriteFile(ws.schema, []byte(schema), 0644))

	var sb strings.Builder
	sb.WriteString("id,Gender,Age,Vehicle_Age,Response\n")
	vehicleAges := []string{"< 1 Year", "1-2 Year", "> 2 Years"}
	for i := 0; i < 300; i++ {
		age := 20 + (i*7)%50
		gender := "Male"
		if i%3 == 0 {
			gender = "Female"
		}
		response := 0
		if age > 42 {
			response = 1
		}
		fmt.Fprintf(&sb, "%d,%s,%d,%s,%d\n", i+1, gender, age, vehicleAges[i%3], response)
	}
	require.NoError(t, os.WriteFile(filepath.Join(ws.data, "Vehicle-Data.csv"), []byte(sb.String()), 0644))
	return ws
}

// execute runs the root command with every flag that matters set explicitly, since flag values
// persist between invocations within one process
func (ws workspace) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	common := []string{
		"--artifact-dir", ws.artifacts,
		"--store", "file",
		"--source", "csv",
		"--source-dir", ws.data,
		"--collection", "Vehicle-Data",
		"--schema", ws.schema,
		"--model-config", filepath.Join(ws.root, "model.yaml"),
		"--registry", "local",
		"--registry-dir", ws.registry,
		"--model-key", "model-registry/model.json",
		"--log-level", "error",
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, common...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunCommand_AllStages(t *testing.T) {
	ws := newWorkspace(t, testSchema)

	out, err := ws.execute(t, "run", "--stage", "all", "--force=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Stage 1/6: ingestion (computed)")
	assert.Contains(t, out, "MODEL PUSH")
	assert.Contains(t, out, "PIPELINE RUN")
	assert.FileExists(t, filepath.Join(ws.registry, "model-registry", "model.json"))

	runs, err := os.ReadDir(filepath.Join(ws.artifacts, "runs"))
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	// training is served from the cache on the next invocation
	out, err = ws.execute(t, "train", "--force=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Stage 4/4: training (cache)")
	assert.Contains(t, out, "MODEL TRAINING")
}

func TestRunCommand_ValidationFailureExitCode(t *testing.T) {
	schema := strings.Replace(testSchema, "numerical_columns: [Age, Response]", "numerical_columns: [Age, Vintage, Response]", 1)
	schema = strings.Replace(schema, "  - Response: int", "  - Vintage: int\n  - Response: int", 1)
	ws := newWorkspace(t, schema)

	out, err := ws.execute(t, "run", "--stage", "all", "--force=false")
	require.Error(t, err)
	assert.Equal(t, exitValidation, exitCode(err))
	assert.Contains(t, out, "Validation failed: Mismatch in number of columns in training data (expected 6, found 5)")
	assert.NoDirExists(t, filepath.Join(ws.artifacts, "transformation"))
}

func TestRunCommand_UnknownStage(t *testing.T) {
	ws := newWorkspace(t, testSchema)

	_, err := ws.execute(t, "run", "--stage", "deploy", "--force=false")
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(err))
}
