package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames_AllStagesEmbedded(t *testing.T) {
	names, err := Names()
	require.NoError(t, err)

	for _, want := range []string{Envelope, ValidationReport, "ingestion", "validation", "transformation", "training", "evaluation", "push"} {
		assert.Contains(t, names, want)
	}
}

func TestValidate_Envelope(t *testing.T) {
	valid := `{"stage":"training","fingerprint":"abc","version":1,"artifact":{"model_path":"m.json","metrics":{"f1":0.7,"precision":0.6,"recall":0.8}}}`
	assert.NoError(t, Validate(Envelope, []byte(valid)))

	missing := `{"stage":"training","version":1,"artifact":{}}`
	err := Validate(Envelope, []byte(missing))
	require.Error(t, err)
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, Envelope, validationErr.Schema)
	assert.Greater(t, len(validationErr.Errors), 0)

	badStage := `{"stage":"deploy","fingerprint":"abc","version":1,"artifact":{}}`
	assert.Error(t, Validate(Envelope, []byte(badStage)))
}

func TestValidate_StageArtifacts(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		valid bool
	}{
		{"ingestion", `{"feature_store_path":"a","train_path":"b","test_path":"c","row_count":10,"data_hash":"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}`, true},
		{"ingestion", `{"feature_store_path":"a","train_path":"b","test_path":"c","row_count":10}`, false},
		{"ingestion", `{"feature_store_path":"a","train_path":"b","test_path":"c","row_count":10,"data_hash":"abc"}`, false},
		{"ingestion", `{"feature_store_path":"a","train_path":"b","row_count":10}`, false},
		{"validation", `{"status":false,"message":"missing column Age","report_path":"r.json"}`, true},
		{"evaluation", `{"accepted":true,"champion_score":null,"challenger_score":0.7,"score_delta":0.7,"model_path":"m","model_key":"k"}`, true},
		{"evaluation", `{"accepted":"yes","champion_score":null,"challenger_score":0.7,"score_delta":0.7,"model_path":"m","model_key":"k"}`, false},
		{"training", `{"model_path":"m","metrics":{"f1":1.5,"precision":0,"recall":0}}`, false},
		{"push", `{"registry_location":"file:///r/model.json","model_key":"model.json"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.name, []byte(tt.doc))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("nope", []byte(`{}`))
	require.Error(t, err)
	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := Validate(ValidationReport, []byte(`{not json`))
	require.Error(t, err)
	var loadErr *SchemaLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestValidateJSONString_Valid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`
	jsonContent := `{"name": "test"}`

	err := ValidateJSONString(schemaContent, jsonContent)
	assert.NoError(t, err)
}

func TestValidateJSONString_Invalid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`
	jsonContent := `{"age": 30}`

	err := ValidateJSONString(schemaContent, jsonContent)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "name", Message: "is required"},
			{Field: "age", Message: "must be a number"},
		},
	}

	errorMsg := err.Error()
	assert.Contains(t, errorMsg, "validation failed")
	assert.Contains(t, errorMsg, "name")
	assert.Contains(t, errorMsg, "age")
}
