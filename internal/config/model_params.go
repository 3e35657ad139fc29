package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Class weighting modes
const (
	ClassWeightNone     = "none"
	ClassWeightBalanced = "balanced"
)

// ModelParams are the hyperparameters of the logistic regression estimator
type ModelParams struct {
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate" validate:"gt=0"`
	Epochs       int     `json:"epochs" yaml:"epochs" validate:"gt=0"`
	L2           float64 `json:"l2" yaml:"l2" validate:"gte=0"`
	Threshold    float64 `json:"threshold" yaml:"threshold" validate:"gt=0,lt=1"`
	ClassWeight  string  `json:"class_weight" yaml:"class_weight" validate:"oneof=none balanced"`
}

// DefaultModelParams returns the parameters used when model.yaml is absent
func DefaultModelParams() ModelParams {
	return ModelParams{
		LearningRate: 0.1,
		Epochs:       300,
		L2:           0.001,
		Threshold:    0.5,
		ClassWeight:  ClassWeightBalanced,
	}
}

// LoadModelParams reads the model_params section of model.yaml.
// A missing file yields the defaults; keys absent from the file keep their default value.
func LoadModelParams(path string) (ModelParams, error) {
	params := DefaultModelParams()
	if path == "" {
		return params, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return params, nil
	}
	if err != nil {
		return ModelParams{}, &ConfigurationError{Message: fmt.Sprintf("failed to read model config %s", path), Cause: err}
	}

	doc := struct {
		ModelParams ModelParams `yaml:"model_params"`
	}{ModelParams: params}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ModelParams{}, &ConfigurationError{Message: "failed to parse model config YAML", Cause: err}
	}
	params = doc.ModelParams

	if err := newValidator().Struct(params); err != nil {
		return ModelParams{}, &ConfigurationError{Message: "invalid model_params", Cause: err}
	}
	return params, nil
}
