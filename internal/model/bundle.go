package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/jonathan/autoclaim-ml/internal/dataset"
	"github.com/jonathan/autoclaim-ml/internal/features"
	"github.com/jonathan/autoclaim-ml/internal/store"
)

// BundleVersion is bumped whenever the persisted layout changes
const BundleVersion = 1

// Bundle is the deployable model: the fitted preprocessor and the classifier trained on its output.
// It scores raw datasets, so a champion and a challenger see identical preprocessing.
type Bundle struct {
	Version      int                    `json:"version"`
	TargetColumn string                 `json:"target_column"`
	Preprocessor *features.Preprocessor `json:"preprocessor"`
	Classifier   *Classifier            `json:"classifier"`
	Metrics      Metrics                `json:"metrics"`
}

// NewBundle pairs a preprocessor with a classifier trained on its features
func NewBundle(target string, p *features.Preprocessor, c *Classifier, m Metrics) (*Bundle, error) {
	if !slices.Equal(p.Features, c.Features) {
		return nil, fmt.Errorf("classifier features do not match the preprocessor output")
	}
	return &Bundle{Version: BundleVersion, TargetColumn: target, Preprocessor: p, Classifier: c, Metrics: m}, nil
}

// Predict returns 0/1 predictions for a raw dataset
func (b *Bundle) Predict(ds *dataset.Dataset) ([]float64, error) {
	x, err := b.Preprocessor.Transform(ds)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess: %w", err)
	}
	return b.Classifier.Predict(x)
}

// Evaluate scores the bundle on a raw dataset that still carries the target column
func (b *Bundle) Evaluate(ctx context.Context, ds *dataset.Dataset) (Metrics, error) {
	if err := ctx.Err(); err != nil {
		return Metrics{}, err
	}
	inputs, y, err := features.SplitTarget(ds, b.TargetColumn)
	if err != nil {
		return Metrics{}, err
	}
	pred, err := b.Predict(inputs)
	if err != nil {
		return Metrics{}, err
	}
	return Score(y, pred)
}

// Encode serializes the bundle
func (b *Bundle) Encode() ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// Save writes the bundle to path
func (b *Bundle) Save(path string) error {
	data, err := b.Encode()
	if err != nil {
		return fmt.Errorf("failed to marshal model bundle: %w", err)
	}
	return store.WriteFileAtomic(path, data, 0644)
}

// DecodeBundle parses a serialized bundle
func DecodeBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse model bundle: %w", err)
	}
	if b.Version != BundleVersion {
		return nil, fmt.Errorf("model bundle version %d, expected %d", b.Version, BundleVersion)
	}
	if b.Preprocessor == nil || b.Classifier == nil {
		return nil, fmt.Errorf("model bundle is incomplete")
	}
	return &b, nil
}

// LoadBundle reads a bundle written by Save
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeBundle(data)
}
