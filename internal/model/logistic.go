// Package model provides the estimator used by training and evaluation: an L2-regularized logistic
// regression fitted by batch gradient descent, its classification metrics, and the model bundle
// that pairs a classifier with its fitted preprocessor.
package model

import (
	"context"
	"fmt"
	"math"

	"github.com/jonathan/autoclaim-ml/internal/config"
)

// Classifier is a fitted binary logistic regression
type Classifier struct {
	Features  []string  `json:"features"`
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	Threshold float64   `json:"threshold"`
}

// Fit trains a classifier on a rectangular matrix with 0/1 labels. Weights start at zero, so the
// result is deterministic for the same inputs.
func Fit(ctx context.Context, features []string, x [][]float64, y []float64, params config.ModelParams) (*Classifier, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("cannot fit on an empty matrix")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("matrix has %d rows and %d labels", len(x), len(y))
	}
	nFeatures := len(features)
	for i, row := range x {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), nFeatures)
		}
	}

	weights := sampleWeights(y, params.ClassWeight)
	w := make([]float64, nFeatures)
	var b float64
	grad := make([]float64, nFeatures)
	var total float64
	for _, sw := range weights {
		total += sw
	}

	for epoch := 0; epoch < params.Epochs; epoch++ {
		if epoch%50 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for j := range grad {
			grad[j] = 0
		}
		var gradB float64
		for i, row := range x {
			diff := (sigmoid(dot(w, row)+b) - y[i]) * weights[i]
			for j, v := range row {
				grad[j] += diff * v
			}
			gradB += diff
		}
		for j := range w {
			w[j] -= params.LearningRate * (grad[j]/total + params.L2*w[j])
		}
		b -= params.LearningRate * gradB / total
	}

	for _, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("gradient descent diverged")
		}
	}
	return &Classifier{
		Features:  append([]string{}, features...),
		Weights:   w,
		Bias:      b,
		Threshold: params.Threshold,
	}, nil
}

// sampleWeights returns per-row weights; balanced weighting is n / (2 * n_class)
func sampleWeights(y []float64, classWeight string) []float64 {
	weights := make([]float64, len(y))
	var pos float64
	for _, v := range y {
		pos += v
	}
	neg := float64(len(y)) - pos
	wPos, wNeg := 1.0, 1.0
	if classWeight == config.ClassWeightBalanced && pos > 0 && neg > 0 {
		n := float64(len(y))
		wPos = n / (2 * pos)
		wNeg = n / (2 * neg)
	}
	for i, v := range y {
		if v == 1 {
			weights[i] = wPos
		} else {
			weights[i] = wNeg
		}
	}
	return weights
}

// Probability returns P(y=1) for one row
func (c *Classifier) Probability(row []float64) float64 {
	return sigmoid(dot(c.Weights, row) + c.Bias)
}

// Predict returns 0/1 predictions for every row
func (c *Classifier) Predict(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != len(c.Weights) {
			return nil, fmt.Errorf("row %d has %d values, model expects %d", i, len(row), len(c.Weights))
		}
		if c.Probability(row) >= c.Threshold {
			out[i] = 1
		}
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
