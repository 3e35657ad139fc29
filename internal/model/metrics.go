package model

import (
	"fmt"

	"github.com/jonathan/autoclaim-ml/internal/types"
)

// Metrics are the binary classification metrics for the positive class
type Metrics struct {
	F1        float64 `json:"f1"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Accuracy  float64 `json:"accuracy"`
}

// Classification returns the subset carried by the training artifact
func (m Metrics) Classification() types.ClassificationMetrics {
	return types.ClassificationMetrics{F1: m.F1, Precision: m.Precision, Recall: m.Recall}
}

// Score computes metrics for predictions against labels. Undefined ratios are zero.
func Score(yTrue, yPred []float64) (Metrics, error) {
	if len(yTrue) != len(yPred) {
		return Metrics{}, fmt.Errorf("%d labels and %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return Metrics{}, fmt.Errorf("no samples to score")
	}
	var tp, fp, fn, correct float64
	for i := range yTrue {
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			tp++
		case yPred[i] == 1:
			fp++
		case yTrue[i] == 1:
			fn++
		}
		if yPred[i] == yTrue[i] {
			correct++
		}
	}

	m := Metrics{Accuracy: correct / float64(len(yTrue))}
	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m, nil
}
