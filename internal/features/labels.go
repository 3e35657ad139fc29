package features

import (
	"fmt"
	"strconv"

	"github.com/jonathan/autoclaim-ml/internal/dataset"
)

// SplitTarget separates the target column from the inputs and parses it as a 0/1 label
func SplitTarget(ds *dataset.Dataset, target string) (*dataset.Dataset, []float64, error) {
	cells, err := ds.Column(target)
	if err != nil {
		return nil, nil, err
	}
	labels := make([]float64, len(cells))
	for i, c := range cells {
		v, err := strconv.ParseFloat(c, 64)
		if err != nil || (v != 0 && v != 1) {
			return nil, nil, fmt.Errorf("row %d: target %s must be 0 or 1, got %q", i+1, target, c)
		}
		labels[i] = v
	}
	return ds.DropColumns(target), labels, nil
}
