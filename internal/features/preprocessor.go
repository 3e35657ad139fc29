// Package features fits and applies the column preprocessing that turns a raw dataset into a numeric
// feature matrix: binary value maps, dropped columns, one-hot dummies, mean imputation and scaling.
package features

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/dataset"
	"github.com/jonathan/autoclaim-ml/internal/store"
)

// PreprocessorVersion is bumped whenever the persisted layout changes
const PreprocessorVersion = 1

// OneHot encodes one categorical column. The first category in sorted order is dropped.
type OneHot struct {
	Column     string   `json:"column"`
	Categories []string `json:"categories"`
}

// Scale is an affine transform (x - Offset) / Divisor
type Scale struct {
	Offset  float64 `json:"offset"`
	Divisor float64 `json:"divisor"`
}

// Preprocessor is a fitted preprocessing strategy. It is immutable after Fit.
type Preprocessor struct {
	Version      int                           `json:"version"`
	InputColumns []string                      `json:"input_columns"`
	DropColumns  []string                      `json:"drop_columns"`
	BinaryMaps   map[string]map[string]float64 `json:"binary_maps,omitempty"`
	Numeric      []string                      `json:"numeric"`
	OneHot       []OneHot                      `json:"one_hot,omitempty"`
	Means        map[string]float64            `json:"means"`
	Standard     map[string]Scale              `json:"standard,omitempty"`
	MinMax       map[string]Scale              `json:"min_max,omitempty"`
	Features     []string                      `json:"features"`
}

// Fit learns the preprocessing from a training dataset that no longer contains the target column
func Fit(schema config.Schema, ds *dataset.Dataset) (*Preprocessor, error) {
	if err := schema.Check(); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("cannot fit preprocessor on an empty dataset")
	}

	p := &Preprocessor{
		Version:    PreprocessorVersion,
		BinaryMaps: map[string]map[string]float64{},
		Means:      map[string]float64{},
		Standard:   map[string]Scale{},
		MinMax:     map[string]Scale{},
	}
	for _, c := range schema.DropColumns {
		if ds.HasColumn(c) {
			p.DropColumns = append(p.DropColumns, c)
		}
	}
	work := ds.DropColumns(p.DropColumns...)
	p.InputColumns = append([]string{}, work.Columns...)

	for i, col := range work.Columns {
		if m, ok := schema.BinaryMaps[col]; ok {
			p.BinaryMaps[col] = m
			p.Numeric = append(p.Numeric, col)
			continue
		}
		if isNumericColumn(work, i) {
			p.Numeric = append(p.Numeric, col)
			continue
		}
		p.OneHot = append(p.OneHot, OneHot{Column: col, Categories: categories(work, i)})
	}

	encoded := p.encodedColumns()

	raw, err := p.encode(work)
	if err != nil {
		return nil, err
	}
	for j, col := range p.Numeric {
		p.Means[col] = columnMean(raw, j)
	}
	impute(raw, p.Numeric, p.Means)

	index := make(map[string]int, len(encoded))
	for j, c := range encoded {
		index[c] = j
	}
	for _, col := range schema.NumFeatures {
		j, ok := index[col]
		if !ok {
			return nil, fmt.Errorf("standard scaler column %s not found after encoding", col)
		}
		mean := columnMean(raw, j)
		std := columnStd(raw, j, mean)
		if std == 0 {
			std = 1
		}
		p.Standard[col] = Scale{Offset: mean, Divisor: std}
	}
	for _, col := range schema.MinMaxColumns {
		j, ok := index[col]
		if !ok {
			return nil, fmt.Errorf("min-max scaler column %s not found after encoding", col)
		}
		lo, hi := columnRange(raw, j)
		span := hi - lo
		if span == 0 {
			span = 1
		}
		p.MinMax[col] = Scale{Offset: lo, Divisor: span}
	}

	// scaled columns first, then the remainder passes through
	scaled := map[string]bool{}
	p.Features = append(p.Features, schema.NumFeatures...)
	p.Features = append(p.Features, schema.MinMaxColumns...)
	for _, c := range p.Features {
		scaled[c] = true
	}
	for _, c := range encoded {
		if !scaled[c] {
			p.Features = append(p.Features, c)
		}
	}
	return p, nil
}

// Transform applies the fitted preprocessing. Extra columns are ignored; a missing input column
// is an error. Unknown categories encode as all zeros, unmapped or missing numerics as the mean.
func (p *Preprocessor) Transform(ds *dataset.Dataset) ([][]float64, error) {
	for _, c := range p.InputColumns {
		if !ds.HasColumn(c) {
			return nil, fmt.Errorf("input column %s not found", c)
		}
	}
	raw, err := p.encode(ds)
	if err != nil {
		return nil, err
	}
	impute(raw, p.Numeric, p.Means)

	encoded := p.encodedColumns()
	index := make(map[string]int, len(encoded))
	for j, c := range encoded {
		index[c] = j
	}
	out := make([][]float64, len(raw))
	for r, row := range raw {
		values := make([]float64, len(p.Features))
		for k, col := range p.Features {
			v := row[index[col]]
			if s, ok := p.Standard[col]; ok {
				v = (v - s.Offset) / s.Divisor
			} else if s, ok := p.MinMax[col]; ok {
				v = (v - s.Offset) / s.Divisor
			}
			values[k] = v
		}
		out[r] = values
	}
	return out, nil
}

// encodedColumns lists numerics in input order followed by the kept dummies
func (p *Preprocessor) encodedColumns() []string {
	cols := append([]string{}, p.Numeric...)
	for _, oh := range p.OneHot {
		for _, cat := range oh.Categories[1:] {
			cols = append(cols, oh.Column+"_"+cat)
		}
	}
	return cols
}

// encode maps every row to numerics followed by dummies. Missing numerics are NaN.
func (p *Preprocessor) encode(ds *dataset.Dataset) ([][]float64, error) {
	numIdx := make([]int, len(p.Numeric))
	for j, c := range p.Numeric {
		numIdx[j] = ds.ColumnIndex(c)
	}
	width := len(p.Numeric)
	for _, oh := range p.OneHot {
		width += len(oh.Categories) - 1
	}

	out := make([][]float64, ds.Len())
	for r, row := range ds.Rows {
		values := make([]float64, width)
		for j, col := range p.Numeric {
			cell := row[numIdx[j]]
			if m, ok := p.BinaryMaps[col]; ok {
				if v, ok := m[cell]; ok {
					values[j] = v
				} else {
					values[j] = math.NaN()
				}
				continue
			}
			if cell == "" {
				values[j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: column %s: %q is not numeric", r+1, col, cell)
			}
			values[j] = v
		}
		k := len(p.Numeric)
		for _, oh := range p.OneHot {
			cell := row[ds.ColumnIndex(oh.Column)]
			for _, cat := range oh.Categories[1:] {
				if cell == cat {
					values[k] = 1
				}
				k++
			}
		}
		out[r] = values
	}
	return out, nil
}

func isNumericColumn(ds *dataset.Dataset, col int) bool {
	for _, row := range ds.Rows {
		if row[col] == "" {
			continue
		}
		if _, err := strconv.ParseFloat(row[col], 64); err != nil {
			return false
		}
	}
	return true
}

func categories(ds *dataset.Dataset, col int) []string {
	seen := map[string]bool{}
	for _, row := range ds.Rows {
		if row[col] != "" {
			seen[row[col]] = true
		}
	}
	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	if len(cats) == 0 {
		cats = []string{""}
	}
	return cats
}

func impute(raw [][]float64, numeric []string, means map[string]float64) {
	for _, row := range raw {
		for j, col := range numeric {
			if math.IsNaN(row[j]) {
				row[j] = means[col]
			}
		}
	}
}

// columnMean ignores NaN cells and is zero for an all-missing column
func columnMean(raw [][]float64, j int) float64 {
	var sum float64
	var n int
	for _, row := range raw {
		if !math.IsNaN(row[j]) {
			sum += row[j]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// columnStd is the population standard deviation
func columnStd(raw [][]float64, j int, mean float64) float64 {
	var ss float64
	for _, row := range raw {
		d := row[j] - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(raw)))
}

func columnRange(raw [][]float64, j int) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range raw {
		lo = math.Min(lo, row[j])
		hi = math.Max(hi, row[j])
	}
	return lo, hi
}

// Save writes the preprocessor as JSON
func (p *Preprocessor) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preprocessor: %w", err)
	}
	return store.WriteFileAtomic(path, data, 0644)
}

// Load reads a preprocessor written by Save
func Load(path string) (*Preprocessor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Preprocessor
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse preprocessor: %w", err)
	}
	if p.Version != PreprocessorVersion {
		return nil, fmt.Errorf("preprocessor version %d, expected %d", p.Version, PreprocessorVersion)
	}
	return &p, nil
}
