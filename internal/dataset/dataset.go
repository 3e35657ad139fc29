// Package dataset provides the rectangular tabular dataset passed between the data source,
// ingestion, validation and preprocessing.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/jonathan/autoclaim-ml/internal/store"
)

// missingMarkers are cell values normalized to the empty string
var missingMarkers = map[string]bool{
	"na":  true,
	"NA":  true,
	"nan": true,
	"NaN": true,
}

// Dataset is a rectangular table of string cells with a stable column set
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// New creates an empty dataset with the given columns
func New(columns []string) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{Columns: cols}
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// ColumnIndex returns the index of a column, or -1 if absent
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the dataset has the named column
func (d *Dataset) HasColumn(name string) bool {
	return d.ColumnIndex(name) >= 0
}

// Column returns a copy of the named column's cells
func (d *Dataset) Column(name string) ([]string, error) {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// AppendRow adds a normalized row, rejecting rows that would make the table ragged
func (d *Dataset) AppendRow(row []string) error {
	if len(row) != len(d.Columns) {
		return fmt.Errorf("row has %d cells, dataset has %d columns", len(row), len(d.Columns))
	}
	cells := make([]string, len(row))
	for i, c := range row {
		cells[i] = NormalizeCell(c)
	}
	d.Rows = append(d.Rows, cells)
	return nil
}

// DropColumns returns a copy without the named columns. Unknown names are ignored.
func (d *Dataset) DropColumns(names ...string) *Dataset {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var keep []int
	out := &Dataset{}
	for i, c := range d.Columns {
		if !drop[c] {
			keep = append(keep, i)
			out.Columns = append(out.Columns, c)
		}
	}
	out.Rows = make([][]string, len(d.Rows))
	for r, row := range d.Rows {
		cells := make([]string, len(keep))
		for j, idx := range keep {
			cells[j] = row[idx]
		}
		out.Rows[r] = cells
	}
	return out
}

// Split shuffles rows with a seeded generator and returns (train, test).
// The test partition has ceil(ratio * n) rows, matching a conventional train/test split.
func (d *Dataset) Split(ratio float64, seed uint64) (*Dataset, *Dataset, error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, fmt.Errorf("split ratio must be in (0, 1), got %v", ratio)
	}
	n := len(d.Rows)
	nTest := int(math.Ceil(ratio * float64(n)))
	if n > 0 && nTest >= n {
		return nil, nil, fmt.Errorf("dataset of %d rows is too small for split ratio %v", n, ratio)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

	train, test := New(d.Columns), New(d.Columns)
	for pos, idx := range order {
		if pos < nTest {
			test.Rows = append(test.Rows, d.Rows[idx])
		} else {
			train.Rows = append(train.Rows, d.Rows[idx])
		}
	}
	return train, test, nil
}

// NormalizeCell trims a cell and maps missing markers to the empty string
func NormalizeCell(v string) string {
	v = strings.TrimSpace(v)
	if missingMarkers[v] {
		return ""
	}
	return v
}

// ReadCSV loads a dataset from a CSV file with a header row
func ReadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	ds, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ds, nil
}

// Decode reads CSV with a header row from r
func Decode(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty csv: missing header row")
		}
		return nil, err
	}
	ds := New(header)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := ds.AppendRow(record); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// Encode writes the dataset as CSV with a header row
func Encode(w io.Writer, ds *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(ds.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// WriteCSV writes the dataset with a header row. The file is replaced atomically, so a reader
// sees either the previous content or the complete new one.
func WriteCSV(path string, ds *Dataset) error {
	var buf bytes.Buffer
	if err := Encode(&buf, ds); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := store.WriteFileAtomic(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
