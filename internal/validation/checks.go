// Package validation checks the ingested train and test splits against the declared column schema
// and records the outcome in a JSON report.
package validation

import (
	"fmt"
	"strings"

	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/dataset"
)

// Check is one failed schema check
type Check struct {
	Partition string   `json:"partition"`
	Kind      string   `json:"kind"`
	Details   string   `json:"details"`
	Columns   []string `json:"columns,omitempty"`
}

// Check kinds
const (
	KindColumnCount    = "column_count"
	KindMissingColumns = "missing_columns"
)

// Sentence renders the check as one sentence of the validation message
func (c Check) Sentence() string {
	switch c.Kind {
	case KindColumnCount:
		return fmt.Sprintf("Mismatch in number of columns in %s data (%s)", c.Partition, c.Details)
	case KindMissingColumns:
		return fmt.Sprintf("Missing required columns in %s data: %s", c.Partition, strings.Join(c.Columns, ", "))
	default:
		return c.Details
	}
}

// ValidateColumnCount compares the number of columns with the schema's declared columns
func ValidateColumnCount(schema config.Schema, ds *dataset.Dataset) (Check, bool) {
	expected := len(schema.Columns)
	actual := len(ds.Columns)
	if expected == actual {
		return Check{}, true
	}
	return Check{
		Kind:    KindColumnCount,
		Details: fmt.Sprintf("expected %d, found %d", expected, actual),
	}, false
}

// ValidateColumnNames reports the numerical and categorical columns absent from the dataset,
// numerical first, each group in schema order
func ValidateColumnNames(schema config.Schema, ds *dataset.Dataset) (Check, bool) {
	var missing []string
	for _, col := range schema.NumericalColumns {
		if !ds.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	for _, col := range schema.CategoricalColumns {
		if !ds.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return Check{}, true
	}
	return Check{Kind: KindMissingColumns, Columns: missing}, false
}

// ValidatePartition runs every check against one partition and returns the failures
func ValidatePartition(schema config.Schema, partition string, ds *dataset.Dataset) []Check {
	var failed []Check
	if c, ok := ValidateColumnCount(schema, ds); !ok {
		c.Partition = partition
		failed = append(failed, c)
	}
	if c, ok := ValidateColumnNames(schema, ds); !ok {
		c.Partition = partition
		failed = append(failed, c)
	}
	return failed
}

// Message joins failed checks into the validation message. It is empty when nothing failed.
func Message(checks []Check) string {
	if len(checks) == 0 {
		return ""
	}
	sentences := make([]string, len(checks))
	for i, c := range checks {
		sentences[i] = c.Sentence()
	}
	return strings.Join(sentences, ". ") + "."
}
