package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ColumnSpec is a single declared column and its logical type
type ColumnSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema describes the expected columns of the ingested data and how they are preprocessed.
// It is loaded from schema.yaml, where columns are a list of single-key maps (`- Age: int`).
type Schema struct {
	Columns            []ColumnSpec                  `json:"columns"`
	NumericalColumns   []string                      `json:"numerical_columns"`
	CategoricalColumns []string                      `json:"categorical_columns"`
	DropColumns        []string                      `json:"drop_columns"`
	NumFeatures        []string                      `json:"num_features"`
	MinMaxColumns      []string                      `json:"mm_columns"`
	BinaryMaps         map[string]map[string]float64 `json:"binary_maps"`
}

type schemaFile struct {
	Columns            []map[string]string           `yaml:"columns"`
	NumericalColumns   []string                      `yaml:"numerical_columns"`
	CategoricalColumns []string                      `yaml:"categorical_columns"`
	DropColumns        stringList                    `yaml:"drop_columns"`
	NumFeatures        []string                      `yaml:"num_features"`
	MinMaxColumns      []string                      `yaml:"mm_columns"`
	BinaryMaps         map[string]map[string]float64 `yaml:"binary_maps"`
}

// stringList accepts either a scalar or a sequence
type stringList []string

func (s *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value != "" {
			*s = []string{node.Value}
		}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*s = items
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list", node.Line)
	}
}

// LoadSchema reads and checks a schema.yaml file
func LoadSchema(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, &ConfigurationError{Message: fmt.Sprintf("failed to read schema file %s", path), Cause: err}
	}
	return ParseSchema(data)
}

// ParseSchema decodes schema YAML
func ParseSchema(data []byte) (Schema, error) {
	var raw schemaFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Schema{}, &ConfigurationError{Message: "failed to parse schema YAML", Cause: err}
	}

	schema := Schema{
		NumericalColumns:   raw.NumericalColumns,
		CategoricalColumns: raw.CategoricalColumns,
		DropColumns:        raw.DropColumns,
		NumFeatures:        raw.NumFeatures,
		MinMaxColumns:      raw.MinMaxColumns,
		BinaryMaps:         raw.BinaryMaps,
	}
	for i, entry := range raw.Columns {
		if len(entry) != 1 {
			return Schema{}, &ConfigurationError{Message: fmt.Sprintf("schema column %d must have exactly one name", i)}
		}
		for name, typ := range entry {
			schema.Columns = append(schema.Columns, ColumnSpec{Name: name, Type: typ})
		}
	}

	if err := schema.Check(); err != nil {
		return Schema{}, err
	}
	return schema, nil
}

// Check enforces the structural rules of a schema
func (s Schema) Check() error {
	if len(s.Columns) == 0 {
		return &ConfigurationError{Message: "schema declares no columns"}
	}

	mm := make(map[string]bool, len(s.MinMaxColumns))
	for _, c := range s.MinMaxColumns {
		mm[c] = true
	}
	var overlap []string
	for _, c := range s.NumFeatures {
		if mm[c] {
			overlap = append(overlap, c)
		}
	}
	if len(overlap) > 0 {
		sort.Strings(overlap)
		return &ConfigurationError{Message: fmt.Sprintf("columns found in both scalers: %v", overlap)}
	}
	return nil
}

// ColumnNames returns the declared column names in schema order
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}
