// Package datasource provides the data source boundary: the raw record set a collection name
// resolves to.
package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/autoclaim-ml/internal/dataset"
)

// DataSource returns every record of a collection as a rectangular dataset
type DataSource interface {
	FetchRecords(ctx context.Context, collection string) (*dataset.Dataset, error)
}

// NotFoundError is returned when a collection does not exist in the source
type NotFoundError struct {
	Collection string
	Location   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("collection %q not found in %s", e.Collection, e.Location)
}

// CSVSource reads <dir>/<collection>.csv
type CSVSource struct {
	dir string
}

// NewCSVSource creates a source over a directory of CSV exports
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

// FetchRecords implements DataSource
func (s *CSVSource) FetchRecords(ctx context.Context, collection string) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if collection == "" || strings.ContainsAny(collection, `/\`) {
		return nil, fmt.Errorf("invalid collection name: %q", collection)
	}

	path := filepath.Join(s.dir, collection+".csv")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &NotFoundError{Collection: collection, Location: s.dir}
	}
	ds, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	return ds.DropColumns(mongoIDField), nil
}
