// Package prediction classifies new vehicle insurance records with the champion model held in
// the registry.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/jonathan/autoclaim-ml/internal/dataset"
	"github.com/jonathan/autoclaim-ml/internal/model"
	"github.com/jonathan/autoclaim-ml/internal/registry"
	"github.com/jonathan/autoclaim-ml/internal/types"
)

// Column is the name of the column appended to the classified records
const Column = "prediction"

// Predictor scores records with the model stored at one registry key
type Predictor struct {
	registry registry.Registry
	key      string
	logger   *slog.Logger
}

// New creates a Predictor for the champion at key
func New(reg registry.Registry, key string, logger *slog.Logger) *Predictor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Predictor{registry: reg, key: key, logger: logger.With("component", "prediction")}
}

// Champion loads and decodes the champion bundle.
// A missing champion is reported with registry.ErrModelNotFound in the chain.
func (p *Predictor) Champion(ctx context.Context) (*model.Bundle, error) {
	data, err := p.registry.LoadModel(ctx, p.key)
	if errors.Is(err, registry.ErrModelNotFound) {
		return nil, fmt.Errorf("no champion model at %s: %w", p.registry.Location(p.key), err)
	}
	if err != nil {
		return nil, &types.StorageError{Op: "load", Key: p.key, Cause: err}
	}
	bundle, err := model.DecodeBundle(data)
	if err != nil {
		return nil, fmt.Errorf("champion at %s: %w", p.registry.Location(p.key), err)
	}
	return bundle, nil
}

// Predict returns the records with a 0/1 prediction column appended
func (p *Predictor) Predict(ctx context.Context, records *dataset.Dataset) (*dataset.Dataset, error) {
	start := time.Now()
	if records.HasColumn(Column) {
		return nil, fmt.Errorf("input already has a %s column", Column)
	}

	bundle, err := p.Champion(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	predictions, err := bundle.Predict(records)
	if err != nil {
		return nil, err
	}

	out := dataset.New(append(slices.Clone(records.Columns), Column))
	positive := 0
	for i, row := range records.Rows {
		label := strconv.FormatFloat(predictions[i], 'f', -1, 64)
		if predictions[i] > 0 {
			positive++
		}
		if err := out.AppendRow(append(slices.Clone(row), label)); err != nil {
			return nil, err
		}
	}

	p.logger.Info("records classified",
		"model", p.registry.Location(p.key),
		"rows", out.Len(),
		"positive", positive,
		"duration", time.Since(start))
	return out, nil
}
