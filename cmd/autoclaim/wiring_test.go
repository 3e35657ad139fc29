package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/datasource"
	"github.com/jonathan/autoclaim-ml/internal/registry"
	"github.com/jonathan/autoclaim-ml/internal/store"
)

func TestBuildBackends_Local(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.ArtifactDir = t.TempDir()
	conns := &connections{cfg: cfg}

	s, err := buildStore(ctx, cfg, conns)
	require.NoError(t, err)
	assert.IsType(t, &store.FileStore{}, s)

	src, err := buildSource(ctx, cfg, conns)
	require.NoError(t, err)
	assert.IsType(t, &datasource.CSVSource{}, src)

	reg, err := buildRegistry(ctx, cfg, conns)
	require.NoError(t, err)
	assert.IsType(t, &registry.Local{}, reg)
	assert.Empty(t, conns.closers)
}

func TestBuildRegistry_OCI(t *testing.T) {
	cfg := config.Default()
	cfg.Registry = "oci"
	cfg.RegistryRepository = "localhost:5000/autoclaim/models"

	reg, err := buildRegistry(context.Background(), cfg, &connections{cfg: cfg})
	require.NoError(t, err)
	assert.IsType(t, &registry.OCI{}, reg)
	assert.Contains(t, reg.Location(cfg.ModelKey), "localhost:5000/autoclaim/models:")
}

func TestBuildBackends_Unknown(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Store = "s3"
	cfg.Source = "kafka"
	cfg.Registry = "ftp"
	conns := &connections{cfg: cfg}

	var cfgErr *config.ConfigurationError
	_, err := buildStore(ctx, cfg, conns)
	assert.True(t, errors.As(err, &cfgErr))
	_, err = buildSource(ctx, cfg, conns)
	assert.True(t, errors.As(err, &cfgErr))
	_, err = buildRegistry(ctx, cfg, conns)
	assert.True(t, errors.As(err, &cfgErr))
}
