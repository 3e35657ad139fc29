package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"cloud.google.com/go/storage"

	"github.com/jonathan/autoclaim-ml/internal/cache"
	"github.com/jonathan/autoclaim-ml/internal/cloudstorage"
	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/datasource"
	"github.com/jonathan/autoclaim-ml/internal/db"
	"github.com/jonathan/autoclaim-ml/internal/evaluation"
	"github.com/jonathan/autoclaim-ml/internal/ingestion"
	"github.com/jonathan/autoclaim-ml/internal/observability"
	"github.com/jonathan/autoclaim-ml/internal/pipeline"
	"github.com/jonathan/autoclaim-ml/internal/pusher"
	"github.com/jonathan/autoclaim-ml/internal/registry"
	"github.com/jonathan/autoclaim-ml/internal/store"
	"github.com/jonathan/autoclaim-ml/internal/training"
	"github.com/jonathan/autoclaim-ml/internal/transformation"
	"github.com/jonathan/autoclaim-ml/internal/types"
	"github.com/jonathan/autoclaim-ml/internal/validation"
)

// cacheDir is where the file store keeps artifact envelopes, relative to the artifact directory
const cacheDir = "cache"

// app holds the wired pipeline and the connections it owns
type app struct {
	runner  *pipeline.Runner
	printer *observability.Printer
	closers []func()
}

// Close releases every connection opened during wiring, in reverse order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// connections lazily opens the clients shared by several backends
type connections struct {
	cfg      config.Config
	database *db.DB
	gcs      *storage.Client
	closers  []func()
}

// close releases the opened clients in reverse order
func (c *connections) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func (c *connections) postgres(ctx context.Context) (*db.DB, error) {
	if c.database != nil {
		return c.database, nil
	}
	database, err := db.Connect(ctx, c.cfg.DatabaseURL)
	if err != nil {
		return nil, &types.StorageError{Op: "connect", Cause: err}
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, &types.StorageError{Op: "migrate", Cause: err}
	}
	c.database = database
	c.closers = append(c.closers, database.Close)
	return database, nil
}

func (c *connections) storage(ctx context.Context) (*storage.Client, error) {
	if c.gcs != nil {
		return c.gcs, nil
	}
	client, err := cloudstorage.NewClient(ctx, c.cfg.GCSCredentialsFile)
	if err != nil {
		return nil, &types.StorageError{Op: "connect", Cause: err}
	}
	c.gcs = client
	c.closers = append(c.closers, func() { _ = client.Close() })
	return client, nil
}

// buildApp wires the configured store, data source, registry and stages into a Runner
func buildApp(ctx context.Context, cfg config.Config, out io.Writer, logger *slog.Logger) (*app, error) {
	configs, err := config.Build(cfg)
	if err != nil {
		return nil, err
	}

	conns := &connections{cfg: cfg}
	a := &app{printer: observability.NewPrinter(out)}
	fail := func(err error) (*app, error) {
		conns.close()
		return nil, err
	}

	artifacts, err := buildStore(ctx, cfg, conns)
	if err != nil {
		return fail(err)
	}
	source, err := buildSource(ctx, cfg, conns)
	if err != nil {
		return fail(err)
	}
	reg, err := buildRegistry(ctx, cfg, conns)
	if err != nil {
		return fail(err)
	}

	opts := pipeline.Options{
		Configs: configs,
		Stages: pipeline.Stages{
			Ingestion:      ingestion.New(configs.Ingestion, source, logger),
			Validation:     validation.New(configs.Validation, logger),
			Transformation: transformation.New(configs.Transformation, logger),
			Training:       training.New(configs.Training, logger),
			Evaluation:     evaluation.New(configs.Evaluation, reg, logger),
			Push:           pusher.New(configs.Pusher, reg, logger),
		},
		Cache:   cache.New(artifacts, logger),
		Logger:  logger,
		RunsDir: configs.RunsDir(),
		OnProgress: func(e pipeline.ProgressEvent) {
			a.printer.PrintProgress(e.Position, e.Total, e.Stage, e.Source)
		},
	}
	if conns.database != nil {
		opts.Recorder = conns.database
	}

	runner, err := pipeline.New(opts)
	if err != nil {
		return fail(err)
	}
	a.runner = runner
	a.closers = conns.closers
	return a, nil
}

func buildStore(ctx context.Context, cfg config.Config, conns *connections) (store.Store, error) {
	switch cfg.Store {
	case "file":
		return store.NewFileStore(filepath.Join(cfg.ArtifactDir, cacheDir)), nil
	case "postgres":
		database, err := conns.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return database, nil
	case "gcs":
		client, err := conns.storage(ctx)
		if err != nil {
			return nil, err
		}
		return store.NewGCSStore(cloudstorage.NewBucket(client, cfg.ArtifactBucket, cacheDir)), nil
	}
	return nil, &config.ConfigurationError{Message: fmt.Sprintf("unknown store %q", cfg.Store)}
}

func buildSource(ctx context.Context, cfg config.Config, conns *connections) (datasource.DataSource, error) {
	switch cfg.Source {
	case "csv":
		return datasource.NewCSVSource(cfg.SourceDir), nil
	case "mongo":
		client, err := datasource.ConnectMongo(ctx, cfg.MongoURL)
		if err != nil {
			return nil, err
		}
		conns.closers = append(conns.closers, func() { _ = client.Disconnect(context.Background()) })
		return datasource.NewMongoSource(client, cfg.MongoDatabase), nil
	}
	return nil, &config.ConfigurationError{Message: fmt.Sprintf("unknown source %q", cfg.Source)}
}

func buildRegistry(ctx context.Context, cfg config.Config, conns *connections) (registry.Registry, error) {
	switch cfg.Registry {
	case "local":
		return registry.NewLocal(cfg.RegistryDir), nil
	case "gcs":
		client, err := conns.storage(ctx)
		if err != nil {
			return nil, err
		}
		return registry.NewGCS(cloudstorage.NewBucket(client, cfg.RegistryBucket, "")), nil
	case "oci":
		reg, err := registry.NewOCI(registry.OCIOptions{
			Repository: cfg.RegistryRepository,
			Insecure:   cfg.RegistryInsecure,
		})
		if err != nil {
			return nil, &config.ConfigurationError{Message: "invalid OCI registry", Cause: err}
		}
		return reg, nil
	}
	return nil, &config.ConfigurationError{Message: fmt.Sprintf("unknown registry %q", cfg.Registry)}
}
