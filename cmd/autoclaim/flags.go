package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/autoclaim-ml/internal/config"
)

// globalFlags are shared by every command
type globalFlags struct {
	configPath  string
	artifactDir string
	store       string
	databaseURL string
	source      string
	sourceDir   string
	collection  string
	schemaPath  string
	modelConfig string
	registry    string
	registryDir string
	modelKey    string
	logLevel    string
	logFormat   string
	verbose     bool
}

var flags globalFlags

func init() {
	pf := rootCmd.PersistentFlags()

	// Config file flag (processed first)
	pf.StringVar(&flags.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	pf.StringVar(&flags.artifactDir, "artifact-dir", "", "Directory for stage outputs and run records")
	pf.StringVar(&flags.store, "store", "", "Artifact cache backend: file, postgres or gcs")
	pf.StringVar(&flags.databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	pf.StringVar(&flags.source, "source", "", "Data source: csv or mongo")
	pf.StringVar(&flags.sourceDir, "source-dir", "", "Directory holding <collection>.csv for the csv source")
	pf.StringVar(&flags.collection, "collection", "", "Collection to ingest")
	pf.StringVar(&flags.schemaPath, "schema", "", "Path to schema.yaml")
	pf.StringVar(&flags.modelConfig, "model-config", "", "Path to model.yaml")
	pf.StringVar(&flags.registry, "registry", "", "Model registry backend: local, gcs or oci")
	pf.StringVar(&flags.registryDir, "registry-dir", "", "Root directory of the local model registry")
	pf.StringVar(&flags.modelKey, "model-key", "", "Registry key of the champion model")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format: text or json")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Print detailed debug information")
}

// loadConfig merges the config file, command-line overrides, defaults and environment, then validates
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	// Step 1: Load config file if provided
	var cfg config.Config
	if flags.configPath != "" {
		loaded, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	overrides := map[string]*string{
		"artifact-dir": &cfg.ArtifactDir,
		"store":        &cfg.Store,
		"db-url":       &cfg.DatabaseURL,
		"source":       &cfg.Source,
		"source-dir":   &cfg.SourceDir,
		"collection":   &cfg.Collection,
		"schema":       &cfg.SchemaPath,
		"model-config": &cfg.ModelConfigPath,
		"registry":     &cfg.Registry,
		"registry-dir": &cfg.RegistryDir,
		"model-key":    &cfg.ModelKey,
		"log-level":    &cfg.LogLevel,
		"log-format":   &cfg.LogFormat,
	}
	for name, dst := range overrides {
		if cmd.Flags().Changed(name) {
			value, err := cmd.Flags().GetString(name)
			if err != nil {
				return config.Config{}, err
			}
			*dst = value
		}
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = flags.verbose
	}
	if cfg.Verbose && !cmd.Flags().Changed("log-level") {
		cfg.LogLevel = "debug"
	}

	// Step 3: Apply defaults for unset values, then secrets from the environment
	cfg = cfg.MergeWithDefaults(config.Default())
	cfg = cfg.ApplyEnv(os.Getenv)

	// Step 4: Validate
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if cfg.Verbose {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Artifacts: %s, store: %s, source: %s, registry: %s\n",
			cfg.ArtifactDir, cfg.Store, config.SourceDescriptor(cfg), cfg.Registry)
	}
	return cfg, nil
}
