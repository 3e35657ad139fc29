// Package config provides configuration loading and validation for the training pipeline CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Environment variables consulted when the matching field is empty
const (
	EnvMongoURL       = "MONGODB_URL"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvGCSCredentials = "GOOGLE_APPLICATION_CREDENTIALS"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// Missing values are filled from Default(); command-line flags override file values.
type Config struct {
	// Artifact storage
	ArtifactDir    string `json:"artifact_dir,omitempty" validate:"required"`
	Store          string `json:"store,omitempty" validate:"required,oneof=file postgres gcs"`
	DatabaseURL    string `json:"database_url,omitempty" validate:"required_if=Store postgres"`
	ArtifactBucket string `json:"artifact_bucket,omitempty" validate:"required_if=Store gcs"`

	// Data source
	Source        string  `json:"source,omitempty" validate:"required,oneof=csv mongo"`
	SourceDir     string  `json:"source_dir,omitempty" validate:"required_if=Source csv"`
	MongoURL      string  `json:"mongo_url,omitempty" validate:"required_if=Source mongo"`
	MongoDatabase string  `json:"mongo_database,omitempty" validate:"required_if=Source mongo"`
	Collection    string  `json:"collection,omitempty" validate:"required"`
	SplitRatio    float64 `json:"split_ratio,omitempty" validate:"gt=0,lt=1"`
	Seed          uint64  `json:"seed,omitempty"`

	// Schema and model
	SchemaPath       string  `json:"schema_path,omitempty" validate:"required"`
	ModelConfigPath  string  `json:"model_config_path,omitempty"`
	TargetColumn     string  `json:"target_column,omitempty" validate:"required"`
	ExpectedAccuracy float64 `json:"expected_accuracy,omitempty" validate:"gte=0,lte=1"`

	// Model registry
	Registry           string `json:"registry,omitempty" validate:"required,oneof=local gcs oci"`
	RegistryDir        string `json:"registry_dir,omitempty" validate:"required_if=Registry local"`
	RegistryBucket     string `json:"registry_bucket,omitempty" validate:"required_if=Registry gcs"`
	RegistryRepository string `json:"registry_repository,omitempty" validate:"required_if=Registry oci"`
	RegistryInsecure   bool   `json:"registry_insecure,omitempty"`
	ModelKey           string `json:"model_key,omitempty" validate:"required"`
	GCSCredentialsFile string `json:"gcs_credentials_file,omitempty"`

	// Behavior
	LogLevel  string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `json:"log_format,omitempty" validate:"omitempty,oneof=text json"`
	Verbose   bool   `json:"verbose,omitempty"`
}

// Default returns the configuration used when no config file or flag provides a value
func Default() Config {
	return Config{
		ArtifactDir:      "artifacts",
		Store:            "file",
		Source:           "csv",
		SourceDir:        "data",
		MongoDatabase:    "VehicleDB",
		Collection:       "Vehicle-Data",
		SplitRatio:       0.25,
		Seed:             42,
		SchemaPath:       filepath.Join("config", "schema.yaml"),
		ModelConfigPath:  filepath.Join("config", "model.yaml"),
		TargetColumn:     "Response",
		ExpectedAccuracy: 0.6,
		Registry:         "local",
		RegistryDir:      ".",
		ModelKey:         "model-registry/model.json",
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, &ConfigurationError{Message: "config path is empty"}
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("failed to read config file %s", path), Cause: err}
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigurationError{Message: "failed to parse config JSON", Cause: err}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// It should be called after defaults, environment and flags have been merged.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return &ConfigurationError{Message: "invalid configuration", Cause: err}
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return &ConfigurationError{
			Message: "invalid fields: " + strings.Join(fields, ", "),
			Fields:  fields,
		}
	}

	if c.Source == "csv" {
		if info, err := os.Stat(c.SourceDir); err != nil || !info.IsDir() {
			return &ConfigurationError{Message: fmt.Sprintf("source directory not found: %s", c.SourceDir)}
		}
	}
	if _, err := os.Stat(c.SchemaPath); os.IsNotExist(err) {
		return &ConfigurationError{Message: fmt.Sprintf("schema file not found: %s", c.SchemaPath)}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values over the built-in defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	fillString(&result.ArtifactDir, defaults.ArtifactDir)
	fillString(&result.Store, defaults.Store)
	fillString(&result.DatabaseURL, defaults.DatabaseURL)
	fillString(&result.ArtifactBucket, defaults.ArtifactBucket)
	fillString(&result.Source, defaults.Source)
	fillString(&result.SourceDir, defaults.SourceDir)
	fillString(&result.MongoURL, defaults.MongoURL)
	fillString(&result.MongoDatabase, defaults.MongoDatabase)
	fillString(&result.Collection, defaults.Collection)
	fillString(&result.SchemaPath, defaults.SchemaPath)
	fillString(&result.ModelConfigPath, defaults.ModelConfigPath)
	fillString(&result.TargetColumn, defaults.TargetColumn)
	fillString(&result.Registry, defaults.Registry)
	fillString(&result.RegistryDir, defaults.RegistryDir)
	fillString(&result.RegistryBucket, defaults.RegistryBucket)
	fillString(&result.RegistryRepository, defaults.RegistryRepository)
	fillString(&result.ModelKey, defaults.ModelKey)
	fillString(&result.GCSCredentialsFile, defaults.GCSCredentialsFile)
	fillString(&result.LogLevel, defaults.LogLevel)
	fillString(&result.LogFormat, defaults.LogFormat)

	// Numeric fields: use default if zero
	if result.SplitRatio == 0 {
		result.SplitRatio = defaults.SplitRatio
	}
	if result.Seed == 0 {
		result.Seed = defaults.Seed
	}
	if result.ExpectedAccuracy == 0 {
		result.ExpectedAccuracy = defaults.ExpectedAccuracy
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// ApplyEnv returns a copy with secrets filled from the environment where the field is empty
func (c *Config) ApplyEnv(getenv func(string) string) Config {
	result := *c
	fillString(&result.MongoURL, getenv(EnvMongoURL))
	fillString(&result.DatabaseURL, getenv(EnvDatabaseURL))
	fillString(&result.GCSCredentialsFile, getenv(EnvGCSCredentials))
	return result
}

// newValidator reports fields by their JSON key
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

func fillString(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}
