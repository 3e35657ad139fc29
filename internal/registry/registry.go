// Package registry stores the deployed ("champion") model bundle under a well-known key. Backends:
// a local directory, a GCS bucket and an OCI registry.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
)

// ErrModelNotFound is returned by LoadModel when no model exists at the key
var ErrModelNotFound = errors.New("model not found in registry")

// Registry is the model registry boundary used by evaluation and push
type Registry interface {
	// ModelExists reports whether a model is stored at key
	ModelExists(ctx context.Context, key string) (bool, error)
	// LoadModel returns the stored model bytes, or ErrModelNotFound
	LoadModel(ctx context.Context, key string) ([]byte, error)
	// SaveModel uploads the file at localPath to key, replacing any existing model
	SaveModel(ctx context.Context, localPath, key string) error
	// Digest returns a content fingerprint of the stored model, with exists=false when absent
	Digest(ctx context.Context, key string) (string, bool, error)
	// Location returns a human-readable address for key
	Location(key string) string
}

// Error wraps a failed registry operation
type Error struct {
	Op    string
	Key   string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("registry %s %s: %v", e.Op, e.Key, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// cleanKey rejects empty, absolute and parent-relative keys
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("model key is empty")
	}
	cleaned := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if strings.HasPrefix(cleaned, "/") || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid model key: %q", key)
	}
	return cleaned, nil
}

// readLocal reads the model file to upload
func readLocal(localPath string) ([]byte, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("model file %s does not exist: %w", localPath, err)
		}
		return nil, fmt.Errorf("failed to read model file %s: %w", localPath, err)
	}
	return data, nil
}
