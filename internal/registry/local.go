package registry

import (
	"context"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/jonathan/autoclaim-ml/internal/store"
)

// Local stores models as files under a directory
type Local struct {
	dir string
}

// NewLocal creates a directory-backed registry
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

func (r *Local) path(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.dir, filepath.FromSlash(cleaned)), nil
}

// ModelExists implements Registry
func (r *Local) ModelExists(ctx context.Context, key string) (bool, error) {
	p, err := r.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, &Error{Op: "stat", Key: key, Cause: err}
	}
	return true, nil
}

// LoadModel implements Registry
func (r *Local) LoadModel(ctx context.Context, key string) ([]byte, error) {
	p, err := r.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrModelNotFound
		}
		return nil, &Error{Op: "load", Key: key, Cause: err}
	}
	return data, nil
}

// SaveModel implements Registry
func (r *Local) SaveModel(ctx context.Context, localPath, key string) error {
	p, err := r.path(key)
	if err != nil {
		return err
	}
	data, err := readLocal(localPath)
	if err != nil {
		return err
	}
	if err := store.WriteFileAtomic(p, data, 0644); err != nil {
		return &Error{Op: "save", Key: key, Cause: err}
	}
	return nil
}

// Digest implements Registry with a blake3 hash of the stored file
func (r *Local) Digest(ctx context.Context, key string) (string, bool, error) {
	data, err := r.LoadModel(ctx, key)
	if errors.Is(err, ErrModelNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	sum := blake3.Sum256(data)
	return "blake3:" + hex.EncodeToString(sum[:]), true, nil
}

// Location implements Registry
func (r *Local) Location(key string) string {
	p, err := r.path(key)
	if err != nil {
		return filepath.Join(r.dir, key)
	}
	return p
}
