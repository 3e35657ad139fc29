package registry

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/jonathan/autoclaim-ml/internal/cloudstorage"
)

const modelContentType = "application/json"

// GCS stores models as bucket objects
type GCS struct {
	objects cloudstorage.Objects
}

// NewGCS creates a bucket-backed registry
func NewGCS(objects cloudstorage.Objects) *GCS {
	return &GCS{objects: objects}
}

// ModelExists implements Registry
func (r *GCS) ModelExists(ctx context.Context, key string) (bool, error) {
	name, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	_, found, err := r.objects.Stat(ctx, name)
	if err != nil {
		return false, &Error{Op: "stat", Key: key, Cause: err}
	}
	return found, nil
}

// LoadModel implements Registry
func (r *GCS) LoadModel(ctx context.Context, key string) ([]byte, error) {
	name, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	data, found, err := r.objects.Read(ctx, name)
	if err != nil {
		return nil, &Error{Op: "load", Key: key, Cause: err}
	}
	if !found {
		return nil, ErrModelNotFound
	}
	return data, nil
}

// SaveModel implements Registry
func (r *GCS) SaveModel(ctx context.Context, localPath, key string) error {
	name, err := cleanKey(key)
	if err != nil {
		return err
	}
	data, err := readLocal(localPath)
	if err != nil {
		return err
	}
	if err := r.objects.Write(ctx, name, data, modelContentType); err != nil {
		return &Error{Op: "save", Key: key, Cause: err}
	}
	return nil
}

// Digest implements Registry from the object's MD5 and generation
func (r *GCS) Digest(ctx context.Context, key string) (string, bool, error) {
	name, err := cleanKey(key)
	if err != nil {
		return "", false, err
	}
	info, found, err := r.objects.Stat(ctx, name)
	if err != nil {
		return "", false, &Error{Op: "stat", Key: key, Cause: err}
	}
	if !found {
		return "", false, nil
	}
	return fmt.Sprintf("md5:%s@%d", hex.EncodeToString(info.MD5), info.Generation), true, nil
}

// Location implements Registry
func (r *GCS) Location(key string) string {
	return r.objects.URI(key)
}
