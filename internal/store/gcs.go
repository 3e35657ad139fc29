package store

import (
	"context"

	"github.com/jonathan/autoclaim-ml/internal/cloudstorage"
)

// GCSStore stores artifacts as <prefix>/<stage>/<fingerprint>.json objects
type GCSStore struct {
	objects cloudstorage.Objects
}

// NewGCSStore creates a store over a bucket
func NewGCSStore(objects cloudstorage.Objects) *GCSStore {
	return &GCSStore{objects: objects}
}

func objectName(key string) (string, error) {
	id, err := checkKey(key)
	if err != nil {
		return "", err
	}
	return id.Stage + "/" + id.Fingerprint + ".json", nil
}

// Exists checks whether an artifact object exists
func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	name, err := objectName(key)
	if err != nil {
		return false, err
	}
	_, found, err := s.objects.Stat(ctx, name)
	return found, err
}

// Load downloads the artifact object
func (s *GCSStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	name, err := objectName(key)
	if err != nil {
		return nil, false, err
	}
	return s.objects.Read(ctx, name)
}

// Save uploads the artifact object
func (s *GCSStore) Save(ctx context.Context, key string, data []byte) error {
	name, err := objectName(key)
	if err != nil {
		return err
	}
	return s.objects.Write(ctx, name, data, "application/json")
}
