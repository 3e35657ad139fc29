package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore stores artifacts as <dir>/<stage>/<fingerprint>.json
type FileStore struct {
	dir string
}

// NewFileStore creates a filesystem-backed store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the root directory
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) (string, error) {
	id, err := checkKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, id.Stage, id.Fingerprint+".json"), nil
}

// Exists checks whether an artifact is stored under key
func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking artifact %s: %w", key, err)
	}
	return true, nil
}

// Load reads the artifact stored under key
func (s *FileStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading artifact %s: %w", key, err)
	}
	return data, true, nil
}

// Save writes the artifact atomically, replacing any previous value
func (s *FileStore) Save(ctx context.Context, key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	if err := WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("writing artifact %s: %w", key, err)
	}
	return nil
}

// WriteFileAtomic writes data to a temp file in the same directory and renames it into place,
// so readers never observe a partial file. Missing parent directories are created.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
