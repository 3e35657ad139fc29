package cloudstorage

import (
	"context"
	"crypto/md5"
	"fmt"
	"path"
	"sync"
)

// MemoryObjects is an in-process Objects implementation with GCS-like generations
type MemoryObjects struct {
	mu         sync.Mutex
	bucket     string
	objects    map[string][]byte
	generation map[string]int64
}

// NewMemoryObjects creates an empty in-memory bucket
func NewMemoryObjects(bucket string) *MemoryObjects {
	return &MemoryObjects{
		bucket:     bucket,
		objects:    make(map[string][]byte),
		generation: make(map[string]int64),
	}
}

// Stat implements Objects
func (m *MemoryObjects) Stat(ctx context.Context, name string) (ObjectInfo, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[name]
	if !ok {
		return ObjectInfo{}, false, nil
	}
	sum := md5.Sum(data)
	return ObjectInfo{Size: int64(len(data)), MD5: sum[:], Generation: m.generation[name]}, true, nil
}

// Read implements Objects
func (m *MemoryObjects) Read(ctx context.Context, name string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[name]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Write implements Objects
func (m *MemoryObjects) Write(ctx context.Context, name string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = append([]byte(nil), data...)
	m.generation[name]++
	return nil
}

// URI implements Objects
func (m *MemoryObjects) URI(name string) string {
	return fmt.Sprintf("gs://%s/%s", m.bucket, path.Clean(name))
}
