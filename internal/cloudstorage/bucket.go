// Package cloudstorage wraps a Google Cloud Storage bucket for the artifact store and the model
// registry.
package cloudstorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ObjectInfo is the subset of object metadata the pipeline relies on
type ObjectInfo struct {
	Size       int64
	MD5        []byte
	Generation int64
}

// Objects is the object store surface used by the GCS-backed store and registry
type Objects interface {
	Stat(ctx context.Context, name string) (ObjectInfo, bool, error)
	Read(ctx context.Context, name string) ([]byte, bool, error)
	Write(ctx context.Context, name string, data []byte, contentType string) error
	URI(name string) string
}

// NewClient creates a storage client. An empty credentials file uses application default credentials.
func NewClient(ctx context.Context, credentialsFile string) (*storage.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return client, nil
}

// Bucket is a prefix within a GCS bucket
type Bucket struct {
	name   string
	prefix string
	handle *storage.BucketHandle
}

// NewBucket returns a Bucket rooted at prefix within the named bucket
func NewBucket(client *storage.Client, name, prefix string) *Bucket {
	return &Bucket{
		name:   name,
		prefix: prefix,
		handle: client.Bucket(name),
	}
}

// ObjectName returns the full object name for a relative name
func (b *Bucket) ObjectName(name string) string {
	if b.prefix == "" {
		return name
	}
	return path.Join(b.prefix, name)
}

// URI returns the gs:// URI of an object
func (b *Bucket) URI(name string) string {
	return fmt.Sprintf("gs://%s/%s", b.name, b.ObjectName(name))
}

// Stat returns object metadata, with found=false when the object does not exist
func (b *Bucket) Stat(ctx context.Context, name string) (ObjectInfo, bool, error) {
	attrs, err := b.handle.Object(b.ObjectName(name)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return ObjectInfo{}, false, nil
		}
		return ObjectInfo{}, false, fmt.Errorf("stat %s: %w", b.URI(name), err)
	}
	return ObjectInfo{Size: attrs.Size, MD5: attrs.MD5, Generation: attrs.Generation}, true, nil
}

// Read downloads an object, with found=false when it does not exist
func (b *Bucket) Read(ctx context.Context, name string) ([]byte, bool, error) {
	r, err := b.handle.Object(b.ObjectName(name)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open %s: %w", b.URI(name), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", b.URI(name), err)
	}
	return data, true, nil
}

// Write uploads an object, replacing any existing generation
func (b *Bucket) Write(ctx context.Context, name string, data []byte, contentType string) error {
	w := b.handle.Object(b.ObjectName(name)).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", b.URI(name), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", b.URI(name), err)
	}
	return nil
}
