package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"github.com/google/go-containerregistry/pkg/v1/static"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

// Media types of the pushed model artifact
const (
	ModelLayerMediaType = "application/vnd.autoclaim.model.bundle.v1+json"
	ModelArtifactType   = "application/vnd.autoclaim.model.v1"

	annotationModelKey     = "dev.autoclaim.model.key"
	annotationArtifactType = "org.opencontainers.image.artifactType"
)

var invalidTagChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// OCIOptions configures the OCI registry backend
type OCIOptions struct {
	// Repository is the target repository, e.g. ghcr.io/acme/autoclaim-models
	Repository string
	// Insecure allows plain HTTP registries
	Insecure bool
	// Keychain resolves credentials; authn.DefaultKeychain when nil
	Keychain authn.Keychain
	// UserAgent is sent with every request
	UserAgent string
}

// OCI stores each model key as a single-layer artifact tagged with the sanitized key
type OCI struct {
	opts OCIOptions
}

// NewOCI creates an OCI registry backend
func NewOCI(opts OCIOptions) (*OCI, error) {
	if opts.Repository == "" {
		return nil, fmt.Errorf("OCI repository is empty")
	}
	if opts.Keychain == nil {
		opts.Keychain = authn.DefaultKeychain
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "autoclaim-ml/1.0"
	}
	return &OCI{opts: opts}, nil
}

// Tag converts a model key into a valid OCI tag
func Tag(key string) string {
	tag := invalidTagChars.ReplaceAllString(strings.ReplaceAll(key, "/", "_"), "-")
	tag = strings.TrimLeft(tag, ".-")
	if tag == "" {
		tag = "latest"
	}
	if len(tag) > 128 {
		tag = tag[:128]
	}
	return tag
}

func (r *OCI) reference(key string) (name.Reference, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	var nameOpts []name.Option
	if r.opts.Insecure {
		nameOpts = append(nameOpts, name.Insecure)
	}
	ref, err := name.ParseReference(r.opts.Repository+":"+Tag(cleaned), nameOpts...)
	if err != nil {
		return nil, fmt.Errorf("invalid OCI reference for %s: %w", key, err)
	}
	return ref, nil
}

func (r *OCI) remoteOptions(ctx context.Context) []remote.Option {
	return []remote.Option{
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(r.opts.Keychain),
		remote.WithUserAgent(r.opts.UserAgent),
	}
}

func isNotFound(err error) bool {
	var terr *transport.Error
	if errors.As(err, &terr) {
		return terr.StatusCode == http.StatusNotFound
	}
	return false
}

// ModelExists implements Registry with a manifest HEAD request
func (r *OCI) ModelExists(ctx context.Context, key string) (bool, error) {
	_, exists, err := r.Digest(ctx, key)
	return exists, err
}

// LoadModel implements Registry by downloading the single model layer
func (r *OCI) LoadModel(ctx context.Context, key string) ([]byte, error) {
	ref, err := r.reference(key)
	if err != nil {
		return nil, err
	}
	img, err := remote.Image(ref, r.remoteOptions(ctx)...)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrModelNotFound
		}
		return nil, &Error{Op: "pull", Key: key, Cause: err}
	}

	layers, err := img.Layers()
	if err != nil {
		return nil, &Error{Op: "pull", Key: key, Cause: err}
	}
	if len(layers) != 1 {
		return nil, &Error{Op: "pull", Key: key, Cause: fmt.Errorf("expected 1 layer, got %d", len(layers))}
	}
	mt, err := layers[0].MediaType()
	if err != nil {
		return nil, &Error{Op: "pull", Key: key, Cause: err}
	}
	if mt != types.MediaType(ModelLayerMediaType) {
		return nil, &Error{Op: "pull", Key: key, Cause: fmt.Errorf("unexpected layer media type %s", mt)}
	}

	rc, err := layers[0].Compressed()
	if err != nil {
		return nil, &Error{Op: "pull", Key: key, Cause: err}
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &Error{Op: "pull", Key: key, Cause: err}
	}
	return data, nil
}

// SaveModel implements Registry by pushing a single-layer artifact
func (r *OCI) SaveModel(ctx context.Context, localPath, key string) error {
	ref, err := r.reference(key)
	if err != nil {
		return err
	}
	data, err := readLocal(localPath)
	if err != nil {
		return err
	}

	layer := static.NewLayer(data, types.MediaType(ModelLayerMediaType))
	img, err := mutate.AppendLayers(empty.Image, layer)
	if err != nil {
		return &Error{Op: "push", Key: key, Cause: err}
	}
	img = mutate.Annotations(img, map[string]string{
		annotationArtifactType: ModelArtifactType,
		annotationModelKey:     key,
	}).(v1.Image)

	if err := remote.Write(ref, img, r.remoteOptions(ctx)...); err != nil {
		return &Error{Op: "push", Key: key, Cause: err}
	}
	return nil
}

// Digest implements Registry with the manifest digest
func (r *OCI) Digest(ctx context.Context, key string) (string, bool, error) {
	ref, err := r.reference(key)
	if err != nil {
		return "", false, err
	}
	desc, err := remote.Head(ref, r.remoteOptions(ctx)...)
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, &Error{Op: "head", Key: key, Cause: err}
	}
	return desc.Digest.String(), true, nil
}

// Location implements Registry
func (r *OCI) Location(key string) string {
	ref, err := r.reference(key)
	if err != nil {
		return r.opts.Repository
	}
	return ref.String()
}
