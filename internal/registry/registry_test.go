package registry

import (
	"context"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-containerregistry/pkg/authn"
	ociregistry "github.com/google/go-containerregistry/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/autoclaim-ml/internal/cloudstorage"
)

func writeModel(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func setupOCI(t *testing.T) *OCI {
	t.Helper()
	server := httptest.NewServer(ociregistry.New())
	t.Cleanup(server.Close)
	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	r, err := NewOCI(OCIOptions{Repository: u.Host + "/autoclaim/models", Insecure: true, Keychain: authn.NewMultiKeychain()})
	require.NoError(t, err)
	return r
}

// exerciseRegistry runs the behavior every backend shares
func exerciseRegistry(t *testing.T, r Registry) {
	ctx := context.Background()
	key := "model-registry/model.json"

	exists, err := r.ModelExists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = r.LoadModel(ctx, key)
	assert.ErrorIs(t, err, ErrModelNotFound)

	_, found, err := r.Digest(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, r.SaveModel(ctx, writeModel(t, `{"version":1}`), key))
	exists, err = r.ModelExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := r.LoadModel(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(data))

	first, found, err := r.Digest(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotEmpty(t, first)

	// replacing the champion changes its digest
	require.NoError(t, r.SaveModel(ctx, writeModel(t, `{"version":2}`), key))
	second, _, err := r.Digest(ctx, key)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	err = r.SaveModel(ctx, filepath.Join(t.TempDir(), "missing.json"), key)
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.NotEmpty(t, r.Location(key))
}

func TestLocal(t *testing.T) {
	dir := t.TempDir()
	r := NewLocal(dir)
	exerciseRegistry(t, r)
	assert.Equal(t, filepath.Join(dir, "model-registry", "model.json"), r.Location("model-registry/model.json"))
}

func TestGCS(t *testing.T) {
	r := NewGCS(cloudstorage.NewMemoryObjects("models"))
	exerciseRegistry(t, r)
	assert.Equal(t, "gs://models/model-registry/model.json", r.Location("model-registry/model.json"))
}

func TestOCI(t *testing.T) {
	r := setupOCI(t)
	exerciseRegistry(t, r)
	assert.True(t, strings.HasSuffix(r.Location("model-registry/model.json"), "/autoclaim/models:model-registry_model.json"))
}

func TestCleanKey(t *testing.T) {
	for _, key := range []string{"", "/etc/passwd", "../model.json", ".."} {
		_, err := cleanKey(key)
		assert.Error(t, err, key)
	}
	cleaned, err := cleanKey("a/./b.json")
	require.NoError(t, err)
	assert.Equal(t, "a/b.json", cleaned)
}

func TestTag(t *testing.T) {
	assert.Equal(t, "model-registry_model.json", Tag("model-registry/model.json"))
	assert.Equal(t, "champion-v1", Tag("champion v1"))
	assert.Equal(t, "latest", Tag("..."))
	assert.Len(t, Tag(strings.Repeat("a", 200)), 128)
}

func TestNewOCI_RequiresRepository(t *testing.T) {
	_, err := NewOCI(OCIOptions{})
	assert.Error(t, err)
}
