package cloudstorage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucket_ObjectNaming(t *testing.T) {
	b := &Bucket{name: "ml-artifacts", prefix: "autoclaim"}
	assert.Equal(t, "autoclaim/training/abc.json", b.ObjectName("training/abc.json"))
	assert.Equal(t, "gs://ml-artifacts/autoclaim/training/abc.json", b.URI("training/abc.json"))

	root := &Bucket{name: "ml-artifacts"}
	assert.Equal(t, "model.json", root.ObjectName("model.json"))
	assert.Equal(t, "gs://ml-artifacts/model.json", root.URI("model.json"))
}

func TestMemoryObjects(t *testing.T) {
	ctx := context.Background()
	objs := NewMemoryObjects("bucket")

	_, found, err := objs.Stat(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, objs.Write(ctx, "a", []byte("one"), "application/json"))
	first, found, err := objs.Stat(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(3), first.Size)

	require.NoError(t, objs.Write(ctx, "a", []byte("two"), "application/json"))
	second, _, err := objs.Stat(ctx, "a")
	require.NoError(t, err)
	assert.Greater(t, second.Generation, first.Generation)
	assert.NotEqual(t, first.MD5, second.MD5)

	data, found, err := objs.Read(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "two", string(data))

	_, found, err = objs.Read(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}
