package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/tracesim/blobstore"
	"github.com/hupe1980/tracesim/blobstore/minio"
	"github.com/hupe1980/tracesim/blobstore/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Local(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "run.trace")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	for _, loc := range []string{p, "file://" + filepath.ToSlash(p)} {
		got, err := Resolve(context.Background(), loc, Config{})
		require.NoError(t, err, loc)

		assert.Equal(t, "run.trace", got.Name)
		ls, ok := got.Store.(*blobstore.LocalStore)
		require.True(t, ok)
		assert.Equal(t, filepath.Clean(dir), filepath.Clean(ls.Root()))

		blob, err := got.Store.Open(context.Background(), got.Name)
		require.NoError(t, err)
		assert.Equal(t, int64(1), blob.Size())
		require.NoError(t, blob.Close())
	}
}

func TestResolve_RelativePath(t *testing.T) {
	got, err := Resolve(context.Background(), "report.csv", Config{})
	require.NoError(t, err)
	assert.Equal(t, "report.csv", got.Name)
	assert.Equal(t, ".", got.Store.(*blobstore.LocalStore).Root())
}

func TestResolve_ObjectStores(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	got, err := Resolve(context.Background(), "s3://bucket/traces/2024/run.trace.zst", Config{})
	require.NoError(t, err)
	assert.Equal(t, "run.trace.zst", got.Name)
	assert.IsType(t, &s3.Store{}, got.Store)

	got, err = Resolve(context.Background(), "minio://bucket/run.trace", Config{
		MinIO: minio.Config{Endpoint: "localhost:9000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "run.trace", got.Name)
	assert.IsType(t, &minio.Store{}, got.Store)
}

func TestResolve_Invalid(t *testing.T) {
	ctx := context.Background()

	_, err := Resolve(ctx, "", Config{})
	assert.Error(t, err)

	_, err = Resolve(ctx, "gs://bucket/key", Config{})
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, err = Resolve(ctx, "s3://bucket", Config{})
	assert.Error(t, err)

	_, err = Resolve(ctx, "s3://bucket/dir/", Config{})
	assert.Error(t, err)
}
