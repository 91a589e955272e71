package minio

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/matprop/artifact"
)

// TestStore_Integration needs a reachable MinIO server. It reads
// MATPROP_MINIO_ENDPOINT (default localhost:9000) and skips otherwise.
func TestStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MATPROP_MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	dialCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	ctx := context.Background()

	store, err := Dial(dialCtx, Options{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "matprop-test",
		Prefix:    "it/",
	})
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	name := artifact.Name("d33 (pC/N)", artifact.Candidate)
	require.NoError(t, store.Put(ctx, name, []byte("payload")))

	ok, err := store.Exists(ctx, name)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Get(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	prod := artifact.Name("d33 (pC/N)", artifact.Production)
	require.NoError(t, store.Rename(ctx, name, prod))

	_, err = store.Get(ctx, name)
	assert.ErrorIs(t, err, artifact.ErrNotFound)
	got, err = store.Get(ctx, prod)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	assert.ErrorIs(t, store.Rename(ctx, name, prod), artifact.ErrNotFound)
	require.NoError(t, store.Delete(ctx, prod))
	require.NoError(t, store.Delete(ctx, prod))
}
