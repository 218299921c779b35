package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintStore_MissingFileIsEmpty(t *testing.T) {
	store := NewFingerprintStore(filepath.Join(t.TempDir(), "fingerprints.json"))
	ctx := context.Background()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	ok, err := store.Contains(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoFileExists(t, store.Path())
}

func TestFingerprintStore_AddAllPersistsSorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fingerprints.json")
	store := NewFingerprintStore(path)
	ctx := context.Background()

	require.NoError(t, store.AddAll(ctx, []string{"c", "a"}))
	require.NoError(t, store.AddAll(ctx, []string{"b", "a"}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fingerprints":["a","b","c"]}`, string(data))

	// A fresh store sees the persisted set.
	reopened := NewFingerprintStore(path)
	ok, err := reopened.Contains(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFingerprintStore_Replace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fingerprints.json")
	store := NewFingerprintStore(path)
	ctx := context.Background()

	require.NoError(t, store.AddAll(ctx, []string{"old1", "old2"}))
	require.NoError(t, store.Replace(ctx, []string{"new"}))

	for _, tt := range []struct {
		hash string
		want bool
	}{
		{"old1", false},
		{"old2", false},
		{"new", true},
	} {
		t.Run(tt.hash, func(t *testing.T) {
			ok, err := NewFingerprintStore(path).Contains(ctx, tt.hash)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestFingerprintStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fingerprints.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, err := NewFingerprintStore(path).Contains(context.Background(), "x")
	assert.Error(t, err)
}

func TestFingerprintStore_FailedWriteKeepsMemoryState(t *testing.T) {
	dir := t.TempDir()
	// The target path is a non-empty directory so the rename fails.
	path := filepath.Join(dir, "fingerprints.json")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "child"), 0700))

	store := NewFingerprintStore(filepath.Join(dir, "other.json"))
	require.NoError(t, store.AddAll(context.Background(), []string{"a"}))

	store.path = path
	assert.Error(t, store.AddAll(context.Background(), []string{"b"}))

	ok, err := store.Contains(context.Background(), "b")
	require.NoError(t, err)
	assert.False(t, ok)
}
