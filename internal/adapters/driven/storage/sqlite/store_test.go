package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// setupTestStore creates a store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewStore(t *testing.T) {
	t.Run("requires data dir", func(t *testing.T) {
		_, err := NewStore("")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("reopen keeps data and does not rerun migrations", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(dir)
		require.NoError(t, err)
		require.NoError(t, store.SourceStore().Save(context.Background(), domain.Source{ID: "/a.txt", Fingerprint: "h"}))
		require.NoError(t, store.Close())

		reopened, err := NewStore(dir)
		require.NoError(t, err)
		defer reopened.Close()

		got, err := reopened.SourceStore().Get(context.Background(), "/a.txt")
		require.NoError(t, err)
		assert.Equal(t, "h", got.Fingerprint)

		var versions int
		require.NoError(t, reopened.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
		assert.Equal(t, 1, versions)
	})
}

func TestSourceStore(t *testing.T) {
	store := setupTestStore(t)
	sources := store.SourceStore()
	ctx := context.Background()

	_, err := sources.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, sources.Save(ctx, domain.Source{}), domain.ErrInvalidInput)

	processed := time.Date(2024, 5, 1, 12, 0, 0, 500, time.UTC)
	require.NoError(t, sources.Save(ctx, domain.Source{ID: "/z.pdf", Fingerprint: "1", LastProcessed: processed}))
	require.NoError(t, sources.Save(ctx, domain.Source{ID: "https://example.com/page", Fingerprint: "u"}))
	require.NoError(t, sources.Save(ctx, domain.Source{ID: "/z.pdf", Fingerprint: "2", LastProcessed: processed}))

	got, err := sources.Get(ctx, "/z.pdf")
	require.NoError(t, err)
	assert.Equal(t, "2", got.Fingerprint)
	assert.Equal(t, domain.SourceKindFile, got.Kind)
	assert.True(t, processed.Equal(got.LastProcessed))

	list, err := sources.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "/z.pdf", list[0].ID)
	assert.Equal(t, domain.SourceKindURL, list[1].Kind)
	assert.True(t, list[1].LastProcessed.IsZero())
}

func TestFingerprintStore(t *testing.T) {
	store := setupTestStore(t)
	fps := store.FingerprintStore()
	ctx := context.Background()

	n, err := fps.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, fps.AddAll(ctx, []string{"a", "b", "a"}))
	require.NoError(t, fps.AddAll(ctx, []string{"b", "c"}))

	n, err = fps.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	tests := []struct {
		hash string
		want bool
	}{
		{"a", true},
		{"c", true},
		{"d", false},
	}
	for _, tt := range tests {
		t.Run(tt.hash, func(t *testing.T) {
			ok, err := fps.Contains(ctx, tt.hash)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	require.NoError(t, fps.Replace(ctx, []string{"x"}))
	n, _ = fps.Count(ctx)
	assert.Equal(t, 1, n)
	ok, _ := fps.Contains(ctx, "a")
	assert.False(t, ok)
}

func TestFingerprintStore_FailedTransactionRollsBack(t *testing.T) {
	store := setupTestStore(t)
	fps := store.FingerprintStore()
	require.NoError(t, fps.AddAll(context.Background(), []string{"keep"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, fps.Replace(ctx, []string{"new"}))

	ok, err := fps.Contains(context.Background(), "keep")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNullableTime(t *testing.T) {
	assert.Nil(t, formatNullableTime(time.Time{}))

	ts := time.Date(2024, 1, 2, 3, 4, 5, 6, time.FixedZone("X", 3600))
	formatted := formatNullableTime(ts)
	assert.Equal(t, "2024-01-02T02:04:05.000000006Z", formatted)

	parsed := parseNullableTime(sql.NullString{String: formatted.(string), Valid: true})
	assert.True(t, ts.Equal(parsed))

	assert.True(t, parseNullableTime(sql.NullString{}).IsZero())
	assert.True(t, parseNullableTime(sql.NullString{String: "garbage", Valid: true}).IsZero())
}

func TestFormatTime_SortsLexically(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC)
	later := base.Add(500 * time.Millisecond)
	assert.Less(t, formatTime(base), formatTime(later))
}
