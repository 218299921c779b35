package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragsync/internal/core/domain"
)

func chunksOf(texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{ID: text, Index: i, Text: text}
	}
	return chunks
}

func chunkTexts(chunks []domain.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}

func TestChangeDetector_Filter(t *testing.T) {
	tests := []struct {
		name        string
		stored      []string
		dedup       bool
		input       []string
		wantKept    []string
		wantDropped int
	}{
		{
			name:     "all new",
			dedup:    true,
			input:    []string{"alpha", "beta"},
			wantKept: []string{"alpha", "beta"},
		},
		{
			name:        "stored chunk dropped",
			stored:      []string{"beta"},
			dedup:       true,
			input:       []string{"alpha", "beta", "gamma"},
			wantKept:    []string{"alpha", "gamma"},
			wantDropped: 1,
		},
		{
			name:        "repeat within batch dropped",
			dedup:       true,
			input:       []string{"alpha", "beta", "alpha"},
			wantKept:    []string{"alpha", "beta"},
			wantDropped: 1,
		},
		{
			name:        "whitespace does not change identity",
			dedup:       true,
			input:       []string{"alpha", "  alpha\n"},
			wantKept:    []string{"alpha"},
			wantDropped: 1,
		},
		{
			name:     "dedup disabled keeps everything",
			stored:   []string{"beta"},
			dedup:    false,
			input:    []string{"alpha", "beta", "alpha"},
			wantKept: []string{"alpha", "beta", "alpha"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashes := make([]string, len(tt.stored))
			for i, s := range tt.stored {
				hashes[i] = domain.Fingerprint(s)
			}
			d := NewChangeDetector(memory.NewFingerprintStore(hashes...), tt.dedup)

			kept, dropped, err := d.Filter(context.Background(), chunksOf(tt.input...))
			require.NoError(t, err)
			assert.Equal(t, tt.wantKept, chunkTexts(kept))
			assert.Equal(t, tt.wantDropped, dropped)
			for _, c := range kept {
				assert.Equal(t, domain.Fingerprint(c.Text), c.Fingerprint)
			}
		})
	}
}

func TestChangeDetector_IsNew(t *testing.T) {
	ctx := context.Background()
	d := NewChangeDetector(memory.NewFingerprintStore(domain.Fingerprint("known")), true)

	isNew, err := d.IsNew(ctx, domain.Fingerprint("known"))
	require.NoError(t, err)
	assert.False(t, isNew)

	isNew, err = d.IsNew(ctx, domain.Fingerprint("unknown"))
	require.NoError(t, err)
	assert.True(t, isNew)

	disabled := NewChangeDetector(memory.NewFingerprintStore(domain.Fingerprint("known")), false)
	isNew, err = disabled.IsNew(ctx, domain.Fingerprint("known"))
	require.NoError(t, err)
	assert.True(t, isNew)
}

func TestChangeDetector_URLCache(t *testing.T) {
	d := NewChangeDetector(memory.NewFingerprintStore(), true)
	url := "https://example.com/page"

	assert.False(t, d.URLUnchanged(url, "h1"))
	d.RememberURL(url, "h1")
	assert.True(t, d.URLUnchanged(url, "h1"))
	assert.False(t, d.URLUnchanged(url, "h2"))

	d.ForgetURLs()
	assert.False(t, d.URLUnchanged(url, "h1"))
}

func TestChangeDetector_Commit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewFingerprintStore("old")
	d := NewChangeDetector(store, true)

	require.NoError(t, d.Commit(ctx, []string{"a", "b"}, false))
	count, err := d.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, d.Commit(ctx, []string{"c"}, true))
	count, err = d.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	store.FailWrites = errors.New("disk full")
	err = d.Commit(ctx, []string{"d"}, false)
	assert.ErrorContains(t, err, "disk full")
}
