package minwords

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestProcess_Threshold(t *testing.T) {
	tests := []struct {
		name  string
		words int
		kept  bool
	}{
		{"below minimum", 19, false},
		{"exactly minimum", 20, true},
		{"above minimum", 21, true},
		{"empty", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := []domain.Chunk{{Text: words(tt.words)}}
			out, err := New(20).Process(context.Background(), nil, chunks)
			require.NoError(t, err)
			assert.Equal(t, tt.kept, len(out) == 1)
		})
	}
}

func TestProcess_PreservesOrder(t *testing.T) {
	chunks := []domain.Chunk{
		{Index: 0, Text: words(3)},
		{Index: 1, Text: "too short"},
		{Index: 2, Text: words(5)},
	}

	out, err := New(3).Process(context.Background(), nil, chunks)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 0, out[0].Index)
	assert.Equal(t, 2, out[1].Index)
}

func TestNew_NegativeUsesDefault(t *testing.T) {
	assert.Equal(t, DefaultMinWords, New(-5).MinWords())
	assert.Equal(t, 0, New(0).MinWords())
	assert.Equal(t, "minwords", New(1).Name())
}
