package csv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

func TestNormalise_Rows(t *testing.T) {
	content := "\xef\xbb\xbfname,role\nAda, engineer\nGrace,admiral,extra\n"

	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		Source:  "/data/people.csv",
		Content: []byte(content),
	})
	require.NoError(t, err)

	doc := result.Document
	require.Len(t, doc.Segments, 2)
	assert.Equal(t, domain.Segment{Page: 1, Text: "name: Ada\nrole: engineer"}, doc.Segments[0])
	assert.Equal(t, domain.Segment{Page: 2, Text: "name: Grace\nrole: admiral\ncolumn_3: extra"}, doc.Segments[1])
	assert.Equal(t, 2, doc.Metadata["columns"])
	assert.Equal(t, "csv", doc.Metadata["format"])
}

func TestNormalise_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		segments int
		wantErr  bool
	}{
		{"empty file", "", 0, false},
		{"header only", "a,b\n", 0, false},
		{"quoted newline", "q,a\n\"multi\nline\",yes\n", 1, false},
		{"bare quote in field", "a\nsay \"hi\n", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := New().Normalise(context.Background(), &domain.RawDocument{Source: "x.csv", Content: []byte(tt.content)})
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Len(t, result.Document.Segments, tt.segments)
		})
	}
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
