package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// createTestDOCX creates a minimal DOCX archive in memory.
func createTestDOCX(t *testing.T, documentXML, coreXML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	if documentXML != "" {
		f, err := w.Create("word/document.xml")
		require.NoError(t, err)
		_, err = f.Write([]byte(documentXML))
		require.NoError(t, err)
	}
	if coreXML != "" {
		f, err := w.Create("docProps/core.xml")
		require.NoError(t, err)
		_, err = f.Write([]byte(coreXML))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

const body = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Hello </w:t></w:r><w:r><w:t>World</w:t></w:r></w:p>
<w:p><w:r><w:t>Second</w:t><w:tab/><w:t>line</w:t></w:r></w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>In a table</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
</w:body>
</w:document>`

const core = `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Quarterly Plan</dc:title>
</cp:coreProperties>`

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawDocument{
		Source:  "/docs/plan.docx",
		Content: createTestDOCX(t, body, core),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, "Quarterly Plan", doc.Title)
	assert.Equal(t, "Hello World\nSecond\tline\nIn a table", doc.Content())
	assert.Equal(t, "docx", doc.Metadata["format"])
}

func TestNormalise_TitleFallbackToFilename(t *testing.T) {
	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		Source:  "/docs/meeting_notes.docx",
		Content: createTestDOCX(t, body, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, "meeting notes", result.Document.Title)
}

func TestNormalise_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  *domain.RawDocument
	}{
		{"nil", nil},
		{"not a zip", &domain.RawDocument{Source: "x.docx", Content: []byte("plain text")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Normalise(context.Background(), tt.raw)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestNormalise_MissingBody(t *testing.T) {
	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		Source:  "/docs/empty.docx",
		Content: createTestDOCX(t, "", core),
	})
	require.NoError(t, err)
	assert.True(t, result.Document.IsEmpty())
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
