package pdf

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	args   []string
	input  []byte
}

func (m *mockRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	m.args = args
	if len(args) >= 2 {
		m.input, _ = os.ReadFile(args[len(args)-2])
	}
	return m.output, m.err
}

func TestNormalise_Pages(t *testing.T) {
	runner := &mockRunner{output: []byte("Annual Report\nPage one body\fPage two body\f\fPage four\f")}
	raw := &domain.RawDocument{
		Source:   "/docs/report.pdf",
		MIMEType: "application/pdf",
		Content:  []byte("%PDF-1.4 fake"),
	}

	result, err := NewWithRunner(runner).Normalise(context.Background(), raw)
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, []domain.Segment{
		{Page: 1, Text: "Annual Report\nPage one body"},
		{Page: 2, Text: "Page two body"},
		{Page: 3, Text: ""},
		{Page: 4, Text: "Page four"},
	}, doc.Segments)
	assert.Equal(t, "Annual Report", doc.Title)
	assert.Equal(t, 4, doc.Metadata["pages"])
	assert.Equal(t, "pdf", doc.Metadata["format"])
	assert.Equal(t, []byte("%PDF-1.4 fake"), runner.input, "runner must see the PDF bytes")
	assert.Equal(t, "-layout", runner.args[0])
}

func TestNormalise_RunnerError(t *testing.T) {
	runner := &mockRunner{err: errors.New("pdftotext crashed")}

	result, err := NewWithRunner(runner).Normalise(context.Background(), &domain.RawDocument{Source: "a.pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
	assert.Nil(t, result)
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := NewWithRunner(&mockRunner{}).Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name     string
		segments []domain.Segment
		want     string
	}{
		{"first line", []domain.Segment{{Page: 1, Text: "Title\nbody"}}, "Title"},
		{"skip blank lines", []domain.Segment{{Page: 1, Text: "\n\n  Real Title\n"}}, "Real Title"},
		{"skip long line", []domain.Segment{{Page: 1, Text: strings.Repeat("x", 250) + "\nShort"}}, "Short"},
		{"no pages", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractTitle(tt.segments))
		})
	}
}

func TestSplitPages_NoFormFeed(t *testing.T) {
	assert.Equal(t, []domain.Segment{{Page: 1, Text: "only page"}}, splitPages("only page\n"))
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

func TestNormalise_Integration(t *testing.T) {
	if err := CheckAvailable(); err != nil {
		t.Skip("pdftotext not available, skipping integration test")
	}
	_, err := New().Normalise(context.Background(), &domain.RawDocument{Source: "bad.pdf", Content: []byte("not a pdf")})
	assert.Error(t, err)
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
