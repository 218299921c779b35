// Package csv converts comma separated files into one segment per row.
package csv

import (
	"bytes"
	"context"
	encsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles CSV documents. The first record is the header; every
// following record becomes a segment of "column: value" lines whose page is
// the 1-based row number.
type Normaliser struct{}

// New creates a new CSV normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{normalisers.MIMECSV}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise parses the CSV content.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader := encsv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw.Content, []byte("\xef\xbb\xbf"))))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &driven.NormaliseResult{Document: normalisers.NewDocument(raw, "", "csv", nil)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w: %v", domain.ErrInvalidInput, err)
	}

	var segments []domain.Segment
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w: %v", row, domain.ErrInvalidInput, err)
		}
		segments = append(segments, domain.Segment{Page: row, Text: formatRow(header, record)})
	}

	doc := normalisers.NewDocument(raw, "", "csv", segments)
	doc.Metadata["columns"] = len(header)
	return &driven.NormaliseResult{Document: doc}, nil
}

// formatRow renders a record as "column: value" lines. Extra values beyond
// the header are labelled by position.
func formatRow(header, record []string) string {
	var b strings.Builder
	for i, value := range record {
		name := fmt.Sprintf("column_%d", i+1)
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			name = strings.TrimSpace(header[i])
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(value))
	}
	return b.String()
}
