package normalisers

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// Metadata keys set on every normalised document.
const (
	MetaSource     = "source"
	MetaIngestedBy = "ingested_by"
	MetaMIMEType   = "mime_type"
	MetaFormat     = "format"
)

// NewDocument builds a document from a raw document and its decoded segments.
// Source metadata is copied so the raw document can be discarded.
func NewDocument(raw *domain.RawDocument, title, format string, segments []domain.Segment) domain.Document {
	origin := raw.Origin
	if !origin.IsValid() {
		origin = domain.OriginBackend
	}

	metadata := make(map[string]any, len(raw.Metadata)+4)
	for k, v := range raw.Metadata {
		metadata[k] = v
	}
	metadata[MetaSource] = raw.Source
	metadata[MetaIngestedBy] = origin.String()
	metadata[MetaMIMEType] = raw.MIMEType
	metadata[MetaFormat] = format

	if title == "" {
		title = TitleFromMetadataOrSource(raw)
	}

	return domain.Document{
		ID:       uuid.New().String(),
		Source:   raw.Source,
		Title:    title,
		Origin:   origin,
		Segments: segments,
		Metadata: metadata,
		LoadedAt: time.Now(),
	}
}

// TitleFromMetadataOrSource checks metadata for a title first, then falls
// back to the source path.
func TitleFromMetadataOrSource(raw *domain.RawDocument) string {
	if raw.Metadata != nil {
		if title, ok := raw.Metadata["title"].(string); ok && title != "" {
			return title
		}
	}
	return TitleFromPath(raw.Source)
}

// TitleFromPath derives a human-readable title from a file name.
func TitleFromPath(path string) string {
	filename := filepath.Base(path)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// SingleSegment wraps text as one page-less segment.
func SingleSegment(text string) []domain.Segment {
	return []domain.Segment{{Page: 0, Text: text}}
}
