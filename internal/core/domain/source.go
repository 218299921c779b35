package domain

import (
	"strings"
	"time"
)

// SourceKind identifies how a source is addressed.
type SourceKind string

const (
	// SourceKindFile is a local file path.
	SourceKindFile SourceKind = "file"

	// SourceKindURL is a web page.
	SourceKindURL SourceKind = "url"
)

// KindOf infers the kind of a source identity.
func KindOf(id string) SourceKind {
	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		return SourceKindURL
	}
	return SourceKindFile
}

// Source is an addressable unit of content: a local file or a URL.
// Sources are never deleted automatically.
type Source struct {
	// ID is the path or URL.
	ID string

	// Kind is file or url.
	Kind SourceKind

	// Fingerprint is the content hash seen at the last successful ingestion.
	Fingerprint string

	// LastProcessed is when the source was last ingested successfully.
	LastProcessed time.Time
}
