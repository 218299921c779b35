package domain

// RawDocument represents opaque bytes read from a file or fetched from a URL.
// It is the loader's input to normalisation.
type RawDocument struct {
	// Source is the file path or URL.
	Source string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Origin tags the content as frontend or backend.
	Origin Origin

	// Metadata contains loader-specific key-value pairs.
	Metadata map[string]any
}

// ChangeType represents the kind of filesystem change observed by the watcher.
type ChangeType string

const (
	// ChangeCreated indicates a new file.
	ChangeCreated ChangeType = "Created"

	// ChangeModified indicates a modified file.
	ChangeModified ChangeType = "Modified"

	// ChangeDeleted indicates a removed file.
	ChangeDeleted ChangeType = "Deleted"

	// ChangeCronDetected indicates a change found by the periodic sweep.
	ChangeCronDetected ChangeType = "Cron Detected Change"
)

// TriggersIngestion reports whether the change should start an ingestion cycle.
// Deletions are only logged.
func (c ChangeType) TriggersIngestion() bool {
	return c == ChangeCreated || c == ChangeModified || c == ChangeCronDetected
}

// FileChange is a change event emitted by the filesystem watcher.
type FileChange struct {
	// Type is the kind of change.
	Type ChangeType

	// Path is the affected file.
	Path string
}
