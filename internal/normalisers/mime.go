package normalisers

import (
	"path/filepath"
	"sort"
	"strings"
)

// MIME types of the supported source formats.
const (
	MIMEPlainText = "text/plain"
	MIMEMarkdown  = "text/markdown"
	MIMECSV       = "text/csv"
	MIMEHTML      = "text/html"
	MIMEPDF       = "application/pdf"
	MIMEDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEPPTX      = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MIMEPPT       = "application/vnd.ms-powerpoint"
)

// extensionTypes is the closed dispatch table for local files.
// Anything not listed here is unsupported.
var extensionTypes = map[string]string{
	".pdf":  MIMEPDF,
	".txt":  MIMEPlainText,
	".md":   MIMEMarkdown,
	".csv":  MIMECSV,
	".docx": MIMEDOCX,
	".pptx": MIMEPPTX,
	".ppt":  MIMEPPT,
}

// MIMETypeForPath returns the MIME type for a file path by extension.
// The second return value is false for unsupported extensions.
func MIMETypeForPath(path string) (string, bool) {
	mime, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]
	return mime, ok
}

// IsSupportedPath reports whether the file extension is in the dispatch table.
func IsSupportedPath(path string) bool {
	_, ok := MIMETypeForPath(path)
	return ok
}

// SupportedExtensions returns the supported extensions in sorted order.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionTypes))
	for ext := range extensionTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
