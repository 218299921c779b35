// Package file provides the TOML configuration store.
//
// Keys use dot notation ("chunking.size") and are written back as nested
// TOML tables, so the file stays readable and hand-editable:
//
//	[chunking]
//	size = 500
//	overlap = 50
package file
