// Package flatfile provides an exact nearest-neighbour vector index persisted
// as versioned flat files.
//
// Layout of an index directory:
//
//	CURRENT            active version id
//	<version>.vec      binary header followed by little-endian float32 rows
//	<version>.json     manifest with model, dimensions and chunk payloads
//
// Saving writes and syncs a new version, then swaps CURRENT with a rename.
// A reader resolves CURRENT once, so it observes either the previous or the
// new version and never a partially written one.
package flatfile
