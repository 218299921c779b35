// Package file provides file-backed stores: the JSON fingerprint set and the
// append-only CSV change and query logs.
//
// Whole-file state is replaced with WriteAtomic (temp file, fsync, rename).
// Logs are append-only and opened per write so external rotation is safe.
package file
