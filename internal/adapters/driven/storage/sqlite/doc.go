// Package sqlite provides a SQLite-backed implementation of the metadata
// stores.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. A single database connection serves:
//
//   - SourceStore: last-seen fingerprint per file or URL
//   - FingerprintStore: the set of indexed chunk hashes (sqlite backend)
//   - SchedulerStore: scheduled task state and run history
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.ragsync/data/metadata.db
//
// # Thread Safety
//
// All operations are thread-safe. The store relies on SQLite WAL mode and a
// busy timeout for concurrent readers and writers.
package sqlite
