// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - FileScanner: Discovers candidate files under a folder
//   - URLFetcher: Fetches and strips web pages
//   - Normaliser: Converts raw bytes of one format into a document
//   - NormaliserRegistry: Selects the normaliser for a MIME type
//   - PostProcessorPipeline: Turns a document into filtered, fingerprinted chunks
//   - EmbeddingService: Generates vector embeddings
//   - VectorIndexStore: Loads, creates and atomically saves vector indexes
//   - FingerprintStore: The set of already indexed content hashes
//   - SourceStore: Last-seen fingerprint per source
//   - ConfigStore: Application configuration
//   - SchedulerStore: Task state and history for the watch scheduler
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - FileWatcher: Filesystem event stream. Without it only timed sweeps run.
//   - ChangeLog, QueryLog: Append-only operator logs.
//   - CycleObserver: Metrics sink.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
