// Package connectors holds the source-side adapters of the pipeline: the
// filesystem scanner and watcher, and the web page fetcher. Each one
// implements a driven port and knows nothing about chunking or indexing.
package connectors
