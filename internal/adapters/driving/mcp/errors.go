// Package mcp provides an MCP (Model Context Protocol) server adapter for ragsync.
// It lets AI assistants retrieve passages from the local vector index.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
