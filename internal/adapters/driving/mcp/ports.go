package mcp

import (
	"github.com/custodia-labs/ragsync/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search answers similarity queries over the persisted index.
	Search driving.SearchService

	// Ingest reports ingestion state. Optional; the status resource is
	// only registered when set.
	Ingest driving.Ingestor
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
