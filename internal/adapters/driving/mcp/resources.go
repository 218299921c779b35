package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for ragsync resources.
	uriScheme = "ragsync://"

	indexStatsURI   = uriScheme + "index/stats"
	ingestStatusURI = uriScheme + "ingest/status"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         indexStatsURI,
		Name:        "index-stats",
		Description: "Version, size and embedding model of the persisted vector index",
		MIMEType:    "application/json",
	}, s.handleIndexStatsResource)

	if s.ports.Ingest != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         ingestStatusURI,
			Name:        "ingest-status",
			Description: "Tracked sources, known fingerprints and the last ingestion cycle",
			MIMEType:    "application/json",
		}, s.handleIngestStatusResource)
	}
}

// indexStatsOutput is the index-stats resource body.
type indexStatsOutput struct {
	Available bool               `json:"available"`
	Stats     *domain.IndexStats `json:"stats,omitempty"`
}

// handleIndexStatsResource summarises the persisted index. A missing index
// is reported as unavailable rather than as an error.
func (s *Server) handleIndexStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stats, err := s.ports.Search.Stats(ctx)
	if err != nil && !errors.Is(err, domain.ErrIndexNotFound) {
		return nil, fmt.Errorf("reading index stats: %w", err)
	}

	return jsonResource(req.Params.URI, indexStatsOutput{Available: err == nil, Stats: stats})
}

// ingestStatusOutput is the ingest-status resource body.
type ingestStatusOutput struct {
	Running      bool                `json:"running"`
	Sources      int                 `json:"sources"`
	Fingerprints int                 `json:"fingerprints"`
	Index        *domain.IndexStats  `json:"index,omitempty"`
	LastResult   *domain.CycleResult `json:"last_result,omitempty"`
}

// handleIngestStatusResource reports ingestion state.
func (s *Server) handleIngestStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	status, err := s.ports.Ingest.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading ingest status: %w", err)
	}

	return jsonResource(req.Params.URI, ingestStatusOutput{
		Running:      status.Running,
		Sources:      status.Sources,
		Fingerprints: status.Fingerprints,
		Index:        status.Index,
		LastResult:   status.LastResult,
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
