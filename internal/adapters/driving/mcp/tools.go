package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// defaultK is the number of passages returned when the caller omits k.
const defaultK = 5

// SearchInput is the input schema for the similarity_search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the question or text to find similar passages for"`
	K     int    `json:"k,omitempty" jsonschema:"number of passages to return (default 5)"`
}

// SearchOutput is the output schema for the similarity_search tool.
type SearchOutput struct {
	// IndexAvailable is false when nothing has been ingested yet. Callers
	// should answer without retrieved context in that case.
	IndexAvailable bool                 `json:"index_available"`
	Message        string               `json:"message,omitempty"`
	Results        []SearchResultOutput `json:"results"`
	Count          int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved passage.
type SearchResultOutput struct {
	Text     string  `json:"text"`
	Source   string  `json:"source"`
	Page     int     `json:"page,omitempty"`
	Distance float64 `json:"distance"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "similarity_search",
		Description: "Find the indexed passages closest in meaning to a query",
	}, s.handleSearch)
}

// handleSearch handles the similarity_search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	k := input.K
	if k <= 0 {
		k = defaultK
	}

	results, err := s.ports.Search.Search(ctx, input.Query, k)
	if errors.Is(err, domain.ErrIndexNotFound) {
		return nil, SearchOutput{
			IndexAvailable: false,
			Message:        "no index has been built yet; answer without retrieved context",
			Results:        []SearchResultOutput{},
		}, nil
	}
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		IndexAvailable: true,
		Results:        make([]SearchResultOutput, len(results)),
		Count:          len(results),
	}

	for i := range results {
		output.Results[i] = SearchResultOutput{
			Text:     results[i].Text,
			Source:   results[i].Source,
			Page:     results[i].Page,
			Distance: results[i].Distance,
		}
	}

	return nil, output, nil
}
