// Package mcpserver exposes the search engine as an MCP tool over stdio.
package mcpserver

import (
	"context"
	"errors"

	"briefsearch/internal/engine"
	"briefsearch/internal/search"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

const (
	Name     = "briefsearch"
	Version  = "0.1.0"
	ToolName = "web_summary"
)

var ErrMissingSearcher = errors.New("mcpserver: searcher is required")

// Searcher runs one query to completion.
type Searcher interface {
	Run(ctx context.Context, query string, settings engine.Settings) engine.Response
}

type SummaryInput struct {
	Query      string `json:"query" jsonschema:"the topic to search the web for"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"number of search results to consider, 1 to 30 (default 10)"`
	Provider   string `json:"provider,omitempty" jsonschema:"search provider: auto, duckduckgo, google_cse, wikipedia or brave"`
	SafeSearch *bool  `json:"safe_search,omitempty" jsonschema:"filter explicit results (default true)"`
}

type SummaryOutput struct {
	Summary string          `json:"summary"`
	Sources []string        `json:"sources"`
	Results []search.Result `json:"results"`
	Error   string          `json:"error,omitempty"`
}

type Server struct {
	searcher Searcher
	server   *mcp.Server
	log      zerolog.Logger
}

func New(searcher Searcher, log zerolog.Logger) (*Server, error) {
	if searcher == nil {
		return nil, ErrMissingSearcher
	}
	s := &Server{
		searcher: searcher,
		server:   mcp.NewServer(&mcp.Implementation{Name: Name, Version: Version}, nil),
		log:      log,
	}
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolName,
		Description: "Search the web for a topic and return a short cited summary with its source URLs",
	}, s.handleSummary)
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) handleSummary(ctx context.Context, _ *mcp.CallToolRequest, input SummaryInput) (*mcp.CallToolResult, SummaryOutput, error) {
	resp := s.searcher.Run(ctx, input.Query, settingsFor(input))
	if err := resp.Err(); err != nil {
		s.log.Info().Err(err).Str("run_id", resp.RunID).Msg("web_summary ended early")
	}
	out := SummaryOutput{
		Summary: resp.Summary,
		Sources: resp.Sources,
		Results: resp.Results,
		Error:   resp.Error,
	}
	// The output schema types both as arrays, so null is not allowed.
	if out.Sources == nil {
		out.Sources = []string{}
	}
	if out.Results == nil {
		out.Results = []search.Result{}
	}
	return nil, out, nil
}

// settingsFor routes tool input through the same coercion the HTTP body gets.
func settingsFor(input SummaryInput) engine.Settings {
	mapping := map[string]any{}
	if input.MaxResults != 0 {
		mapping["max_results"] = input.MaxResults
	}
	if input.Provider != "" {
		mapping["provider"] = input.Provider
	}
	if input.SafeSearch != nil {
		mapping["safe_search"] = *input.SafeSearch
	}
	return engine.SettingsFromMapping(mapping)
}
