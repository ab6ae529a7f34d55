package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mikeboe/sitechat/pkg/chat"
)

type AskSiteArgs struct {
	Question string `json:"question" jsonschema:"The question to answer from the indexed website"`
}

type AskSiteResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources" jsonschema:"URLs of the pages the answer is based on"`
}

type SearchSiteArgs struct {
	Query string `json:"query" jsonschema:"The search query"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"Number of results to return (default 5)"`
}

type SearchSiteResult struct {
	Results []SearchHit `json:"results"`
}

type SearchHit struct {
	ID    string  `json:"id"`
	URL   string  `json:"url"`
	Score float32 `json:"score"`
	Text  string  `json:"text"`
}

// NewMCPServer exposes the responder as the ask_site and search_site tools.
func NewMCPServer(responder *chat.Responder, version string) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{Name: "sitechat", Version: version}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "ask_site",
		Description: "Answer a question using only content from the indexed website.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args AskSiteArgs) (*mcp.CallToolResult, AskSiteResult, error) {
		slog.Info("MCP ask_site", "question", args.Question)
		answer, err := responder.Answer(ctx, nil, args.Question)
		if err != nil {
			return nil, AskSiteResult{}, err
		}
		out := AskSiteResult{Answer: answer.Text, Sources: sourceURLs(answer)}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: answer.Text}},
		}, out, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "search_site",
		Description: "Search the indexed website with semantic search and return the best matching passages.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args SearchSiteArgs) (*mcp.CallToolResult, SearchSiteResult, error) {
		slog.Info("MCP search_site", "query", args.Query, "top_k", args.TopK)
		matches, err := responder.Search(ctx, args.Query, args.TopK)
		if err != nil {
			return nil, SearchSiteResult{}, err
		}

		out := SearchSiteResult{Results: make([]SearchHit, 0, len(matches))}
		var formatted []string
		for _, m := range matches {
			out.Results = append(out.Results, SearchHit{ID: m.ID, URL: m.Metadata.URL, Score: m.Score, Text: m.Metadata.Text})
			formatted = append(formatted, fmt.Sprintf("[Source]: %s\n[Content]: %s", m.Metadata.URL, m.Metadata.Text))
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: strings.Join(formatted, "\n\n")}},
		}, out, nil
	})

	return s
}

// NewMCPHandler serves s over the streamable HTTP transport.
func NewMCPHandler(s *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s }, nil)
}

func sourceURLs(answer *chat.Answer) []string {
	seen := make(map[string]struct{})
	urls := []string{}
	for _, m := range answer.Sources {
		if _, ok := seen[m.Metadata.URL]; ok {
			continue
		}
		seen[m.Metadata.URL] = struct{}{}
		urls = append(urls, m.Metadata.URL)
	}
	return urls
}
