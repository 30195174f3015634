package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/deckgen/idgen"
	"github.com/hazyhaar/deckgen/kit"
	"github.com/hazyhaar/deckgen/mediafetch"
)

// RegisterMCP registers the deckgen tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerGenerateTool(srv)
	p.registerFetchMediaTool(srv)
}

// ServeMCP runs the MCP server over stdio until the context ends.
func (p *Pipeline) ServeMCP(ctx context.Context) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "deckgen",
		Version: "1.0.0",
	}, nil)
	p.RegisterMCP(srv)
	p.logger.Info("mcp serving", "transport", "stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}

// instrument is the shared middleware stack for MCP endpoints: request ID
// assignment, then call logging with the outcome and duration.
func (p *Pipeline) instrument(name string, ep kit.Endpoint) kit.Endpoint {
	requestID := func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			return next(kit.WithRequestID(ctx, idgen.New()), req)
		}
	}
	logging := func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			started := time.Now()
			resp, err := next(ctx, req)
			p.logger.Info("mcp tool call",
				"tool", name,
				"request_id", kit.GetRequestID(ctx),
				"duration_ms", time.Since(started).Milliseconds(),
				"ok", err == nil)
			return resp, err
		}
	}
	return kit.Chain(requestID, logging)(ep)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- generate ---

type generateReq struct {
	TemplatePath string `json:"template_path"`
}

func (p *Pipeline) registerGenerateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "deckgen_generate",
		Description: "Generate a slide deck from a proposal template file (markdown or html). Returns the run manifest with output paths.",
		InputSchema: inputSchema(map[string]any{
			"template_path": map[string]any{"type": "string", "description": "Path to the proposal template; empty uses the configured default"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*generateReq)
		return p.Run(ctx, r.TemplatePath)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r generateReq
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		enrich := func(ctx context.Context) context.Context {
			return kit.WithTransport(ctx, "mcp")
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: enrich}, nil
	}

	kit.RegisterMCPTool(srv, tool, p.instrument(tool.Name, endpoint), decode)
}

// --- fetch media ---

type fetchMediaReq struct {
	URL        string `json:"url"`
	Kind       string `json:"kind"`
	OutputPath string `json:"output_path"`
}

func (p *Pipeline) registerFetchMediaTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "deckgen_fetch_media",
		Description: "Fetch a single image or video from a share link through the acquisition ladder. Returns the fetch outcome.",
		InputSchema: inputSchema(map[string]any{
			"url":         map[string]any{"type": "string", "description": "Share link or direct URL"},
			"kind":        map[string]any{"type": "string", "description": "image or video"},
			"output_path": map[string]any{"type": "string", "description": "Destination file path"},
		}, []string{"kind", "output_path"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*fetchMediaReq)
		kind := mediafetch.Kind(r.Kind)
		if kind != mediafetch.KindImage && kind != mediafetch.KindVideo {
			return nil, fmt.Errorf("pipeline: kind must be image or video, got %q", r.Kind)
		}
		fetcher := mediafetch.New(mediafetch.Config{
			HTTPTimeout:  p.cfg.httpTimeout(),
			DownloadWait: p.cfg.downloadWait(),
			Logger:       p.logger,
		})
		out := fetcher.Fetch(ctx, mediafetch.Reference{URL: r.URL, Kind: kind}, r.OutputPath)
		return out, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r fetchMediaReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		enrich := func(ctx context.Context) context.Context {
			return kit.WithTransport(ctx, "mcp")
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: enrich}, nil
	}

	kit.RegisterMCPTool(srv, tool, p.instrument(tool.Name, endpoint), decode)
}
