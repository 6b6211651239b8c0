// Package mcpserver exposes the capture pipeline as MCP tools, so an
// agent runtime can save snippets and query annotations through the same
// relay path the browser surfaces use.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/marginote/marginote/envelope"
)

// Bridge registers capture tools backed by a relay channel.
type Bridge struct {
	ch     envelope.Channel
	logger *slog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// New creates a Bridge over a relay channel.
func New(ch envelope.Channel, opts ...Option) *Bridge {
	b := &Bridge{ch: ch, logger: slog.Default()}
	for _, o := range opts {
		o(b)
	}
	return b
}

// NewServer builds an MCP server with every capture tool registered.
func NewServer(ch envelope.Channel, opts ...Option) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "marginote", Version: "0.1.0"}, nil)
	New(ch, opts...).Register(srv)
	return srv
}

// Register adds the capture tools on srv.
func (b *Bridge) Register(srv *mcp.Server) {
	b.registerSubmitTool(srv)
	b.registerAnnotationsTool(srv)
	b.registerRecentTool(srv)
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

type submitArgs struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	SourceURL string   `json:"source_url"`
	Tags      []string `json:"tags,omitempty"`
	Note      string   `json:"note,omitempty"`
}

func (b *Bridge) registerSubmitTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "marginote_submit",
		Description: "Save a text snippet as a capture card on the blog.",
		InputSchema: inputSchema(map[string]any{
			"title":      map[string]any{"type": "string", "description": "Title of the source page"},
			"content":    map[string]any{"type": "string", "description": "Captured text"},
			"source_url": map[string]any{"type": "string", "description": "URL of the source page"},
			"tags":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Optional tags, in order"},
			"note":       map[string]any{"type": "string", "description": "Optional note appended to the capture"},
		}, []string{"content", "source_url"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args submitArgs
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return errResult(fmt.Errorf("invalid arguments: %w", err)), nil
		}

		record := envelope.CaptureRecord{
			Title:     args.Title,
			Content:   args.Content,
			SourceURL: args.SourceURL,
			Tags:      args.Tags,
			Kind:      envelope.RecordCapture,
		}
		if record.Tags == nil {
			record.Tags = []string{}
		}
		if args.Note != "" {
			record.Content += "\n\nNote: " + args.Note
			record.Kind = envelope.RecordNote
		}

		var res envelope.SubmitResult
		if err := b.call(ctx, envelope.SubmitRequest{Record: record}, &res); err != nil {
			return errResult(err), nil
		}
		return textResult(res)
	})
}

type annotationsArgs struct {
	URL string `json:"url"`
}

func (b *Bridge) registerAnnotationsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "marginote_get_annotations",
		Description: "List the stored highlights and notes for a page URL.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Page URL to look up"},
		}, []string{"url"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args annotationsArgs
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return errResult(fmt.Errorf("invalid arguments: %w", err)), nil
		}

		var res envelope.AnnotationsResult
		if err := b.call(ctx, envelope.GetAnnotationsRequest{URL: args.URL}, &res); err != nil {
			return errResult(err), nil
		}
		return textResult(res)
	})
}

type recentArgs struct {
	Limit int `json:"limit,omitempty"`
}

func (b *Bridge) registerRecentTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "marginote_recent",
		Description: "List the most recent capture cards.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max cards to return (default 10)"},
		}, nil),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args recentArgs
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errResult(fmt.Errorf("invalid arguments: %w", err)), nil
			}
		}

		var res envelope.RecentResult
		if err := b.call(ctx, envelope.RecentRequest{Limit: args.Limit}, &res); err != nil {
			return errResult(err), nil
		}
		return textResult(res)
	})
}

// call runs one relay round-trip and decodes the data payload into out.
func (b *Bridge) call(ctx context.Context, req envelope.Request, out any) error {
	resp, err := b.ch.Call(ctx, req)
	if err != nil {
		b.logger.Warn("relay call failed", "action", req.Action(), "error", err)
		return err
	}
	if !resp.Success {
		return errors.New(resp.Error)
	}
	return resp.DecodeData(out)
}

func errResult(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}

func textResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errResult(fmt.Errorf("marshal: %w", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}
