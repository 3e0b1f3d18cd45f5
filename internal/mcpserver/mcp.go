// Package mcpserver exposes document navigation as MCP tools so agent
// runtimes can open, read and edit documents over stdio.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/docnav/internal/builder"
	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/editor"
	"github.com/dgallion1/docnav/internal/host"
	"github.com/dgallion1/docnav/internal/scope"
	"github.com/dgallion1/docnav/internal/serialize"
	"github.com/dgallion1/docnav/internal/session"
	"github.com/dgallion1/docnav/internal/source"
)

// Version reported in the MCP handshake.
const Version = "0.3.0"

// Service wires the session store and core engines into MCP tools.
type Service struct {
	sessions *session.Store
	builder  *builder.Builder
	editor   *editor.Editor
	log      *slog.Logger
}

// New creates the MCP tool service.
func New(sessions *session.Store, log *slog.Logger) *Service {
	return &Service{
		sessions: sessions,
		builder:  builder.New(log),
		editor:   editor.New(log),
		log:      log,
	}
}

// NewServer builds an MCP server with every docnav tool registered.
func (s *Service) NewServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "docnav", Version: Version}, nil)
	s.registerOpenTool(srv)
	s.registerReadTool(srv)
	s.registerFindTool(srv)
	s.registerEditTool(srv)
	s.registerChangesTool(srv)
	s.registerCloseTool(srv)
	return srv
}

// ServeStdio runs the server over stdio until the context ends.
func (s *Service) ServeStdio(ctx context.Context) error {
	return s.NewServer().Run(ctx, &mcp.StdioTransport{})
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sc["required"] = required
	}
	return sc
}

// register binds a typed handler as an MCP tool. Handler errors become
// tool errors, never protocol errors.
func register[T any](srv *mcp.Server, tool *mcp.Tool, handler func(ctx context.Context, req *T) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r T
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}
		resp, err := handler(ctx, &r)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}
		if text, ok := resp.(string); ok {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: text}},
			}, nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func (s *Service) session(id string) (*session.Session, error) {
	sess := s.sessions.Get(id)
	if sess == nil {
		return nil, fmt.Errorf("session %q not found", id)
	}
	return sess, nil
}

// --- open ---

type openReq struct {
	Path string `json:"path"`
}

func (s *Service) registerOpenTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "doctree_open",
		Description: "Open a document file (.docx, .md, .html, .txt, .csv, .pdf) and return a session ID for reading and editing it.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Path to the document file"},
		}, []string{"path"}),
	}

	register(srv, tool, func(_ context.Context, r *openReq) (any, error) {
		if !source.IsSupportedExtension(r.Path) {
			return nil, fmt.Errorf("unsupported file type: %s", r.Path)
		}
		data, err := os.ReadFile(r.Path)
		if err != nil {
			return nil, err
		}
		loader, err := source.ForFile(r.Path)
		if err != nil {
			return nil, err
		}
		doc, err := loader.Load(bytes.NewReader(data), r.Path)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", r.Path, err)
		}
		sess, err := s.sessions.Open(r.Path, doc)
		if err != nil {
			return nil, err
		}
		s.log.Info("document opened", "session", sess.ID, "file", sess.Filename)
		return map[string]any{
			"session_id": sess.ID,
			"title":      sess.Title,
			"read_only":  sess.ReadOnly,
		}, nil
	})
}

// --- read ---

type readReq struct {
	SessionID string `json:"session_id"`
	Verbosity string `json:"verbosity,omitempty"`
	Scope     string `json:"scope,omitempty"`
	Changes   bool   `json:"changes,omitempty"`
	Comments  bool   `json:"comments,omitempty"`
}

func (s *Service) registerReadTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "doctree_read",
		Description: "Read the document as structured text. Verbosity tiers: minimal (outline), standard, full (formatting detail). An optional scope narrows the view, e.g. 'section:Payment Terms'.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string"},
			"verbosity":  map[string]any{"type": "string", "enum": []string{"minimal", "standard", "full"}},
			"scope":      map[string]any{"type": "string", "description": "Scope shorthand narrowing the view"},
			"changes":    map[string]any{"type": "boolean", "description": "Include tracked changes with {--del--}{++ins++} markup"},
			"comments":   map[string]any{"type": "boolean", "description": "Include comments"},
		}, []string{"session_id"}),
	}

	register(srv, tool, func(ctx context.Context, r *readReq) (any, error) {
		sess, err := s.session(r.SessionID)
		if err != nil {
			return nil, err
		}
		opts := builder.Options{
			Verbosity:       doctree.ParseVerbosity(r.Verbosity),
			IncludeChanges:  r.Changes,
			IncludeComments: r.Comments,
		}
		if r.Scope != "" {
			opts.Scope = r.Scope
		}
		var out string
		err = sess.Do(func(doc host.Document) error {
			tree, buildErr := s.builder.Build(ctx, doc, opts)
			if buildErr != nil {
				return buildErr
			}
			out = serialize.Tree(tree, opts.Verbosity)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

// --- find ---

type findReq struct {
	SessionID     string `json:"session_id"`
	Scope         string `json:"scope"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
}

func (s *Service) registerFindTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "doctree_find",
		Description: "Resolve a scope expression to matching element refs. Shorthands: 'section:Name', 'paragraph_containing:text', 'role:heading', 'style:Name', 'changes', 'comments', or plain text for a contains search.",
		InputSchema: inputSchema(map[string]any{
			"session_id":     map[string]any{"type": "string"},
			"scope":          map[string]any{"type": "string"},
			"case_sensitive": map[string]any{"type": "boolean"},
		}, []string{"session_id", "scope"}),
	}

	register(srv, tool, func(ctx context.Context, r *findReq) (any, error) {
		sess, err := s.session(r.SessionID)
		if err != nil {
			return nil, err
		}
		var matches []map[string]any
		var total int
		err = sess.Do(func(doc host.Document) error {
			tree, buildErr := s.builder.Build(ctx, doc, builder.Options{IncludeChanges: true})
			if buildErr != nil {
				return buildErr
			}
			res, resolveErr := scope.Resolve(tree, r.Scope, scope.Options{CaseSensitive: r.CaseSensitive})
			if resolveErr != nil {
				return resolveErr
			}
			total = res.TotalEvaluated
			for _, n := range res.Nodes {
				matches = append(matches, map[string]any{
					"ref":  n.Ref,
					"role": n.Role,
					"text": n.Text,
				})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"matches": matches, "count": len(matches), "evaluated": total}, nil
	})
}

// --- edit ---

type editOp struct {
	Ref       string      `json:"ref"`
	Operation editor.Kind `json:"operation"`
	Text      string      `json:"text,omitempty"`
	Style     string      `json:"style,omitempty"`
}

type editReq struct {
	SessionID  string   `json:"session_id"`
	Operations []editOp `json:"operations"`
}

func (s *Service) registerEditTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "doctree_edit",
		Description: "Apply a batch of edits addressed by ref. Operations: replace, delete, insertAfter, insertBefore, format. The batch is best-effort: failures are reported per operation and never abort the rest.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string"},
			"operations": map[string]any{
				"type": "array",
				"items": inputSchema(map[string]any{
					"ref":       map[string]any{"type": "string", "description": "Element ref, e.g. p:3 or tbl:0/row:1/cell:2/p:0"},
					"operation": map[string]any{"type": "string", "enum": []string{"replace", "delete", "insertAfter", "insertBefore", "format"}},
					"text":      map[string]any{"type": "string"},
					"style":     map[string]any{"type": "string"},
				}, []string{"ref", "operation"}),
			},
		}, []string{"session_id", "operations"}),
	}

	register(srv, tool, func(ctx context.Context, r *editReq) (any, error) {
		sess, err := s.session(r.SessionID)
		if err != nil {
			return nil, err
		}
		ops := make([]editor.Operation, len(r.Operations))
		for i, op := range r.Operations {
			ops[i] = editor.Operation{Ref: op.Ref, Kind: op.Operation, Text: op.Text, Style: op.Style}
		}
		var res *editor.Result
		err = sess.Do(func(doc host.Document) error {
			var applyErr error
			res, applyErr = s.editor.Apply(ctx, doc, ops)
			return applyErr
		})
		if err != nil {
			return nil, err
		}
		return res, nil
	})
}

// --- changes ---

type changesReq struct {
	SessionID string `json:"session_id"`
}

func (s *Service) registerChangesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "doctree_changes",
		Description: "List tracked changes and comments with their refs and locations.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string"},
		}, []string{"session_id"}),
	}

	register(srv, tool, func(ctx context.Context, r *changesReq) (any, error) {
		sess, err := s.session(r.SessionID)
		if err != nil {
			return nil, err
		}
		var out map[string]any
		err = sess.Do(func(doc host.Document) error {
			tree, buildErr := s.builder.Build(ctx, doc, builder.Options{
				IncludeChanges:  true,
				IncludeComments: true,
			})
			if buildErr != nil {
				return buildErr
			}
			out = map[string]any{
				"tracked_changes": tree.TrackedChanges,
				"comments":        tree.Comments,
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

// --- close ---

type closeReq struct {
	SessionID string `json:"session_id"`
}

func (s *Service) registerCloseTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "doctree_close",
		Description: "Close a document session and release its resources.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string"},
		}, []string{"session_id"}),
	}

	register(srv, tool, func(_ context.Context, r *closeReq) (any, error) {
		if !s.sessions.Close(r.SessionID) {
			return nil, fmt.Errorf("session %q not found", r.SessionID)
		}
		return map[string]any{"closed": r.SessionID}, nil
	})
}
