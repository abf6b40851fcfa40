package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
)

const (
	scriptsURI = "lattice://scripts"
	nodesURI   = "lattice://nodes"
)

// Engine is the part of lattice.Engine exposed to MCP clients.
type Engine interface {
	Scripts() []string
	Graph(scriptID string) (*domain.Graph, error)
	Triggers(scriptID string) ([]string, error)
	Fire(ctx context.Context, scriptID, triggerID string, inputs map[string]any) error
	Validate(g *domain.Graph) lattice.ValidationResult
	Registry() *registry.Registry
}

var _ Engine = (*lattice.Engine)(nil)

// ValidateResponse is the structured result of validate_graph.
type ValidateResponse struct {
	Script string `json:"script" jsonschema_description:"Id declared by the document"`
	lattice.ValidationResult
}

// FireResponse is the structured result of fire_trigger.
type FireResponse struct {
	Script  string `json:"script" jsonschema_description:"Script whose trigger fired"`
	Trigger string `json:"trigger" jsonschema_description:"Trigger node id"`
	Status  string `json:"status" jsonschema_description:"completed when the run finished"`
}

// ScriptSummary describes an installed script for list_scripts.
type ScriptSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Nodes    int      `json:"nodes"`
	Triggers []string `json:"triggers"`
}

// Server exposes a lattice engine as an MCP server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. A nil logger discards logs.
func NewServer(engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("lattice-mcp", strings.TrimSpace(lattice.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{Addr: addr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_node_types",
		mcp.WithDescription("List the registered node types with their ports and flags."),
		mcp.WithString("category", mcp.Description("Only list node types of this category (optional)")),
	), s.handleListNodeTypes)

	s.mcpServer.AddTool(mcp.NewTool("list_scripts",
		mcp.WithDescription("List the installed scripts and their triggers."),
	), s.handleListScripts)

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Render an installed script as a Mermaid flowchart."),
		mcp.WithString("script_id", mcp.Required(), mcp.Description("Script id")),
	), s.handleGetGraph)

	s.mcpServer.AddTool(mcp.NewTool("validate_graph",
		mcp.WithDescription("Validate a JSON or YAML graph document against the node catalogue without installing it."),
		mcp.WithString("document", mcp.Required(), mcp.Description("The graph document")),
		mcp.WithOutputSchema[ValidateResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("fire_trigger",
		mcp.WithDescription("Fire a trigger node of an installed script and wait for the run to finish."),
		mcp.WithString("script_id", mcp.Required(), mcp.Description("Script id")),
		mcp.WithString("trigger_id", mcp.Required(), mcp.Description("Trigger node id")),
		mcp.WithString("inputs", mcp.Description("JSON object of trigger inputs (optional)")),
		mcp.WithOutputSchema[FireResponse](),
	), mcp.NewStructuredToolHandler(s.handleFire))
}

func (s *Server) nodeTypes(category string) []registry.NodeMetadata {
	reg := s.engine.Registry()
	out := []registry.NodeMetadata{}
	for _, t := range reg.Types() {
		meta, ok := reg.Metadata(t)
		if !ok || (category != "" && !strings.EqualFold(meta.Category, category)) {
			continue
		}
		out = append(out, meta)
	}
	return out
}

func (s *Server) scripts() []ScriptSummary {
	out := []ScriptSummary{}
	for _, id := range s.engine.Scripts() {
		g, err := s.engine.Graph(id)
		if err != nil {
			continue
		}
		triggers, _ := s.engine.Triggers(id)
		out = append(out, ScriptSummary{ID: id, Name: g.Name(), Nodes: g.Len(), Triggers: triggers})
	}
	return out
}

func (s *Server) handleListNodeTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.nodeTypes(request.GetString("category", "")))
}

func (s *Server) handleListScripts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.scripts())
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := s.engine.Graph(request.GetString("script_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(g, s.engine.Registry(), nil)), nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidateResponse, error) {
	document, _ := args["document"].(string)
	script, err := compiler.NewParser().Parse([]byte(document))
	if err != nil {
		return ValidateResponse{}, fmt.Errorf("invalid document: %w", err)
	}
	return ValidateResponse{Script: script.Graph.ID(), ValidationResult: s.engine.Validate(script.Graph)}, nil
}

func (s *Server) handleFire(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (FireResponse, error) {
	scriptID, _ := args["script_id"].(string)
	triggerID, _ := args["trigger_id"].(string)

	var inputs map[string]any
	if raw, ok := args["inputs"].(string); ok && strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
			return FireResponse{}, fmt.Errorf("inputs must be a JSON object: %w", err)
		}
	}

	if err := s.engine.Fire(ctx, scriptID, triggerID, inputs); err != nil {
		s.logger.Warn("MCP fire_trigger failed", "script", scriptID, "trigger", triggerID, "err", err)
		return FireResponse{}, fmt.Errorf("fire failed: %w", err)
	}
	return FireResponse{Script: scriptID, Trigger: triggerID, Status: "completed"}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(scriptsURI, "Installed Scripts",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(scriptsURI, s.scripts())
	})

	s.mcpServer.AddResource(mcp.NewResource(nodesURI, "Node Catalogue",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(nodesURI, s.nodeTypes(""))
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}
