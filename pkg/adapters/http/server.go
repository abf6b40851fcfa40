package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/presentation/graph"
	latticeruntime "github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
)

//go:embed openapi.yaml
var rawSpec []byte

// Engine is the part of lattice.Engine the HTTP bridge drives.
type Engine interface {
	Scripts() []string
	Graph(scriptID string) (*domain.Graph, error)
	Triggers(scriptID string) ([]string, error)
	Fire(ctx context.Context, scriptID, triggerID string, inputs map[string]any) error
	Validate(g *domain.Graph) lattice.ValidationResult
	Registry() *registry.Registry
	Watch(ctx context.Context) (<-chan string, error)
}

var _ Engine = (*lattice.Engine)(nil)

// Server serves the trigger bridge and the inspection endpoints.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	logger   *slog.Logger
	gatherer prometheus.Gatherer
	spec     *requestValidator
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger of the request handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics exposes the gatherer on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithStreams shares a StreamManager whose listeners are installed on the engine.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.Streams = sm }
}

// NewHandler creates the HTTP handler for the engine.
// API routes are validated against the embedded OpenAPI document before they reach a handler.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	server := &Server{Engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(server)
	}
	if server.Streams == nil {
		server.Streams = NewStreamManager(server.logger)
	}

	spec, err := newRequestValidator(rawSpec)
	if err != nil {
		return nil, err
	}
	server.spec = spec

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if server.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(server.spec.middleware(server.writeError))

		r.Get("/health", server.GetHealth)
		r.Get("/info", server.GetInfo)
		r.Get("/nodes", server.ListNodeTypes)
		r.Get("/scripts", server.ListScripts)
		r.Get("/scripts/{scriptID}", server.GetScript)
		r.Get("/scripts/{scriptID}/graph", server.GetScriptGraph)
		r.Get("/scripts/{scriptID}/events", server.SubscribeScriptEvents)
		r.Post("/scripts/{scriptID}/triggers/{nodeID}", server.FireTrigger)
		r.Get("/events", server.SubscribeReloads)
		r.Post("/validate", server.ValidateGraph)
	})

	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Lattice API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// FireResponse is the body of a finished trigger run.
type FireResponse struct {
	Script  string `json:"script"`
	Trigger string `json:"trigger"`
	Status  string `json:"status"`
}

// ScriptResponse describes an installed graph.
type ScriptResponse struct {
	ID       string             `json:"id"`
	Name     string             `json:"name,omitempty"`
	Triggers []string           `json:"triggers"`
	Folded   []string           `json:"folded,omitempty"`
	Nodes    []compiler.NodeDoc `json:"nodes"`
	Edges    []compiler.EdgeDoc `json:"edges"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "lattice-http",
		"version":     strings.TrimSpace(lattice.Version),
		"api_version": s.spec.version(),
	})
}

// ListNodeTypes handles GET /nodes.
func (s *Server) ListNodeTypes(w http.ResponseWriter, r *http.Request) {
	reg := s.Engine.Registry()
	out := make([]registry.NodeMetadata, 0, len(reg.Types()))
	for _, t := range reg.Types() {
		if meta, ok := reg.Metadata(t); ok {
			out = append(out, meta)
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

// ListScripts handles GET /scripts.
func (s *Server) ListScripts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"scripts": s.Engine.Scripts()})
}

// GetScript handles GET /scripts/{scriptID}.
func (s *Server) GetScript(w http.ResponseWriter, r *http.Request) {
	scriptID, ok := s.pathParam(w, r, "scriptID")
	if !ok {
		return
	}
	g, err := s.Engine.Graph(scriptID)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	triggers, _ := s.Engine.Triggers(scriptID)

	doc := compiler.NewDocument(g, nil)
	resp := ScriptResponse{
		ID:       g.ID(),
		Name:     g.Name(),
		Triggers: triggers,
		Nodes:    doc.Nodes,
		Edges:    doc.Edges,
	}
	for _, n := range g.Nodes() {
		if n.IsFolded() {
			resp.Folded = append(resp.Folded, n.ID)
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GetScriptGraph handles GET /scripts/{scriptID}/graph.
func (s *Server) GetScriptGraph(w http.ResponseWriter, r *http.Request) {
	scriptID, ok := s.pathParam(w, r, "scriptID")
	if !ok {
		return
	}
	g, err := s.Engine.Graph(scriptID)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, graph.GenerateMermaid(g, s.Engine.Registry(), nil))
}

// FireTrigger handles POST /scripts/{scriptID}/triggers/{nodeID}.
// The body is an optional JSON object whose keys become the trigger inputs. The run is synchronous.
func (s *Server) FireTrigger(w http.ResponseWriter, r *http.Request) {
	scriptID, ok := s.pathParam(w, r, "scriptID")
	if !ok {
		return
	}
	nodeID, ok := s.pathParam(w, r, "nodeID")
	if !ok {
		return
	}

	var inputs map[string]any
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}

	if err := s.Engine.Fire(r.Context(), scriptID, nodeID, inputs); err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("trigger failed", "script", scriptID, "trigger", nodeID, "err", err)
		}
		s.writeError(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, FireResponse{Script: scriptID, Trigger: nodeID, Status: "completed"})
}

// ValidateGraph handles POST /validate. The body is a JSON or YAML graph document.
func (s *Server) ValidateGraph(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	script, err := compiler.NewParser().Parse(data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.Engine.Validate(script.Graph))
}

// pathParam binds a simple style path parameter, answering 400 when it is malformed.
func (s *Server) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid format for parameter %s: %w", name, err))
		return "", false
	}
	return v, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrScriptNotFound), errors.Is(err, domain.ErrUnknownNode):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotSerializable),
		errors.Is(err, lattice.ErrInputTooLarge),
		errors.Is(err, lattice.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return http.StatusConflict
	case errors.Is(err, latticeruntime.ErrExecutionLimitExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status < http.StatusInternalServerError {
		s.logger.Warn("request rejected", "status", status, "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
