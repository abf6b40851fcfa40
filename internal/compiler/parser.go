package compiler

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/pkg/domain"
)

// CurrentSchemaVersion is the only document version this build reads.
// Older documents must be migrated by an external tool.
const CurrentSchemaVersion = 1

// ErrUnsupportedSchemaVersion is returned for documents of any other version.
var ErrUnsupportedSchemaVersion = errors.New("unsupported schema version")

// Document is the serialized form of a script graph.
type Document struct {
	SchemaVersion int            `json:"schema_version" yaml:"schema_version" mapstructure:"schema_version"`
	ID            string         `json:"id" yaml:"id" mapstructure:"id"`
	Name          string         `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Nodes         []NodeDoc      `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
	Edges         []EdgeDoc      `json:"edges,omitempty" yaml:"edges,omitempty" mapstructure:"edges"`
	Quotas        map[string]any `json:"quotas,omitempty" yaml:"quotas,omitempty" mapstructure:"quotas"`
}

// NodeDoc is one node of a Document.
type NodeDoc struct {
	ID       string         `json:"id" yaml:"id" mapstructure:"id"`
	Type     string         `json:"type" yaml:"type" mapstructure:"type"`
	Defaults map[string]any `json:"defaults,omitempty" yaml:"defaults,omitempty" mapstructure:"defaults"`
	Muted    bool           `json:"muted,omitempty" yaml:"muted,omitempty" mapstructure:"muted"`
}

// EdgeDoc is one edge of a Document. An empty Kind means data.
type EdgeDoc struct {
	Source       string `json:"source" yaml:"source" mapstructure:"source"`
	SourceHandle string `json:"source_handle" yaml:"source_handle" mapstructure:"source_handle"`
	Target       string `json:"target" yaml:"target" mapstructure:"target"`
	TargetHandle string `json:"target_handle" yaml:"target_handle" mapstructure:"target_handle"`
	Kind         string `json:"kind,omitempty" yaml:"kind,omitempty" mapstructure:"kind"`
}

// Script is a parsed document: the graph plus the per-script quota overrides.
type Script struct {
	Graph *domain.Graph
	// Quotas holds the raw overrides found in the document. They are merged over the
	// configured quotas with Script.ResolveQuotas.
	Quotas map[string]any
}

// ResolveQuotas overlays the script overrides on base.
func (s *Script) ResolveQuotas(base runtime.Quotas) (runtime.Quotas, error) {
	return runtime.DecodeQuotas(s.Quotas, base)
}

// Parser converts raw documents into scripts.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a JSON or YAML document. JSON is detected first; anything else is read as YAML.
func (p *Parser) Parse(data []byte) (*Script, error) {
	var doc Document
	if json.Valid(data) {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse document: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return p.Compile(doc)
}

// Compile turns a decoded document into a script.
func (p *Parser) Compile(doc Document) (*Script, error) {
	if doc.SchemaVersion != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedSchemaVersion, doc.SchemaVersion, CurrentSchemaVersion)
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("document missing id")
	}
	if _, err := runtime.DecodeQuotas(doc.Quotas, runtime.DefaultQuotas()); err != nil {
		return nil, fmt.Errorf("script %s: %w", doc.ID, err)
	}

	nodes := make([]domain.Node, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		nodes = append(nodes, domain.Node{ID: n.ID, Type: n.Type, Defaults: n.Defaults, Muted: n.Muted})
	}

	edges := make([]domain.Edge, 0, len(doc.Edges))
	for i, e := range doc.Edges {
		kind := domain.EdgeData
		if e.Kind != "" {
			k, err := domain.ParseEdgeKind(e.Kind)
			if err != nil {
				return nil, fmt.Errorf("script %s: edge %d: %w", doc.ID, i, err)
			}
			kind = k
		}
		edges = append(edges, domain.Edge{
			Source:       e.Source,
			SourceHandle: e.SourceHandle,
			Target:       e.Target,
			TargetHandle: e.TargetHandle,
			Kind:         kind,
		})
	}

	name := doc.Name
	if name == "" {
		name = doc.ID
	}
	g, err := domain.NewGraph(doc.ID, name, nodes, edges)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", doc.ID, err)
	}
	return &Script{Graph: g, Quotas: doc.Quotas}, nil
}

// NewDocument serializes a graph. Folded outputs are runtime artifacts and are not written.
func NewDocument(g *domain.Graph, quotas map[string]any) Document {
	doc := Document{
		SchemaVersion: CurrentSchemaVersion,
		ID:            g.ID(),
		Name:          g.Name(),
		Quotas:        quotas,
	}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, NodeDoc{ID: n.ID, Type: n.Type, Defaults: n.Defaults, Muted: n.Muted})
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeDoc{
			Source:       e.Source,
			SourceHandle: e.SourceHandle,
			Target:       e.Target,
			TargetHandle: e.TargetHandle,
			Kind:         string(e.Kind),
		})
	}
	return doc
}

// MarshalYAML renders a document as YAML.
func MarshalYAML(doc Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

// MarshalJSON renders a document as indented JSON.
func MarshalJSON(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}
