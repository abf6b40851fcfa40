package compiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/pkg/domain"
)

const yamlDoc = `
schema_version: 1
id: greeter
name: Greeter
nodes:
  - id: start
    type: trigger.manual
  - id: name
    type: constant.string
    defaults:
      value: world
  - id: hello
    type: string.concat
    defaults:
      a: "Hello, "
  - id: log
    type: action.log
    muted: true
edges:
  - {source: start, source_handle: out, target: log, target_handle: in, kind: execution}
  - {source: name, source_handle: value, target: hello, target_handle: b}
  - {source: hello, source_handle: result, target: log, target_handle: message, kind: data}
quotas:
  node_timeout: 2s
  max_execution_count: 10
`

func TestParser_ParseYAML(t *testing.T) {
	script, err := NewParser().Parse([]byte(yamlDoc))
	require.NoError(t, err)

	g := script.Graph
	assert.Equal(t, "greeter", g.ID())
	assert.Equal(t, "Greeter", g.Name())
	assert.Equal(t, []string{"hello", "log", "name", "start"}, g.NodeIDs())

	log, _ := g.Node("log")
	assert.True(t, log.Muted)
	name, _ := g.Node("name")
	assert.Equal(t, "world", name.Defaults["value"])

	edges := g.Edges()
	require.Len(t, edges, 3)
	assert.Equal(t, domain.EdgeExecution, edges[0].Kind)
	assert.Equal(t, domain.EdgeData, edges[1].Kind, "kind defaults to data")

	q, err := script.ResolveQuotas(runtime.DefaultQuotas())
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, q.NodeTimeout)
	assert.Equal(t, 10, q.MaxExecutionCount)
	assert.Equal(t, runtime.DefaultDataEdgeTimeout, q.DataEdgeTimeout)
}

func TestParser_ParseJSON(t *testing.T) {
	doc := `{"schema_version": 1, "id": "j", "nodes": [{"id": "n", "type": "constant.number", "defaults": {"value": 4}}]}`
	script, err := NewParser().Parse([]byte(doc))
	require.NoError(t, err)

	n, ok := script.Graph.Node("n")
	require.True(t, ok)
	assert.Equal(t, 4.0, n.Defaults["value"])
	assert.Equal(t, "j", script.Graph.Name(), "name falls back to id")
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		is   error
	}{
		{"wrong version", `{"schema_version": 2, "id": "x", "nodes": []}`, ErrUnsupportedSchemaVersion},
		{"missing version", `{"id": "x", "nodes": []}`, ErrUnsupportedSchemaVersion},
		{"dangling edge", `{"schema_version": 1, "id": "x", "nodes": [{"id": "a", "type": "t"}],
			"edges": [{"source": "a", "source_handle": "o", "target": "b", "target_handle": "i"}]}`, domain.ErrDanglingEdge},
		{"bad kind", `{"schema_version": 1, "id": "x", "nodes": [{"id": "a", "type": "t"}, {"id": "b", "type": "t"}],
			"edges": [{"source": "a", "source_handle": "o", "target": "b", "target_handle": "i", "kind": "wire"}]}`, nil},
		{"bad quotas", `{"schema_version": 1, "id": "x", "nodes": [], "quotas": {"node_timeout": "later"}}`, nil},
		{"missing id", `{"schema_version": 1, "nodes": []}`, nil},
		{"not a document", "::: nope", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().Parse([]byte(tt.doc))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	p := NewParser()
	script, err := p.Parse([]byte(yamlDoc))
	require.NoError(t, err)

	for name, marshal := range map[string]func(Document) ([]byte, error){
		"yaml": MarshalYAML,
		"json": MarshalJSON,
	} {
		t.Run(name, func(t *testing.T) {
			data, err := marshal(NewDocument(script.Graph, script.Quotas))
			require.NoError(t, err)

			back, err := p.Parse(data)
			require.NoError(t, err)
			assert.Equal(t, script.Graph.NodeIDs(), back.Graph.NodeIDs())
			assert.Equal(t, script.Graph.Edges(), back.Graph.Edges())
			for _, n := range script.Graph.Nodes() {
				m, _ := back.Graph.Node(n.ID)
				assert.Equal(t, n.Muted, m.Muted)
				assert.Equal(t, n.Defaults, m.Defaults)
			}
		})
	}
}
