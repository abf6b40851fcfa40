package registry

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoNode() ports.Node {
	return ports.NodeFunc(func(_ context.Context, _ ports.Runtime, in map[string]domain.Value) (map[string]domain.Value, error) {
		return map[string]domain.Value{"value": in["value"]}, nil
	})
}

func echoMeta(nodeType string) NodeMetadata {
	return NodeMetadata{
		Type:     nodeType,
		Category: "test",
		Inputs: []PortDefinition{
			{ID: "value", Type: schema.Number, Default: "5"},
			{ID: "label", Type: schema.String, Default: "hello"},
			{ID: "items", Type: schema.List, Default: "[1, 2]"},
			{ID: "flag", Type: schema.Boolean, Default: true},
		},
		Outputs: []PortDefinition{ExecOut(), {ID: "value", Type: schema.Number}},
	}
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(echoMeta("test.echo"), echoNode))

	assert.True(t, r.IsRegistered("test.echo"))
	assert.False(t, r.IsRegistered("test.other"))

	n, err := r.Create("test.echo")
	require.NoError(t, err)
	out, err := n.Execute(context.Background(), nil, map[string]domain.Value{"value": domain.Number(2)})
	require.NoError(t, err)
	assert.Equal(t, 2.0, domain.AsNumber(out["value"], 0))

	_, err = r.Create("test.other")
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestRegistry_DuplicateAndSealed(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(echoMeta("a"), echoNode))
	assert.ErrorIs(t, r.Register(echoMeta("a"), echoNode), ErrDuplicateType)

	r.Seal()
	assert.True(t, r.Sealed())
	assert.ErrorIs(t, r.Register(echoMeta("b"), echoNode), ErrRegistrySealed)
	assert.Panics(t, func() { r.MustRegister(echoMeta("c"), echoNode) })
}

func TestRegistry_InvalidMetadata(t *testing.T) {
	tests := []struct {
		name string
		meta NodeMetadata
	}{
		{"empty type", NodeMetadata{}},
		{"duplicate port", NodeMetadata{Type: "x", Inputs: []PortDefinition{{ID: "a"}, {ID: "a"}}}},
		{"empty port id", NodeMetadata{Type: "x", Outputs: []PortDefinition{{}}}},
		{"invalid port type", NodeMetadata{Type: "x", Inputs: []PortDefinition{{ID: "a", Type: schema.PortType(42)}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, New().Register(tt.meta, echoNode))
		})
	}
	assert.Error(t, New().Register(echoMeta("x"), nil), "nil factory")
}

func TestRegistry_DefaultInputs(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(echoMeta("test.echo"), echoNode))

	d := r.DefaultInputs("test.echo")
	assert.Equal(t, 5.0, domain.AsNumber(d["value"], 0), "numeric string parsed as JSON")
	assert.Equal(t, "hello", domain.AsString(d["label"], ""), "plain string kept")
	assert.Len(t, domain.AsList(d["items"]), 2)
	assert.True(t, domain.AsBool(d["flag"], false))

	d["value"] = domain.Number(99)
	assert.Equal(t, 5.0, domain.AsNumber(r.DefaultInputs("test.echo")["value"], 0), "copy per call")

	assert.Empty(t, r.DefaultInputs("missing"))
}

func TestRegistry_TypesSorted(t *testing.T) {
	r := New()
	for _, typ := range []string{"b", "c", "a"} {
		r.MustRegister(echoMeta(typ), echoNode)
	}
	assert.Equal(t, []string{"a", "b", "c"}, r.Types())
}

func TestRegistry_ConcurrentLookup(t *testing.T) {
	r := New()
	r.MustRegister(echoMeta("a"), echoNode)
	r.Seal()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := r.Metadata("a")
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}

func TestNodeMetadata_Ports(t *testing.T) {
	m := echoMeta("x")
	m.Inputs = append([]PortDefinition{ExecIn()}, m.Inputs...)
	m.Outputs = append(m.Outputs, ExecError())

	p, ok := m.Input("label")
	require.True(t, ok)
	assert.Equal(t, schema.String, p.Desc().BaseType())

	_, ok = m.Output("nope")
	assert.False(t, ok)

	assert.True(t, m.HasExecInput())
	exec := m.ExecOutputs()
	require.Len(t, exec, 2)
	assert.Equal(t, PortOut, exec[0].ID)
	assert.Equal(t, PortExecError, exec[1].ID)
}

func TestPortDefinition_JSONDescriptor(t *testing.T) {
	p := PortDefinition{ID: "items", Type: schema.List, Descriptor: schema.ListOf(schema.Var("T"))}
	b, err := json.Marshal(p)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "LIST<T>", got["descriptor"])
	assert.Equal(t, "LIST", got["type"])
}
