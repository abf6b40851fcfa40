package nodes

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	state ports.ScriptState

	mu         sync.Mutex
	logs       []string
	downstream []string
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{state: ports.Scope(memory.NewStore(), "script")}
}

func (f *fakeRuntime) ScriptID() string         { return "script" }
func (f *fakeRuntime) NodeID() string           { return "node" }
func (f *fakeRuntime) RunID() string            { return "run" }
func (f *fakeRuntime) State() ports.ScriptState { return f.state }
func (f *fakeRuntime) Log(level, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, level+":"+message)
}

func (f *fakeRuntime) ExecuteDownstream(_ context.Context, handle string, _ map[string]domain.Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downstream = append(f.downstream, handle)
	return nil
}

// run executes a catalogue node with registry defaults overlaid by in.
func run(t *testing.T, r *registry.Registry, rt ports.Runtime, nodeType string, in map[string]any) (map[string]domain.Value, error) {
	t.Helper()
	n, err := r.Create(nodeType)
	require.NoError(t, err)

	inputs := r.DefaultInputs(nodeType)
	for k, v := range in {
		inputs[k] = domain.MustFromAny(v)
	}
	return n.Execute(context.Background(), rt, inputs)
}

func TestNewRegistry_Catalogue(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.Sealed())

	for _, typ := range []string{
		"trigger.manual", "trigger.on_start",
		"constant.number", "constant.string", "constant.boolean", "constant.vector3", "constant.list",
		"math.add", "math.subtract", "math.multiply", "math.divide", "math.double", "math.compare",
		"logic.and", "logic.or", "logic.not",
		"string.concat", "string.length", "string.split", "string.format",
		"list.first", "list.length", "list.append",
		"flow.branch", "flow.sequence", "flow.fail",
		"state.get", "state.set", "state.increment",
		"action.log", "action.print",
	} {
		assert.True(t, r.IsRegistered(typ), typ)
	}

	meta, _ := r.Metadata("trigger.manual")
	assert.True(t, meta.Trigger)
	meta, _ = r.Metadata("state.set")
	assert.True(t, meta.Mutating)
}

func TestPureNodes(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		nodeType string
		in       map[string]any
		port     string
		want     any
	}{
		{"constant.number", nil, "value", 0.0},
		{"constant.number", map[string]any{"value": 5}, "value", 5.0},
		{"constant.vector3", nil, "value", []any{0.0, 0.0, 0.0}},
		{"math.add", map[string]any{"a": 2, "b": 3}, "result", 5.0},
		{"math.subtract", map[string]any{"a": 2, "b": 3}, "result", -1.0},
		{"math.multiply", map[string]any{"a": 2, "b": 3}, "result", 6.0},
		{"math.divide", map[string]any{"a": 3, "b": 2}, "result", 1.5},
		{"math.double", map[string]any{"value": 5}, "result", 10.0},
		{"math.compare", map[string]any{"a": 1, "b": 2, "op": "<"}, "result", true},
		{"math.compare", map[string]any{"a": 1, "b": 2}, "result", false},
		{"logic.and", map[string]any{"a": true, "b": false}, "result", false},
		{"logic.or", map[string]any{"a": true, "b": false}, "result", true},
		{"logic.not", nil, "result", true},
		{"string.concat", map[string]any{"a": "foo", "b": "bar"}, "result", "foobar"},
		{"string.length", map[string]any{"value": "héllo"}, "result", 5.0},
		{"string.split", map[string]any{"value": "a,b"}, "result", []any{"a", "b"}},
		{"string.split", map[string]any{"value": ""}, "result", []any{}},
		{"string.format", map[string]any{"template": "{a} + {b} = {c}", "a": 1, "b": 2.5, "c": "x"}, "result", "1 + 2.5 = x"},
		{"list.first", map[string]any{"list": []any{"x", "y"}}, "value", "x"},
		{"list.first", map[string]any{"list": []any{}}, "value", nil},
		{"list.length", map[string]any{"list": []any{1, 2, 3}}, "result", 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.nodeType, func(t *testing.T) {
			res, err := run(t, r, nil, tt.nodeType, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, domain.Raw(res[tt.port]))
		})
	}
}

func TestMathDivide_ByZero(t *testing.T) {
	_, err := run(t, NewRegistry(), nil, "math.divide", map[string]any{"a": 1, "b": 0})
	assert.ErrorIs(t, err, ErrDivideByZero)
}

func TestMathCompare_UnknownOperator(t *testing.T) {
	_, err := run(t, NewRegistry(), nil, "math.compare", map[string]any{"op": "<>"})
	assert.Error(t, err)
}

func TestListAppend_MultiInput(t *testing.T) {
	r := NewRegistry()
	n, _ := r.Create("list.append")

	bot := domain.Bot{Name: "b"}
	res, err := n.Execute(context.Background(), nil, map[string]domain.Value{
		"list":  domain.MustFromAny([]any{1}),
		"items": domain.NewList(domain.Number(2), bot),
	})
	require.NoError(t, err)

	got := res["result"]
	assert.Equal(t, domain.KindList, got.Kind(), "bot element forces a List")
	items := domain.AsList(got)
	require.Len(t, items, 3)
	assert.Equal(t, bot, items[2])

	res, err = n.Execute(context.Background(), nil, map[string]domain.Value{"items": domain.Number(1)})
	require.NoError(t, err)
	assert.Equal(t, []any{1.0}, domain.Raw(res["result"]))
}

func TestTrigger_PassesInputsThrough(t *testing.T) {
	res, err := run(t, NewRegistry(), nil, "trigger.manual", map[string]any{"payload": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", res["payload"].String())
}

func TestFlowBranch(t *testing.T) {
	r := NewRegistry()
	res, err := run(t, r, nil, "flow.branch", map[string]any{"condition": true})
	require.NoError(t, err)
	assert.Contains(t, res, "true")
	assert.NotContains(t, res, "false")

	res, err = run(t, r, nil, "flow.branch", nil)
	require.NoError(t, err)
	assert.Contains(t, res, "false")
}

func TestFlowSequence_DrivesHandlesInOrder(t *testing.T) {
	rt := newFakeRuntime()
	res, err := run(t, NewRegistry(), rt, "flow.sequence", nil)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Equal(t, SequenceHandles, rt.downstream)
}

func TestFlowFail(t *testing.T) {
	_, err := run(t, NewRegistry(), nil, "flow.fail", map[string]any{"message": "nope"})
	assert.ErrorIs(t, err, ErrForcedFailure)
	assert.Contains(t, err.Error(), "nope")
}

func TestStateNodes(t *testing.T) {
	r := NewRegistry()
	rt := newFakeRuntime()

	res, err := run(t, r, rt, "state.get", map[string]any{"key": "hits", "default": 7})
	require.NoError(t, err)
	assert.Equal(t, 7.0, domain.AsNumber(res["value"], 0))

	for i := 0; i < 3; i++ {
		_, err = run(t, r, rt, "state.increment", map[string]any{"key": "hits"})
		require.NoError(t, err)
	}
	res, err = run(t, r, rt, "state.increment", map[string]any{"key": "hits", "by": 10})
	require.NoError(t, err)
	assert.Equal(t, 13.0, domain.AsNumber(res["value"], 0))

	_, err = run(t, r, rt, "state.set", map[string]any{"key": "name", "value": "lattice"})
	require.NoError(t, err)
	res, err = run(t, r, rt, "state.get", map[string]any{"key": "name"})
	require.NoError(t, err)
	assert.Equal(t, "lattice", res["value"].String())

	_, err = run(t, r, rt, "state.set", nil)
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestStateNodes_UnavailableState(t *testing.T) {
	rt := &fakeRuntime{state: ports.Scope(nil, "script")}
	_, err := run(t, NewRegistry(), rt, "state.get", map[string]any{"key": "k"})
	assert.ErrorIs(t, err, domain.ErrStateUnavailable)
}

func TestActionLog(t *testing.T) {
	rt := newFakeRuntime()
	r := NewRegistry()
	_, err := run(t, r, rt, "action.log", map[string]any{"message": "hello", "level": "warn"})
	require.NoError(t, err)
	_, err = run(t, r, rt, "action.print", map[string]any{"message": "bye"})
	require.NoError(t, err)
	assert.Equal(t, []string{"warn:hello", "info:bye"}, rt.logs)
}

func TestMathDouble_InfiniteInput(t *testing.T) {
	res, err := run(t, NewRegistry(), nil, "math.double", map[string]any{"value": math.Inf(1)})
	require.NoError(t, err)
	assert.True(t, math.IsInf(domain.AsNumber(res["result"], 0), 1))
}
