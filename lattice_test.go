package lattice_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/dsl"
)

type logs struct {
	mu       sync.Mutex
	lines    []string
	errs     []string
	done     []bool
	canceled int
}

func (l *logs) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		Log: func(_, msg string) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.lines = append(l.lines, msg)
		},
		NodeError: func(id, msg string) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.errs = append(l.errs, id)
		},
		ScriptCompleted: func(ok bool) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.done = append(l.done, ok)
		},
		ScriptCancelled: func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.canceled++
		},
	}
}

func newEngine(t *testing.T, docs map[string]string, opts ...lattice.Option) (*lattice.Engine, *logs) {
	t.Helper()
	rec := &logs{}
	opts = append([]lattice.Option{
		lattice.WithLoader(memory.NewLoader(docs)),
		lattice.WithListener(rec.hooks()),
	}, opts...)
	eng, err := lattice.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng, rec
}

const counter = `
schema_version: 1
id: counter
quotas:
  max_concurrent_triggers: 1
nodes:
  - id: start
    type: trigger.manual
  - id: inc
    type: state.increment
    defaults: {key: hits}
  - id: say
    type: action.log
edges:
  - {source: start, source_handle: out, target: inc, target_handle: in, kind: execution}
  - {source: inc, source_handle: out, target: say, target_handle: in, kind: execution}
  - {source: inc, source_handle: value, target: say, target_handle: message}
`

func TestEngine_LoadAndFire(t *testing.T) {
	eng, rec := newEngine(t, map[string]string{"counter": counter})
	ctx := context.Background()

	g, err := eng.Load(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "counter", g.ID())
	assert.Equal(t, []string{"counter"}, eng.Scripts())

	triggers, err := eng.Triggers("counter")
	require.NoError(t, err)
	assert.Equal(t, []string{"start"}, triggers)

	for i := 0; i < 3; i++ {
		require.NoError(t, eng.Fire(ctx, "counter", "start", nil))
	}
	assert.Equal(t, []string{"1", "2", "3"}, rec.lines, "state persists across runs and numbers render as strings")
}

func TestEngine_Run(t *testing.T) {
	eng, rec := newEngine(t, map[string]string{"counter": counter})
	ctx := context.Background()
	_, err := eng.Load(ctx, "counter")
	require.NoError(t, err)

	require.NoError(t, eng.Run(ctx, "counter"))
	assert.Equal(t, []bool{true}, rec.done)
}

func TestEngine_UnknownScript(t *testing.T) {
	eng, _ := newEngine(t, nil)
	ctx := context.Background()

	_, err := eng.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrScriptNotFound)
	assert.ErrorIs(t, eng.Fire(ctx, "missing", "start", nil), domain.ErrScriptNotFound)
	assert.ErrorIs(t, eng.Run(ctx, "missing"), domain.ErrScriptNotFound)
	assert.ErrorIs(t, eng.Cancel("missing"), domain.ErrScriptNotFound)
}

func TestEngine_NoLoader(t *testing.T) {
	eng, err := lattice.New()
	require.NoError(t, err)
	_, err = eng.Load(context.Background(), "x")
	assert.ErrorIs(t, err, lattice.ErrNoLoader)
	assert.ErrorIs(t, eng.LoadAll(context.Background()), lattice.ErrNoLoader)
}

func TestEngine_RejectsInvalidGraph(t *testing.T) {
	eng, _ := newEngine(t, nil)
	b := dsl.New("bad", "bad")
	b.Add("x", "does.not.exist")
	g := b.MustBuild()

	_, err := eng.Put(context.Background(), g)
	assert.ErrorIs(t, err, lattice.ErrInvalidGraph)
	assert.Empty(t, eng.Scripts())
}

func TestEngine_AutoPrune(t *testing.T) {
	b := dsl.New("prune", "prune")
	b.Add("a", "constant.number").Set("value", 1)
	b.Add("b", "constant.number").Set("value", 2)
	b.Add("double", "math.double").From("value", "a", "value").From("value", "b", "value")
	g := b.MustBuild()

	strict, _ := newEngine(t, nil)
	_, err := strict.Put(context.Background(), g)
	assert.ErrorIs(t, err, lattice.ErrInvalidGraph)

	lenient, _ := newEngine(t, nil, lattice.WithAutoPrune(true))
	pruned, err := lenient.Put(context.Background(), g)
	require.NoError(t, err)
	assert.Len(t, pruned.DataEdges(), 1)
}

func TestEngine_FoldsConstants(t *testing.T) {
	b := dsl.New("fold", "fold")
	b.Add("five", "constant.number").Set("value", 5)
	b.Add("double", "math.double").From("value", "five", "value")
	g := b.MustBuild()

	folding, _ := newEngine(t, nil)
	got, err := folding.Put(context.Background(), g)
	require.NoError(t, err)
	n, _ := got.Node("double")
	require.NotNil(t, n.Folded)
	assert.Equal(t, 10.0, domain.AsNumber(n.Folded["result"], 0))

	plain, _ := newEngine(t, nil, lattice.WithFolding(false))
	got, err = plain.Put(context.Background(), g)
	require.NoError(t, err)
	n, _ = got.Node("double")
	assert.Nil(t, n.Folded)
}

func TestEngine_DocumentQuotasOverride(t *testing.T) {
	slow := `
schema_version: 1
id: slow
quotas:
  max_execution_count: 1
nodes:
  - {id: start, type: trigger.manual}
  - {id: say, type: action.log}
edges:
  - {source: start, source_handle: out, target: say, target_handle: in, kind: execution}
`
	eng, rec := newEngine(t, map[string]string{"slow": slow})
	ctx := context.Background()
	_, err := eng.Load(ctx, "slow")
	require.NoError(t, err)

	err = eng.Fire(ctx, "slow", "start", nil)
	assert.ErrorIs(t, err, runtime.ErrExecutionLimitExceeded)
	assert.Empty(t, rec.lines)
}

func TestEngine_Cancel(t *testing.T) {
	eng, rec := newEngine(t, map[string]string{"counter": counter})
	ctx := context.Background()
	_, err := eng.Load(ctx, "counter")
	require.NoError(t, err)

	require.NoError(t, eng.Cancel("counter"))
	require.NoError(t, eng.Cancel("counter"))
	assert.Equal(t, 1, rec.canceled)
	assert.ErrorIs(t, eng.Fire(ctx, "counter", "start", nil), context.Canceled)

	// Reloading installs a fresh script context.
	_, err = eng.Load(ctx, "counter")
	require.NoError(t, err)
	assert.NoError(t, eng.Fire(ctx, "counter", "start", nil))
}

func TestEngine_LoadAllCollectsErrors(t *testing.T) {
	eng, _ := newEngine(t, map[string]string{
		"counter": counter,
		"broken":  "schema_version: 9\nid: broken\n",
	})
	err := eng.LoadAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
	assert.Equal(t, []string{"counter"}, eng.Scripts())
}

func TestEngine_InvalidQuotas(t *testing.T) {
	_, err := lattice.New(lattice.WithQuotas(lattice.Quotas{NodeTimeout: -time.Second}))
	assert.Error(t, err)
}

func TestEngine_FireConvertsInputs(t *testing.T) {
	echo := `
schema_version: 1
id: echo
nodes:
  - {id: start, type: trigger.manual}
  - {id: say, type: action.log}
edges:
  - {source: start, source_handle: out, target: say, target_handle: in, kind: execution}
  - {source: start, source_handle: payload, target: say, target_handle: message}
`
	eng, rec := newEngine(t, map[string]string{"echo": echo})
	ctx := context.Background()
	_, err := eng.Load(ctx, "echo")
	require.NoError(t, err)

	require.NoError(t, eng.Fire(ctx, "echo", "start", map[string]any{"payload": 42}))
	require.NoError(t, eng.Fire(ctx, "echo", "start", map[string]any{"payload": map[string]any{"k": "v"}}))
	assert.Equal(t, []string{"42", `{"k":"v"}`}, rec.lines)
}

func TestEngine_LoadDocument(t *testing.T) {
	eng, rec := newEngine(t, nil)
	ctx := context.Background()

	g, err := eng.LoadDocument(ctx, []byte(`{
  "schema_version": 1,
  "id": "json",
  "nodes": [
    {"id": "start", "type": "trigger.on_start"},
    {"id": "say", "type": "action.print", "defaults": {"message": "from json"}}
  ],
  "edges": [{"source": "start", "source_handle": "out", "target": "say", "target_handle": "in", "kind": "execution"}]
}`))
	require.NoError(t, err)
	assert.Equal(t, "json", g.Name())

	require.NoError(t, eng.Run(ctx, "json"))
	assert.Equal(t, []string{"from json"}, rec.lines)

	_, err = eng.LoadDocument(ctx, []byte("schema_version: 2\nid: x\n"))
	assert.Error(t, err)
}
