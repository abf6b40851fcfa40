package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

const constantPrefix = "constant."

var errFoldDownstream = errors.New("downstream execution is not available while folding")

// Fold precomputes every node whose outputs depend only on constants.
//
// Seeds are constant.* nodes without incoming edges, plus nodes folded earlier. The set grows by data-only
// nodes whose every data input comes from the set; trigger, mutating, blocking and muted nodes never join.
// A node that fails while folding is left for runtime, together with everything that depends on it.
// Seed constants feed the evaluation but are not marked folded themselves.
// Folding a folded graph returns an equal graph.
func Fold(ctx context.Context, g *domain.Graph, catalog runtime.Catalog, logger *slog.Logger) (*domain.Graph, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	f := &folder{graph: g, catalog: catalog, logger: logger.With("script", g.ID())}

	set := f.seeds()
	seeds := make(map[string]bool, len(set))
	for id := range set {
		seeds[id] = true
	}
	f.grow(set)

	order, err := f.order(set)
	if err != nil {
		return nil, err
	}

	results := make(map[string]map[string]domain.Value, len(order))
	evicted := make(map[string]bool)
	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		node, _ := g.Node(id)
		if node.IsFolded() {
			results[id] = node.Folded
			continue
		}
		if src, ok := f.evictedSource(id, evicted); ok {
			logger.Debug("fold skipped", "node", id, "source", src)
			evicted[id] = true
			continue
		}
		out, err := f.evaluate(ctx, node, results)
		if err != nil {
			logger.Debug("fold evicted", "node", id, "err", err)
			evicted[id] = true
			continue
		}
		results[id] = out
	}

	changed := make(map[string]map[string]domain.Value)
	for id, out := range results {
		if seeds[id] {
			continue
		}
		if n, _ := g.Node(id); !n.IsFolded() {
			changed[id] = out
		}
	}
	if len(changed) == 0 {
		return g, nil
	}
	return g.WithFolded(changed), nil
}

type folder struct {
	graph   *domain.Graph
	catalog runtime.Catalog
	logger  *slog.Logger
}

func (f *folder) seeds() map[string]bool {
	set := make(map[string]bool)
	for _, n := range f.graph.Nodes() {
		switch {
		case n.IsFolded():
			set[n.ID] = true
		case n.Muted:
		case strings.HasPrefix(n.Type, constantPrefix) &&
			!f.graph.HasIncomingExecution(n.ID) &&
			len(f.graph.IncomingDataEdges(n.ID)) == 0:
			if _, ok := f.catalog.Metadata(n.Type); ok {
				set[n.ID] = true
			}
		}
	}
	return set
}

func (f *folder) grow(set map[string]bool) {
	for changed := true; changed; {
		changed = false
		for _, n := range f.graph.Nodes() {
			if set[n.ID] || !f.foldable(n, set) {
				continue
			}
			set[n.ID] = true
			changed = true
		}
	}
}

func (f *folder) foldable(n domain.Node, set map[string]bool) bool {
	if n.Muted || f.graph.HasIncomingExecution(n.ID) {
		return false
	}
	meta, ok := f.catalog.Metadata(n.Type)
	if !ok || meta.Trigger || meta.Mutating || meta.Blocking || meta.HasExecInput() {
		return false
	}
	edges := f.graph.IncomingDataEdges(n.ID)
	if len(edges) == 0 {
		return false
	}
	for _, e := range edges {
		if !set[e.Source] {
			return false
		}
	}
	return true
}

// order sorts the set so every data edge inside it points forward; ties break by node id.
func (f *folder) order(set map[string]bool) ([]string, error) {
	inDegree := make(map[string]int, len(set))
	next := make(map[string][]string)
	for id := range set {
		inDegree[id] = 0
		for _, e := range f.graph.IncomingDataEdges(id) {
			if set[e.Source] {
				inDegree[id]++
				next[e.Source] = append(next[e.Source], id)
			}
		}
	}

	var ready []string
	for id, d := range inDegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	out := make([]string, 0, len(set))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		out = append(out, id)
		for _, t := range next[id] {
			inDegree[t]--
			if inDegree[t] == 0 {
				ready = append(ready, t)
			}
		}
		sort.Strings(ready)
	}
	if len(out) != len(set) {
		return nil, fmt.Errorf("fold %s: %w", f.graph.ID(), domain.ErrCycle)
	}
	return out, nil
}

func (f *folder) evictedSource(id string, evicted map[string]bool) (string, bool) {
	for _, e := range f.graph.IncomingDataEdges(id) {
		if evicted[e.Source] {
			return e.Source, true
		}
	}
	return "", false
}

func (f *folder) evaluate(ctx context.Context, node domain.Node, results map[string]map[string]domain.Value) (out map[string]domain.Value, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("panic: %v", rec)
		}
	}()

	meta, _ := f.catalog.Metadata(node.Type)
	inputs, err := runtime.BaseInputs(f.catalog, node)
	if err != nil {
		return nil, err
	}

	edges := f.graph.IncomingDataEdges(node.ID)
	values := make([]domain.Value, len(edges))
	for i, e := range edges {
		if v, ok := results[e.Source][e.SourceHandle]; ok {
			values[i] = runtime.ConvertEdgeValue(f.catalog, f.graph, e, v)
		}
	}
	runtime.ApplyEdgeValues(inputs, meta, edges, values)

	impl, err := f.catalog.Create(node.Type)
	if err != nil {
		return nil, err
	}
	out, err = impl.Execute(ctx, &foldRuntime{folder: f, node: node.ID}, inputs)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]domain.Value{}
	}
	return out, nil
}

// foldRuntime is the ports.Runtime seen by nodes executed at fold time. It has no state.
type foldRuntime struct {
	folder *folder
	node   string
}

func (rt *foldRuntime) ScriptID() string         { return rt.folder.graph.ID() }
func (rt *foldRuntime) NodeID() string           { return rt.node }
func (rt *foldRuntime) RunID() string            { return "fold" }
func (rt *foldRuntime) State() ports.ScriptState { return ports.Scope(nil, rt.folder.graph.ID()) }

func (rt *foldRuntime) Log(level, message string) {
	rt.folder.logger.Debug("fold log", "node", rt.node, "level", level, "msg", message)
}

func (rt *foldRuntime) ExecuteDownstream(context.Context, string, map[string]domain.Value) error {
	return errFoldDownstream
}
