/*
Package lattice is a node-graph ("visual scripting") execution engine.

Scripts are graphs of typed nodes joined by EXECUTION edges, which carry control flow, and DATA edges,
which carry values. Lattice validates a graph statically, infers generic port types, folds constant
subgraphs ahead of time and then executes the graph reactively whenever one of its triggers fires.

# Concept

A trigger starts a run. The run executes the trigger node, publishes its outputs and follows the
active EXEC handles to the next nodes. Before a node executes, each of its incoming DATA edges is
resolved: the engine waits for the source node to publish, bounded by a timeout, and converts the
value to the target port type. Independent branches run in parallel, each node runs at most once per
run, and a failing node only stops its own branch.

# Usage

	eng, err := lattice.New(lattice.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}
	if _, err := eng.Load(ctx, "greeter"); err != nil {
		log.Fatal(err)
	}
	err = eng.Fire(ctx, "greeter", "start", map[string]any{"payload": "hi"})

Graphs may also be built in Go with the pkg/dsl builder and installed with Put.

# Packages

  - pkg/domain: values, nodes, edges and the immutable graph.
  - pkg/schema: port types, descriptors, unification and conversion.
  - pkg/registry: node metadata and the sealed registry.
  - pkg/nodes: the generic node catalogue.
  - pkg/adapters: script loaders (memory, loam) and state stores (memory, redis), plus HTTP and MCP bridges.
  - pkg/observability: listener fan-out, slog and Prometheus listeners.
*/
package lattice
