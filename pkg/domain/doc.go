/*
Package domain contains the core models of the Lattice node-graph engine.

It defines the values that flow between ports and the immutable graph those
values flow through. The package has no I/O and no dependencies on other
Lattice packages, following Hexagonal Architecture principles.

# Key Entities

  - Value: sealed union of JSON, Bot and List values passed between ports.
  - Node: an instance of a registered node type, with per-input defaults.
  - Edge: an EXECUTION (control flow) or DATA (value flow) connection.
  - Graph: nodes plus edges with precomputed indices and a deterministic topological sort.
  - LifecycleHooks: callback-based event listener.
*/
package domain
