/*
Package ports defines the contracts between the Lattice engine and everything around it.

These interfaces decouple the core from node implementations, state backends, script
sources and observers, so the same engine runs inside the CLI, the HTTP bridge and tests.

# Key Interfaces

  - Node: the behaviour behind a node type. Nodes are stateless and receive a Runtime.
  - Runtime: what a running node may do (read script state, log, drive its own exec handles).
  - EventListener: receives lifecycle notifications from the engine.
  - StateStore: persistent key/value state shared by every run of a script.
  - ScriptLoader: retrieves raw graph documents by script id.
*/
package ports
