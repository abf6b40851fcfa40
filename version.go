package lattice

// Version is the release of the engine, reported by the CLI and the adapters.
const Version = "0.1.0"
