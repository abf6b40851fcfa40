/*
Package observability provides engine event listeners.

Fanout multiplexes one listener slot into many. LogListener mirrors events into a slog.Logger,
and Metrics exports node and run counters to Prometheus. All of them are safe for concurrent use,
since parallel branches report concurrently.
*/
package observability
