package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/muesli/termenv"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// Console prints node logs and failures of a run as they happen.
// It also remembers which nodes ran and failed, for graph overlays.
type Console struct {
	out     *termenv.Output
	w       io.Writer
	verbose bool

	mu      sync.Mutex
	visited []string
	failed  []string
}

var _ ports.EventListener = (*Console)(nil)

// NewConsole writes to w. In verbose mode node completions are printed too.
func NewConsole(w io.Writer, verbose bool) *Console {
	return &Console{out: termenv.NewOutput(w), w: w, verbose: verbose}
}

func (c *Console) OnNodeStarted(string) {}

func (c *Console) OnNodeCompleted(nodeID string, _ map[string]domain.Value, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visited = append(c.visited, nodeID)
	if c.verbose {
		fmt.Fprintf(c.w, "%s %s %s\n", c.out.String("•").Faint(), nodeID, c.out.String(elapsed.String()).Faint())
	}
}

func (c *Console) OnNodeError(nodeID, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed = append(c.failed, nodeID)
	fmt.Fprintf(c.w, "%s %s: %s\n", c.out.String("✗").Foreground(c.out.Color("#ef4444")).Bold(), nodeID, message)
}

func (c *Console) OnScriptCompleted(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if success {
		fmt.Fprintf(c.w, "%s completed\n", c.out.String("✓").Foreground(c.out.Color("#22c55e")).Bold())
	} else {
		fmt.Fprintf(c.w, "%s completed with failures\n", c.out.String("✗").Foreground(c.out.Color("#ef4444")).Bold())
	}
}

func (c *Console) OnScriptCancelled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, c.out.String("cancelled").Faint())
}

func (c *Console) OnLog(level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tag := c.out.String("[" + level + "]")
	switch level {
	case "warn", "warning":
		tag = tag.Foreground(c.out.Color("#f59e0b"))
	case "error":
		tag = tag.Foreground(c.out.Color("#ef4444"))
	default:
		tag = tag.Faint()
	}
	fmt.Fprintf(c.w, "%s %s\n", tag, message)
}

// Visited returns the nodes that completed, in completion order.
func (c *Console) Visited() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.visited...)
}

// Failed returns the nodes that failed.
func (c *Console) Failed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.failed...)
}
