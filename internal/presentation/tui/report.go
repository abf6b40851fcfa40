package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"

	"github.com/aretw0/lattice/internal/validator"
)

// RenderReport writes a colored validation report. Errors come first, then propagation warnings.
func RenderReport(w io.Writer, scriptID string, res validator.Result) {
	out := termenv.NewOutput(w)
	red := out.Color("#ef4444")
	yellow := out.Color("#f59e0b")
	green := out.Color("#22c55e")

	if res.Valid {
		fmt.Fprintf(w, "%s %s is valid\n", out.String("✓").Foreground(green).Bold(), scriptID)
	} else {
		fmt.Fprintf(w, "%s %s has %d error(s)\n", out.String("✗").Foreground(red).Bold(), scriptID, len(res.Errors))
	}

	for _, e := range res.Errors {
		fmt.Fprintf(w, "  %s %s%s\n", out.String(string(e.Kind)).Foreground(red), e.Message, location(e.NodeID, e.PortID, e.EdgeID))
	}
	for _, id := range res.EdgesToRemove {
		fmt.Fprintf(w, "  %s %s\n", out.String("removable edge").Faint(), id)
	}
	for _, d := range res.Warnings {
		fmt.Fprintf(w, "  %s %s%s\n", out.String(string(d.Kind)).Foreground(yellow), d.Message, location("", "", d.EdgeID))
	}
}

func location(node, port, edge string) string {
	switch {
	case edge != "":
		return fmt.Sprintf(" (edge %s)", edge)
	case node != "" && port != "":
		return fmt.Sprintf(" (node %s, port %s)", node, port)
	case node != "":
		return fmt.Sprintf(" (node %s)", node)
	default:
		return ""
	}
}
