package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the lattice banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{" _       _   _   _          ", "#22d3ee"},
		{"| | __ _| |_| |_(_) ___ ___ ", "#38bdf8"},
		{"| |/ _` | __| __| |/ __/ _ \\", "#60a5fa"},
		{"| | (_| | |_| |_| | (_|  __/", "#818cf8"},
		{"|_|\\__,_|\\__|\\__|_|\\___\\___|", "#a78bfa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
