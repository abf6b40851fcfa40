package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/config"
	"github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/aretw0/lattice/internal/presentation/tui"
)

// ErrRunFailed reports that at least one node of the run failed.
var ErrRunFailed = errors.New("run finished with failed nodes")

// RunOptions configures a single script execution from the command line.
type RunOptions struct {
	File       string
	Trigger    string
	Inputs     []string
	ConfigPath string
	Debug      bool
	Verbose    bool
	// Graph prints the Mermaid graph with the visited and failed nodes highlighted.
	Graph bool
	Out   io.Writer
}

// Run installs the script at opts.File and executes it once.
// Without a trigger every trigger of the script fires.
func Run(ctx context.Context, opts RunOptions) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	inputs, err := ParseInputs(opts.Inputs)
	if err != nil {
		return err
	}
	data, err := ReadScript(opts.File)
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.LogLevel, opts.Debug)
	console := tui.NewConsole(out, opts.Verbose || opts.Debug)

	// A single file run does not need the scripts directory.
	cfg.ScriptsDir = ""
	eng, err := NewEngine(cfg, logger, lattice.WithListener(console))
	if err != nil {
		return err
	}
	defer eng.Close()

	g, err := eng.LoadDocument(ctx, data)
	if err != nil {
		if errors.Is(err, lattice.ErrInvalidGraph) {
			if script, perr := compiler.NewParser().Parse(data); perr == nil {
				tui.RenderReport(out, script.Graph.ID(), eng.Validate(script.Graph))
			}
		}
		return err
	}

	if opts.Trigger != "" {
		err = eng.Fire(ctx, g.ID(), opts.Trigger, inputs)
	} else {
		if len(inputs) > 0 {
			printSystemMessage(out, "inputs ignored without --trigger")
		}
		err = eng.Run(ctx, g.ID())
	}

	if opts.Graph {
		fmt.Fprintln(out, graph.GenerateMermaid(g, eng.Registry(), &graph.GraphOverlay{
			VisitedNodes: console.Visited(),
			FailedNodes:  console.Failed(),
		}))
	}

	if err != nil {
		return err
	}
	if len(console.Failed()) > 0 {
		return ErrRunFailed
	}
	return nil
}

// ReadScript reads a script document from a file, or from stdin when path is "-".
func ReadScript(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("no script file given")
	}
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return data, nil
}
