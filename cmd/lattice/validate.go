package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/presentation/tui"
	"github.com/aretw0/lattice/pkg/adapters/loam"
)

var errInvalid = errors.New("one or more graphs are invalid")

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Check graphs against the node catalogue",
	Long: `Runs the static checks on each document: node types, connection counts, port types,
required inputs and execution cycles. Without files, every script of the configured
scripts directory is checked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}
		eng, err := lattice.New()
		if err != nil {
			return err
		}
		defer eng.Close()

		docs := map[string][]byte{}
		order := args
		for _, path := range args {
			data, err := cli.ReadScript(path)
			if err != nil {
				return err
			}
			docs[path] = data
		}

		if len(args) == 0 {
			if cfg.ScriptsDir == "" {
				return errors.New("no files given and no scripts_dir configured")
			}
			loader, err := loam.Open(cfg.ScriptsDir)
			if err != nil {
				return err
			}
			ids, err := loader.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				data, err := loader.Load(cmd.Context(), id)
				if err != nil {
					return err
				}
				docs[id] = data
			}
			order = ids
		}

		if !validateAll(cmd.OutOrStdout(), eng, order, docs) {
			return errInvalid
		}
		return nil
	},
}

func validateAll(w io.Writer, eng *lattice.Engine, order []string, docs map[string][]byte) bool {
	parser := compiler.NewParser()
	ok := true
	for _, name := range order {
		script, err := parser.Parse(docs[name])
		if err != nil {
			fmt.Fprintf(w, "✗ %s: %v\n", name, err)
			ok = false
			continue
		}
		res := eng.Validate(script.Graph)
		tui.RenderReport(w, script.Graph.ID(), res)
		ok = ok && res.Valid
	}
	return ok
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
