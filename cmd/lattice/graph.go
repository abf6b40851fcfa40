package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Export the graph as a Mermaid diagram",
	Long:  `Validates the document and outputs a Mermaid flowchart (graph TD). Folded and muted nodes are styled.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fold, _ := cmd.Flags().GetBool("fold")

		data, err := cli.ReadScript(args[0])
		if err != nil {
			return err
		}
		eng, err := lattice.New(lattice.WithFolding(fold))
		if err != nil {
			return err
		}
		defer eng.Close()

		g, err := eng.LoadDocument(cmd.Context(), data)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, eng.Registry(), nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("fold", true, "Apply constant folding before rendering")
}
