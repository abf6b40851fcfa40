package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/lattice/internal/presentation/tui"
	"github.com/aretw0/lattice/pkg/nodes"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Describe the node catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		render := tui.NewRenderer()
		out, err := render(tui.CatalogMarkdown(nodes.NewRegistry()))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nodesCmd)
}
