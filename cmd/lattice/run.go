package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/lattice/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Execute a graph once",
	Long: `Installs the graph document and fires one trigger, or every trigger when --trigger
is not given. Node logs and failures are printed as they happen.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		trigger, _ := cmd.Flags().GetString("trigger")
		inputs, _ := cmd.Flags().GetStringArray("input")
		verbose, _ := cmd.Flags().GetBool("verbose")
		showGraph, _ := cmd.Flags().GetBool("graph")

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		return cli.Run(ctx, cli.RunOptions{
			File:       args[0],
			Trigger:    trigger,
			Inputs:     inputs,
			ConfigPath: configPath,
			Debug:      debug,
			Verbose:    verbose,
			Graph:      showGraph,
			Out:        cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("trigger", "t", "", "Trigger node to fire")
	runCmd.Flags().StringArrayP("input", "i", nil, "Trigger input as key=value; values are parsed as JSON when possible")
	runCmd.Flags().BoolP("verbose", "v", false, "Print every completed node")
	runCmd.Flags().Bool("graph", false, "Print the Mermaid graph with visited and failed nodes after the run")
}
