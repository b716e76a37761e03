// Package cmd provides the CLI commands for the ottoflow tool.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// Command group IDs, used to organise help output.
const (
	GroupRecipes = "recipes"
	GroupCook    = "cook"
)

// newRootCmd builds the command tree. Each call returns a fresh tree so
// tests can run commands independently.
func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:     "ottoflow",
		Short:   "Ottoflow - cook recipes as dependency graphs",
		Version: Version,
		Long: `Ottoflow treats a recipe as a graph of steps: a step can start once
every step whose product it uses is done.

It lists what you can do right now, shows the recipe as a Mermaid
flowchart, and tracks a cooking session step by step.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.opts.configPath, "config", "c", "", "config file (default ottoflow.toml)")
	flags.StringVar(&a.opts.recipesDir, "recipes", "", "directory of .hcl, .toml and .yaml recipe files")
	flags.StringVar(&a.opts.sessionsDir, "sessions", "", "directory for saved cook sessions")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false, "enable verbose/debug logging")
	flags.BoolVarP(&a.opts.quiet, "quiet", "q", false, "disable all logging")
	flags.StringVar(&a.opts.logFile, "log-file", "", "file to write logs to (\"stderr\" logs to the console)")

	root.AddGroup(
		&cobra.Group{ID: GroupRecipes, Title: "Recipes:"},
		&cobra.Group{ID: GroupCook, Title: "Cooking:"},
	)

	root.AddCommand(
		newListCmd(a),
		newGraphCmd(a),
		newAvailableCmd(a),
		newReadyCmd(a),
		newDiagramCmd(a),
		newCookCmd(a),
		newSessionsCmd(a),
	)
	return root
}

// Execute runs the root command and returns an exit code.
// The caller (main) should call os.Exit with this code.
func Execute() int {
	return run(os.Args[1:])
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		// Already printed by cobra.
		return 1
	}
	return 0
}
