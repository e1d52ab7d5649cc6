package main

import (
	"fmt"
	"os"

	"github.com/lumenflow/lumenflow/pkg/console"
	"github.com/lumenflow/lumenflow/pkg/constants"
	"github.com/spf13/cobra"
)

// version is set by the release build; "dev" for local builds.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     constants.CLIName,
	Short:   "Coordinator for the Work Unit lifecycle across concurrent coding agents",
	Version: version,
	Long: `lumenflow coordinates the Work Unit (WU) lifecycle for multiple autonomous
coding agents sharing one git repository: claiming work, detecting lane and
code-path conflicts, recording progress, and recovering from crashes.

Common tasks:
  lumenflow claim WU-12 Core       # claim a WU and create its worktree
  lumenflow checkpoint WU-12 "..." # record progress mid-claim
  lumenflow done WU-12             # run gates, check coverage, finish
  lumenflow status WU-12           # show a WU's current projection
  lumenflow recover WU-12 resume   # repair a zombie claim

For detailed help on any command, use:
  lumenflow [command] --help`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: "lifecycle", Title: "Lifecycle Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "memory", Title: "Memory Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "recovery", Title: "Recovery Commands:"})

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output showing detailed information")
	rootCmd.PersistentFlags().String("repo", "", "Repository root (defaults to the current git checkout's top level)")
	rootCmd.SetOut(os.Stderr)

	rootCmd.SetVersionTemplate(fmt.Sprintf("%s\n", console.FormatInfoMessage(fmt.Sprintf("%s version {{.Version}}", constants.CLIName))))

	rootCmd.AddCommand(
		newClaimCommand(),
		newDoneCommand(),
		newBlockCommand(),
		newRecoverCommand(),
		newStatusCommand(),
		newCheckpointCommand(),
		newContextCommand(),
		newRecoverContextCommand(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
