package main

import (
	"fmt"

	"github.com/lumenflow/lumenflow/pkg/console"
	"github.com/lumenflow/lumenflow/pkg/engine"
	"github.com/spf13/cobra"
)

func newDoneCommand() *cobra.Command {
	var opts engine.DoneOptions
	cmd := &cobra.Command{
		Use:     "done <id>",
		GroupID: "lifecycle",
		Short:   "Mark a WU done: run gates, check code-path coverage, stamp, and tear down",
		Long: `done runs gates (unless --skip-gates), checks that the changes relative to
the WU's claim baseline cover every declared code_paths prefix and touch
nothing outside it, then snapshots the affected files, writes the done
stamp, marks the spec done and locked, moves it on the status and backlog
dashboards, releases the lane lock, and removes the worktree and lane
branches. Already-done, already-stamped WUs are a no-op.

Examples:
  lumenflow done WU-12
  lumenflow done WU-12 --skip-gates --reason "gates flaky on CI runner"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			id := args[0]
			e := engine.New(cfg)
			if err := e.Done(cmdContext(cmd), id, opts); err != nil {
				fail(err)
				return nil
			}
			fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("%s done", id)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.SkipGates, "skip-gates", false, "bypass gate checks (requires --reason)")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "justification required alongside --skip-gates")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "assert the WU was claimed in this mode (worktree, branch-only, branch-pr)")
	return cmd
}
