package main

import (
	"fmt"

	"github.com/lumenflow/lumenflow/pkg/console"
	"github.com/lumenflow/lumenflow/pkg/engine"
	"github.com/spf13/cobra"
)

func newClaimCommand() *cobra.Command {
	var opts engine.ClaimOptions
	cmd := &cobra.Command{
		Use:     "claim <id> <lane>",
		GroupID: "lifecycle",
		Short:   "Claim a WU: validate, lock its lane, and create its worktree",
		Long: `claim runs the full claim protocol for a Work Unit: pre-flight and schema
validation, the manual-tests-at-claim and lane-format checks, the code-path
overlap detector against every other in-progress WU, and — once the lane
lock is acquired — creates the WU's worktree (or, in branch-only/branch-pr
mode, checks out its lane branch directly) and pushes its in_progress spec
and claim event.

Examples:
  lumenflow claim WU-12 Core
  lumenflow claim WU-12 Core --mode branch-pr
  lumenflow claim WU-12 Core --force --reason "hotfix, WIP justified"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			id, lane := args[0], args[1]
			e := engine.New(cfg)
			if err := e.Claim(cmdContext(cmd), id, lane, opts); err != nil {
				fail(err)
				return nil
			}
			fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("claimed %s in lane %s", id, lane)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "bypass lane-lock contention, taking an extra WIP slot (requires --reason)")
	cmd.Flags().BoolVar(&opts.ForceOverlap, "force-overlap", false, "bypass the code-path overlap detector (requires --reason)")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "justification required alongside --force or --force-overlap")
	cmd.Flags().BoolVar(&opts.Fix, "fix", false, "apply schema auto-fixes inside the claiming worktree before writing the spec")
	cmd.Flags().BoolVar(&opts.AllowIncomplete, "allow-incomplete", false, "bypass the spec-completeness check (never bypasses manual-tests-at-claim)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "claim isolation mode: worktree (default), branch-only, or branch-pr")
	cmd.Flags().StringVar(&opts.SessionID, "session-id", "", "claiming agent session id (generated if omitted)")
	return cmd
}
