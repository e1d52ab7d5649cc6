package main

import (
	"fmt"

	"github.com/lumenflow/lumenflow/pkg/console"
	"github.com/lumenflow/lumenflow/pkg/engine"
	"github.com/spf13/cobra"
)

func newRecoverCommand() *cobra.Command {
	var opts engine.RecoverOptions
	cmd := &cobra.Command{
		Use:     "recover <id> [action]",
		GroupID: "recovery",
		Short:   "Analyze a WU for zombie states and optionally dispatch a recovery action",
		Long: `recover always reports the zombie conditions (§4.10) found for id: spec
says done but the worktree or status doc disagrees, spec says in_progress
but the event log's latest entry is release/done, or a duplicate id.

With an action, it additionally dispatches:
  resume   re-claims a zombie, preserving work (capped at 3 auto attempts)
  reset    destructive: clears claim metadata, returns the WU to ready
  nuke     destructive: reset, plus deletes the WU spec itself
  cleanup  removes a leftover worktree for an already-done WU

reset and nuke require --force; both refuse a dirty worktree unless
--discard-changes is also passed.

Examples:
  lumenflow recover WU-12
  lumenflow recover WU-12 resume
  lumenflow recover WU-12 reset --force --discard-changes`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			id := args[0]
			var action engine.Action
			if len(args) == 2 {
				action = engine.Action(args[1])
			}
			e := engine.New(cfg)
			result, err := e.Recover(cmdContext(cmd), id, action, opts)
			if err != nil {
				fail(err)
				return nil
			}
			printRecoverResult(id, result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "required for reset/nuke")
	cmd.Flags().BoolVar(&opts.DiscardChanges, "discard-changes", false, "allow reset/nuke to proceed over an unclean worktree")
	return cmd
}

func printRecoverResult(id string, result engine.RecoverResult) {
	if len(result.Zombies) == 0 {
		fmt.Println(console.FormatInfoMessage(fmt.Sprintf("%s: no zombie conditions found", id)))
	} else {
		fmt.Println(console.FormatListHeader(fmt.Sprintf("%s: %d zombie condition(s)", id, len(result.Zombies))))
		for _, z := range result.Zombies {
			fmt.Println(console.FormatListItem(fmt.Sprintf("%s: %s (%s)", z.WUID, z.Kind, z.Detail)))
		}
	}
	if result.Action != "" {
		if result.Applied {
			fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("%s: applied %s", id, result.Action)))
		} else {
			fmt.Println(console.FormatWarningMessage(fmt.Sprintf("%s: %s not applied", id, result.Action)))
		}
	}
}
