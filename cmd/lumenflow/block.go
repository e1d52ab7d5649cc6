package main

import (
	"fmt"

	"github.com/lumenflow/lumenflow/pkg/console"
	"github.com/lumenflow/lumenflow/pkg/engine"
	"github.com/spf13/cobra"
)

func newBlockCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "block <id> <reason>",
		GroupID: "lifecycle",
		Short:   "Mark an in_progress WU blocked, recording why and releasing its lane lock",
		Long: `block validates that in_progress -> blocked is an admissible transition,
updates the spec, emits a block event, and releases the lane lock so
another WU can claim the lane. The worktree is left in place since blocked
WUs are expected to resume, not be torn down.

Example:
  lumenflow block WU-12 "waiting on upstream API access"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			id, reason := args[0], args[1]
			e := engine.New(cfg)
			if err := e.Block(cmdContext(cmd), id, reason); err != nil {
				fail(err)
				return nil
			}
			fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("%s blocked", id)))
			return nil
		},
	}
	return cmd
}
