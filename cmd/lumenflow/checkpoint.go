package main

import (
	"fmt"

	"github.com/lumenflow/lumenflow/pkg/console"
	"github.com/lumenflow/lumenflow/pkg/engine"
	"github.com/lumenflow/lumenflow/pkg/memory"
	"github.com/spf13/cobra"
)

func newCheckpointCommand() *cobra.Command {
	var opts memory.CheckpointOptions
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "checkpoint <wu_id> <note>",
		GroupID: "memory",
		Short:   "Record a durable handoff point before context loss",
		Long: `checkpoint creates a session-lifecycle memory node recording note and,
since a wu_id is always given here, mirrors it onto that WU's event log as
a checkpoint event — so agents without memory-store access still see
progress.

Example:
  lumenflow checkpoint WU-12 "tests green, refactor handler next" \
      --progress "tests green" --next-steps "refactor handler"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			note := args[1]
			opts.WUID = args[0]
			e := engine.New(cfg)
			node, err := e.Checkpoint(cmdContext(cmd), note, opts)
			if err != nil {
				fail(err)
				return nil
			}
			if asJSON {
				return console.OutputStructOrJSON(node, true)
			}
			fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("recorded checkpoint %s for %s", node.ID, opts.WUID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Progress, "progress", "", "what's verifiably done so far")
	cmd.Flags().StringVar(&opts.NextSteps, "next-steps", "", "what to do next after resuming")
	cmd.Flags().StringVar(&opts.Trigger, "trigger", "", "why this checkpoint was taken (e.g. context-compaction)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the created node as JSON")
	return cmd
}
