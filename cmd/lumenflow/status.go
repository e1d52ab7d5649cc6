package main

import (
	"fmt"

	"github.com/lumenflow/lumenflow/pkg/console"
	"github.com/lumenflow/lumenflow/pkg/engine"
	"github.com/lumenflow/lumenflow/pkg/stringutil"
	"github.com/spf13/cobra"
)

// statusLineMaxLen bounds how much of a checkpoint's free-text fields
// status prints on one line; the full text is always in the event log.
const statusLineMaxLen = 100

func newStatusCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "status <id>",
		GroupID: "lifecycle",
		Short:   "Show a WU's spec merged with the event log's effective status",
		Long: `status reads the WU spec and replays the event log, returning both: the
spec's own fields, the event log's effective status (which can disagree
with the spec during a zombie window), the last checkpoint recorded
against the WU, and whether it's currently orphaned.

Example:
  lumenflow status WU-12`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			id := args[0]
			e := engine.New(cfg)
			projection, err := e.Status(cmdContext(cmd), id)
			if err != nil {
				fail(err)
				return nil
			}
			if asJSON {
				return console.OutputStructOrJSON(projection, true)
			}
			printStatus(projection)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the projection as JSON")
	return cmd
}

func printStatus(p engine.StatusProjection) {
	fmt.Println(console.RenderStruct(p.WU))
	fmt.Println(console.FormatInfoMessage(fmt.Sprintf("effective status (event log): %s", p.EffectiveStatus)))
	if p.Orphaned {
		fmt.Println(console.FormatWarningMessage("spec says done but the event log still reports in_progress (orphan)"))
	}
	if p.LastCheckpoint != nil {
		fmt.Println(console.FormatListHeader("last checkpoint"))
		fmt.Println(console.FormatListItem(fmt.Sprintf("progress: %s", stringutil.Truncate(p.LastCheckpoint.Progress, statusLineMaxLen))))
		fmt.Println(console.FormatListItem(fmt.Sprintf("next steps: %s", stringutil.Truncate(p.LastCheckpoint.NextSteps, statusLineMaxLen))))
		fmt.Println(console.FormatListItem(fmt.Sprintf("recorded: %s", p.LastCheckpoint.TS)))
	}
}
