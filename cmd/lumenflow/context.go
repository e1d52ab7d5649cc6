package main

import (
	"fmt"

	"github.com/lumenflow/lumenflow/pkg/console"
	"github.com/lumenflow/lumenflow/pkg/engine"
	"github.com/lumenflow/lumenflow/pkg/memory"
	"github.com/spf13/cobra"
)

func newContextCommand() *cobra.Command {
	var opts memory.ContextOptions
	cmd := &cobra.Command{
		Use:     "context <wu_id>",
		GroupID: "memory",
		Short:   "Render a size-bounded agent context block for a WU",
		Long: `context replays the memory store and deterministically assembles a
markdown block in section order WU Context -> Summaries -> Discoveries ->
Project Profile, stopping the instant --max-size is exhausted so earlier
(more WU-specific) sections always survive intact.

Example:
  lumenflow context WU-12 --max-size 8192 --sort-by-decay`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			wuID := args[0]
			e := engine.New(cfg)
			block, stats, err := e.Context(cmdContext(cmd), wuID, opts)
			if err != nil {
				fail(err)
				return nil
			}
			fmt.Println(block)
			fmt.Fprintln(cmd.ErrOrStderr(), console.FormatInfoMessage(fmt.Sprintf("size=%d truncated=%t", stats.Size, stats.Truncated)))
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.MaxSize, "max-size", 0, "byte budget for the rendered block (0 = unbounded)")
	cmd.Flags().StringVar(&opts.Lane, "lane", "", "lane name; accepted, but no section is filtered by it (memory nodes carry no lane)")
	cmd.Flags().BoolVar(&opts.SortByDecay, "sort-by-decay", false, "sort each section by half-life-weighted recency instead of creation time")
	cmd.Flags().BoolVar(&opts.TrackAccess, "track-access", false, "accepted, but no access is recorded; --sort-by-decay scores nodes from their creation time")
	return cmd
}
