package main

import (
	"fmt"

	"github.com/lumenflow/lumenflow/pkg/console"
	"github.com/lumenflow/lumenflow/pkg/engine"
	"github.com/lumenflow/lumenflow/pkg/memory"
	"github.com/spf13/cobra"
)

func newRecoverContextCommand() *cobra.Command {
	var opts memory.RecoverOptions
	cmd := &cobra.Command{
		Use:     "recover-context <id>",
		GroupID: "memory",
		Short:   "Render a compact post-compaction recovery block for a WU",
		Long: `recover-context produces the block an agent reads immediately after its
context window was compacted: header, last checkpoint, WU metadata
(acceptance + code_paths, each capped), the last recorded git diff stat,
compact constraints, and an essential CLI command reference — everything
needed to re-orient without replaying the whole event log.

Example:
  lumenflow recover-context WU-12 --max-size 8192`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			id := args[0]
			e := engine.New(cfg)
			block, result, err := e.RecoverContext(cmdContext(cmd), id, opts)
			if err != nil {
				fail(err)
				return nil
			}
			fmt.Println(block)
			fmt.Fprintln(cmd.ErrOrStderr(), console.FormatInfoMessage(fmt.Sprintf("size=%d truncated=%t", result.Size, result.Truncated)))
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.MaxSize, "max-size", 0, "byte budget for the rendered block (0 = unbounded)")
	return cmd
}
