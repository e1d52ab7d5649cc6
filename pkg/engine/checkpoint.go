package engine

import (
	"context"

	"github.com/lumenflow/lumenflow/pkg/gitutil"
	"github.com/lumenflow/lumenflow/pkg/memory"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

// Checkpoint records a memory checkpoint node and, when opts.WUID is set,
// mirrors it onto the WU event log so agents without memory-store access
// still see progress. When the WU has a recorded baseline SHA, Checkpoint
// also attaches a best-effort `git diff --stat` against that baseline so
// recover-context can show what's changed without re-running git itself.
func (e *Engine) Checkpoint(ctx context.Context, note string, opts memory.CheckpointOptions) (memory.Node, error) {
	cfg := e.Cfg
	if opts.WUID != "" && opts.DiffStat == "" {
		opts.DiffStat = e.checkpointDiffStat(ctx, opts.WUID)
	}
	return memory.Checkpoint(cfg.MemoryPath(), cfg.RelationshipsPath(), cfg.EventsPath(), note, opts, cfg.Clock())
}

// checkpointDiffStat best-effort computes a diff stat for id's current
// checkout against its claim baseline. Any failure (WU not found, not yet
// claimed, git error) is swallowed: the diff stat is a convenience, not a
// load-bearing part of the checkpoint.
func (e *Engine) checkpointDiffStat(ctx context.Context, id string) string {
	w, err := wu.Read(e.Cfg.WUPath(id), id)
	if err != nil || w.Claim == nil || w.Claim.BaselineMainSHA == "" {
		return ""
	}
	checkoutPath := e.Cfg.RepoRoot
	if w.Claim.ClaimedMode == wu.ModeWorktree && w.Claim.WorktreePath != "" {
		checkoutPath = w.Claim.WorktreePath
	}
	stat, err := gitutil.DiffStat(ctx, checkoutPath, w.Claim.BaselineMainSHA, "HEAD")
	if err != nil {
		return ""
	}
	return stat
}

// Context renders the size-bounded agent context block for wuID.
func (e *Engine) Context(ctx context.Context, wuID string, opts memory.ContextOptions) (string, memory.ContextStats, error) {
	return memory.Context(e.Cfg.MemoryPath(), wuID, opts, e.Cfg.Clock())
}

// RecoverContext renders the compact post-compaction recovery block for id.
func (e *Engine) RecoverContext(ctx context.Context, id string, opts memory.RecoverOptions) (string, memory.RecoverResult, error) {
	w, _, err := e.loadWU(ctx, id)
	if err != nil {
		return "", memory.RecoverResult{}, err
	}
	return memory.Recover(e.Cfg.MemoryPath(), w, opts, e.Cfg.Clock())
}
