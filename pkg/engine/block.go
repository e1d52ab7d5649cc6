package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/lumenflow/lumenflow/pkg/constants"
	"github.com/lumenflow/lumenflow/pkg/events"
	"github.com/lumenflow/lumenflow/pkg/lanelock"
	"github.com/lumenflow/lumenflow/pkg/microworktree"
	"github.com/lumenflow/lumenflow/pkg/validator"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

// Block runs the §4.8 block protocol: validate the transition, update the
// spec, emit a block event, and release the lane lock. The worktree is left
// in place — blocked WUs are expected to resume later, not be torn down.
func (e *Engine) Block(ctx context.Context, id, reason string) error {
	cfg := e.Cfg

	w, _, err := e.loadWU(ctx, id)
	if err != nil {
		return err
	}
	if err := validator.Transition(w.Status, wu.StatusBlocked); err != nil {
		return err
	}

	now := cfg.Clock()
	w.Status = wu.StatusBlocked
	lane := w.Lane

	wuRel, err := microworktree.RelPath(cfg.RepoRoot, cfg.WUPath(id))
	if err != nil {
		return err
	}
	eventsRel, err := microworktree.RelPath(cfg.RepoRoot, cfg.EventsPath())
	if err != nil {
		return err
	}

	err = microworktree.Run(ctx, microworktree.Options{
		RepoRoot:      cfg.RepoRoot,
		ScratchDir:    cfg.WorktreesDirPath(),
		Operation:     "block",
		ID:            id,
		Remote:        constants.DefaultRemote,
		DefaultBranch: cfg.DefaultBranch,
		Now:           cfg.Now,
		Execute: func(_ context.Context, mwc microworktree.Context) (*microworktree.Result, error) {
			if err := wu.Write(filepath.Join(mwc.WorktreePath, wuRel), w); err != nil {
				return nil, err
			}
			if err := events.Append(filepath.Join(mwc.WorktreePath, eventsRel), events.Block(id, reason, now)); err != nil {
				return nil, err
			}
			return &microworktree.Result{
				CommitMessage: fmt.Sprintf("%s block %s", constants.CommitPrefix, id),
				Files:         []string{wuRel, eventsRel},
			}, nil
		},
	})
	if err != nil {
		return err
	}

	if _, err := lanelock.Release(cfg.LaneLockPath(lane), cfg.WIPLimit, id); err != nil {
		log.Printf("block: lane lock release failed for %s: %v", id, err)
	}
	log.Printf("block succeeded: id=%s reason=%s", id, reason)
	return nil
}
