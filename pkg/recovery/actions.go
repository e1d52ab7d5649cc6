package recovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lumenflow/lumenflow/pkg/backlog"
	"github.com/lumenflow/lumenflow/pkg/constants"
	"github.com/lumenflow/lumenflow/pkg/events"
	"github.com/lumenflow/lumenflow/pkg/gitutil"
	"github.com/lumenflow/lumenflow/pkg/lanelock"
	"github.com/lumenflow/lumenflow/pkg/lfconfig"
	"github.com/lumenflow/lumenflow/pkg/lferr"
	"github.com/lumenflow/lumenflow/pkg/logger"
	"github.com/lumenflow/lumenflow/pkg/microworktree"
	"github.com/lumenflow/lumenflow/pkg/statusdoc"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

var actionLog = logger.New("recovery:actions")

// Options configures a recovery action's bypass flags.
type Options struct {
	Force          bool
	DiscardChanges bool
}

// sharedPaths returns, relative to cfg.RepoRoot, the WU spec, event log,
// status doc, and backlog doc paths every recovery action's micro-worktree
// commit touches.
func sharedPaths(cfg *lfconfig.Config, id string) (wuRel, eventsRel, statusRel, backlogRel string, err error) {
	wuRel, err = microworktree.RelPath(cfg.RepoRoot, wu.PathFor(cfg.WUDirPath(), id))
	if err != nil {
		return
	}
	eventsRel, err = microworktree.RelPath(cfg.RepoRoot, cfg.EventsPath())
	if err != nil {
		return
	}
	statusRel, err = microworktree.RelPath(cfg.RepoRoot, cfg.StatusPath())
	if err != nil {
		return
	}
	backlogRel, err = microworktree.RelPath(cfg.RepoRoot, cfg.BacklogPath())
	return
}

// Resume sets a zombie WU back to in_progress, re-emits its claim event, and
// reapplies claim metadata, preserving whatever work is sitting in its
// worktree. Per §4.10, this is the non-destructive recovery path.
func Resume(ctx context.Context, cfg *lfconfig.Config, w *wu.WU) error {
	if w.Claim == nil {
		return lferr.New(lferr.Validation, "resume requires existing claim metadata; use recover with a fresh claim instead", "WU %s has no claim metadata to resume", w.ID)
	}
	now := cfg.Clock()
	w.Status = wu.StatusInProgress

	wuRel, eventsRel, statusRel, backlogRel, err := sharedPaths(cfg, w.ID)
	if err != nil {
		return err
	}

	err = microworktree.Run(ctx, microworktree.Options{
		RepoRoot:      cfg.RepoRoot,
		ScratchDir:    cfg.WorktreesDirPath(),
		Operation:     "recover-resume",
		ID:            w.ID,
		Remote:        constants.DefaultRemote,
		DefaultBranch: cfg.DefaultBranch,
		Now:           cfg.Now,
		Execute: func(_ context.Context, mwc microworktree.Context) (*microworktree.Result, error) {
			if err := wu.Write(filepath.Join(mwc.WorktreePath, wuRel), w); err != nil {
				return nil, err
			}
			if err := events.Append(filepath.Join(mwc.WorktreePath, eventsRel), events.Claim(w.ID, w.Lane, w.Title, w.Claim.SessionID, now)); err != nil {
				return nil, err
			}
			if err := statusdoc.MarkInProgress(filepath.Join(mwc.WorktreePath, statusRel), w.ID, w.Title); err != nil {
				return nil, err
			}
			if err := backlog.MoveToInProgress(filepath.Join(mwc.WorktreePath, backlogRel), w.ID, w.Title); err != nil {
				return nil, err
			}
			return &microworktree.Result{
				CommitMessage: fmt.Sprintf("%s resume %s", constants.CommitPrefix, w.ID),
				Files:         []string{wuRel, eventsRel, statusRel, backlogRel},
			}, nil
		},
	})
	if err != nil {
		return err
	}
	if err := ResetAttempts(cfg.RecoveryMarkerPath(w.ID)); err != nil {
		actionLog.Printf("failed to reset recovery marker for %s: %v", w.ID, err)
	}
	return nil
}

// releaseClaimedResources tears down the worktree and branches a claim
// holds, refusing on dirty worktree state unless discardChanges is set.
// Shared by Reset and Nuke.
func releaseClaimedResources(ctx context.Context, cfg *lfconfig.Config, w *wu.WU, discardChanges bool) error {
	var worktreePath, branch string
	if w.Claim != nil {
		worktreePath = w.Claim.WorktreePath
		branch = w.Claim.ClaimedBranch
	}
	if worktreePath != "" {
		if _, statErr := os.Stat(worktreePath); statErr == nil && !discardChanges {
			clean, err := gitutil.IsClean(ctx, worktreePath)
			if err != nil {
				return err
			}
			if !clean {
				return lferr.New(lferr.Validation, "pass discard_changes=true to proceed anyway", "WU %s's worktree has uncommitted changes", w.ID)
			}
		}
		_ = gitutil.RemoveWorktree(ctx, cfg.RepoRoot, worktreePath)
	}
	if branch != "" {
		_ = gitutil.DeleteLocalBranch(ctx, cfg.RepoRoot, branch)
		_ = gitutil.DeleteRemoteBranch(ctx, cfg.RepoRoot, constants.DefaultRemote, branch)
	}
	return nil
}

// Reset is the destructive recovery path: it discards the claim, returns
// the WU to ready, and releases every resource the claim held. Requires
// opts.Force. Refuses on uncommitted worktree changes unless
// opts.DiscardChanges.
func Reset(ctx context.Context, cfg *lfconfig.Config, w *wu.WU, opts Options) error {
	if !opts.Force {
		return lferr.New(lferr.Validation, "pass force=true to confirm a destructive reset", "reset of WU %s requires force", w.ID)
	}
	if err := releaseClaimedResources(ctx, cfg, w, opts.DiscardChanges); err != nil {
		return err
	}

	lane := w.Lane
	w.Claim = nil
	w.Completion = nil
	w.Status = wu.StatusReady

	now := cfg.Clock()
	wuRel, eventsRel, statusRel, backlogRel, err := sharedPaths(cfg, w.ID)
	if err != nil {
		return err
	}

	err = microworktree.Run(ctx, microworktree.Options{
		RepoRoot:      cfg.RepoRoot,
		ScratchDir:    cfg.WorktreesDirPath(),
		Operation:     "recover-reset",
		ID:            w.ID,
		Remote:        constants.DefaultRemote,
		DefaultBranch: cfg.DefaultBranch,
		Now:           cfg.Now,
		Execute: func(_ context.Context, mwc microworktree.Context) (*microworktree.Result, error) {
			if err := wu.Write(filepath.Join(mwc.WorktreePath, wuRel), w); err != nil {
				return nil, err
			}
			if err := events.Append(filepath.Join(mwc.WorktreePath, eventsRel), events.Release(w.ID, lane, "recovery reset", now)); err != nil {
				return nil, err
			}
			if err := statusdoc.Remove(filepath.Join(mwc.WorktreePath, statusRel), w.ID); err != nil {
				return nil, err
			}
			if err := backlog.MoveToReady(filepath.Join(mwc.WorktreePath, backlogRel), w.ID, w.Title); err != nil {
				return nil, err
			}
			return &microworktree.Result{
				CommitMessage: fmt.Sprintf("%s reset %s", constants.CommitPrefix, w.ID),
				Files:         []string{wuRel, eventsRel, statusRel, backlogRel},
			}, nil
		},
	})
	if err != nil {
		return err
	}

	if _, err := lanelock.Release(cfg.LaneLockPath(lane), cfg.WIPLimit, w.ID); err != nil {
		actionLog.Printf("lane lock release failed during reset of %s: %v", w.ID, err)
	}
	return ResetAttempts(cfg.RecoveryMarkerPath(w.ID))
}

// Nuke performs everything Reset does, plus deletes the WU spec itself.
// Requires opts.Force.
func Nuke(ctx context.Context, cfg *lfconfig.Config, w *wu.WU, opts Options) error {
	if !opts.Force {
		return lferr.New(lferr.Validation, "pass force=true to confirm a destructive nuke", "nuke of WU %s requires force", w.ID)
	}
	if err := releaseClaimedResources(ctx, cfg, w, opts.DiscardChanges); err != nil {
		return err
	}

	lane := w.Lane
	now := cfg.Clock()
	wuRel, eventsRel, statusRel, backlogRel, err := sharedPaths(cfg, w.ID)
	if err != nil {
		return err
	}

	err = microworktree.Run(ctx, microworktree.Options{
		RepoRoot:      cfg.RepoRoot,
		ScratchDir:    cfg.WorktreesDirPath(),
		Operation:     "recover-nuke",
		ID:            w.ID,
		Remote:        constants.DefaultRemote,
		DefaultBranch: cfg.DefaultBranch,
		Now:           cfg.Now,
		Execute: func(_ context.Context, mwc microworktree.Context) (*microworktree.Result, error) {
			absWUInWorktree := filepath.Join(mwc.WorktreePath, wuRel)
			if err := os.Remove(absWUInWorktree); err != nil && !os.IsNotExist(err) {
				return nil, lferr.Wrap(lferr.IO, err, "", "failed to remove WU spec %s", absWUInWorktree)
			}
			if err := events.Append(filepath.Join(mwc.WorktreePath, eventsRel), events.Release(w.ID, lane, "recovery nuke", now)); err != nil {
				return nil, err
			}
			if err := statusdoc.Remove(filepath.Join(mwc.WorktreePath, statusRel), w.ID); err != nil {
				return nil, err
			}
			if err := backlog.Remove(filepath.Join(mwc.WorktreePath, backlogRel), w.ID); err != nil {
				return nil, err
			}
			return &microworktree.Result{
				CommitMessage: fmt.Sprintf("%s nuke %s", constants.CommitPrefix, w.ID),
				Files:         []string{wuRel, eventsRel, statusRel, backlogRel},
			}, nil
		},
	})
	if err != nil {
		return err
	}

	if _, err := lanelock.Release(cfg.LaneLockPath(lane), cfg.WIPLimit, w.ID); err != nil {
		actionLog.Printf("lane lock release failed during nuke of %s: %v", w.ID, err)
	}
	return ResetAttempts(cfg.RecoveryMarkerPath(w.ID))
}

// Cleanup removes a leftover worktree for a WU that is already done. It
// never touches the status doc, backlog doc, or event log, per §4.10.
func Cleanup(ctx context.Context, cfg *lfconfig.Config, w *wu.WU) error {
	if w.Status != wu.StatusDone {
		return lferr.New(lferr.Validation, "only a done WU's worktree can be cleaned up; use reset or nuke otherwise", "WU %s is not done", w.ID)
	}
	if w.Claim == nil || w.Claim.WorktreePath == "" {
		return nil
	}
	if _, err := os.Stat(w.Claim.WorktreePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return lferr.Wrap(lferr.IO, err, "", "failed to stat worktree %s", w.Claim.WorktreePath)
	}
	return gitutil.RemoveWorktree(ctx, cfg.RepoRoot, w.Claim.WorktreePath)
}
