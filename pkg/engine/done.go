package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/lumenflow/lumenflow/pkg/backlog"
	"github.com/lumenflow/lumenflow/pkg/constants"
	"github.com/lumenflow/lumenflow/pkg/events"
	"github.com/lumenflow/lumenflow/pkg/ghpr"
	"github.com/lumenflow/lumenflow/pkg/gitutil"
	"github.com/lumenflow/lumenflow/pkg/lanelock"
	"github.com/lumenflow/lumenflow/pkg/lferr"
	"github.com/lumenflow/lumenflow/pkg/microworktree"
	"github.com/lumenflow/lumenflow/pkg/rollback"
	"github.com/lumenflow/lumenflow/pkg/stamp"
	"github.com/lumenflow/lumenflow/pkg/statusdoc"
	"github.com/lumenflow/lumenflow/pkg/validator"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

// Done runs the full §4.8 done protocol for id: gates, coverage, the
// stamp+spec+dashboard write, lane lock release, and worktree/branch
// teardown. A WU already done, stamped, and locked is a no-op.
func (e *Engine) Done(ctx context.Context, id string, opts DoneOptions) error {
	cfg := e.Cfg

	w, _, err := e.loadWU(ctx, id)
	if err != nil {
		return err
	}

	if w.IsDone() && w.Completion != nil && w.Completion.Locked && stamp.Exists(cfg.StampPath(id)) {
		log.Printf("done: %s is already done and stamped, no-op", id)
		return nil
	}

	if err := validator.Transition(w.Status, wu.StatusDone); err != nil {
		return err
	}
	if w.Claim == nil {
		return lferr.New(lferr.Validation, "a WU needs claim metadata before it can be marked done", "WU %s has no claim metadata", id)
	}
	if opts.Mode != "" && opts.Mode != string(w.Claim.ClaimedMode) {
		return lferr.New(lferr.Validation, "pass the mode the WU was actually claimed under",
			"WU %s was claimed in mode %q, not %q", id, w.Claim.ClaimedMode, opts.Mode)
	}

	checkoutPath, err := e.doneCheckoutPath(ctx, w)
	if err != nil {
		return err
	}

	if !opts.SkipGates {
		if opts.Gates != nil {
			if err := opts.Gates(ctx, w); err != nil {
				return lferr.Wrap(lferr.Recoverable, err, "fix the failing gate and retry, or pass skip_gates with a reason", "gates failed for WU %s", id)
			}
		}
	} else if opts.Reason == "" {
		return lferr.New(lferr.Validation, "pass a reason when skipping gates", "skip_gates requires a reason")
	} else {
		log.Printf("done: gates skipped for %s: %s", id, opts.Reason)
	}

	changedFiles, err := gitutil.ChangedFiles(ctx, checkoutPath, w.Claim.BaselineMainSHA, "HEAD", cfg.DetectRenames)
	if err != nil {
		return err
	}
	coverage := validator.CodePathCoverage(w.CodePaths, changedFiles)
	if !coverage.OK() {
		return validator.CoverageError(id, coverage)
	}

	journal, err := rollback.Snapshot([]string{cfg.StampPath(id)})
	if err != nil {
		return err
	}
	if err := stamp.Create(cfg.StampPath(id)); err != nil {
		return err
	}

	now := cfg.Clock()
	w.Status = wu.StatusDone
	w.Completion = &wu.Completion{CompletedAt: now, Locked: true}

	wuRel, err := microworktree.RelPath(cfg.RepoRoot, cfg.WUPath(id))
	if err != nil {
		_ = journal.Restore()
		return err
	}
	eventsRel, err := microworktree.RelPath(cfg.RepoRoot, cfg.EventsPath())
	if err != nil {
		_ = journal.Restore()
		return err
	}
	statusRel, err := microworktree.RelPath(cfg.RepoRoot, cfg.StatusPath())
	if err != nil {
		_ = journal.Restore()
		return err
	}
	backlogRel, err := microworktree.RelPath(cfg.RepoRoot, cfg.BacklogPath())
	if err != nil {
		_ = journal.Restore()
		return err
	}

	lane := w.Lane
	title := w.Title
	runErr := microworktree.Run(ctx, microworktree.Options{
		RepoRoot:      cfg.RepoRoot,
		ScratchDir:    cfg.WorktreesDirPath(),
		Operation:     "done",
		ID:            id,
		Remote:        constants.DefaultRemote,
		DefaultBranch: cfg.DefaultBranch,
		Now:           cfg.Now,
		Execute: func(_ context.Context, mwc microworktree.Context) (*microworktree.Result, error) {
			if err := wu.Write(filepath.Join(mwc.WorktreePath, wuRel), w); err != nil {
				return nil, err
			}
			if err := events.Append(filepath.Join(mwc.WorktreePath, eventsRel), events.Done(id, now)); err != nil {
				return nil, err
			}
			if err := statusdoc.MarkDone(filepath.Join(mwc.WorktreePath, statusRel), id, title); err != nil {
				return nil, err
			}
			if err := backlog.MoveToDone(filepath.Join(mwc.WorktreePath, backlogRel), id, title); err != nil {
				return nil, err
			}
			return &microworktree.Result{
				CommitMessage: fmt.Sprintf("%s done %s", constants.CommitPrefix, id),
				Files:         []string{wuRel, eventsRel, statusRel, backlogRel},
			}, nil
		},
	})
	if runErr != nil {
		if restoreErr := journal.Restore(); restoreErr != nil {
			log.Printf("done: rollback restore failed for %s: %v", id, restoreErr)
		}
		return runErr
	}

	if _, err := lanelock.Release(cfg.LaneLockPath(lane), cfg.WIPLimit, id); err != nil {
		log.Printf("done: lane lock release failed for %s: %v", id, err)
	}

	if w.Claim.ClaimedMode == wu.ModeBranchPR {
		e.ensurePullRequest(w)
	} else {
		e.teardownClaim(ctx, w)
	}

	log.Printf("done succeeded: id=%s", id)
	return nil
}

// ensurePullRequest hands a branch-pr claim's branch off to GitHub's own
// review flow. The branch is deliberately left alive — deleting it here
// would discard undelivered code; cleanup happens once the PR merges,
// outside the engine's scope. Failures are logged, not escalated: a
// missing PR here doesn't invalidate the done bookkeeping that already
// landed.
func (e *Engine) ensurePullRequest(w *wu.WU) {
	url, err := ghpr.EnsurePR(w.Claim.ClaimedBranch, e.Cfg.DefaultBranch, fmt.Sprintf("%s: %s", w.ID, w.Title), "")
	if err != nil {
		log.Printf("done: failed to open PR for %s (branch left in place for manual follow-up): %v", w.ID, err)
		return
	}
	log.Printf("done: PR ready for %s: %s", w.ID, url)
}

// doneCheckoutPath resolves the checkout done's coverage check and caller-
// branch assertion run against: the WU's own worktree in worktree mode, or
// the shared checkout for branch-only/branch-pr, which must already be on
// the claimed branch.
func (e *Engine) doneCheckoutPath(ctx context.Context, w *wu.WU) (string, error) {
	if w.Claim.ClaimedMode == wu.ModeWorktree {
		if w.Claim.WorktreePath == "" {
			return "", lferr.New(lferr.Validation, "resume or reset the claim before retrying done", "WU %s has no recorded worktree path", w.ID)
		}
		return w.Claim.WorktreePath, nil
	}
	current, err := gitutil.CurrentBranch(ctx, e.Cfg.RepoRoot)
	if err != nil {
		return "", err
	}
	if current != w.Claim.ClaimedBranch {
		return "", lferr.New(lferr.Validation, fmt.Sprintf("check out %s before running done", w.Claim.ClaimedBranch),
			"WU %s must be marked done from its claimed branch %s, not %s", w.ID, w.Claim.ClaimedBranch, current)
	}
	return e.Cfg.RepoRoot, nil
}

// teardownClaim removes the WU's worktree (if any) and deletes its lane
// branch, local and remote. Failures are logged, not escalated: done has
// already committed by this point, so teardown is best-effort cleanup.
func (e *Engine) teardownClaim(ctx context.Context, w *wu.WU) {
	cfg := e.Cfg
	if w.Claim.ClaimedMode == wu.ModeWorktree && w.Claim.WorktreePath != "" {
		_ = gitutil.RemoveWorktree(ctx, cfg.RepoRoot, w.Claim.WorktreePath)
	}
	if w.Claim.ClaimedBranch != "" {
		_ = gitutil.DeleteLocalBranch(ctx, cfg.RepoRoot, w.Claim.ClaimedBranch)
		_ = gitutil.DeleteRemoteBranch(ctx, cfg.RepoRoot, constants.DefaultRemote, w.Claim.ClaimedBranch)
	}
}
