package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lumenflow/lumenflow/pkg/backlog"
	"github.com/lumenflow/lumenflow/pkg/constants"
	"github.com/lumenflow/lumenflow/pkg/events"
	"github.com/lumenflow/lumenflow/pkg/gitutil"
	"github.com/lumenflow/lumenflow/pkg/lanelock"
	"github.com/lumenflow/lumenflow/pkg/lferr"
	"github.com/lumenflow/lumenflow/pkg/microworktree"
	"github.com/lumenflow/lumenflow/pkg/overlap"
	"github.com/lumenflow/lumenflow/pkg/recovery"
	"github.com/lumenflow/lumenflow/pkg/sliceutil"
	"github.com/lumenflow/lumenflow/pkg/statusdoc"
	"github.com/lumenflow/lumenflow/pkg/validator"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

// validClaimModes lists the isolation strategies --mode accepts.
var validClaimModes = []string{string(wu.ModeWorktree), string(wu.ModeBranchOnly), string(wu.ModeBranchPR)}

// Claim runs the full §4.8 claim protocol for id in lane, returning a typed
// error naming the failing step. On success the WU is in_progress, its
// worktree exists, and the lane lock is held by exactly this WU — per §8
// invariant 2 and invariant 5's mirror ("any failed claim leaves no lane
// lock held, no new branches, no changes to WU spec, and no new events").
func (e *Engine) Claim(ctx context.Context, id, lane string, opts ClaimOptions) error {
	cfg := e.Cfg
	mode := wu.ClaimMode(opts.Mode)
	if mode == "" {
		mode = wu.ModeWorktree
	}
	if !sliceutil.Contains(validClaimModes, string(mode)) {
		return lferr.New(lferr.Validation, "use --mode worktree, branch-only, or branch-pr",
			"invalid claim mode %q", mode)
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}

	log.Printf("claim starting: id=%s lane=%s mode=%s", id, lane, mode)

	if err := gitutil.Fetch(ctx, cfg.RepoRoot, constants.DefaultRemote); err != nil {
		return err
	}
	if err := gitutil.FastForwardFetchHead(ctx, cfg.RepoRoot, constants.DefaultRemote, cfg.DefaultBranch); err != nil {
		return err
	}

	w, store, err := e.loadWU(ctx, id)
	if err != nil {
		return err
	}

	if err := validator.Preflight(w, id); err != nil {
		return err
	}
	if err := validator.LaneFormat(lane); err != nil {
		return err
	}
	if err := validator.Transition(w.Status, wu.StatusInProgress); err != nil {
		return err
	}
	if err := validator.ManualTestsAtClaim(w); err != nil {
		return err
	}
	valOpts := validator.Options{AllowIncomplete: opts.AllowIncomplete, Force: opts.Force, ForceOverlap: opts.ForceOverlap}
	if err := validator.SpecCompleteness(w, valOpts); err != nil {
		return err
	}

	if err := e.checkSingleOrphan(ctx, id); err != nil {
		return err
	}

	now := cfg.Clock()
	justification := ""
	acquired, err := e.acquireLaneLock(lane, id, opts, now)
	if err != nil {
		return err
	}
	if acquired.forced {
		justification = opts.Reason
	}

	// Any failure from here on must release the lock we just took.
	succeeded := false
	defer func() {
		if !succeeded {
			if _, relErr := lanelock.Release(cfg.LaneLockPath(lane), acquired.wipLimit, id); relErr != nil {
				log.Printf("claim rollback: failed to release lane lock for %s: %v", id, relErr)
			}
		}
	}()

	conflicts := overlap.Detect(w.CodePaths, e.inProgressOverlapCandidates(store, id))
	if len(conflicts) > 0 {
		if !opts.ForceOverlap {
			return overlapError(id, conflicts)
		}
		if opts.Reason == "" {
			return lferr.New(lferr.Validation, "pass a reason when forcing an overlap claim", "force_overlap requires a reason")
		}
	}

	if mode == wu.ModeBranchOnly || mode == wu.ModeBranchPR {
		if err := e.branchOnlyPreChecks(lane); err != nil {
			return err
		}
	}

	branch := cfg.LaneBranch(lane, id)
	remoteDefault := constants.DefaultRemote + "/" + cfg.DefaultBranch

	if err := gitutil.CreateBranchFrom(ctx, cfg.RepoRoot, branch, remoteDefault); err != nil {
		return err
	}
	branchCreated := true
	defer func() {
		if !succeeded && branchCreated {
			_ = gitutil.DeleteLocalBranch(ctx, cfg.RepoRoot, branch)
			_ = gitutil.DeleteRemoteBranch(ctx, cfg.RepoRoot, constants.DefaultRemote, branch)
		}
	}()

	// worktree mode gets an isolated directory so concurrent claims never
	// collide; branch-only/branch-pr reuse the caller's own checkout
	// directly, which is why branchOnlyPreChecks above refuses a second
	// such claim rather than allowing it to stack.
	var worktreePath string
	var worktreeAdded bool
	if mode == wu.ModeWorktree {
		worktreePath = cfg.WorktreePath(lane, id)
		if err := os.MkdirAll(cfg.WorktreesDirPath(), 0o755); err != nil {
			return lferr.Wrap(lferr.IO, err, "check directory permissions", "failed to create worktrees dir")
		}
		if err := e.refuseDanglingWorktreeSymlinks(); err != nil {
			return err
		}
		if err := gitutil.AddWorktree(ctx, cfg.RepoRoot, worktreePath, branch); err != nil {
			return err
		}
		worktreeAdded = true
	} else {
		worktreePath = cfg.RepoRoot
		if err := gitutil.Checkout(ctx, cfg.RepoRoot, branch); err != nil {
			return err
		}
	}
	defer func() {
		if !succeeded && worktreeAdded {
			_ = gitutil.RemoveWorktree(ctx, cfg.RepoRoot, worktreePath)
		}
	}()

	baselineSHA, err := gitutil.RevParse(ctx, worktreePath, "HEAD")
	if err != nil {
		return err
	}

	if opts.Fix {
		issues, schemaErr := schemaIssuesFor(w)
		if schemaErr != nil {
			return schemaErr
		}
		validator.ApplyFixes(w, issues)
	}

	w.Status = wu.StatusInProgress
	w.Claim = &wu.Claim{
		ClaimedAt:       now,
		SessionID:       opts.SessionID,
		ClaimedMode:     mode,
		ClaimedBranch:   branch,
		BaselineMainSHA: baselineSHA,
	}
	if mode == wu.ModeWorktree {
		w.Claim.WorktreePath = worktreePath
	}
	w.Completion = nil

	wuRel, err := relPath(cfg.RepoRoot, cfg.WUPath(id))
	if err != nil {
		return err
	}
	eventsRel, err := relPath(cfg.RepoRoot, cfg.EventsPath())
	if err != nil {
		return err
	}

	if err := wu.Write(filepath.Join(worktreePath, wuRel), w); err != nil {
		return err
	}
	ev := events.Claim(id, lane, w.Title, opts.SessionID, now)
	if justification != "" {
		ev = events.ForcedClaim(id, lane, w.Title, opts.SessionID, justification, now)
	} else if len(conflicts) > 0 && opts.ForceOverlap {
		ev = events.ForcedClaim(id, lane, w.Title, opts.SessionID, opts.Reason, now)
	}
	if err := events.Append(filepath.Join(worktreePath, eventsRel), ev); err != nil {
		return err
	}

	if err := gitutil.AddFiles(ctx, worktreePath, []string{wuRel, eventsRel}); err != nil {
		return err
	}
	if err := gitutil.Commit(ctx, worktreePath, fmt.Sprintf("%s claim %s", constants.CommitPrefix, id)); err != nil {
		return err
	}
	if err := gitutil.Push(ctx, worktreePath, constants.DefaultRemote, branch, true); err != nil {
		return err
	}

	// The WU spec and claim event are owned by, and committed on, the
	// agent's own lane branch above. The status/backlog dashboards are
	// shared main-checkout documents, so per §5's shared-resource policy
	// they're only ever written through the micro-worktree transactor.
	statusRel, err := relPath(cfg.RepoRoot, cfg.StatusPath())
	if err != nil {
		return err
	}
	backlogRel, err := relPath(cfg.RepoRoot, cfg.BacklogPath())
	if err != nil {
		return err
	}
	dashboardErr := microworktree.Run(ctx, microworktree.Options{
		RepoRoot:      cfg.RepoRoot,
		ScratchDir:    cfg.WorktreesDirPath(),
		Operation:     "claim-dashboards",
		ID:            id,
		Remote:        constants.DefaultRemote,
		DefaultBranch: cfg.DefaultBranch,
		Now:           cfg.Now,
		Execute: func(_ context.Context, mwc microworktree.Context) (*microworktree.Result, error) {
			if err := statusdoc.MarkInProgress(filepath.Join(mwc.WorktreePath, statusRel), id, w.Title); err != nil {
				return nil, err
			}
			if err := backlog.MoveToInProgress(filepath.Join(mwc.WorktreePath, backlogRel), id, w.Title); err != nil {
				return nil, err
			}
			return &microworktree.Result{
				CommitMessage: fmt.Sprintf("%s claim dashboards %s", constants.CommitPrefix, id),
				Files:         []string{statusRel, backlogRel},
			}, nil
		},
	})
	if dashboardErr != nil {
		log.Printf("claim: dashboard update failed for %s (claim itself still succeeded): %v", id, dashboardErr)
	}

	succeeded = true
	log.Printf("claim succeeded: id=%s lane=%s branch=%s worktree=%s", id, lane, branch, worktreePath)
	return nil
}

type lockAcquisition struct {
	wipLimit int
	forced   bool
}

// acquireLaneLock attempts the WIP-aware lane lock, and — only when the
// caller passed Force=true and the lane is at its configured limit —
// retries once against wipLimit+1 to take the forced extra slot, per §6's
// "force=true (emits audit event)" claim failure kind.
func (e *Engine) acquireLaneLock(lane, id string, opts ClaimOptions, now time.Time) (lockAcquisition, error) {
	cfg := e.Cfg
	err := lanelock.Acquire(cfg.LaneLockPath(lane), lane, id, cfg.WIPLimit, "", now)
	if err == nil {
		return lockAcquisition{wipLimit: cfg.WIPLimit}, nil
	}
	lfErr, ok := lferr.Of(err)
	if !ok || lfErr.Kind != lferr.LaneBusy || !opts.Force {
		return lockAcquisition{}, err
	}
	if opts.Reason == "" {
		return lockAcquisition{}, lferr.New(lferr.Validation, "pass a reason when forcing a busy lane", "force requires a reason")
	}
	forcedLimit := cfg.WIPLimit + 1
	if forceErr := lanelock.Acquire(cfg.LaneLockPath(lane), lane, id, forcedLimit, opts.Reason, now); forceErr != nil {
		return lockAcquisition{}, forceErr
	}
	return lockAcquisition{wipLimit: forcedLimit, forced: true}, nil
}

// checkSingleOrphan runs the zombie scan and, if it surfaces exactly one
// zombie and that zombie is id itself, auto-repairs it via the recovery
// subsystem's resume path before claim proceeds, per §4.8 claim step 3.
// More than one outstanding zombie, or a zombie unrelated to id, is left
// for manual `recover` rather than auto-repaired mid-claim.
func (e *Engine) checkSingleOrphan(ctx context.Context, id string) error {
	zombies, err := recovery.Detect(e.Cfg)
	if err != nil {
		return err
	}
	if len(zombies) != 1 || zombies[0].WUID != id {
		return nil
	}
	z := zombies[0]
	if z.Kind != recovery.KindInProgressReleased {
		return nil
	}
	w, err := wu.Read(e.Cfg.WUPath(id), id)
	if err != nil {
		return err
	}
	log.Printf("claim: auto-repairing single orphan %s (%s)", id, z.Kind)
	return recovery.Resume(ctx, e.Cfg, w)
}

// branchOnlyPreChecks enforces §4.8 claim step 6, extended to branch-pr per
// §9's resolved open question: branch-only and branch-pr claims both reuse
// the caller's single checkout directly, so at most one of either may be
// active anywhere at a time; worktree claims never conflict with them since
// they get isolated directories. The caller's checkout must also be clean
// before either mode reuses it.
func (e *Engine) branchOnlyPreChecks(lane string) error {
	entries, _ := wu.LoadAll(e.Cfg.WUDirPath())
	for _, entry := range entries {
		w := entry.WU
		if w.Status != wu.StatusInProgress || w.Claim == nil {
			continue
		}
		if w.Claim.ClaimedMode == wu.ModeBranchOnly || w.Claim.ClaimedMode == wu.ModeBranchPR {
			return lferr.New(lferr.ConcurrentModification, "finish or release the active branch-only/branch-pr WU before claiming another",
				"WU %s already holds the shared checkout in mode %s", w.ID, w.Claim.ClaimedMode)
		}
	}
	clean, err := gitutil.IsClean(context.Background(), e.Cfg.RepoRoot)
	if err != nil {
		return err
	}
	if !clean {
		return lferr.New(lferr.Validation, "commit or stash outstanding changes before a branch-only claim", "working tree is not clean")
	}
	return nil
}

// refuseDanglingWorktreeSymlinks implements §4.8 claim step 10's guard:
// refuse to seed workspace artifact symlinks if the main checkout already
// has ones pointing at a worktree path that no longer exists. Only the
// vendor cache symlink convention this repo uses is checked; anything else
// under the vendor cache dir is left alone.
func (e *Engine) refuseDanglingWorktreeSymlinks() error {
	cacheDir := filepath.Join(e.Cfg.RepoRoot, ".lumenflow", "vendor-cache")
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		return nil // no cache dir yet; nothing to check
	}
	for _, entry := range entries {
		path := filepath.Join(cacheDir, entry.Name())
		info, err := os.Lstat(path)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		if _, err := filepath.EvalSymlinks(path); err != nil {
			return lferr.New(lferr.IO, "remove the stale symlink under .lumenflow/vendor-cache before claiming",
				"dangling worktree symlink detected: %s", path)
		}
	}
	return nil
}

func relPath(repoRoot, abs string) (string, error) {
	rel, err := filepath.Rel(repoRoot, abs)
	if err != nil {
		return "", lferr.Wrap(lferr.Fatal, err, "", "failed to express %s relative to %s", abs, repoRoot)
	}
	return rel, nil
}

func overlapError(id string, conflicts []overlap.Conflict) error {
	msg := fmt.Sprintf("WU %s's declared code_paths overlap %d in-progress WU(s)", id, len(conflicts))
	for _, c := range conflicts {
		msg += fmt.Sprintf("; %s: %v", c.WUID, c.OverlappingPaths)
	}
	return lferr.New(lferr.Overlap, "pass force_overlap=true with a reason to proceed anyway", "%s", msg)
}
