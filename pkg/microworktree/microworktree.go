// Package microworktree implements the §4.7 transactional write pattern: an
// ephemeral worktree on a throwaway branch that lets a caller-supplied
// closure mutate files, commit, and push, without ever touching the caller's
// own checkout. Per §9's "scoped resource acquisition" redesign flag, the
// whole operation is modeled as one function call whose teardown always
// runs, on every exit path.
package microworktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lumenflow/lumenflow/pkg/constants"
	"github.com/lumenflow/lumenflow/pkg/gitutil"
	"github.com/lumenflow/lumenflow/pkg/lferr"
	"github.com/lumenflow/lumenflow/pkg/logger"
)

var log = logger.New("microworktree:tx")

// Context is the only thing a caller's Execute closure sees: the scratch
// worktree path. It never sees the caller's own checkout.
type Context struct {
	WorktreePath string
}

// Result is what Execute returns: the set of files to stage (resolved
// relative to WorktreePath) and the commit message, or nil for a no-op.
type Result struct {
	CommitMessage string
	Files         []string
}

// Options configures one micro-worktree transaction.
type Options struct {
	// RepoRoot is the caller's own checkout, used as the anchor for `git
	// worktree add`/`branch`/`fetch` commands and (when PushOnly is false)
	// the checkout that gets fast-forwarded.
	RepoRoot string
	// ScratchDir is the parent directory new worktrees are created under.
	ScratchDir string
	// Operation and ID name the throwaway branch/worktree, e.g.
	// "claim"/"WU-42" -> branch "microwt/claim/WU-42-<ts>".
	Operation string
	ID        string
	// Remote is the git remote to fetch from / push to, typically "origin".
	Remote string
	// DefaultBranch is the branch to fork from and push the committed
	// result onto directly; also the branch (unless PushOnly) the caller's
	// own checkout gets fast-forwarded to match. Typically "main".
	DefaultBranch string
	// PushOnly, when true, skips fast-forwarding the caller's checkout
	// (step 5 of §4.7); used by recovery operations marked push_only=true.
	PushOnly bool
	// Execute performs the actual file mutation inside the scratch
	// worktree and reports what to commit.
	Execute func(ctx context.Context, mwc Context) (*Result, error)
	// Now supplies the clock for the throwaway branch name; defaults to
	// time.Now if nil.
	Now func() time.Time
}

// Step names the §4.7 step that failed, for typed-error remediation.
type Step string

const (
	StepFetch        Step = "fetch"
	StepCreateBranch Step = "create_branch"
	StepCreateWT     Step = "create_worktree"
	StepExecute      Step = "execute"
	StepStage        Step = "stage"
	StepCommit       Step = "commit"
	StepPush         Step = "push"
	StepFastForward  Step = "fast_forward"
)

// Run executes one full micro-worktree transaction: create branch+worktree,
// call opts.Execute, stage/commit/push the result straight onto
// opts.DefaultBranch if it returned one, optionally sync the caller's own
// checkout onto the new tip, and always tear down (worktree remove --force,
// local branch delete) regardless of outcome.
func Run(ctx context.Context, opts Options) (err error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	branch := fmt.Sprintf("%s/%s/%s-%d", constants.MicroWorktreeBranchPrefix, opts.Operation, opts.ID, now().UnixNano())
	wtPath := fmt.Sprintf("%s/%s-%d", opts.ScratchDir, opts.ID, now().UnixNano())

	log.Printf("starting transaction: op=%s id=%s branch=%s", opts.Operation, opts.ID, branch)

	var (
		branchCreated bool
		worktreeAdded bool
	)

	defer func() {
		teardown(ctx, opts, wtPath, branch, worktreeAdded, branchCreated)
	}()

	if stepErr := gitutil.Fetch(ctx, opts.RepoRoot, opts.Remote); stepErr != nil {
		return stepFailure(StepFetch, stepErr)
	}

	remoteDefault := opts.Remote + "/" + opts.DefaultBranch
	if stepErr := gitutil.CreateBranchFrom(ctx, opts.RepoRoot, branch, remoteDefault); stepErr != nil {
		return stepFailure(StepCreateBranch, stepErr)
	}
	branchCreated = true

	if stepErr := os.MkdirAll(opts.ScratchDir, 0o755); stepErr != nil {
		return stepFailure(StepCreateWT, lferr.Wrap(lferr.IO, stepErr, "", "failed to create scratch dir %s", opts.ScratchDir))
	}
	if stepErr := gitutil.AddWorktree(ctx, opts.RepoRoot, wtPath, branch); stepErr != nil {
		return stepFailure(StepCreateWT, stepErr)
	}
	worktreeAdded = true

	result, execErr := opts.Execute(ctx, Context{WorktreePath: wtPath})
	if execErr != nil {
		return stepFailure(StepExecute, execErr)
	}
	if result == nil {
		log.Printf("execute returned no-op: op=%s id=%s", opts.Operation, opts.ID)
		return nil
	}

	if stepErr := gitutil.AddFiles(ctx, wtPath, result.Files); stepErr != nil {
		return stepFailure(StepStage, stepErr)
	}
	if stepErr := gitutil.Commit(ctx, wtPath, result.CommitMessage); stepErr != nil {
		return stepFailure(StepCommit, stepErr)
	}
	// Push the throwaway branch straight onto the shared DefaultBranch ref
	// (a plain git push refuses anything but a fast-forward), so the commit
	// lands on the branch every other checkout actually reads from rather
	// than on a ref that teardown is about to delete.
	landing := fmt.Sprintf("%s:%s", branch, opts.DefaultBranch)
	if stepErr := gitutil.Push(ctx, wtPath, opts.Remote, landing, false); stepErr != nil {
		return stepFailure(StepPush, stepErr)
	}

	if !opts.PushOnly {
		// The commit is already durably on opts.Remote/opts.DefaultBranch by
		// this point; this step only tries to sync the caller's own local
		// checkout onto it. A caller sitting on a branch that has itself
		// diverged from DefaultBranch (e.g. a branch-only claim's lane
		// branch) can't be fast-forwarded, but that never un-does the push
		// above, so it's logged rather than failing the whole transaction.
		if stepErr := gitutil.FastForwardFetchHead(ctx, opts.RepoRoot, opts.Remote, opts.DefaultBranch); stepErr != nil {
			log.Printf("micro-worktree: step %q could not sync %s (commit already landed on %s/%s): %v", StepFastForward, opts.RepoRoot, opts.Remote, opts.DefaultBranch, stepErr)
		}
	}

	log.Printf("transaction committed: op=%s id=%s branch=%s", opts.Operation, opts.ID, branch)
	return nil
}

// RelPath expresses an absolute path under repoRoot relative to it, for
// resolving a caller-checkout-relative path inside a Context.WorktreePath
// (both share the same repo-relative structure). Execute closures use this
// to turn an lfconfig path into a path to stage and, joined onto
// ctx.WorktreePath, a path to write.
func RelPath(repoRoot, absPath string) (string, error) {
	rel, err := filepath.Rel(repoRoot, absPath)
	if err != nil {
		return "", lferr.Wrap(lferr.Fatal, err, "", "failed to express %s relative to %s", absPath, repoRoot)
	}
	return rel, nil
}

func stepFailure(step Step, cause error) error {
	if e, ok := cause.(*lferr.Error); ok {
		return lferr.Wrap(e.Kind, e, "", "micro-worktree step %q failed", step)
	}
	return lferr.Wrap(lferr.Git, cause, "", "micro-worktree step %q failed", step)
}

// teardown always runs, on every exit path: worktree remove (force), local
// branch delete. The throwaway branch is never pushed under its own name
// (Run lands its commit directly on opts.DefaultBranch), so there is no
// remote ref left to clean up here. Failures are logged, never escalated —
// the transaction's outcome was already decided by Run's return value.
func teardown(ctx context.Context, opts Options, wtPath, branch string, worktreeAdded, branchCreated bool) {
	if worktreeAdded {
		_ = gitutil.RemoveWorktree(ctx, opts.RepoRoot, wtPath)
	}
	if branchCreated {
		_ = gitutil.DeleteLocalBranch(ctx, opts.RepoRoot, branch)
	}
	log.Printf("teardown complete: op=%s id=%s branch=%s", opts.Operation, opts.ID, branch)
}
