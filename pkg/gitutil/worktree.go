package gitutil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/lumenflow/lumenflow/pkg/lferr"
	"github.com/lumenflow/lumenflow/pkg/logger"
	"github.com/lumenflow/lumenflow/pkg/retry"
	"github.com/lumenflow/lumenflow/pkg/stringutil"
)

var log = logger.New("gitutil:git")

// run executes `git <args...>` with cwd as the working directory, returning
// combined stdout (trimmed) or a typed GIT error on non-zero exit.
func run(ctx context.Context, cwd string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = cwd
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		// git's credential helpers sometimes echo the env var they read a
		// token from (e.g. GIT_ASKPASS failures); redact anything
		// secret-shaped before it lands in a propagated error or log line.
		msg = stringutil.SanitizeErrorMessage(msg)
		return "", lferr.Wrap(lferr.Git, err, "", "git %s failed: %s", strings.Join(args, " "), msg)
	}
	return strings.TrimSpace(out.String()), nil
}

// runRetryable is run wrapped so its error is eligible for the caller's
// retry.Do loop — used for steps that cross the network (fetch/push/remote
// branch deletion).
func runRetryable(ctx context.Context, cwd string, args ...string) (string, error) {
	out, err := run(ctx, cwd, args...)
	if err != nil {
		return "", retry.WrapRetryable(err)
	}
	return out, nil
}

// Fetch fetches remote into cwd's checkout, retrying transient failures.
func Fetch(ctx context.Context, cwd, remote string) error {
	return retry.Do(ctx, retry.Preset, "git fetch", func() error {
		_, err := runRetryable(ctx, cwd, "fetch", remote)
		return err
	})
}

// RevParse resolves ref to its full SHA inside cwd's checkout.
func RevParse(ctx context.Context, cwd, ref string) (string, error) {
	return run(ctx, cwd, "rev-parse", ref)
}

// CreateBranchFrom creates local branch name at startPoint (without checking
// it out), failing if the branch already exists.
func CreateBranchFrom(ctx context.Context, cwd, name, startPoint string) error {
	_, err := run(ctx, cwd, "branch", name, startPoint)
	return err
}

// AddWorktree creates a worktree at path on branch, which must already
// exist (created via CreateBranchFrom).
func AddWorktree(ctx context.Context, repoCwd, path, branch string) error {
	_, err := run(ctx, repoCwd, "worktree", "add", path, branch)
	return err
}

// Checkout switches cwd's own checkout onto an already-existing branch, used
// by branch-only/branch-pr claims which reuse the caller's checkout directly
// instead of an isolated worktree directory.
func Checkout(ctx context.Context, cwd, branch string) error {
	_, err := run(ctx, cwd, "checkout", branch)
	return err
}

// RemoveWorktree force-removes the worktree at path. Errors are swallowed
// into a warning-level log since teardown must always proceed even if the
// worktree was already partially cleaned up by a prior crashed attempt.
func RemoveWorktree(ctx context.Context, repoCwd, path string) error {
	_, err := run(ctx, repoCwd, "worktree", "remove", "--force", path)
	if err != nil {
		log.Printf("worktree remove failed (continuing teardown): path=%s err=%v", path, err)
	}
	return err
}

// DeleteLocalBranch force-deletes a local branch.
func DeleteLocalBranch(ctx context.Context, repoCwd, name string) error {
	_, err := run(ctx, repoCwd, "branch", "-D", name)
	if err != nil {
		log.Printf("local branch delete failed (continuing teardown): branch=%s err=%v", name, err)
	}
	return err
}

// DeleteRemoteBranch deletes branch on remote, retrying transient network
// failures, and swallows the final error into a log line since teardown must
// always complete.
func DeleteRemoteBranch(ctx context.Context, cwd, remote, name string) error {
	err := retry.Do(ctx, retry.Preset, "git push --delete", func() error {
		_, err := runRetryable(ctx, cwd, "push", remote, "--delete", name)
		return err
	})
	if err != nil {
		log.Printf("remote branch delete failed (continuing teardown): branch=%s err=%v", name, err)
	}
	return err
}

// Push pushes branch to remote, retrying transient failures. setUpstream
// adds -u on first push of a throwaway branch.
func Push(ctx context.Context, cwd, remote, branch string, setUpstream bool) error {
	args := []string{"push"}
	if setUpstream {
		args = append(args, "-u")
	}
	args = append(args, remote, branch)
	return retry.Do(ctx, retry.Preset, "git push", func() error {
		_, err := runRetryable(ctx, cwd, args...)
		return err
	})
}

// AddFiles stages exactly the given paths (relative to cwd).
func AddFiles(ctx context.Context, cwd string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	_, err := run(ctx, cwd, args...)
	return err
}

// Commit commits the current index with message.
func Commit(ctx context.Context, cwd, message string) error {
	_, err := run(ctx, cwd, "commit", "-m", message)
	return err
}

// CurrentBranch returns the checked-out branch name in cwd.
func CurrentBranch(ctx context.Context, cwd string) (string, error) {
	return run(ctx, cwd, "rev-parse", "--abbrev-ref", "HEAD")
}

// IsClean reports whether cwd's working tree has no uncommitted changes.
func IsClean(ctx context.Context, cwd string) (bool, error) {
	out, err := run(ctx, cwd, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// FastForwardFetchHead attempts to fast-forward main onto remote/branch.
// It never merges: on divergence (the fast-forward would fail) it returns a
// typed error rather than attempting any history rewrite, per §4.7 step 5.
func FastForwardFetchHead(ctx context.Context, cwd, remote, branch string) error {
	if err := Fetch(ctx, cwd, remote); err != nil {
		return err
	}
	_, err := run(ctx, cwd, "merge", "--ff-only", fmt.Sprintf("%s/%s", remote, branch))
	if err != nil {
		return lferr.Wrap(lferr.Git, err, "pull and rebase manually, then retry", "main has diverged from %s/%s; refusing to merge", remote, branch)
	}
	return nil
}

// ChangedFiles returns the set of paths added, modified, or deleted between
// baseSHA and HEAD (or a specific ref) in cwd. detectRenames controls
// whether git scores renames (-M, reporting the new path only) or reports
// raw add/modify/delete path sets; §9's open question on coverage semantics
// resolves to raw paths by default (detectRenames=false).
func ChangedFiles(ctx context.Context, cwd, baseSHA, headRef string, detectRenames bool) ([]string, error) {
	args := []string{"diff", "--name-only"}
	if !detectRenames {
		args = append(args, "--no-renames")
	}
	args = append(args, baseSHA, headRef)
	out, err := run(ctx, cwd, args...)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// DiffStat returns the `git diff --stat` summary between baseSHA and
// headRef, used by the memory layer's recovery context to show the last
// checkpoint's change footprint.
func DiffStat(ctx context.Context, cwd, baseSHA, headRef string) (string, error) {
	return run(ctx, cwd, "diff", "--stat", baseSHA, headRef)
}

// RepoRoot resolves the top-level directory of the git checkout containing
// dir, the one piece of ambient-directory knowledge the CLI entrypoint is
// allowed per §9's singleton redesign flag: everything downstream of it
// takes the resolved root explicitly rather than reading the cwd itself.
func RepoRoot(ctx context.Context, dir string) (string, error) {
	return run(ctx, dir, "rev-parse", "--show-toplevel")
}
