package engine

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumenflow/lumenflow/pkg/gitutil"
	"github.com/lumenflow/lumenflow/pkg/lfconfig"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

// runGit shells out to git in dir, failing the test on a non-zero exit. Used
// for setup/verification steps the engine itself never performs (committing
// a WU spec before a branch-only claim, inspecting what actually landed on
// origin/main after done).
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoErrorf(t, err, "git %v: %s", args, out)
	return string(out)
}

// showAtRef reads path's content as of ref (e.g. "origin/main") without
// touching the caller's own checkout, used to confirm a micro-worktree
// transaction actually delivered its commit to the shared branch rather
// than stranding it on a throwaway ref.
func showAtRef(t *testing.T, repoRoot, ref, path string) string {
	t.Helper()
	runGit(t, repoRoot, "fetch", "-q", "origin")
	return runGit(t, repoRoot, "show", ref+":"+path)
}

// demoWU returns a claimable WU spec whose code_paths cover the two
// bookkeeping paths every claim/done commit touches (work-units/ and
// .lumenflow/state/) plus a feature-work path the test itself writes to.
func demoWU(id, lane string) *wu.WU {
	return &wu.WU{
		ID:          id,
		Title:       "Demo work unit",
		Description: "Exercise the claim/done lifecycle end to end.",
		Lane:        lane,
		Type:        wu.TypeFeature,
		Status:      wu.StatusReady,
		CodePaths:   []string{"work-units/", ".lumenflow/state/", "pkg/demo/"},
		Acceptance:  []string{"the demo package does the thing"},
		Tests:       &wu.Tests{Manual: []string{"run the demo"}},
	}
}

// commitWUSpec writes w to its spec path and commits+pushes it to main, the
// precondition a branch-only claim's clean-checkout check requires (an
// untracked spec file would otherwise make the checkout look dirty).
func commitWUSpec(t *testing.T, cfg *lfconfig.Config, w *wu.WU) {
	t.Helper()
	require.NoError(t, os.MkdirAll(cfg.WUDirPath(), 0o755))
	require.NoError(t, wu.Write(cfg.WUPath(w.ID), w))
	rel, err := filepath.Rel(cfg.RepoRoot, cfg.WUPath(w.ID))
	require.NoError(t, err)
	require.NoError(t, gitutil.AddFiles(context.Background(), cfg.RepoRoot, []string{rel}))
	require.NoError(t, gitutil.Commit(context.Background(), cfg.RepoRoot, "add "+w.ID))
	require.NoError(t, gitutil.Push(context.Background(), cfg.RepoRoot, "origin", "main", false))
}

// writeDemoFile commits a throwaway feature-work file under pkg/demo/ into
// the currently checked-out branch of repoRoot, simulating the work a
// claimed WU is supposed to have done before it can be marked done.
func writeDemoFile(t *testing.T, repoRoot, name, content string) {
	t.Helper()
	dir := filepath.Join(repoRoot, "pkg", "demo")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, gitutil.AddFiles(context.Background(), repoRoot, []string{filepath.Join("pkg", "demo", name)}))
	require.NoError(t, gitutil.Commit(context.Background(), repoRoot, "demo: add "+name))
}
