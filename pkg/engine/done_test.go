package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenflow/lumenflow/pkg/gitutil"
	"github.com/lumenflow/lumenflow/pkg/lanelock"
	"github.com/lumenflow/lumenflow/pkg/lfconfig"
	"github.com/lumenflow/lumenflow/pkg/stamp"
	"github.com/lumenflow/lumenflow/pkg/testutil"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

// claimedDemoWU drives a branch-only claim to completion and leaves
// repoRoot checked out on the claimed lane branch with the feature file
// committed locally, ready for Done.
func claimedDemoWU(t *testing.T, id, lane string) (*lfconfig.Config, *Engine) {
	t.Helper()
	repoRoot := testutil.NewGitRemote(t)
	cfg := lfconfig.Default(repoRoot)
	w := demoWU(id, lane)
	commitWUSpec(t, cfg, w)

	e := New(cfg)
	require.NoError(t, e.Claim(context.Background(), id, lane, ClaimOptions{Mode: "branch-only", SessionID: "sess-done"}))
	writeDemoFile(t, repoRoot, "demo.go", "package demo\n")
	return cfg, e
}

func TestDoneBranchOnlyHappyPath(t *testing.T) {
	cfg, e := claimedDemoWU(t, "WU-10", "Core")

	err := e.Done(context.Background(), "WU-10", DoneOptions{SkipGates: true, Reason: "test"})
	require.NoError(t, err)

	assert.True(t, stamp.Exists(cfg.StampPath("WU-10")), "done must create the stamp")

	content := showAtRef(t, cfg.RepoRoot, "origin/main", "work-units/WU-10.yaml")
	assert.Contains(t, content, "status: done")

	status, err := lanelock.Check(cfg.LaneLockPath("Core"), cfg.WIPLimit, cfg.StaleLockAfter, cfg.Clock())
	require.NoError(t, err)
	assert.False(t, status.Locked, "done must release the lane lock")
}

// TestDoneNoOpWhenAlreadyDone asserts done's documented no-op guard: a WU
// already done, locked, and stamped is left untouched on a second call. The
// done commit lands on origin/main via the micro-worktree transaction, not
// on the branch-only claim's own checkout, so the checkout is synced onto
// main first to put it in a position where the no-op guard actually sees
// the done status.
func TestDoneNoOpWhenAlreadyDone(t *testing.T) {
	cfg, e := claimedDemoWU(t, "WU-11", "Core")
	require.NoError(t, e.Done(context.Background(), "WU-11", DoneOptions{SkipGates: true, Reason: "test"}))

	runGit(t, cfg.RepoRoot, "checkout", "main")
	runGit(t, cfg.RepoRoot, "merge", "--ff-only", "origin/main")

	beforeSHA, err := gitutil.RevParse(context.Background(), cfg.RepoRoot, "HEAD")
	require.NoError(t, err)

	require.NoError(t, e.Done(context.Background(), "WU-11", DoneOptions{SkipGates: true, Reason: "test"}))

	afterSHA, err := gitutil.RevParse(context.Background(), cfg.RepoRoot, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, beforeSHA, afterSHA, "a second done on an already-done WU must not touch the checkout")
}

// TestDoneFailureRestoresStamp exercises §8 invariant 6: a done that fails
// after creating the stamp must restore the file to its pre-attempt state
// (here, nonexistent) via the rollback journal. The failure is forced by
// pointing origin at an unreachable path so the micro-worktree transaction's
// own fetch step fails before anything reaches the remote.
func TestDoneFailureRestoresStamp(t *testing.T) {
	cfg, e := claimedDemoWU(t, "WU-12", "Core")
	require.False(t, stamp.Exists(cfg.StampPath("WU-12")))

	runGit(t, cfg.RepoRoot, "remote", "set-url", "origin", "/nonexistent/origin.git")

	err := e.Done(context.Background(), "WU-12", DoneOptions{SkipGates: true, Reason: "test"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "micro-worktree") || strings.Contains(err.Error(), "fetch"))

	assert.False(t, stamp.Exists(cfg.StampPath("WU-12")), "failed done must roll back a stamp it created")

	got, err := wu.Read(cfg.WUPath("WU-12"), "WU-12")
	require.NoError(t, err)
	assert.Equal(t, wu.StatusInProgress, got.Status, "failed done must not leave the spec showing done")
}
