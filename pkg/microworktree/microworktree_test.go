package microworktree

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// setup creates a bare "origin" repo and a local clone with one commit on
// main, and returns the local clone's path.
func setup(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	origin := filepath.Join(root, "origin.git")
	clone := filepath.Join(root, "clone")

	run := func(dir string, args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	require.NoError(t, os.MkdirAll(origin, 0o755))
	run(origin, "init", "-q", "--bare", "-b", "main")

	run(root, "clone", "-q", origin, clone)
	require.NoError(t, os.WriteFile(filepath.Join(clone, "README.md"), []byte("hello\n"), 0o644))
	run(clone, "add", ".")
	run(clone, "commit", "-q", "-m", "initial commit")
	run(clone, "push", "-q", "-u", "origin", "main")

	return clone
}

func TestRunCommitsAndPushes(t *testing.T) {
	clone := setup(t)
	ctx := context.Background()
	scratch := filepath.Join(t.TempDir(), "scratch")

	err := Run(ctx, Options{
		RepoRoot:      clone,
		ScratchDir:    scratch,
		Operation:     "claim",
		ID:            "WU-1",
		Remote:        "origin",
		DefaultBranch: "main",
		Execute: func(ctx context.Context, mwc Context) (*Result, error) {
			path := filepath.Join(mwc.WorktreePath, "STATUS.md")
			require.NoError(t, os.WriteFile(path, []byte("# status\n"), 0o644))
			return &Result{CommitMessage: "update status", Files: []string{"STATUS.md"}}, nil
		},
	})
	require.NoError(t, err)

	// main was fast-forwarded to include the committed change.
	_, err = os.Stat(filepath.Join(clone, "STATUS.md"))
	require.NoError(t, err)

	// teardown removed the scratch worktree directory.
	entries, _ := os.ReadDir(scratch)
	require.Empty(t, entries)
}

func TestRunNoOpExecuteSkipsCommit(t *testing.T) {
	clone := setup(t)
	ctx := context.Background()
	scratch := filepath.Join(t.TempDir(), "scratch")

	err := Run(ctx, Options{
		RepoRoot:      clone,
		ScratchDir:    scratch,
		Operation:     "claim",
		ID:            "WU-2",
		Remote:        "origin",
		DefaultBranch: "main",
		Execute: func(ctx context.Context, mwc Context) (*Result, error) {
			return nil, nil
		},
	})
	require.NoError(t, err)
}

func TestRunPushOnlySkipsFastForward(t *testing.T) {
	clone := setup(t)
	ctx := context.Background()
	scratch := filepath.Join(t.TempDir(), "scratch")

	err := Run(ctx, Options{
		RepoRoot:      clone,
		ScratchDir:    scratch,
		Operation:     "recover",
		ID:            "WU-3",
		Remote:        "origin",
		DefaultBranch: "main",
		PushOnly:      true,
		Execute: func(ctx context.Context, mwc Context) (*Result, error) {
			path := filepath.Join(mwc.WorktreePath, "NOTES.md")
			require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
			return &Result{CommitMessage: "notes", Files: []string{"NOTES.md"}}, nil
		},
	})
	require.NoError(t, err)

	// PushOnly never fast-forwards the caller's checkout.
	_, err = os.Stat(filepath.Join(clone, "NOTES.md"))
	require.True(t, os.IsNotExist(err))
}
