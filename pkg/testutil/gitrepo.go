package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// NewGitRemote creates a bare "origin" repository and a local clone with one
// commit on main, returning the clone's path. Used by tests that exercise
// code backed by real git plumbing (micro-worktree transactions, recovery
// actions, the lifecycle engine) rather than mocking git out.
func NewGitRemote(t *testing.T) string {
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
		if err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	if err := os.MkdirAll(origin, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	run(origin, "init", "-q", "--bare", "-b", "main")

	run(root, "clone", "-q", origin, clone)
	if err := os.WriteFile(filepath.Join(clone, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	run(clone, "add", ".")
	run(clone, "commit", "-q", "-m", "initial commit")
	run(clone, "push", "-q", "-u", "origin", "main")

	return clone
}
