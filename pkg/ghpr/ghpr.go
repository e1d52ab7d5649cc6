// Package ghpr wraps the handful of `gh` CLI calls branch-pr mode needs to
// hand a claimed branch off to GitHub's own review/merge flow once done has
// finished its bookkeeping. It is a thin, best-effort layer: every call here
// is advisory, never load-bearing for the lifecycle engine's own state.
package ghpr

import (
	"strings"

	gh "github.com/cli/go-gh/v2"
	"github.com/lumenflow/lumenflow/pkg/logger"
)

var log = logger.New("ghpr:pr")

// EnsurePR opens a pull request for branch against base if one doesn't
// already exist, returning its URL. Errors are returned, not swallowed,
// since the caller decides whether a missing PR matters for its mode.
func EnsurePR(branch, base, title, body string) (string, error) {
	if url, err := findOpenPR(branch); err == nil && url != "" {
		return url, nil
	}
	stdout, stderr, err := gh.Exec("pr", "create", "--head", branch, "--base", base, "--title", title, "--body", body)
	if err != nil {
		log.Printf("gh pr create failed for %s: %v (%s)", branch, err, strings.TrimSpace(stderr.String()))
		return "", err
	}
	return strings.TrimSpace(stdout.String()), nil
}

// findOpenPR looks up an existing open PR for branch, returning "" if none.
func findOpenPR(branch string) (string, error) {
	stdout, _, err := gh.Exec("pr", "view", branch, "--json", "url", "-q", ".url")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout.String()), nil
}

// State reports a PR's merge state for branch: "MERGED", "OPEN", "CLOSED",
// or "" if no PR exists.
func State(branch string) (string, error) {
	stdout, _, err := gh.Exec("pr", "view", branch, "--json", "state", "-q", ".state")
	if err != nil {
		return "", nil
	}
	return strings.TrimSpace(stdout.String()), nil
}
