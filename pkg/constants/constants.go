// Package constants holds the small set of literal values shared across the
// CLI surface and the engine that aren't naturally owned by any one
// package: the extension's display name and the commit-message/remote
// conventions the micro-worktree transactor and engine agree on.
package constants

// CLIName is the prefix used in user-facing output and CLI reference blocks
// (e.g. the memory layer's recovery context) to refer to this tool.
const CLIName = "lumenflow"

// DefaultRemote is the git remote the micro-worktree transactor and engine
// fetch from and push to when a caller doesn't override it.
const DefaultRemote = "origin"

// CommitPrefix tags every commit the coordinator makes on the caller's
// behalf (micro-worktree transactions, worktree claim commits, done
// commits) so `git log` makes coordinator activity easy to filter from
// human commits.
const CommitPrefix = "[lumenflow]"

// MicroWorktreeBranchPrefix namespaces the throwaway branches §4.7 creates,
// distinguishing them from the long-lived `lane/<lane>/<id>` claim branches.
const MicroWorktreeBranchPrefix = "microwt"
