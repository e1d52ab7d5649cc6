// Package lfconfig resolves the coordinator's on-disk layout and runtime
// settings from a single configuration value. Repo-rooted paths, the clock
// and the limits are threaded through a *Config built once at the CLI
// entrypoint; the only other ambient reads are pkg/logger's DEBUG and
// DEBUG_COLORS variables and pkg/console's working-directory lookup for
// relative path display.
package lfconfig

import (
	"path/filepath"
	"strings"
	"time"
)

// Config is the coordinator's single source of ambient configuration. It is
// constructed once (cmd/lumenflow) and passed explicitly to every package
// that needs a repo-rooted path, the clock, or the WIP limit.
type Config struct {
	// RepoRoot is the absolute path to the repository root.
	RepoRoot string

	// WUDir is repo-root-relative, default "work-units".
	WUDir string
	// StateDir is repo-root-relative, default ".lumenflow/state".
	StateDir string
	// StampsDir is repo-root-relative, default ".lumenflow/stamps".
	StampsDir string
	// MemoryDir is repo-root-relative, default ".lumenflow/memory".
	MemoryDir string
	// WorktreesDir is repo-root-relative, default ".lumenflow/worktrees".
	WorktreesDir string
	// RecoveryDir is repo-root-relative, default ".lumenflow/recovery".
	RecoveryDir string
	// StatusDoc and BacklogDoc are repo-root-relative markdown dashboards.
	StatusDoc  string
	BacklogDoc string

	// DefaultBranch is the branch micro-worktree operations fork from and
	// optionally fast-forward, default "main".
	DefaultBranch string

	// WIPLimit is the number of concurrent claims a lane tolerates before
	// the lane lock degrades from a mutex to a counted semaphore. Default 1.
	WIPLimit int

	// StaleLockAfter is the age at which Check reports a lane lock as stale.
	// Surfaced only; never auto-released. Default 24h.
	StaleLockAfter time.Duration

	// MaxRecoveryAttempts caps automatic recovery attempts per WU before
	// manual intervention is required. Default 3.
	MaxRecoveryAttempts int

	// DetectRenames controls whether ChangedFiles scores renames (-M) or
	// reports raw add/modify/delete path sets (--no-renames). Default false.
	DetectRenames bool

	// Now returns the current time; overridable in tests for deterministic
	// timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Default returns a Config rooted at repoRoot with every field at its
// documented default.
func Default(repoRoot string) *Config {
	return &Config{
		RepoRoot:            repoRoot,
		WUDir:               "work-units",
		StateDir:            ".lumenflow/state",
		StampsDir:           ".lumenflow/stamps",
		MemoryDir:           ".lumenflow/memory",
		WorktreesDir:        ".lumenflow/worktrees",
		RecoveryDir:         ".lumenflow/recovery",
		StatusDoc:           "STATUS.md",
		BacklogDoc:          "BACKLOG.md",
		DefaultBranch:       "main",
		WIPLimit:            1,
		StaleLockAfter:      24 * time.Hour,
		MaxRecoveryAttempts: 3,
		DetectRenames:       false,
		Now:                 time.Now,
	}
}

func (c *Config) clock() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Clock returns the configured time source, defaulting to time.Now.
func (c *Config) Clock() time.Time { return c.clock() }

// abs joins a repo-root-relative path onto RepoRoot.
func (c *Config) abs(rel string) string {
	return filepath.Join(c.RepoRoot, rel)
}

// WUPath returns the absolute path to a WU spec file.
func (c *Config) WUPath(id string) string {
	return c.abs(filepath.Join(c.WUDir, id+".yaml"))
}

// WUDirPath returns the absolute path to the directory holding WU specs.
func (c *Config) WUDirPath() string {
	return c.abs(c.WUDir)
}

// StatusPath returns the absolute path to the status dashboard document.
func (c *Config) StatusPath() string {
	return c.abs(c.StatusDoc)
}

// BacklogPath returns the absolute path to the backlog dashboard document.
func (c *Config) BacklogPath() string {
	return c.abs(c.BacklogDoc)
}

// StampPath returns the absolute path to a WU's done stamp.
func (c *Config) StampPath(id string) string {
	return c.abs(filepath.Join(c.StampsDir, id+".done"))
}

// EventsPath returns the absolute path to the append-only WU event log.
func (c *Config) EventsPath() string {
	return c.abs(filepath.Join(c.StateDir, "wu-events.jsonl"))
}

// MemoryPath returns the absolute path to the memory node log.
func (c *Config) MemoryPath() string {
	return c.abs(filepath.Join(c.MemoryDir, "memory.jsonl"))
}

// RelationshipsPath returns the absolute path to the memory relationship log.
func (c *Config) RelationshipsPath() string {
	return c.abs(filepath.Join(c.MemoryDir, "relationships.jsonl"))
}

// WorktreesDirPath returns the absolute path to the worktrees root.
func (c *Config) WorktreesDirPath() string {
	return c.abs(c.WorktreesDir)
}

// WorktreePath returns the absolute path to a specific WU's worktree.
func (c *Config) WorktreePath(lane, id string) string {
	return filepath.Join(c.WorktreesDirPath(), LaneKebab(lane)+"-"+id)
}

// LaneLockPath returns the absolute path to a lane's lock file.
func (c *Config) LaneLockPath(lane string) string {
	return c.abs(filepath.Join(c.StateDir, "lane-locks", LaneKebab(lane)+".lock"))
}

// RecoveryMarkerPath returns the absolute path to a WU's recovery attempt
// counter.
func (c *Config) RecoveryMarkerPath(id string) string {
	return c.abs(filepath.Join(c.RecoveryDir, id+".recovery"))
}

// LaneBranch returns the branch name a claim on (lane, id) is performed on.
func (c *Config) LaneBranch(lane, id string) string {
	return "lane/" + LaneKebab(lane) + "/" + id
}

// LaneKebab lowercases a lane name and replaces spaces/colons with hyphens,
// e.g. "Parent: Subdomain" -> "parent-subdomain".
func LaneKebab(lane string) string {
	s := strings.ToLower(lane)
	s = strings.ReplaceAll(s, ": ", "-")
	s = strings.ReplaceAll(s, ":", "-")
	s = strings.ReplaceAll(s, " ", "-")
	return s
}
