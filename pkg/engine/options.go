package engine

import (
	"context"

	"github.com/lumenflow/lumenflow/pkg/wu"
)

// GateFunc runs whatever external checks (lint, tests, build) the caller's
// environment wires up before a WU may be marked done. The engine only
// invokes it; it owns no opinion about what a gate is. A nil GateFunc is
// treated as an automatic pass.
type GateFunc func(ctx context.Context, w *wu.WU) error

// ClaimOptions carries the bypass flags and mode selection §6's claim
// operation accepts.
type ClaimOptions struct {
	// Force bypasses lane-lock contention, acquiring an additional slot
	// beyond the lane's configured WIP limit. Requires Reason.
	Force bool
	// ForceOverlap bypasses the code-path overlap detector. Requires Reason.
	ForceOverlap bool
	Reason       string
	// Fix applies the validator's schema auto-fixes inside the claiming
	// worktree before writing the in_progress spec.
	Fix bool
	// AllowIncomplete bypasses the spec-completeness check (acceptance
	// non-empty, no placeholder text). Never bypasses ManualTestsAtClaim.
	AllowIncomplete bool
	// Mode selects the claim's isolation strategy; defaults to
	// wu.ModeWorktree when empty.
	Mode string
	// SessionID identifies the claiming agent session, stamped onto the
	// WU's claim metadata and the claim event.
	SessionID string
}

// DoneOptions carries the bypass flags and mode §6's done operation accepts.
type DoneOptions struct {
	// SkipGates bypasses the external gate-running step. Requires Reason.
	SkipGates bool
	Reason    string
	// Mode must match the WU's recorded ClaimedMode; present here so
	// callers invoking done from a branch-pr checkout (which has no
	// worktree to read it back from) can assert it explicitly.
	Mode string
	// Gates runs the caller's external gate checks. Nil passes
	// automatically, as does any value when SkipGates is set.
	Gates GateFunc
}

// RecoverOptions carries the bypass flags §6's recover operation accepts.
type RecoverOptions struct {
	Force          bool
	DiscardChanges bool
}
