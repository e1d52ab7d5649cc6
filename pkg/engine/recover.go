package engine

import (
	"context"

	"github.com/lumenflow/lumenflow/pkg/lferr"
	"github.com/lumenflow/lumenflow/pkg/recovery"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

// Action selects which recovery path Recover dispatches to.
type Action string

const (
	ActionResume  Action = "resume"
	ActionReset   Action = "reset"
	ActionNuke    Action = "nuke"
	ActionCleanup Action = "cleanup"
)

// RecoverResult carries the zombie analysis Recover ran against and which
// action, if any, it took.
type RecoverResult struct {
	Zombies []recovery.Zombie
	Action  Action
	Applied bool
}

// Recover runs §4.10's zombie analysis for id and, if action is non-empty,
// dispatches to the matching recovery action, subject to the N=3 auto-
// recovery attempt cap tracked in the WU's recovery marker. Resume is the
// only action the cap governs — reset/nuke/cleanup are explicit and
// operator-directed (reset and nuke also require force), so they bypass the
// cap.
func (e *Engine) Recover(ctx context.Context, id string, action Action, opts RecoverOptions) (RecoverResult, error) {
	cfg := e.Cfg

	zombies, err := recovery.Detect(cfg)
	if err != nil {
		return RecoverResult{}, err
	}
	result := RecoverResult{Zombies: filterZombies(zombies, id), Action: action}
	if action == "" {
		return result, nil
	}

	w, err := wu.Read(cfg.WUPath(id), id)
	if err != nil {
		return result, err
	}

	markerPath := cfg.RecoveryMarkerPath(id)
	switch action {
	case ActionResume:
		if err := recovery.CheckAttempts(markerPath, cfg.MaxRecoveryAttempts); err != nil {
			return result, err
		}
		if _, err := recovery.RecordAttempt(markerPath, cfg.Clock()); err != nil {
			return result, err
		}
		if err := recovery.Resume(ctx, cfg, w); err != nil {
			return result, err
		}
	case ActionReset:
		if err := recovery.Reset(ctx, cfg, w, recovery.Options{Force: opts.Force, DiscardChanges: opts.DiscardChanges}); err != nil {
			return result, err
		}
	case ActionNuke:
		if err := recovery.Nuke(ctx, cfg, w, recovery.Options{Force: opts.Force, DiscardChanges: opts.DiscardChanges}); err != nil {
			return result, err
		}
	case ActionCleanup:
		if err := recovery.Cleanup(ctx, cfg, w); err != nil {
			return result, err
		}
	default:
		return result, lferr.New(lferr.Validation, "action must be one of resume, reset, nuke, cleanup", "unknown recovery action %q", action)
	}

	result.Applied = true
	log.Printf("recover: applied action=%s id=%s", action, id)
	return result, nil
}

// filterZombies narrows a full zombie scan to id. An empty id returns the
// scan unfiltered, letting callers ask "what's wrong anywhere" before
// picking a WU to act on.
func filterZombies(zombies []recovery.Zombie, id string) []recovery.Zombie {
	if id == "" {
		return zombies
	}
	var out []recovery.Zombie
	for _, z := range zombies {
		if z.WUID == id {
			out = append(out, z)
		}
	}
	return out
}
