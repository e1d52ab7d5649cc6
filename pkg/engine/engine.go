// Package engine implements the §4.8 WU lifecycle engine: the claim/done/
// block/recover protocol that orchestrates the validator, state store, lane
// lock, overlap detector, micro-worktree transactor, and recovery subsystem
// into the state machine described in §4.8. Every exported operation takes
// an explicit *lfconfig.Config (per §9's "singletons and global state"
// redesign flag) rather than reading ambient configuration.
package engine

import (
	"context"

	"github.com/lumenflow/lumenflow/pkg/events"
	"github.com/lumenflow/lumenflow/pkg/lfconfig"
	"github.com/lumenflow/lumenflow/pkg/logger"
	"github.com/lumenflow/lumenflow/pkg/overlap"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

var log = logger.New("engine:lifecycle")

// Engine threads a *lfconfig.Config through the claim/done/block/recover/
// status operations. It carries no other state; every call reads and writes
// the repo fresh, per §5's "readers always reopen and re-project" rule.
type Engine struct {
	Cfg *lfconfig.Config
}

// New builds an Engine bound to cfg.
func New(cfg *lfconfig.Config) *Engine {
	return &Engine{Cfg: cfg}
}

// loadWU reads the spec for id and its event-log state-store projection in
// one step, the pair nearly every lifecycle operation needs first.
func (e *Engine) loadWU(ctx context.Context, id string) (*wu.WU, *events.Store, error) {
	w, err := wu.Read(e.Cfg.WUPath(id), id)
	if err != nil {
		return nil, nil, err
	}
	store, err := events.LoadStore(e.Cfg.EventsPath())
	if err != nil {
		return nil, nil, err
	}
	return w, store, nil
}

// inProgressOverlapCandidates builds the overlap detector's candidate set:
// every WU spec under the work-units directory the state store currently
// reports in_progress, paired with its declared code_paths, excluding
// excludeID. It scans every spec file rather than only the event log's
// first-seen order, since the overlap detector needs each candidate's
// code_paths and those live only in the spec.
func (e *Engine) inProgressOverlapCandidates(store *events.Store, excludeID string) []overlap.Candidate {
	entries, _ := wu.LoadAll(e.Cfg.WUDirPath())
	var out []overlap.Candidate
	for _, entry := range entries {
		if entry.WU.ID == excludeID {
			continue
		}
		if store.StatusOf(entry.WU.ID) != events.StatusInProgress {
			continue
		}
		out = append(out, overlap.Candidate{WUID: entry.WU.ID, CodePaths: entry.WU.CodePaths})
	}
	return out
}
