package events

import "time"

// EffectiveStatus is the status derived purely from the event log, as
// distinct from the status a WU spec file declares. The two are expected to
// agree; when they don't, the recovery subsystem treats the WU as a zombie.
type EffectiveStatus string

const (
	StatusUnknown    EffectiveStatus = "unknown"
	StatusReady      EffectiveStatus = "ready"
	StatusInProgress EffectiveStatus = "in_progress"
	StatusBlocked    EffectiveStatus = "blocked"
	StatusDone       EffectiveStatus = "done"
)

// Checkpoint is the most recent checkpoint annotation filed under a WU's
// current in_progress episode.
type Checkpoint struct {
	Note      string
	Progress  string
	NextSteps string
	TS        time.Time
}

// episode tracks one WU's latest non-checkpoint event plus any checkpoints
// filed since, so checkpoints from a prior (closed) episode expire per §4.3:
// "checkpoints are filed under the current in_progress episode and expire
// when a later release/done/block is seen".
type episode struct {
	last       Event
	lane       string
	checkpoint *Checkpoint
}

// Store is an in-memory projection built by replaying the event log in file
// order. It answers the queries §4.3 names. Per §4.3's concurrency note,
// callers rebuild a Store from a fresh Load for every query (or cache it
// keyed on the log file's mtime) rather than mutating one live across
// process boundaries.
type Store struct {
	byID map[string]*episode
	// order preserves first-seen order for deterministic iteration, e.g. by
	// InProgressInLane, which would otherwise depend on map iteration order.
	order []string
}

// Build replays events in file order into a Store.
func Build(evts []Event) *Store {
	s := &Store{byID: map[string]*episode{}}
	for _, e := range evts {
		s.apply(e)
	}
	return s
}

func (s *Store) apply(e Event) {
	ep, ok := s.byID[e.WUID]
	if !ok {
		ep = &episode{}
		s.byID[e.WUID] = ep
		s.order = append(s.order, e.WUID)
	}

	if e.Kind == KindCheckpoint {
		// Checkpoints never change effective status. A checkpoint event
		// with no prior claim (or filed after a release/done/block) is
		// annotation-only, but it is still recorded as the latest checkpoint
		// since the engine may emit one immediately after claim in the
		// same micro-worktree commit.
		ep.checkpoint = &Checkpoint{Note: e.Note, Progress: e.Progress, NextSteps: e.NextSteps, TS: e.TS}
		return
	}

	ep.last = e
	if e.Lane != "" {
		ep.lane = e.Lane
	}
	// A new non-checkpoint episode invalidates any checkpoint filed under
	// the previous episode.
	ep.checkpoint = nil
}

// StatusOf returns the effective status of id per the §3 event-kind table.
func (s *Store) StatusOf(id string) EffectiveStatus {
	ep, ok := s.byID[id]
	if !ok {
		return StatusUnknown
	}
	switch ep.last.Kind {
	case KindClaim:
		return StatusInProgress
	case KindRelease:
		return StatusReady
	case KindBlock:
		return StatusBlocked
	case KindDone:
		return StatusDone
	default:
		return StatusUnknown
	}
}

// InProgressInLane returns the ids currently in_progress whose most recent
// claim named this lane, in first-seen order.
func (s *Store) InProgressInLane(lane string) []string {
	var out []string
	for _, id := range s.order {
		ep := s.byID[id]
		if ep.last.Kind == KindClaim && ep.lane == lane {
			out = append(out, id)
		}
	}
	return out
}

// LastCheckpoint returns the most recent checkpoint filed under id's current
// episode, or nil if none exists (or the episode has since closed).
func (s *Store) LastCheckpoint(id string) *Checkpoint {
	ep, ok := s.byID[id]
	if !ok {
		return nil
	}
	return ep.checkpoint
}

// LastEvent returns the most recent non-checkpoint event recorded for id,
// and whether one exists.
func (s *Store) LastEvent(id string) (Event, bool) {
	ep, ok := s.byID[id]
	if !ok || ep.last.Kind == "" {
		return Event{}, false
	}
	return ep.last, true
}

// Known reports whether the log has ever mentioned id.
func (s *Store) Known(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// LoadStore is the convenience entrypoint most callers use: load the log at
// path and build its projection in one step.
func LoadStore(path string) (*Store, error) {
	evts, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Build(evts), nil
}
