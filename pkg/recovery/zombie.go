// Package recovery implements §4.10: zombie detection, the resume/reset/
// nuke/cleanup recovery actions, duplicate-WU-id repair, and the recovery
// attempt counter that caps automatic recovery before requiring a human.
package recovery

import (
	"os"

	"github.com/lumenflow/lumenflow/pkg/events"
	"github.com/lumenflow/lumenflow/pkg/lfconfig"
	"github.com/lumenflow/lumenflow/pkg/logger"
	"github.com/lumenflow/lumenflow/pkg/mdlist"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

var log = logger.New("recovery:zombie")

// Kind classifies why a WU was flagged as a zombie.
type Kind string

const (
	// KindDoneWorktreeLingers: spec says done but its worktree directory
	// still exists on disk.
	KindDoneWorktreeLingers Kind = "done_worktree_lingers"
	// KindDoneStatusDocStale: spec says done but the status doc still
	// lists it under In Progress.
	KindDoneStatusDocStale Kind = "done_status_doc_stale"
	// KindInProgressReleased: spec says in_progress but the event log's
	// latest event for this id is release, block, or done.
	KindInProgressReleased Kind = "in_progress_released"
	// KindDuplicateID: more than one spec file declares the same id.
	KindDuplicateID Kind = "duplicate_id"
)

// Zombie names one detected inconsistency between a WU's spec, its
// worktree, the status doc, or the event log.
type Zombie struct {
	WUID   string
	Kind   Kind
	Detail string
}

// Detect scans every WU spec under cfg's work-units directory and reports
// every zombie condition found, per §4.10's definition. It never mutates
// anything; callers act on the result via Resume/Reset/Nuke/Cleanup.
func Detect(cfg *lfconfig.Config) ([]Zombie, error) {
	entries, _ := wu.LoadAll(cfg.WUDirPath())

	store, err := events.LoadStore(cfg.EventsPath())
	if err != nil {
		return nil, err
	}
	statusDoc, err := mdlist.ReadOrDefault(cfg.StatusPath(), "")
	if err != nil {
		return nil, err
	}
	doc := mdlist.Parse(statusDoc)

	var zombies []Zombie
	for _, e := range entries {
		w := e.WU
		switch w.Status {
		case wu.StatusDone:
			if w.Claim != nil && w.Claim.WorktreePath != "" {
				if _, statErr := os.Stat(w.Claim.WorktreePath); statErr == nil {
					zombies = append(zombies, Zombie{WUID: w.ID, Kind: KindDoneWorktreeLingers, Detail: w.Claim.WorktreePath})
				}
			}
			if doc.Section("In Progress").HasBullet(w.ID) {
				zombies = append(zombies, Zombie{WUID: w.ID, Kind: KindDoneStatusDocStale, Detail: cfg.StatusPath()})
			}
		case wu.StatusInProgress:
			if status := store.StatusOf(w.ID); status == events.StatusReady || status == events.StatusDone || status == events.StatusBlocked {
				zombies = append(zombies, Zombie{WUID: w.ID, Kind: KindInProgressReleased, Detail: string(status)})
			}
		}
	}

	for id, dups := range wu.FindDuplicateIDs(entries) {
		for _, d := range dups {
			zombies = append(zombies, Zombie{WUID: id, Kind: KindDuplicateID, Detail: d.Path})
		}
	}

	log.Printf("zombie scan found %d issue(s) across %d WU(s)", len(zombies), len(entries))
	return zombies, nil
}
