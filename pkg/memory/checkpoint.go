package memory

import (
	"time"

	"github.com/lumenflow/lumenflow/pkg/events"
)

// CheckpointOptions carries the optional fields §4.9's checkpoint operation
// accepts alongside its required note.
type CheckpointOptions struct {
	WUID      string
	Progress  string
	NextSteps string
	Trigger   string
	// DiffStat is the caller's best-effort `git diff --stat` against the
	// WU's baseline SHA. Empty when the caller couldn't compute one (e.g.
	// no wu_id, or the checkout has no baseline recorded yet).
	DiffStat string
}

// Checkpoint creates a checkpoint node (lifecycle=session) recording note
// plus progress/next_steps/diff_stat in its metadata, and, when opts.WUID is
// set, also appends a checkpoint event to the WU's event log at
// eventLogPath so cross-agent readers without access to the memory store
// still see progress. Recover (§4.9, scenario S6) reads these same
// metadata keys back out, so the keys here ("progress", "next_steps",
// "diff_stat") are load-bearing, not incidental.
func Checkpoint(memPath, relPath, eventLogPath string, note string, opts CheckpointOptions, now time.Time) (Node, error) {
	meta := map[string]any{}
	if opts.Trigger != "" {
		meta["trigger"] = opts.Trigger
	}
	if opts.Progress != "" {
		meta["progress"] = opts.Progress
	}
	if opts.NextSteps != "" {
		meta["next_steps"] = opts.NextSteps
	}
	if opts.DiffStat != "" {
		meta["diff_stat"] = opts.DiffStat
	}
	node := Node{
		ID:        NewID(),
		Type:      TypeCheckpoint,
		Lifecycle: LifecycleSession,
		Content:   note,
		CreatedAt: now,
		WUID:      opts.WUID,
		Metadata:  meta,
	}
	if len(node.Metadata) == 0 {
		node.Metadata = nil
	}
	if err := Create(memPath, relPath, node); err != nil {
		return Node{}, err
	}

	if opts.WUID != "" {
		ev := events.Checkpoint(opts.WUID, note, opts.Progress, opts.NextSteps, now)
		if err := events.Append(eventLogPath, ev); err != nil {
			return node, err
		}
		log.Printf("checkpoint recorded: wu=%s node=%s", opts.WUID, node.ID)
	}
	return node, nil
}
