package engine

import (
	"context"

	"github.com/lumenflow/lumenflow/pkg/events"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

// StatusProjection is id's spec merged with the event log's view of it: the
// spec's own fields plus the effective status the log replays to and, when
// present, its last checkpoint annotation.
type StatusProjection struct {
	WU              *wu.WU
	EffectiveStatus events.EffectiveStatus
	LastCheckpoint  *events.Checkpoint
	Orphaned        bool
}

// Status builds the §6 status projection for id: the parsed spec, the
// event log's effective status (which can disagree with the spec during a
// zombie window), and the last checkpoint recorded against it, if any.
func (e *Engine) Status(ctx context.Context, id string) (StatusProjection, error) {
	w, store, err := e.loadWU(ctx, id)
	if err != nil {
		return StatusProjection{}, err
	}
	return StatusProjection{
		WU:              w,
		EffectiveStatus: store.StatusOf(id),
		LastCheckpoint:  store.LastCheckpoint(id),
		Orphaned:        w.Status == wu.StatusDone && store.StatusOf(id) == events.StatusInProgress,
	}, nil
}
