package recovery

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lumenflow/lumenflow/pkg/events"
	"github.com/lumenflow/lumenflow/pkg/lfconfig"
	"github.com/lumenflow/lumenflow/pkg/stamp"
	"github.com/lumenflow/lumenflow/pkg/testutil"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

func TestRepairDuplicatesRenamesCollidingFile(t *testing.T) {
	dir := testutil.TempDir(t, "recovery-dup")
	cfg := lfconfig.Default(dir)

	canonical := &wu.WU{ID: "WU-1", Title: "Canonical", Lane: "core", Type: wu.TypeFeature, Status: wu.StatusReady}
	writeWU(t, cfg, canonical)

	collider := &wu.WU{ID: "WU-1", Title: "Collided lane", Lane: "widgets", Type: wu.TypeFeature, Status: wu.StatusReady}
	colliderPath := filepath.Join(cfg.WUDirPath(), "WU-1-collision.yaml")
	if err := wu.Write(colliderPath, collider); err != nil {
		t.Fatalf("wu.Write collider: %v", err)
	}

	now := time.Now()
	if err := events.Append(cfg.EventsPath(), events.Claim("WU-1", "widgets", "Collided lane", "s1", now)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	results, err := RepairDuplicates(cfg)
	if err != nil {
		t.Fatalf("RepairDuplicates: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly one repair result, got %d: %+v", len(results), results)
	}
	if results[0].OldID != "WU-1" || results[0].NewID == "WU-1" {
		t.Fatalf("expected collider renamed off WU-1, got %+v", results[0])
	}

	store, err := events.LoadStore(cfg.EventsPath())
	if err != nil {
		t.Fatalf("LoadStore: %v", err)
	}
	if status := store.StatusOf(results[0].NewID); status != events.StatusInProgress {
		t.Fatalf("expected remapped event for %s, got status %s", results[0].NewID, status)
	}
	if status := store.StatusOf("WU-1"); status != events.StatusUnknown {
		t.Fatalf("expected WU-1's own event history untouched (still unknown, no claim was ever logged for it), got %s", status)
	}

	// Running again is a no-op: no more duplicates remain.
	results2, err := RepairDuplicates(cfg)
	if err != nil {
		t.Fatalf("second RepairDuplicates: %v", err)
	}
	if len(results2) != 0 {
		t.Fatalf("expected repeat run to find no duplicates, got %+v", results2)
	}
}

func TestRepairDuplicatesStampsRenamedDoneWU(t *testing.T) {
	dir := testutil.TempDir(t, "recovery-dup")
	cfg := lfconfig.Default(dir)

	writeWU(t, cfg, &wu.WU{ID: "WU-2", Title: "Canonical done", Lane: "core", Type: wu.TypeFeature, Status: wu.StatusDone,
		Completion: &wu.Completion{CompletedAt: time.Now(), Locked: true}})

	collider := &wu.WU{ID: "WU-2", Title: "Collided, also done", Lane: "widgets", Type: wu.TypeFeature, Status: wu.StatusDone,
		Completion: &wu.Completion{CompletedAt: time.Now(), Locked: true}}
	if err := wu.Write(filepath.Join(cfg.WUDirPath(), "WU-2-collision.yaml"), collider); err != nil {
		t.Fatalf("wu.Write collider: %v", err)
	}

	results, err := RepairDuplicates(cfg)
	if err != nil {
		t.Fatalf("RepairDuplicates: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one repair result, got %+v", results)
	}
	if !stamp.Exists(cfg.StampPath(results[0].NewID)) {
		t.Fatalf("expected a done stamp for renamed id %s", results[0].NewID)
	}
}
