package recovery

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lumenflow/lumenflow/pkg/events"
	"github.com/lumenflow/lumenflow/pkg/lfconfig"
	"github.com/lumenflow/lumenflow/pkg/testutil"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

func writeWU(t *testing.T, cfg *lfconfig.Config, w *wu.WU) {
	t.Helper()
	if err := wu.Write(wu.PathFor(cfg.WUDirPath(), w.ID), w); err != nil {
		t.Fatalf("wu.Write: %v", err)
	}
}

func TestDetectDoneWorktreeLingers(t *testing.T) {
	dir := testutil.TempDir(t, "recovery-zombie")
	cfg := lfconfig.Default(dir)

	wtPath := filepath.Join(dir, "leftover-worktree")
	if err := os.MkdirAll(wtPath, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	writeWU(t, cfg, &wu.WU{
		ID: "WU-1", Title: "Done but dirty", Lane: "core", Type: wu.TypeFeature, Status: wu.StatusDone,
		Claim:      &wu.Claim{WorktreePath: wtPath},
		Completion: &wu.Completion{CompletedAt: time.Now(), Locked: true},
	})

	zombies, err := Detect(cfg)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	found := false
	for _, z := range zombies {
		if z.WUID == "WU-1" && z.Kind == KindDoneWorktreeLingers {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected KindDoneWorktreeLingers zombie for WU-1, got %+v", zombies)
	}
}

func TestDetectDoneStatusDocStale(t *testing.T) {
	dir := testutil.TempDir(t, "recovery-zombie")
	cfg := lfconfig.Default(dir)

	writeWU(t, cfg, &wu.WU{
		ID: "WU-2", Title: "Stale status", Lane: "core", Type: wu.TypeFeature, Status: wu.StatusDone,
		Completion: &wu.Completion{CompletedAt: time.Now(), Locked: true},
	})

	statusContent := "# Status\n\n## In Progress\n\n- WU-2: Stale status\n\n## Completed\n"
	if err := os.MkdirAll(filepath.Dir(cfg.StatusPath()), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(cfg.StatusPath(), []byte(statusContent), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	zombies, err := Detect(cfg)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	found := false
	for _, z := range zombies {
		if z.WUID == "WU-2" && z.Kind == KindDoneStatusDocStale {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected KindDoneStatusDocStale zombie for WU-2, got %+v", zombies)
	}
}

func TestDetectInProgressReleased(t *testing.T) {
	dir := testutil.TempDir(t, "recovery-zombie")
	cfg := lfconfig.Default(dir)

	writeWU(t, cfg, &wu.WU{
		ID: "WU-3", Title: "Released underneath", Lane: "core", Type: wu.TypeFeature, Status: wu.StatusInProgress,
		Claim: &wu.Claim{ClaimedAt: time.Now(), SessionID: "s1", ClaimedMode: wu.ModeWorktree},
	})

	now := time.Now()
	if err := events.Append(cfg.EventsPath(), events.Claim("WU-3", "core", "Released underneath", "s1", now)); err != nil {
		t.Fatalf("Append claim: %v", err)
	}
	if err := events.Append(cfg.EventsPath(), events.Release("WU-3", "core", "manual reset", now.Add(time.Minute))); err != nil {
		t.Fatalf("Append release: %v", err)
	}

	zombies, err := Detect(cfg)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	found := false
	for _, z := range zombies {
		if z.WUID == "WU-3" && z.Kind == KindInProgressReleased {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected KindInProgressReleased zombie for WU-3, got %+v", zombies)
	}
}

func TestDetectDuplicateID(t *testing.T) {
	dir := testutil.TempDir(t, "recovery-zombie")
	cfg := lfconfig.Default(dir)

	w := &wu.WU{ID: "WU-4", Title: "Canonical", Lane: "core", Type: wu.TypeFeature, Status: wu.StatusReady}
	writeWU(t, cfg, w)
	// Second file declaring the same id under a different filename.
	dup := &wu.WU{ID: "WU-4", Title: "Collided", Lane: "core", Type: wu.TypeFeature, Status: wu.StatusReady}
	if err := wu.Write(filepath.Join(cfg.WUDirPath(), "WU-4-dup.yaml"), dup); err != nil {
		t.Fatalf("wu.Write dup: %v", err)
	}

	zombies, err := Detect(cfg)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	count := 0
	for _, z := range zombies {
		if z.WUID == "WU-4" && z.Kind == KindDuplicateID {
			count++
		}
	}
	if count == 0 {
		t.Fatalf("expected at least one KindDuplicateID zombie for WU-4, got %+v", zombies)
	}
}

func TestDetectNoZombiesOnHealthyWU(t *testing.T) {
	dir := testutil.TempDir(t, "recovery-zombie")
	cfg := lfconfig.Default(dir)

	writeWU(t, cfg, &wu.WU{ID: "WU-5", Title: "Healthy", Lane: "core", Type: wu.TypeFeature, Status: wu.StatusReady})

	zombies, err := Detect(cfg)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	for _, z := range zombies {
		if z.WUID == "WU-5" {
			t.Fatalf("expected no zombies for healthy WU-5, got %+v", z)
		}
	}
}
