package backlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lumenflow/lumenflow/pkg/testutil"
)

func TestMoveToDoneIsIdempotentAndExclusive(t *testing.T) {
	dir := testutil.TempDir(t, "backlog")
	path := filepath.Join(dir, "BACKLOG.md")

	if err := MoveToReady(path, "WU-3", "Third thing"); err != nil {
		t.Fatalf("MoveToReady: %v", err)
	}
	if err := MoveToDone(path, "WU-3", "Third thing"); err != nil {
		t.Fatalf("MoveToDone: %v", err)
	}
	if err := MoveToDone(path, "WU-3", "Third thing"); err != nil {
		t.Fatalf("second MoveToDone: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Count(string(content), "WU-3:") != 1 {
		t.Fatalf("expected exactly one bulleted WU-3 entry, got:\n%s", content)
	}
}

func TestProseMentionPreserved(t *testing.T) {
	dir := testutil.TempDir(t, "backlog")
	path := filepath.Join(dir, "BACKLOG.md")

	seed := "# Backlog\n\n## Ready\n\n- WU-4: Fourth thing\n\n## In Progress\n\n## Done\n\nWU-4 was split from an earlier spike.\n"
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := MoveToDone(path, "WU-4", "Fourth thing"); err != nil {
		t.Fatalf("MoveToDone: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(content), "WU-4 was split from an earlier spike.") {
		t.Fatalf("prose mention should survive, got:\n%s", content)
	}
	if strings.Contains(string(content), "- WU-4: Fourth thing\n\n## In Progress") {
		t.Fatalf("WU-4 bullet should have been removed from Ready, got:\n%s", content)
	}
}
