package stamp

import (
	"path/filepath"
	"testing"

	"github.com/lumenflow/lumenflow/pkg/testutil"
)

func TestCreateExistsRemove(t *testing.T) {
	dir := testutil.TempDir(t, "stamp")
	path := filepath.Join(dir, "stamps", "WU-1.done")

	if Exists(path) {
		t.Fatal("stamp should not exist yet")
	}
	if err := Create(path); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !Exists(path) {
		t.Fatal("stamp should exist after Create")
	}
	// Idempotent: creating again is a no-op, not an error.
	if err := Create(path); err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if err := Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if Exists(path) {
		t.Fatal("stamp should not exist after Remove")
	}
	// Removing an already-absent stamp is tolerated.
	if err := Remove(path); err != nil {
		t.Fatalf("Remove on absent stamp: %v", err)
	}
}
