package recovery

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lumenflow/lumenflow/pkg/testutil"
)

func TestAttemptCountZeroWhenNoMarker(t *testing.T) {
	dir := testutil.TempDir(t, "recovery-marker")
	path := filepath.Join(dir, "WU-1.recovery")

	count, err := AttemptCount(path)
	if err != nil {
		t.Fatalf("AttemptCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 attempts, got %d", count)
	}
}

func TestRecordAttemptIncrementsAndPersists(t *testing.T) {
	dir := testutil.TempDir(t, "recovery-marker")
	path := filepath.Join(dir, "WU-2.recovery")
	now := time.Now()

	for i := 1; i <= 3; i++ {
		count, err := RecordAttempt(path, now)
		if err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
		if count != i {
			t.Fatalf("expected count %d, got %d", i, count)
		}
	}

	count, err := AttemptCount(path)
	if err != nil {
		t.Fatalf("AttemptCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected persisted count 3, got %d", count)
	}
}

func TestCheckAttemptsRefusesAtLimit(t *testing.T) {
	dir := testutil.TempDir(t, "recovery-marker")
	path := filepath.Join(dir, "WU-3.recovery")
	now := time.Now()

	for i := 0; i < 3; i++ {
		if err := CheckAttempts(path, 3); err != nil {
			t.Fatalf("CheckAttempts before limit reached: %v", err)
		}
		if _, err := RecordAttempt(path, now); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	if err := CheckAttempts(path, 3); err == nil {
		t.Fatal("expected CheckAttempts to refuse once attempt count reaches the limit")
	}
}

func TestResetAttemptsClearsMarker(t *testing.T) {
	dir := testutil.TempDir(t, "recovery-marker")
	path := filepath.Join(dir, "WU-4.recovery")
	now := time.Now()

	if _, err := RecordAttempt(path, now); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if err := ResetAttempts(path); err != nil {
		t.Fatalf("ResetAttempts: %v", err)
	}

	count, err := AttemptCount(path)
	if err != nil {
		t.Fatalf("AttemptCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 attempts after reset, got %d", count)
	}

	// Resetting an already-absent marker is tolerated.
	if err := ResetAttempts(path); err != nil {
		t.Fatalf("ResetAttempts on absent marker: %v", err)
	}
}
