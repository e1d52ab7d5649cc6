package recovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/lumenflow/lumenflow/pkg/lferr"
)

// marker is the JSON body of a WU's recovery attempt counter file, keyed by
// lfconfig.RecoveryMarkerPath(id).
type marker struct {
	Attempts    int       `json:"attempts"`
	LastAttempt time.Time `json:"last_attempt"`
}

func readMarker(path string) (marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return marker{}, nil
		}
		return marker{}, lferr.Wrap(lferr.IO, err, "", "failed to read recovery marker %s", path)
	}
	var m marker
	if err := json.Unmarshal(data, &m); err != nil {
		return marker{}, lferr.Wrap(lferr.IO, err, "", "failed to parse recovery marker %s", path)
	}
	return m, nil
}

func writeMarker(path string, m marker) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return lferr.Wrap(lferr.IO, err, "check directory permissions", "failed to create recovery dir for %s", path)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return lferr.Wrap(lferr.Fatal, err, "", "failed to encode recovery marker %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return lferr.Wrap(lferr.IO, err, "", "failed to write recovery marker %s", path)
	}
	return nil
}

// AttemptCount returns how many recovery attempts have been recorded for
// the WU whose marker lives at path.
func AttemptCount(path string) (int, error) {
	m, err := readMarker(path)
	if err != nil {
		return 0, err
	}
	return m.Attempts, nil
}

// CheckAttempts refuses auto-recovery once the recorded attempt count has
// already reached maxAttempts, per §4.10's "after N=3 attempts, refuse
// auto-recovery and require manual intervention".
func CheckAttempts(path string, maxAttempts int) error {
	count, err := AttemptCount(path)
	if err != nil {
		return err
	}
	if count >= maxAttempts {
		return lferr.New(lferr.Recoverable, "intervene manually; automatic recovery has been exhausted for this WU",
			"recovery marker %s has reached its attempt limit (%d)", path, maxAttempts)
	}
	return nil
}

// RecordAttempt increments and persists the attempt counter, returning the
// new count.
func RecordAttempt(path string, now time.Time) (int, error) {
	m, err := readMarker(path)
	if err != nil {
		return 0, err
	}
	m.Attempts++
	m.LastAttempt = now
	if err := writeMarker(path, m); err != nil {
		return 0, err
	}
	return m.Attempts, nil
}

// ResetAttempts clears the recovery marker, used when a resume succeeds and
// the WU returns to healthy in_progress operation.
func ResetAttempts(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return lferr.Wrap(lferr.IO, err, "", "failed to reset recovery marker %s", path)
	}
	return nil
}
