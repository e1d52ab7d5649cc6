// Package stamp implements the §3 "done was recorded on disk" marker: a
// trivial, empty file keyed by WU id that validators consult to refuse a
// second done on an already-completed WU (§8 invariant 4).
package stamp

import (
	"os"
	"path/filepath"

	"github.com/lumenflow/lumenflow/pkg/lferr"
)

// Exists reports whether the stamp at path has already been created.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Create writes an empty stamp file at path, creating parent directories as
// needed. Creating an already-existing stamp is a no-op, matching done's
// idempotence requirement.
func Create(path string) error {
	if Exists(path) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return lferr.Wrap(lferr.IO, err, "check directory permissions", "failed to create stamps dir for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return lferr.Wrap(lferr.IO, err, "check directory permissions", "failed to create stamp %s", path)
	}
	return f.Close()
}

// Remove deletes the stamp at path, tolerating its absence. Used by done's
// rollback path to undo a stamp that didn't exist before the failed attempt.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return lferr.Wrap(lferr.IO, err, "", "failed to remove stamp %s", path)
	}
	return nil
}
