// Package rollback implements the §4.10 "atomic rollback primitive": before
// any multi-file write sequence that touches main's shared docs (WU spec,
// status doc, backlog doc, stamp, event log), snapshot the prior contents
// of each file (or its nonexistence) into memory, then restore every file
// to that snapshot on any error, removing files that didn't exist before.
package rollback

import (
	"os"
	"path/filepath"

	"github.com/lumenflow/lumenflow/pkg/lferr"
	"github.com/lumenflow/lumenflow/pkg/logger"
)

var log = logger.New("rollback:journal")

// snapshot is one file's captured prior state.
type snapshot struct {
	path    string
	existed bool
	data    []byte
	mode    os.FileMode
}

// Journal snapshots a set of files before a multi-step write sequence and
// restores them on demand. Zero value is not usable; build one with Snapshot.
type Journal struct {
	snaps []snapshot
}

// Snapshot captures the current contents (or absence) of every path in
// paths. Call this before the first mutation of a write sequence.
func Snapshot(paths []string) (*Journal, error) {
	j := &Journal{snaps: make([]snapshot, 0, len(paths))}
	for _, p := range paths {
		s := snapshot{path: p}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				j.snaps = append(j.snaps, s)
				continue
			}
			return nil, lferr.Wrap(lferr.IO, err, "", "failed to stat %s for rollback snapshot", p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, lferr.Wrap(lferr.IO, err, "", "failed to read %s for rollback snapshot", p)
		}
		s.existed = true
		s.data = data
		s.mode = info.Mode()
		j.snaps = append(j.snaps, s)
	}
	return j, nil
}

// Restore writes every snapshotted file back to its captured state: files
// that existed are rewritten byte-for-byte; files that didn't exist before
// the snapshot (i.e. newly created during the failed sequence) are removed.
// Restore is best-effort across all entries and returns the first error
// encountered after attempting every entry, so one failure never leaves the
// rest of the journal unrestored.
func (j *Journal) Restore() error {
	var firstErr error
	for _, s := range j.snaps {
		if !s.existed {
			if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
				log.Printf("rollback: failed to remove newly created %s: %v", s.path, err)
				if firstErr == nil {
					firstErr = lferr.Wrap(lferr.IO, err, "", "failed to remove %s during rollback", s.path)
				}
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			log.Printf("rollback: failed to recreate dir for %s: %v", s.path, err)
			if firstErr == nil {
				firstErr = lferr.Wrap(lferr.IO, err, "", "failed to restore %s", s.path)
			}
			continue
		}
		if err := os.WriteFile(s.path, s.data, s.mode); err != nil {
			log.Printf("rollback: failed to restore %s: %v", s.path, err)
			if firstErr == nil {
				firstErr = lferr.Wrap(lferr.IO, err, "", "failed to restore %s", s.path)
			}
		}
	}
	log.Printf("rollback journal restored %d file(s)", len(j.snaps))
	return firstErr
}

// StampExisted reports whether path was present at snapshot time, for
// callers that need to decide whether a stamp created mid-sequence should
// be removed on failure (Restore already handles this for any path passed
// to Snapshot, but the done operation surfaces this explicitly too).
func (j *Journal) StampExisted(path string) bool {
	for _, s := range j.snaps {
		if s.path == path {
			return s.existed
		}
	}
	return false
}
