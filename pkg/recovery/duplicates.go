package recovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/lumenflow/lumenflow/pkg/events"
	"github.com/lumenflow/lumenflow/pkg/lfconfig"
	"github.com/lumenflow/lumenflow/pkg/lferr"
	"github.com/lumenflow/lumenflow/pkg/stamp"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

// RepairResult summarizes one id's repair: the id's new value and the file
// it was renamed to.
type RepairResult struct {
	OldID   string
	NewID   string
	NewPath string
}

// RepairDuplicates scans every WU spec under cfg's work-units directory and
// resolves each group of colliding ids (§4.10): the file matching
// "<id>.yaml" is canonical and is left untouched; every other file in the
// group is assigned a fresh id, renamed, and has its event-log entries for
// its own lane remapped to the new id. Running it twice is a no-op, since
// the second pass finds no remaining duplicates.
func RepairDuplicates(cfg *lfconfig.Config) ([]RepairResult, error) {
	entries, _ := wu.LoadAll(cfg.WUDirPath())
	dups := wu.FindDuplicateIDs(entries)
	if len(dups) == 0 {
		return nil, nil
	}

	existing := make([]string, len(entries))
	for i, e := range entries {
		existing[i] = e.WU.ID
	}

	// Process ids in sorted order so repeated runs (and tests) are
	// deterministic regardless of map iteration order.
	ids := make([]string, 0, len(dups))
	for id := range dups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var results []RepairResult
	for _, id := range ids {
		group := dups[id]
		canonicalIdx := -1
		for i, e := range group {
			if wu.IDFromFilename(e.Path) == id {
				canonicalIdx = i
				break
			}
		}
		if canonicalIdx == -1 {
			// No file's name matches the id; leave the first alphabetically
			// as canonical by path, a deterministic fallback.
			canonicalIdx = 0
		}

		for i, e := range group {
			if i == canonicalIdx {
				continue
			}
			newID := wu.NextFreeID(existing)
			existing = append(existing, newID)

			oldLane := e.WU.Lane
			e.WU.ID = newID
			newPath := filepath.Join(filepath.Dir(e.Path), newID+".yaml")

			if err := wu.Write(newPath, e.WU); err != nil {
				return results, err
			}
			if newPath != e.Path {
				if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
					return results, lferr.Wrap(lferr.IO, err, "", "failed to remove superseded spec %s", e.Path)
				}
			}

			if err := remapEvents(cfg.EventsPath(), id, oldLane, newID); err != nil {
				return results, err
			}

			if e.WU.Status == wu.StatusDone {
				if err := stamp.Create(cfg.StampPath(newID)); err != nil {
					return results, err
				}
			}

			results = append(results, RepairResult{OldID: id, NewID: newID, NewPath: newPath})
		}
	}
	return results, nil
}

// remapEvents rewrites the event log in place, changing the WUID of every
// event that names oldID and whose lane matches dupLane (the disambiguating
// signal between the canonical and non-canonical WU's event histories) to
// newID. The whole log is read, mutated in memory, and rewritten atomically,
// since unlike a normal append this is a one-time historical correction.
func remapEvents(path, oldID, dupLane, newID string) error {
	evts, err := events.Load(path)
	if err != nil {
		return err
	}
	changed := false
	for i := range evts {
		if evts[i].WUID == oldID && evts[i].Lane == dupLane {
			evts[i].WUID = newID
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return rewriteEventLog(path, evts)
}

func rewriteEventLog(path string, evts []events.Event) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return lferr.Wrap(lferr.IO, err, "check directory permissions", "failed to create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".events-*.jsonl.tmp")
	if err != nil {
		return lferr.Wrap(lferr.IO, err, "check directory permissions", "failed to create temp file in %s", dir)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	for _, e := range evts {
		line, err := json.Marshal(e)
		if err != nil {
			tmp.Close()
			return lferr.Wrap(lferr.Fatal, err, "", "failed to encode event during remap")
		}
		if _, err := tmp.Write(append(line, '\n')); err != nil {
			tmp.Close()
			return lferr.Wrap(lferr.IO, err, "", "failed to write remapped event log %s", path)
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return lferr.Wrap(lferr.IO, err, "", "failed to flush remapped event log %s", path)
	}
	if err := tmp.Close(); err != nil {
		return lferr.Wrap(lferr.IO, err, "", "failed to close temp file for %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return lferr.Wrap(lferr.IO, err, "", "failed to finalize remapped event log %s", path)
	}
	return nil
}
