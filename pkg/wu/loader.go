package wu

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lumenflow/lumenflow/pkg/lferr"
)

// Entry pairs a parsed WU with the absolute path it was read from, since a
// spec's own id doesn't have to be unique across files (that's precisely the
// duplicate-id condition the recovery subsystem repairs).
type Entry struct {
	Path string
	WU   *WU
}

// LoadAll scans wuDir for *.yaml spec files and parses each, without
// enforcing filename/id agreement (Read is called with an empty expectedID).
// Parse errors on individual files are collected rather than aborting the
// whole scan, so one malformed spec doesn't hide the rest of the backlog from
// callers like duplicate-id repair and the status/context views.
func LoadAll(wuDir string) ([]Entry, map[string]error) {
	dirEntries, err := os.ReadDir(wuDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, map[string]error{wuDir: lferr.Wrap(lferr.IO, err, "", "failed to list %s", wuDir)}
	}

	var entries []Entry
	errs := map[string]error{}
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(wuDir, e.Name())
		w, err := Read(path, "")
		if err != nil {
			errs[e.Name()] = err
			continue
		}
		entries = append(entries, Entry{Path: path, WU: w})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, errs
}

// FindDuplicateIDs groups entries by declared id and returns only the groups
// with more than one member, keyed by the colliding id.
func FindDuplicateIDs(entries []Entry) map[string][]Entry {
	byID := map[string][]Entry{}
	for _, e := range entries {
		byID[e.WU.ID] = append(byID[e.WU.ID], e)
	}
	dups := map[string][]Entry{}
	for id, es := range byID {
		if len(es) > 1 {
			dups[id] = es
		}
	}
	return dups
}
