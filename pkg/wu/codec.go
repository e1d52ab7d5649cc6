package wu

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/lumenflow/lumenflow/pkg/lferr"
	"github.com/lumenflow/lumenflow/pkg/logger"
)

var log = logger.New("wu:codec")

// idPattern matches the spec's WU-<n> id shape.
var idPattern = regexp.MustCompile(`^WU-[1-9][0-9]*$`)

// ValidID reports whether id matches the WU-<n> pattern.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// PathFor returns the expected on-disk path for id, rooted at wuDir.
func PathFor(wuDir, id string) string {
	return filepath.Join(wuDir, id+".yaml")
}

// Read parses the YAML spec at path and asserts its id matches expectedID.
// It returns a typed *lferr.Error on file-not-found, parse, missing or
// malformed id, or id-mismatch conditions so callers never have to sniff
// error strings. It does not run JSON-schema validation.
func Read(path, expectedID string) (*WU, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lferr.Wrap(lferr.IO, err, "check the WU id and work-units directory", "WU spec not found: %s", path)
		}
		return nil, lferr.Wrap(lferr.IO, err, "check file permissions", "failed to read WU spec %s", path)
	}

	var w WU
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, lferr.Wrap(lferr.Validation, err, "fix the YAML syntax in the WU spec", "failed to parse WU spec %s", path)
	}

	if w.ID == "" {
		return nil, lferr.New(lferr.Validation, "add an `id` field to the WU spec", "WU spec %s has no id", path)
	}
	if !ValidID(w.ID) {
		return nil, lferr.New(lferr.Validation, "ids must match WU-<n>", "WU spec %s declares invalid id %q", path, w.ID)
	}
	if expectedID != "" && w.ID != expectedID {
		return nil, lferr.New(lferr.Validation, "rename the file or fix the id field so they match", "WU spec %s declares id %q, expected %q", path, w.ID, expectedID)
	}

	w.normalize()
	return &w, nil
}

// keyOrder is the stable top-level key order write uses, matching §6's
// schema listing. Fields this codec doesn't recognize are never emitted.
var keyOrder = []string{
	"id", "title", "description", "lane", "type", "status",
	"code_paths", "acceptance", "tests",
	"claimed_at", "session_id", "claimed_mode", "worktree_path", "claimed_branch", "baseline_main_sha",
	"completed_at", "locked",
}

// Write serializes w to path with a stable key order, creating parent
// directories as needed. The file is written atomically via a temp file
// plus rename so a concurrent reader never observes a partial write.
func Write(path string, w *WU) error {
	if w.ID == "" || !ValidID(w.ID) {
		return lferr.New(lferr.Validation, "set a valid WU-<n> id before writing", "refusing to write WU spec with invalid id %q", w.ID)
	}

	m, err := toOrderedMap(w)
	if err != nil {
		return lferr.Wrap(lferr.Fatal, err, "", "failed to encode WU %s", w.ID)
	}

	data, err := yaml.MarshalWithOptions(m, yaml.UseLiteralStyleIfMultiline(true))
	if err != nil {
		return lferr.Wrap(lferr.Fatal, err, "", "failed to marshal WU %s", w.ID)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return lferr.Wrap(lferr.IO, err, "check directory permissions", "failed to create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".wu-*.yaml.tmp")
	if err != nil {
		return lferr.Wrap(lferr.IO, err, "check directory permissions", "failed to create temp file in %s", dir)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return lferr.Wrap(lferr.IO, err, "", "failed to write WU spec %s", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return lferr.Wrap(lferr.IO, err, "", "failed to flush WU spec %s", path)
	}
	if err := tmp.Close(); err != nil {
		return lferr.Wrap(lferr.IO, err, "", "failed to close temp file for %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return lferr.Wrap(lferr.IO, err, "", "failed to finalize WU spec %s", path)
	}

	log.Printf("wrote WU spec: id=%s path=%s", w.ID, path)
	return nil
}

// toOrderedMap flattens w (including its embedded Claim/Completion pointer
// structs) into a yaml.MapSlice respecting keyOrder, so written files always
// present fields in the same order regardless of struct field order or which
// optional sub-structs are present.
func toOrderedMap(w *WU) (yaml.MapSlice, error) {
	raw := map[string]any{
		"id":          w.ID,
		"title":       w.Title,
		"lane":        w.Lane,
		"type":        w.Type,
		"status":      w.Status,
		"code_paths":  w.CodePaths,
		"acceptance":  w.Acceptance,
	}
	if w.Description != "" {
		raw["description"] = w.Description
	}
	if w.Tests != nil {
		raw["tests"] = w.Tests
	}
	if w.Claim != nil {
		raw["claimed_at"] = w.Claim.ClaimedAt
		raw["session_id"] = w.Claim.SessionID
		raw["claimed_mode"] = w.Claim.ClaimedMode
		if w.Claim.WorktreePath != "" {
			raw["worktree_path"] = w.Claim.WorktreePath
		}
		raw["claimed_branch"] = w.Claim.ClaimedBranch
		raw["baseline_main_sha"] = w.Claim.BaselineMainSHA
	}
	if w.Completion != nil {
		raw["completed_at"] = w.Completion.CompletedAt
		raw["locked"] = w.Completion.Locked
	}

	var m yaml.MapSlice
	for _, k := range keyOrder {
		if v, ok := raw[k]; ok {
			m = append(m, yaml.MapItem{Key: k, Value: v})
		}
	}
	return m, nil
}

// normalize drops Claim when Status is neither in_progress nor blocked, and
// Completion when Status is not done, so stale metadata left on a spec never
// reaches the engine. It never fills in missing claim or completion fields,
// and neither normalize nor the embedded JSON schema reports them missing.
func (w *WU) normalize() {
	if w.Claim != nil && !w.IsClaimed() {
		w.Claim = nil
	}
	if w.Completion != nil && !w.IsDone() {
		w.Completion = nil
	}
}

// IDFromFilename extracts the WU id a spec filename encodes, e.g.
// "WU-42.yaml" -> "WU-42". Returns "" if the name doesn't look like a spec.
func IDFromFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if ValidID(base) {
		return base
	}
	return ""
}

// NextFreeID scans existing ids and returns the lowest-numbered WU-<n> not
// already present, used by duplicate-id repair to mint a fresh id.
func NextFreeID(existing []string) string {
	used := make(map[int]bool, len(existing))
	for _, id := range existing {
		var n int
		if _, err := fmt.Sscanf(id, "WU-%d", &n); err == nil {
			used[n] = true
		}
	}
	for n := 1; ; n++ {
		if !used[n] {
			return fmt.Sprintf("WU-%d", n)
		}
	}
}
