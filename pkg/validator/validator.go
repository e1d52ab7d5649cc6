// Package validator implements the composed preflight/schema/completeness/
// transition/coverage checks §4.6 runs before the engine mutates a WU.
package validator

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lumenflow/lumenflow/pkg/events"
	"github.com/lumenflow/lumenflow/pkg/lferr"
	"github.com/lumenflow/lumenflow/pkg/sliceutil"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

var laneFormat = regexp.MustCompile(`^[A-Z][A-Za-z]*(: [A-Z][A-Za-z]*)?$`)

// placeholderPhrases flags acceptance/description text that hasn't been
// filled in, per §4.6.4's "no placeholder text" rule.
var placeholderPhrases = []string{
	"tbd", "todo", "t.b.d.", "fill me in", "fill this in", "placeholder", "xxx",
}

// Options carries the bypass flags §6's claim/done operations accept.
type Options struct {
	AllowIncomplete bool
	Force           bool
	ForceOverlap    bool
}

// Preflight asserts the WU file exists, parsed, and its id matches what the
// caller expected. By the time Preflight is called, wu.Read has already done
// this work; Preflight exists as a named pass so callers that already hold a
// parsed *wu.WU (e.g. re-validating after an in-worktree edit) can still
// assert the invariant without re-reading the file.
func Preflight(w *wu.WU, expectedID string) error {
	if w == nil {
		return lferr.New(lferr.Validation, "create the WU spec before claiming it", "WU spec is nil")
	}
	if !wu.ValidID(w.ID) {
		return lferr.New(lferr.Validation, "ids must match WU-<n>", "invalid WU id %q", w.ID)
	}
	if expectedID != "" && w.ID != expectedID {
		return lferr.New(lferr.Validation, "rename the file or fix the id field so they match", "WU id %q does not match expected %q", w.ID, expectedID)
	}
	return nil
}

// LaneFormat asserts lane matches the §4.6.6 pattern: a single capitalized
// word, or "Parent: Subdomain".
func LaneFormat(lane string) error {
	if !laneFormat.MatchString(lane) {
		return lferr.New(lferr.Validation, `use a single capitalized word or "Parent: Subdomain"`,
			"lane %q does not match the required format", lane)
	}
	return nil
}

// SpecCompleteness asserts acceptance is non-empty, contains no placeholder
// text, and (for non-doc/process types) that a tests section is present.
// Bypassable with Options.AllowIncomplete.
func SpecCompleteness(w *wu.WU, opts Options) error {
	if opts.AllowIncomplete {
		return nil
	}
	if len(w.Acceptance) == 0 {
		return lferr.New(lferr.Validation, "add at least one acceptance criterion", "WU %s has no acceptance criteria", w.ID)
	}
	for _, a := range w.Acceptance {
		if isPlaceholder(a) {
			return lferr.New(lferr.Validation, "replace the placeholder acceptance text with a real criterion",
				"WU %s has placeholder acceptance text: %q", w.ID, a)
		}
	}
	if isPlaceholder(w.Description) {
		return lferr.New(lferr.Validation, "replace the placeholder description", "WU %s has placeholder description text", w.ID)
	}
	if !w.Type.RelaxesTestRequirement() && w.Tests == nil {
		return lferr.New(lferr.Validation, "add a tests section", "WU %s of type %q requires a tests section", w.ID, w.Type)
	}
	return nil
}

func isPlaceholder(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return false
	}
	return sliceutil.ContainsAny(lower, placeholderPhrases...)
}

// ManualTestsAtClaim asserts non-doc/process WUs declare at least one
// tests.manual entry. This check is never bypassable, even with
// AllowIncomplete, per §4.6.5.
func ManualTestsAtClaim(w *wu.WU) error {
	if w.Type.RelaxesTestRequirement() {
		return nil
	}
	if w.Tests == nil || len(w.Tests.Manual) == 0 {
		return lferr.New(lferr.Validation, "add a tests.manual entry before claiming",
			"WU %s has no manual tests and is not a documentation/process WU", w.ID)
	}
	return nil
}

// Transition asserts the requested status change is an admissible
// state-machine edge (§4.8). This check never retries and is never
// bypassable: it fails closed on anything not in the diagram.
func Transition(from, to wu.Status) error {
	if wu.CanTransition(from, to) {
		return nil
	}
	return lferr.New(lferr.Transition, fmt.Sprintf("valid transitions from %s: see the WU lifecycle state machine", from),
		"transition %s -> %s is not admissible", from, to)
}

// CoverageResult is the outcome of a code-path coverage check.
type CoverageResult struct {
	// UncoveredPrefixes lists declared code_paths with zero touched files.
	UncoveredPrefixes []string
	// OutOfScope lists changed files that fall outside every declared prefix.
	OutOfScope []string
}

// OK reports whether coverage fully matches the declared scope.
func (r CoverageResult) OK() bool {
	return len(r.UncoveredPrefixes) == 0 && len(r.OutOfScope) == 0
}

// CodePathCoverage checks that every declared code_paths prefix is touched
// at least once by changedFiles, and that no changed file falls outside the
// declared set, per §4.6.7 / §8 invariant 9. Rename detection is controlled
// by the caller (the changedFiles list is expected to already reflect the
// resolver's DetectRenames setting).
func CodePathCoverage(codePaths, changedFiles []string) CoverageResult {
	var res CoverageResult
	touched := make([]bool, len(codePaths))

	for _, f := range changedFiles {
		covered := false
		for i, p := range codePaths {
			if pathMatchesPrefix(f, p) {
				touched[i] = true
				covered = true
			}
		}
		if !covered {
			res.OutOfScope = append(res.OutOfScope, f)
		}
	}
	for i, p := range codePaths {
		if !touched[i] {
			res.UncoveredPrefixes = append(res.UncoveredPrefixes, p)
		}
	}
	return res
}

// pathMatchesPrefix reports whether file falls under declared code-path
// pattern p, using the same literal-prefix-or-glob semantics as the overlap
// detector.
func pathMatchesPrefix(file, p string) bool {
	clean := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(p, "/**"), "/*"), "*")
	clean = strings.TrimSuffix(clean, "/")
	if file == clean {
		return true
	}
	if strings.HasPrefix(file, clean+"/") {
		return true
	}
	if ok, _ := filepath.Match(p, file); ok {
		return true
	}
	return false
}

// CoverageError builds the typed error CodePathCoverage failures surface.
func CoverageError(id string, r CoverageResult) error {
	var parts []string
	if len(r.UncoveredPrefixes) > 0 {
		parts = append(parts, fmt.Sprintf("declared but untouched: %s", strings.Join(r.UncoveredPrefixes, ", ")))
	}
	if len(r.OutOfScope) > 0 {
		parts = append(parts, fmt.Sprintf("touched but undeclared: %s", strings.Join(r.OutOfScope, ", ")))
	}
	return lferr.New(lferr.Coverage, "update code_paths to match what was actually changed, or revert out-of-scope changes",
		"WU %s code-path coverage mismatch: %s", id, strings.Join(parts, "; "))
}

// OrphanCheck reports whether a WU claims status=done in its spec but the
// event-log state store still reports it in_progress, per §4.6.8.
func OrphanCheck(w *wu.WU, store *events.Store) bool {
	return w.Status == wu.StatusDone && store.StatusOf(w.ID) == events.StatusInProgress
}
