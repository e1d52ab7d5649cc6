package validator

import "github.com/lumenflow/lumenflow/pkg/wu"

// ApplyFixes repairs the schema issues this package knows how to repair
// automatically (see fixableSubstrings), mutating w in place. It is only
// ever called by the engine from inside the claiming worktree — never
// against the caller's own checkout — per §4.8 claim step 8. It returns
// whether it changed anything, so the caller knows whether the WU needs
// rewriting to disk.
func ApplyFixes(w *wu.WU, issues []SchemaIssue) bool {
	changed := false
	for _, issue := range issues {
		if !issue.Fixable {
			continue
		}
		if w.Type == "" {
			w.Type = wu.TypeFeature
			changed = true
		}
	}
	return changed
}
