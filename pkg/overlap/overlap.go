// Package overlap detects code-path collisions between a candidate WU's
// declared paths and the paths declared by currently in-progress WUs, per
// §4.5. A collision guarantees the two WUs will touch the same files and
// therefore guarantees a merge conflict if both proceed.
package overlap

import (
	"path/filepath"
	"sort"
	"strings"
)

// Candidate is one in-progress WU's declared code paths, used as the other
// side of a pairwise overlap check.
type Candidate struct {
	WUID      string
	CodePaths []string
}

// Conflict names an in-progress WU whose declared paths collide with the
// candidate's, and the specific overlapping paths.
type Conflict struct {
	WUID             string
	OverlappingPaths []string
}

// isPrefixDir reports whether pattern is a directory-style prefix, i.e. it
// ends in "/", "/*" or "/**". A bare path without a trailing slash is not
// treated as a prefix here (overlapsPattern still matches it as a parent
// directory via its "/"-joined prefix check).
func isPrefixDir(pattern string) bool {
	return strings.HasSuffix(pattern, "/") || strings.HasSuffix(pattern, "/**") || strings.HasSuffix(pattern, "/*")
}

// normalize strips glob suffixes down to a directory prefix, or returns the
// pattern unchanged if it names a concrete file.
func normalize(pattern string) string {
	p := pattern
	p = strings.TrimSuffix(p, "/**")
	p = strings.TrimSuffix(p, "/*")
	p = strings.TrimSuffix(p, "*")
	return p
}

// overlapsPattern reports whether patterns a and b name overlapping path scopes:
// either one is a literal prefix of the other's directory, or both resolve
// to the same glob match via filepath.Match against each other's literal
// form (handling simple single-segment globs like "src/api/*.go").
func overlapsPattern(a, b string) bool {
	na, nb := normalize(a), normalize(b)

	if na == nb {
		return true
	}
	if isPrefixDir(a) && strings.HasPrefix(nb, na) {
		return true
	}
	if isPrefixDir(b) && strings.HasPrefix(na, nb) {
		return true
	}
	// Directory prefix either direction, even without an explicit glob
	// suffix (e.g. "src/api" covers "src/api/handler.go").
	if strings.HasPrefix(nb, na+"/") || strings.HasPrefix(na, nb+"/") {
		return true
	}

	// One side is a concrete file and the other is a glob pattern in the
	// same directory: try filepath.Match both ways.
	if ok, _ := filepath.Match(a, b); ok {
		return true
	}
	if ok, _ := filepath.Match(b, a); ok {
		return true
	}
	return false
}

// Detect computes, for a candidate's declared code paths, the set of
// in-progress WUs whose declared paths overlap, returning one Conflict per
// colliding WU with the specific overlapping paths (candidate-side).
func Detect(candidatePaths []string, inProgress []Candidate) []Conflict {
	var conflicts []Conflict
	for _, other := range inProgress {
		var hits []string
		seen := map[string]bool{}
		for _, cp := range candidatePaths {
			for _, op := range other.CodePaths {
				if overlapsPattern(cp, op) && !seen[cp] {
					hits = append(hits, cp)
					seen[cp] = true
				}
			}
		}
		if len(hits) > 0 {
			sort.Strings(hits)
			conflicts = append(conflicts, Conflict{WUID: other.WUID, OverlappingPaths: hits})
		}
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].WUID < conflicts[j].WUID })
	return conflicts
}
