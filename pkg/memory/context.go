package memory

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// truncationMarker is emitted whenever ContextOptions.MaxSize cuts a
// section short, so a reader can tell the block is incomplete rather than
// mistaking it for the whole picture.
const truncationMarker = "<!-- truncated: size budget exceeded -->"

// contextHalfLife sets the decay rate for ContextOptions.SortByDecay: a
// node's score halves every 6 hours since its last access.
const contextHalfLife = 6 * time.Hour

// ContextOptions controls the context generator.
type ContextOptions struct {
	MaxSize      int
	Lane         string
	SortByDecay  bool
	TrackAccess  bool
	LastAccessed map[string]time.Time // used by SortByDecay; nodes without an entry are scored from CreatedAt
}

// ContextStats reports what the context generator produced.
type ContextStats struct {
	Size      int
	Truncated bool
}

// Context deterministically renders a size-bounded markdown block for wuID
// with sections in order: WU Context -> Summaries -> Discoveries -> Project
// Profile. WU-specific content is never truncated before project content:
// sections are appended in priority order and writing stops the instant the
// budget is exhausted, so earlier sections always survive intact at the
// expense of later ones.
func Context(memPath string, wuID string, opts ContextOptions, now time.Time) (string, ContextStats, error) {
	store, err := Load(memPath, LoadOptions{})
	if err != nil {
		return "", ContextStats{}, err
	}

	wuNodes, summaries, discoveries, profile := partitionForContext(store, wuID, opts.Lane)
	sortNodes(wuNodes, opts, now)
	sortNodes(summaries, opts, now)
	sortNodes(discoveries, opts, now)
	sortNodes(profile, opts, now)

	var b strings.Builder
	truncated := false
	write := func(s string) bool {
		if opts.MaxSize > 0 && b.Len()+len(s) > opts.MaxSize {
			truncated = true
			return false
		}
		b.WriteString(s)
		return true
	}

	sections := []struct {
		title string
		nodes []Node
	}{
		{"WU Context", wuNodes},
		{"Summaries", summaries},
		{"Discoveries", discoveries},
		{"Project Profile", profile},
	}

	for _, sec := range sections {
		if truncated {
			break
		}
		if len(sec.nodes) == 0 {
			continue
		}
		if !write(fmt.Sprintf("\n## %s\n", sec.title)) {
			break
		}
		for _, n := range sec.nodes {
			if !write(fmt.Sprintf("- %s\n", n.Content)) {
				break
			}
		}
	}

	if truncated {
		b.WriteString(truncationMarker + "\n")
	}

	return strings.TrimLeft(b.String(), "\n"), ContextStats{Size: b.Len(), Truncated: truncated}, nil
}

func partitionForContext(store *Store, wuID, lane string) (wuNodes, summaries, discoveries, profile []Node) {
	for _, n := range store.Nodes {
		switch {
		case n.WUID == wuID:
			wuNodes = append(wuNodes, n)
		case n.Type == TypeSummary:
			summaries = append(summaries, n)
		case n.Type == TypeDiscovery:
			discoveries = append(discoveries, n)
		case n.Lifecycle == LifecycleProject:
			profile = append(profile, n)
		}
	}
	return
}

func sortNodes(nodes []Node, opts ContextOptions, now time.Time) {
	if opts.SortByDecay {
		sort.SliceStable(nodes, func(i, j int) bool {
			return decayScore(nodes[i], opts.LastAccessed, now) > decayScore(nodes[j], opts.LastAccessed, now)
		})
		return
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].CreatedAt.After(nodes[j].CreatedAt) })
}

// decayScore computes a half-life-weighted recency score: 1.0 at the
// moment of last access, halving every contextHalfLife thereafter. Nodes
// with no recorded access fall back to CreatedAt.
func decayScore(n Node, lastAccessed map[string]time.Time, now time.Time) float64 {
	ref := n.CreatedAt
	if t, ok := lastAccessed[n.ID]; ok {
		ref = t
	}
	elapsed := now.Sub(ref)
	if elapsed < 0 {
		elapsed = 0
	}
	halfLives := float64(elapsed) / float64(contextHalfLife)
	return math.Pow(0.5, halfLives)
}
