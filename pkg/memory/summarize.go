package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SummarizeOptions controls the summarize operation; DryRun reports what
// would be folded without writing anything.
type SummarizeOptions struct {
	DryRun bool
}

// SummarizeResult reports the outcome of a summarize call.
type SummarizeResult struct {
	SummaryID string
	SourceIDs []string
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Summarize reads every non-ephemeral, not-already-summarized node for wuID,
// aggregates them by type into one new `summary` node (lifecycle=project)
// with provenance pointing at the source ids, and marks each source
// `summarized_into=<id>`. Project-lifecycle sources are protected: they
// contribute content to the summary but are never themselves marked
// summarized (their content outlives any single WU).
func Summarize(memPath, relPath, wuID string, opts SummarizeOptions, now time.Time) (SummarizeResult, error) {
	store, err := Load(memPath, LoadOptions{})
	if err != nil {
		return SummarizeResult{}, err
	}

	var sources []Node
	for _, n := range store.ByWU[wuID] {
		if n.Lifecycle == LifecycleEphemeral {
			continue
		}
		if n.Type == TypeSummary {
			continue
		}
		if _, already := n.SummarizedInto(); already {
			continue
		}
		sources = append(sources, n)
	}
	if len(sources) == 0 {
		return SummarizeResult{}, nil
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].CreatedAt.Before(sources[j].CreatedAt) })

	byType := map[Type][]Node{}
	var typeOrder []Type
	for _, n := range sources {
		if _, seen := byType[n.Type]; !seen {
			typeOrder = append(typeOrder, n.Type)
		}
		byType[n.Type] = append(byType[n.Type], n)
	}

	var sourceIDs []string
	var b strings.Builder
	fmt.Fprintf(&b, "# Summary for %s\n", wuID)
	for _, t := range typeOrder {
		fmt.Fprintf(&b, "\n## %s\n", capitalize(string(t)))
		for _, n := range byType[t] {
			fmt.Fprintf(&b, "- %s\n", n.Content)
			sourceIDs = append(sourceIDs, n.ID)
		}
	}

	result := SummarizeResult{SummaryID: NewID(), SourceIDs: sourceIDs}
	if opts.DryRun {
		return result, nil
	}

	summary := Node{
		ID:        result.SummaryID,
		Type:      TypeSummary,
		Lifecycle: LifecycleProject,
		Content:   b.String(),
		CreatedAt: now,
		WUID:      wuID,
		Metadata:  map[string]any{"source_ids": sourceIDs},
	}
	if err := Create(memPath, relPath, summary); err != nil {
		return result, err
	}

	for _, n := range sources {
		if n.Lifecycle == LifecycleProject {
			continue
		}
		clone := n
		if clone.Metadata == nil {
			clone.Metadata = map[string]any{}
		} else {
			m := make(map[string]any, len(clone.Metadata)+1)
			for k, v := range clone.Metadata {
				m[k] = v
			}
			clone.Metadata = m
		}
		clone.Metadata["summarized_into"] = summary.ID
		t := now
		clone.UpdatedAt = &t
		if err := appendLine(memPath, clone); err != nil {
			return result, err
		}
	}
	log.Printf("summarized %d node(s) for %s into %s", len(sourceIDs), wuID, summary.ID)
	return result, nil
}
