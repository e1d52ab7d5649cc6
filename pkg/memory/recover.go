package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/lumenflow/lumenflow/pkg/mathutil"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

// RecoverOptions bounds the post-compaction recovery block's size.
type RecoverOptions struct {
	MaxSize int
}

// RecoverResult reports what Recover produced.
type RecoverResult struct {
	Size      int
	Truncated bool
}

const (
	maxAcceptanceLines = 8
	maxCodePathLines   = 8
)

// Recover produces a compact post-compaction recovery block for w: header,
// last checkpoint (with its progress/next_steps fields), WU metadata
// (acceptance + code_paths, each capped), the last recorded git diff stat
// (from the checkpoint's metadata, if any), compact constraints, and an
// essential CLI command reference. This is the block an agent reads
// immediately after a context compaction to re-orient without replaying the
// whole event log.
func Recover(memPath string, w *wu.WU, opts RecoverOptions, now time.Time) (string, RecoverResult, error) {
	store, err := Load(memPath, LoadOptions{})
	if err != nil {
		return "", RecoverResult{}, err
	}

	var lastCheckpoint *Node
	for i := len(store.ByWU[w.ID]) - 1; i >= 0; i-- {
		n := store.ByWU[w.ID][i]
		if n.Type == TypeCheckpoint {
			c := n
			lastCheckpoint = &c
			break
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Recovery: %s\n\n", w.ID)
	fmt.Fprintf(&b, "**%s** (%s, lane=%s, status=%s)\n\n", w.Title, w.Type, w.Lane, w.Status)

	var diffStat string
	if lastCheckpoint != nil {
		fmt.Fprintf(&b, "## Last checkpoint\n%s\n", lastCheckpoint.Content)
		if progress, ok := lastCheckpoint.Metadata["progress"].(string); ok && progress != "" {
			fmt.Fprintf(&b, "- progress: %s\n", progress)
		}
		if next, ok := lastCheckpoint.Metadata["next_steps"].(string); ok && next != "" {
			fmt.Fprintf(&b, "- next_steps: %s\n", next)
		}
		b.WriteString("\n")
		if stat, ok := lastCheckpoint.Metadata["diff_stat"].(string); ok {
			diffStat = stat
		}
	} else {
		b.WriteString("## Last checkpoint\n(none recorded)\n\n")
	}

	b.WriteString("## Acceptance\n")
	for _, line := range capLines(w.Acceptance, maxAcceptanceLines) {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	b.WriteString("\n## Code paths\n")
	for _, line := range capLines(w.CodePaths, maxCodePathLines) {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	if diffStat != "" {
		fmt.Fprintf(&b, "\n## Last diff stat\n```\n%s\n```\n", diffStat)
	}

	b.WriteString("\n## Constraints\n")
	b.WriteString("- Only touch the declared code_paths; done fails on out-of-scope changes.\n")
	b.WriteString("- The lane lock is held for this WU; do not run claim again.\n")

	b.WriteString("\n## CLI reference\n")
	fmt.Fprintf(&b, "- `lumenflow checkpoint %s \"<note>\"` — record progress\n", w.ID)
	fmt.Fprintf(&b, "- `lumenflow done %s` — finish and run gates\n", w.ID)
	fmt.Fprintf(&b, "- `lumenflow block %s \"<reason>\"` — mark blocked\n", w.ID)

	out := b.String()
	truncated := false
	if opts.MaxSize > 0 && len(out) > opts.MaxSize {
		out = out[:opts.MaxSize] + "\n" + truncationMarker
		truncated = true
	}
	return out, RecoverResult{Size: len(out), Truncated: truncated}, nil
}

func capLines(lines []string, max int) []string {
	return lines[:mathutil.Min(len(lines), max)]
}
