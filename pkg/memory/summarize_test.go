package memory

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeAggregatesAndMarksSources(t *testing.T) {
	dir := t.TempDir()
	memPath := filepath.Join(dir, "memory.jsonl")
	relPath := filepath.Join(dir, "relationships.jsonl")
	now := time.Now()

	d1 := Node{ID: NewID(), Type: TypeDiscovery, Lifecycle: LifecycleWU, Content: "found root cause", WUID: "WU-9", CreatedAt: now.Add(-time.Hour)}
	d2 := Node{ID: NewID(), Type: TypeDiscovery, Lifecycle: LifecycleWU, Content: "confirmed fix", WUID: "WU-9", CreatedAt: now}
	require.NoError(t, Create(memPath, relPath, d1))
	require.NoError(t, Create(memPath, relPath, d2))

	result, err := Summarize(memPath, relPath, "WU-9", SummarizeOptions{}, now)
	require.NoError(t, err)
	require.NotEmpty(t, result.SummaryID)
	assert.ElementsMatch(t, []string{d1.ID, d2.ID}, result.SourceIDs)

	store, err := Load(memPath, LoadOptions{})
	require.NoError(t, err)
	summary, ok := store.ByID[result.SummaryID]
	require.True(t, ok)
	assert.Equal(t, TypeSummary, summary.Type)
	assert.Equal(t, LifecycleProject, summary.Lifecycle)
	assert.Contains(t, summary.Content, "found root cause")
	assert.Contains(t, summary.Content, "confirmed fix")

	got, ok := store.ByID[d1.ID].SummarizedInto()
	require.True(t, ok)
	assert.Equal(t, result.SummaryID, got)
}

func TestSummarizeSkipsEphemeralAndAlreadySummarized(t *testing.T) {
	dir := t.TempDir()
	memPath := filepath.Join(dir, "memory.jsonl")
	relPath := filepath.Join(dir, "relationships.jsonl")
	now := time.Now()

	ephemeral := Node{ID: NewID(), Type: TypeNote, Lifecycle: LifecycleEphemeral, Content: "scratch", WUID: "WU-4", CreatedAt: now}
	alreadyDone := Node{ID: NewID(), Type: TypeNote, Lifecycle: LifecycleWU, Content: "old", WUID: "WU-4", CreatedAt: now, Metadata: map[string]any{"summarized_into": "mem-aaaa"}}
	require.NoError(t, Create(memPath, relPath, ephemeral))
	require.NoError(t, Create(memPath, relPath, alreadyDone))

	result, err := Summarize(memPath, relPath, "WU-4", SummarizeOptions{}, now)
	require.NoError(t, err)
	assert.Empty(t, result.SummaryID, "no eligible sources should produce no summary")
}

func TestSummarizeProtectsProjectLifecycleSources(t *testing.T) {
	dir := t.TempDir()
	memPath := filepath.Join(dir, "memory.jsonl")
	relPath := filepath.Join(dir, "relationships.jsonl")
	now := time.Now()

	projectNode := Node{ID: NewID(), Type: TypeNote, Lifecycle: LifecycleProject, Content: "project-wide convention", WUID: "WU-2", CreatedAt: now}
	require.NoError(t, Create(memPath, relPath, projectNode))

	result, err := Summarize(memPath, relPath, "WU-2", SummarizeOptions{}, now)
	require.NoError(t, err)
	require.NotEmpty(t, result.SummaryID)

	store, err := Load(memPath, LoadOptions{})
	require.NoError(t, err)
	_, summarized := store.ByID[projectNode.ID].SummarizedInto()
	assert.False(t, summarized, "project-lifecycle sources must never be stamped summarized_into")
}

func TestSummarizeDryRunDoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	memPath := filepath.Join(dir, "memory.jsonl")
	relPath := filepath.Join(dir, "relationships.jsonl")
	now := time.Now()

	d := Node{ID: NewID(), Type: TypeDiscovery, Lifecycle: LifecycleWU, Content: "x", WUID: "WU-3", CreatedAt: now}
	require.NoError(t, Create(memPath, relPath, d))

	result, err := Summarize(memPath, relPath, "WU-3", SummarizeOptions{DryRun: true}, now)
	require.NoError(t, err)
	require.NotEmpty(t, result.SummaryID)

	store, err := Load(memPath, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, store.Nodes, 1, "dry run must not persist the summary or mark sources")
}
