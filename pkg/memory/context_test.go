package memory

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextOrdersSections(t *testing.T) {
	dir := t.TempDir()
	memPath := filepath.Join(dir, "memory.jsonl")
	relPath := filepath.Join(dir, "relationships.jsonl")
	now := time.Now()

	require.NoError(t, Create(memPath, relPath, Node{ID: NewID(), Type: TypeNote, Lifecycle: LifecycleWU, Content: "wu-specific note", WUID: "WU-1", CreatedAt: now}))
	require.NoError(t, Create(memPath, relPath, Node{ID: NewID(), Type: TypeSummary, Lifecycle: LifecycleProject, Content: "summary text", CreatedAt: now}))
	require.NoError(t, Create(memPath, relPath, Node{ID: NewID(), Type: TypeDiscovery, Lifecycle: LifecycleWU, Content: "a discovery", CreatedAt: now}))
	require.NoError(t, Create(memPath, relPath, Node{ID: NewID(), Type: TypeNote, Lifecycle: LifecycleProject, Content: "project profile fact", CreatedAt: now}))

	md, stats, err := Context(memPath, "WU-1", ContextOptions{}, now)
	require.NoError(t, err)
	assert.False(t, stats.Truncated)

	iWU := strings.Index(md, "WU Context")
	iSum := strings.Index(md, "Summaries")
	iDisc := strings.Index(md, "Discoveries")
	iProf := strings.Index(md, "Project Profile")
	require.True(t, iWU >= 0 && iSum > iWU && iDisc > iSum && iProf > iDisc, "sections must appear in WU->Summaries->Discoveries->Project order: %s", md)
}

func TestContextTruncatesAndMarksIt(t *testing.T) {
	dir := t.TempDir()
	memPath := filepath.Join(dir, "memory.jsonl")
	relPath := filepath.Join(dir, "relationships.jsonl")
	now := time.Now()

	for i := 0; i < 20; i++ {
		require.NoError(t, Create(memPath, relPath, Node{
			ID: NewID(), Type: TypeNote, Lifecycle: LifecycleProject,
			Content: strings.Repeat("x", 50), CreatedAt: now,
		}))
	}

	md, stats, err := Context(memPath, "WU-none", ContextOptions{MaxSize: 200}, now)
	require.NoError(t, err)
	assert.True(t, stats.Truncated)
	assert.Contains(t, md, truncationMarker)
}

func TestContextNeverTruncatesWUBeforeProject(t *testing.T) {
	dir := t.TempDir()
	memPath := filepath.Join(dir, "memory.jsonl")
	relPath := filepath.Join(dir, "relationships.jsonl")
	now := time.Now()

	require.NoError(t, Create(memPath, relPath, Node{ID: NewID(), Type: TypeNote, Lifecycle: LifecycleWU, Content: "critical wu content", WUID: "WU-5", CreatedAt: now}))
	for i := 0; i < 10; i++ {
		require.NoError(t, Create(memPath, relPath, Node{ID: NewID(), Type: TypeNote, Lifecycle: LifecycleProject, Content: strings.Repeat("y", 50), CreatedAt: now}))
	}

	md, _, err := Context(memPath, "WU-5", ContextOptions{MaxSize: 120}, now)
	require.NoError(t, err)
	assert.Contains(t, md, "critical wu content")
}

func TestContextDecaySortOrdersByRecentAccess(t *testing.T) {
	dir := t.TempDir()
	memPath := filepath.Join(dir, "memory.jsonl")
	relPath := filepath.Join(dir, "relationships.jsonl")
	now := time.Now()

	old := Node{ID: NewID(), Type: TypeNote, Lifecycle: LifecycleProject, Content: "stale fact", CreatedAt: now.Add(-48 * time.Hour)}
	recent := Node{ID: NewID(), Type: TypeNote, Lifecycle: LifecycleProject, Content: "fresh fact", CreatedAt: now.Add(-48 * time.Hour)}
	require.NoError(t, Create(memPath, relPath, old))
	require.NoError(t, Create(memPath, relPath, recent))

	md, _, err := Context(memPath, "WU-none", ContextOptions{
		SortByDecay:  true,
		LastAccessed: map[string]time.Time{recent.ID: now},
	}, now)
	require.NoError(t, err)
	assert.True(t, strings.Index(md, "fresh fact") < strings.Index(md, "stale fact"))
}
