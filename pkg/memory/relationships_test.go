package memory

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelatedToFindsBothDirections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relationships.jsonl")
	now := time.Now()

	require.NoError(t, appendLine(path, Relationship{FromID: "mem-aaaa", ToID: "mem-bbbb", Type: RelBlocks, CreatedAt: now}))
	require.NoError(t, appendLine(path, Relationship{FromID: "mem-cccc", ToID: "mem-aaaa", Type: RelRelated, CreatedAt: now}))

	rels, err := LoadRelationships(path)
	require.NoError(t, err)
	require.Len(t, rels, 2)

	matched := RelatedTo(rels, "mem-aaaa")
	assert.Len(t, matched, 2)

	matched = RelatedTo(rels, "mem-bbbb")
	assert.Len(t, matched, 1)
	assert.Equal(t, RelBlocks, matched[0].Type)
}

func TestLoadRelationshipsMissingFile(t *testing.T) {
	dir := t.TempDir()
	rels, err := LoadRelationships(filepath.Join(dir, "missing.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, rels)
}
