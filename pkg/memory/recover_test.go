package memory

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lumenflow/lumenflow/pkg/wu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverIncludesLastCheckpointAndMetadata(t *testing.T) {
	dir := t.TempDir()
	memPath := filepath.Join(dir, "memory.jsonl")
	relPath := filepath.Join(dir, "relationships.jsonl")
	eventLogPath := filepath.Join(dir, "WU-8.events.jsonl")
	now := time.Now()

	_, err := Checkpoint(memPath, relPath, eventLogPath, "halfway there", CheckpointOptions{
		WUID:      "WU-8",
		Progress:  "retry backoff implemented",
		NextSteps: "add jitter",
		DiffStat:  "2 files changed, 10 insertions(+)",
	}, now)
	require.NoError(t, err)

	w := &wu.WU{
		ID: "WU-8", Title: "Add retries", Lane: "Core", Type: wu.TypeFeature, Status: wu.StatusInProgress,
		Acceptance: []string{"retries on 5xx", "backoff capped at 30s"},
		CodePaths:  []string{"pkg/retry/"},
	}

	md, result, err := Recover(memPath, w, RecoverOptions{}, now)
	require.NoError(t, err)
	assert.False(t, result.Truncated)
	assert.Contains(t, md, "halfway there")
	assert.Contains(t, md, "retry backoff implemented")
	assert.Contains(t, md, "add jitter")
	assert.Contains(t, md, "2 files changed")
	assert.Contains(t, md, "retries on 5xx")
	assert.Contains(t, md, "pkg/retry/")
	assert.Contains(t, md, "lumenflow done WU-8")

	// the diff stat must render after acceptance/code_paths, not immediately
	// after the checkpoint note.
	assert.Greater(t, strings.Index(md, "2 files changed"), strings.Index(md, "pkg/retry/"))
}

func TestRecoverHandlesNoCheckpoint(t *testing.T) {
	dir := t.TempDir()
	memPath := filepath.Join(dir, "memory.jsonl")

	w := &wu.WU{ID: "WU-1", Title: "x", Lane: "Core", Type: wu.TypeFeature, Status: wu.StatusInProgress}
	md, _, err := Recover(memPath, w, RecoverOptions{}, time.Now())
	require.NoError(t, err)
	assert.Contains(t, md, "none recorded")
}

func TestRecoverCapsAcceptanceAndCodePaths(t *testing.T) {
	dir := t.TempDir()
	memPath := filepath.Join(dir, "memory.jsonl")

	var acceptance, paths []string
	for i := 0; i < 20; i++ {
		acceptance = append(acceptance, "criterion")
		paths = append(paths, "path")
	}
	w := &wu.WU{ID: "WU-2", Title: "x", Lane: "Core", Type: wu.TypeFeature, Status: wu.StatusInProgress, Acceptance: acceptance, CodePaths: paths}

	md, _, err := Recover(memPath, w, RecoverOptions{}, time.Now())
	require.NoError(t, err)
	assert.LessOrEqual(t, strings.Count(md, "- criterion"), maxAcceptanceLines)
	assert.LessOrEqual(t, strings.Count(md, "- path"), maxCodePathLines)
}

func TestRecoverTruncatesAtMaxSize(t *testing.T) {
	dir := t.TempDir()
	memPath := filepath.Join(dir, "memory.jsonl")

	w := &wu.WU{ID: "WU-3", Title: "x", Lane: "Core", Type: wu.TypeFeature, Status: wu.StatusInProgress}
	md, result, err := Recover(memPath, w, RecoverOptions{MaxSize: 50}, time.Now())
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Contains(t, md, truncationMarker)
}
