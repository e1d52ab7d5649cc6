package wu

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWU() *WU {
	return &WU{
		ID:         "WU-42",
		Title:      "Add retry helper",
		Lane:       "Core",
		Type:       TypeFeature,
		Status:     StatusReady,
		CodePaths:  []string{"src/a.go"},
		Acceptance: []string{"retries on transient errors"},
		Tests:      &Tests{Manual: []string{"run the happy path"}},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "WU-42.yaml")
	w := sampleWU()

	require.NoError(t, Write(path, w))

	got, err := Read(path, "WU-42")
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
	assert.Equal(t, w.Title, got.Title)
	assert.Equal(t, w.Lane, got.Lane)
	assert.Equal(t, w.CodePaths, got.CodePaths)
	assert.Equal(t, w.Acceptance, got.Acceptance)
	assert.Equal(t, w.Tests.Manual, got.Tests.Manual)
	assert.Nil(t, got.Claim)
	assert.Nil(t, got.Completion)
}

func TestWriteReadRoundTripWithClaim(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "WU-9.yaml")
	w := sampleWU()
	w.ID = "WU-9"
	w.Status = StatusInProgress
	w.Claim = &Claim{
		ClaimedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		SessionID:       "sess-1",
		ClaimedMode:     ModeWorktree,
		ClaimedBranch:   "lane/core/WU-9",
		BaselineMainSHA: "deadbeef",
	}

	require.NoError(t, Write(path, w))
	got, err := Read(path, "WU-9")
	require.NoError(t, err)
	require.NotNil(t, got.Claim)
	assert.Equal(t, "sess-1", got.Claim.SessionID)
	assert.True(t, got.Claim.ClaimedAt.Equal(w.Claim.ClaimedAt))
	assert.True(t, got.IsClaimed())
}

func TestReadRejectsIDMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "WU-1.yaml")
	require.NoError(t, Write(path, sampleWU()))

	_, err := Read(path, "WU-99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VALIDATION")
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.yaml"), "WU-1")
	require.Error(t, err)
}

func TestReadRejectsInvalidID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: not-a-wu\ntitle: x\nlane: Core\ntype: feature\nstatus: ready\n"), 0o644))

	_, err := Read(path, "")
	require.Error(t, err)
}

func TestNextFreeID(t *testing.T) {
	assert.Equal(t, "WU-1", NextFreeID(nil))
	assert.Equal(t, "WU-3", NextFreeID([]string{"WU-1", "WU-2"}))
	assert.Equal(t, "WU-2", NextFreeID([]string{"WU-1", "WU-3"}))
}

func TestIDFromFilename(t *testing.T) {
	assert.Equal(t, "WU-42", IDFromFilename("WU-42.yaml"))
	assert.Equal(t, "WU-42", IDFromFilename("/a/b/WU-42.yaml"))
	assert.Equal(t, "", IDFromFilename("not-a-wu.yaml"))
}

func TestWriteAtomicity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "WU-1.yaml")
	require.NoError(t, Write(path, sampleWU()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no leftover temp files after a successful write")
}
