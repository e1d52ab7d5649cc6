package mdlist

import (
	"os"
	"path/filepath"

	"github.com/lumenflow/lumenflow/pkg/lferr"
)

// ReadOrDefault reads path, returning fallback if it doesn't exist yet.
func ReadOrDefault(path, fallback string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fallback, nil
		}
		return "", lferr.Wrap(lferr.IO, err, "", "failed to read %s", path)
	}
	return string(data), nil
}

// WriteAtomic writes content to path via temp-file + rename, matching the
// WU spec codec's write discipline so dashboard docs never end up
// partially written if the process dies mid-write.
func WriteAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return lferr.Wrap(lferr.IO, err, "check directory permissions", "failed to create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".mdlist-*.md.tmp")
	if err != nil {
		return lferr.Wrap(lferr.IO, err, "check directory permissions", "failed to create temp file in %s", dir)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return lferr.Wrap(lferr.IO, err, "", "failed to write %s", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return lferr.Wrap(lferr.IO, err, "", "failed to flush %s", path)
	}
	if err := tmp.Close(); err != nil {
		return lferr.Wrap(lferr.IO, err, "", "failed to close temp file for %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return lferr.Wrap(lferr.IO, err, "", "failed to finalize %s", path)
	}
	return nil
}
