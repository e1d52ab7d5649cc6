package events

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/lumenflow/lumenflow/pkg/lferr"
	"github.com/lumenflow/lumenflow/pkg/logger"
)

var log = logger.New("events:log")

// Append opens path in append mode and writes exactly one JSON line,
// terminated by '\n'. Per §4.3, O_APPEND gives atomic writes up to PIPE_BUF
// across concurrent processes on the same filesystem, so no external locking
// is required for a single-line append; the file is fsynced before return so
// a crash immediately after Append can't lose the write.
func Append(path string, e Event) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return lferr.Wrap(lferr.IO, err, "check directory permissions", "failed to create %s", filepath.Dir(path))
	}

	line, err := json.Marshal(e)
	if err != nil {
		return lferr.Wrap(lferr.Fatal, err, "", "failed to encode event kind=%s wu=%s", e.Kind, e.WUID)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return lferr.Wrap(lferr.IO, err, "check file permissions", "failed to open event log %s", path)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return lferr.Wrap(lferr.IO, err, "", "failed to append to event log %s", path)
	}
	if err := f.Sync(); err != nil {
		return lferr.Wrap(lferr.IO, err, "", "failed to fsync event log %s", path)
	}

	log.Printf("appended event: kind=%s wu=%s", e.Kind, e.WUID)
	return nil
}

// Load streams path line by line and parses each as an Event. A missing
// file yields an empty slice (§8 boundary behavior: "missing event log file
// on first read yields empty state"), never an error. A trailing partial
// line (the tail of a write that was interrupted mid-flush) is tolerated and
// silently dropped rather than failing the whole load; well-formed lines
// that fail to parse are reported with their 1-indexed line number.
func Load(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, lferr.Wrap(lferr.IO, err, "", "failed to open event log %s", path)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, lferr.Wrap(lferr.IO, err, "", "failed to read event log %s", path)
	}

	var out []Event
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			if i == len(lines)-1 {
				// Last line of the file: plausibly a torn write from a
				// crash mid-append. Tolerate it; the write never
				// completed, so the event never happened.
				log.Printf("tolerating partial trailing line in %s", path)
				break
			}
			return nil, lferr.Wrap(lferr.IO, err, "", "malformed event at %s line %d", path, i+1)
		}
		out = append(out, e)
	}
	return out, nil
}
