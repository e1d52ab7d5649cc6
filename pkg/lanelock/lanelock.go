// Package lanelock implements the filesystem-backed per-lane mutex (or, when
// a lane's WIP limit exceeds 1, a counted semaphore) described in §4.4.
package lanelock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lumenflow/lumenflow/pkg/lferr"
	"github.com/lumenflow/lumenflow/pkg/logger"
)

var log = logger.New("lanelock:lock")

// Holder is one lane lock's ownership metadata, written atomically to the
// lane's lock file (or, under WIP>1, one of the lane's N slot files).
type Holder struct {
	Lane       string    `json:"lane"`
	WUID       string    `json:"wu_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	Justified  string    `json:"justification,omitempty"`
}

// Status is the result of Check: whether the lane is locked, by whom, and
// whether the lock looks stale.
type Status struct {
	Locked  bool
	Holders []Holder
	Stale   []Holder
}

// slotPath returns the lock file for holder index i (0-indexed) of lane.
// With WIP=1 there is exactly one slot, preserving the single-file layout
// lfconfig.LaneLockPath documents.
func slotPath(basePath string, i int) string {
	if i == 0 {
		return basePath
	}
	ext := filepath.Ext(basePath)
	return strings.TrimSuffix(basePath, ext) + fmt.Sprintf(".%d", i) + ext
}

// Acquire attempts to take one of wipLimit slots for lane on behalf of wuID.
// It uses O_CREAT|O_EXCL on each slot file in turn so acquisition is atomic
// with respect to concurrent processes on the same filesystem: the first
// process to successfully create a slot file wins it, others see EEXIST and
// move to the next slot (or fail LANE_BUSY once all slots are taken).
func Acquire(basePath, lane, wuID string, wipLimit int, justification string, now time.Time) error {
	if wipLimit < 1 {
		wipLimit = 1
	}
	if err := os.MkdirAll(filepath.Dir(basePath), 0o755); err != nil {
		return lferr.Wrap(lferr.IO, err, "check directory permissions", "failed to create lane-locks dir for %s", lane)
	}

	h := Holder{Lane: lane, WUID: wuID, AcquiredAt: now, Justified: justification}
	data, err := json.Marshal(h)
	if err != nil {
		return lferr.Wrap(lferr.Fatal, err, "", "failed to encode lane lock holder for %s", wuID)
	}

	for i := 0; i < wipLimit; i++ {
		path := slotPath(basePath, i)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return lferr.Wrap(lferr.IO, err, "", "failed to create lane lock %s", path)
		}
		_, writeErr := f.Write(data)
		closeErr := f.Close()
		if writeErr != nil {
			os.Remove(path)
			return lferr.Wrap(lferr.IO, writeErr, "", "failed to write lane lock %s", path)
		}
		if closeErr != nil {
			os.Remove(path)
			return lferr.Wrap(lferr.IO, closeErr, "", "failed to close lane lock %s", path)
		}
		log.Printf("acquired lane lock: lane=%s wu=%s slot=%d", lane, wuID, i)
		return nil
	}

	status, _ := Check(basePath, wipLimit, 24*time.Hour, now)
	return lferr.New(lferr.LaneBusy, fmt.Sprintf("wait for a holder to release lane %q, or pass force=true", lane),
		"lane %q is at its WIP limit (%d); current holders: %s", lane, wipLimit, holderIDs(status.Holders))
}

func holderIDs(holders []Holder) string {
	ids := make([]string, len(holders))
	for i, h := range holders {
		ids[i] = h.WUID
	}
	return strings.Join(ids, ", ")
}

// Release removes the slot held by wuID. A mismatch (the lock is held by a
// different WU, or no lock is held) is reported but non-fatal per §4.4 — the
// caller logs a warning and proceeds, since the lock may have already been
// cleared by a concurrent recovery pass.
func Release(basePath string, wipLimit int, wuID string) (bool, error) {
	if wipLimit < 1 {
		wipLimit = 1
	}
	for i := 0; i < wipLimit; i++ {
		path := slotPath(basePath, i)
		h, ok := readHolder(path)
		if !ok {
			continue
		}
		if h.WUID != wuID {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return false, lferr.Wrap(lferr.IO, err, "", "failed to release lane lock %s", path)
		}
		log.Printf("released lane lock: wu=%s slot=%d", wuID, i)
		return true, nil
	}
	log.Printf("release requested for wu=%s but it does not hold lane lock %s (mismatch or already released)", wuID, basePath)
	return false, nil
}

// Check reports whether the lane is locked and by whom, across all wipLimit
// slots, flagging holders whose AcquiredAt exceeds staleAfter. Stale locks
// are surfaced only; nothing in this package auto-releases them.
func Check(basePath string, wipLimit int, staleAfter time.Duration, now time.Time) (Status, error) {
	if wipLimit < 1 {
		wipLimit = 1
	}
	var st Status
	for i := 0; i < wipLimit; i++ {
		h, ok := readHolder(slotPath(basePath, i))
		if !ok {
			continue
		}
		st.Holders = append(st.Holders, h)
		if now.Sub(h.AcquiredAt) > staleAfter {
			st.Stale = append(st.Stale, h)
		}
	}
	st.Locked = len(st.Holders) > 0
	return st, nil
}

func readHolder(path string) (Holder, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Holder{}, false
	}
	var h Holder
	if err := json.Unmarshal(data, &h); err != nil {
		return Holder{}, false
	}
	return h, true
}
