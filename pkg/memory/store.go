package memory

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lumenflow/lumenflow/pkg/lferr"
	"github.com/lumenflow/lumenflow/pkg/logger"
)

var log = logger.New("memory:store")

// Store is the result of replaying memory.jsonl: deduplicated-by-id nodes
// (last-write-wins), indexed for the query surface §4.9 describes.
type Store struct {
	Nodes []Node
	ByID  map[string]Node
	ByWU  map[string][]Node
}

// appendLine appends one JSON line to path, matching the WU event log's
// append discipline: O_APPEND|O_CREATE, fsynced before return.
func appendLine(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return lferr.Wrap(lferr.IO, err, "", "failed to create %s", filepath.Dir(path))
	}
	line, err := json.Marshal(v)
	if err != nil {
		return lferr.Wrap(lferr.Fatal, err, "", "failed to encode memory record")
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return lferr.Wrap(lferr.IO, err, "", "failed to open %s", path)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return lferr.Wrap(lferr.IO, err, "", "failed to append to %s", path)
	}
	return f.Sync()
}

// readLines streams path and parses each non-empty line as a T, tolerating
// a torn trailing line the same way the event log does.
func readLines[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, lferr.Wrap(lferr.IO, err, "", "failed to open %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var raw []string
	for scanner.Scan() {
		raw = append(raw, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, lferr.Wrap(lferr.IO, err, "", "failed to read %s", path)
	}

	var out []T
	for i, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			if i == len(raw)-1 {
				log.Printf("tolerating partial trailing line in %s", path)
				break
			}
			return nil, lferr.Wrap(lferr.IO, err, "", "malformed record at %s line %d", path, i+1)
		}
		out = append(out, v)
	}
	return out, nil
}

// Create appends node to path, validating its required fields first. If
// node carries a `discovered_from` provenance pointer in its Metadata, a
// matching Relationship is also appended to relPath.
func Create(path, relPath string, node Node) error {
	if err := validateNode(node); err != nil {
		return err
	}
	if err := appendLine(path, node); err != nil {
		return err
	}
	log.Printf("created memory node: id=%s type=%s lifecycle=%s", node.ID, node.Type, node.Lifecycle)

	if from, ok := node.Metadata["discovered_from"].(string); ok && from != "" {
		rel := Relationship{FromID: node.ID, ToID: from, Type: RelDiscoveredFrom, CreatedAt: node.CreatedAt}
		if err := appendLine(relPath, rel); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(n Node) error {
	if n.ID == "" {
		return lferr.New(lferr.Validation, "generate an id with memory.NewID", "memory node has no id")
	}
	if n.Content == "" {
		return lferr.New(lferr.Validation, "add content before creating a memory node", "memory node %s has no content", n.ID)
	}
	switch n.Type {
	case TypeSession, TypeDiscovery, TypeCheckpoint, TypeNote, TypeSummary:
	default:
		return lferr.New(lferr.Validation, "use one of session|discovery|checkpoint|note|summary", "memory node %s has invalid type %q", n.ID, n.Type)
	}
	switch n.Lifecycle {
	case LifecycleEphemeral, LifecycleSession, LifecycleWU, LifecycleProject:
	default:
		return lferr.New(lferr.Validation, "use one of ephemeral|session|wu|project", "memory node %s has invalid lifecycle %q", n.ID, n.Lifecycle)
	}
	return nil
}

// LoadOptions controls Load's inclusion of soft-deleted (archived) nodes.
type LoadOptions struct {
	IncludeArchived bool
}

// Load replays path, deduplicating by id with last-write-wins semantics
// (a later line for the same id entirely replaces an earlier one — this is
// how soft-delete rewrites, see Delete, take effect without an in-place
// file edit), and filters out archived nodes unless requested.
func Load(path string, opts LoadOptions) (*Store, error) {
	raw, err := readLines[Node](path)
	if err != nil {
		return nil, err
	}

	latest := map[string]Node{}
	var order []string
	for _, n := range raw {
		if _, seen := latest[n.ID]; !seen {
			order = append(order, n.ID)
		}
		latest[n.ID] = n
	}

	s := &Store{ByID: map[string]Node{}, ByWU: map[string][]Node{}}
	for _, id := range order {
		n := latest[id]
		if n.IsDeleted() && !opts.IncludeArchived {
			continue
		}
		s.Nodes = append(s.Nodes, n)
		s.ByID[n.ID] = n
		if n.WUID != "" {
			s.ByWU[n.WUID] = append(s.ByWU[n.WUID], n)
		}
	}
	return s, nil
}

// DeleteCriteria is the union-matched filter Delete applies; when both IDs
// and Tag are empty but OlderThan is set, OlderThan alone selects nodes. When
// OlderThan is combined with Tag, the spec requires their intersection, not
// their union — see matches below.
type DeleteCriteria struct {
	IDs       []string
	Tag       string
	OlderThan time.Time // zero value means unset
	DryRun    bool
}

// DeleteResult reports which node ids Delete (would have) soft-deleted.
type DeleteResult struct {
	Matched []string
}

// Delete applies a soft-delete: for each matched, not-already-deleted node
// it appends a superseding line carrying `metadata.status = "deleted"`,
// leaving existing lines in place (the store's last-write-wins projection then
// treats that node as archived). DryRun reports what would match without
// writing anything.
func Delete(path string, c DeleteCriteria, now time.Time) (DeleteResult, error) {
	store, err := Load(path, LoadOptions{IncludeArchived: true})
	if err != nil {
		return DeleteResult{}, err
	}

	hasIDs := len(c.IDs) > 0
	hasTag := c.Tag != ""
	hasAge := !c.OlderThan.IsZero()
	idSet := map[string]bool{}
	for _, id := range c.IDs {
		idSet[id] = true
	}

	var result DeleteResult
	for _, n := range store.Nodes {
		if n.IsDeleted() {
			continue
		}
		if !matchesCriteria(n, hasIDs, idSet, hasTag, c.Tag, hasAge, c.OlderThan) {
			continue
		}
		result.Matched = append(result.Matched, n.ID)
	}

	if c.DryRun || len(result.Matched) == 0 {
		return result, nil
	}

	for _, id := range result.Matched {
		n := store.ByID[id]
		if n.Metadata == nil {
			n.Metadata = map[string]any{}
		} else {
			clone := make(map[string]any, len(n.Metadata)+1)
			for k, v := range n.Metadata {
				clone[k] = v
			}
			n.Metadata = clone
		}
		n.Metadata["status"] = "deleted"
		t := now
		n.UpdatedAt = &t
		if err := appendLine(path, n); err != nil {
			return result, err
		}
	}
	log.Printf("soft-deleted %d memory node(s)", len(result.Matched))
	return result, nil
}

// matchesCriteria implements §4.9's "matching is union of criteria; if
// older_than is combined with tag, their intersection is used" rule.
func matchesCriteria(n Node, hasIDs bool, idSet map[string]bool, hasTag bool, tag string, hasAge bool, olderThan time.Time) bool {
	byID := hasIDs && idSet[n.ID]
	byTagAlone := hasTag && !hasAge && hasTagValue(n, tag)
	byAgeAlone := hasAge && !hasTag && n.CreatedAt.Before(olderThan)
	byTagAndAge := hasTag && hasAge && hasTagValue(n, tag) && n.CreatedAt.Before(olderThan)
	return byID || byTagAlone || byAgeAlone || byTagAndAge
}

func hasTagValue(n Node, tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
