// Package memory implements the append-only memory node store (§4.9): the
// agent-handoff layer that survives context compaction via checkpoint,
// context, recover, and summarize operations.
package memory

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies a memory node's role.
type Type string

const (
	TypeSession    Type = "session"
	TypeDiscovery  Type = "discovery"
	TypeCheckpoint Type = "checkpoint"
	TypeNote       Type = "note"
	TypeSummary    Type = "summary"
)

// Lifecycle classifies how long a node remains relevant, independent of its
// Type: an ephemeral discovery and a project-lifetime discovery are both
// Type=discovery but carry different Lifecycle values.
type Lifecycle string

const (
	LifecycleEphemeral Lifecycle = "ephemeral"
	LifecycleSession   Lifecycle = "session"
	LifecycleWU        Lifecycle = "wu"
	LifecycleProject   Lifecycle = "project"
)

// Node is one append-only memory record. Per §9's "dynamic config/records"
// redesign flag, Metadata stays a loose map only for the handful of
// soft-delete/summarize provenance keys that don't warrant first-class
// fields (status, summarized_into); everything structurally meaningful is a
// named field.
type Node struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Lifecycle Lifecycle      `json:"lifecycle"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
	WUID      string         `json:"wu_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// RelationType classifies a memory relationship edge.
type RelationType string

const (
	RelBlocks         RelationType = "blocks"
	RelParentChild    RelationType = "parent_child"
	RelRelated        RelationType = "related"
	RelDiscoveredFrom RelationType = "discovered_from"
)

// Relationship is one edge in the out-of-line relationship log. Per §9's
// "cyclic references" redesign flag, relationships are never materialized
// as owning back-references on Node; they're resolved at query time by
// scanning this log.
type Relationship struct {
	FromID    string         `json:"from_id"`
	ToID      string         `json:"to_id"`
	Type      RelationType   `json:"type"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// idAlphabet is the character set mem-[a-z0-9]{4} ids are drawn from.
const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewID mints a fresh mem-[a-z0-9]{4} id. It draws randomness from
// google/uuid (generating a full v4 UUID purely as a random byte source)
// then truncates to the spec's 4-character form by mapping the UUID's first
// 4 bytes into idAlphabet, rather than emitting the UUID's own dashed hex
// text, since the spec's id shape is much shorter than a full UUID.
func NewID() string {
	u := uuid.New()
	out := make([]byte, 4)
	for i := 0; i < 4; i++ {
		out[i] = idAlphabet[int(u[i])%len(idAlphabet)]
	}
	return "mem-" + string(out)
}

// IsDeleted reports whether a node has been soft-deleted.
func (n Node) IsDeleted() bool {
	return n.Metadata != nil && n.Metadata["status"] == "deleted"
}

// SummarizedInto reports the id of the summary node this node was folded
// into, if any.
func (n Node) SummarizedInto() (string, bool) {
	if n.Metadata == nil {
		return "", false
	}
	id, ok := n.Metadata["summarized_into"].(string)
	return id, ok
}
