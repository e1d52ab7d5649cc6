// Package wu defines the Work Unit data model and its YAML codec.
package wu

import "time"

// Status is a WU's lifecycle state.
type Status string

const (
	StatusReady      Status = "ready"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
)

// Type classifies a WU's work, relaxing test requirements for
// documentation/process WUs.
type Type string

const (
	TypeFeature       Type = "feature"
	TypeBug           Type = "bug"
	TypeRefactor      Type = "refactor"
	TypeDocumentation Type = "documentation"
	TypeProcess       Type = "process"
)

// RelaxesTestRequirement reports whether WUs of this type may be claimed
// without a tests.manual entry.
func (t Type) RelaxesTestRequirement() bool {
	return t == TypeDocumentation || t == TypeProcess
}

// ClaimMode selects how a claim isolates its changes.
type ClaimMode string

const (
	ModeWorktree   ClaimMode = "worktree"
	ModeBranchOnly ClaimMode = "branch-only"
	ModeBranchPR   ClaimMode = "branch-pr"
)

// Tests holds the manual test checklist a claim must declare.
type Tests struct {
	Manual []string `yaml:"manual,omitempty" json:"manual,omitempty"`
}

// Claim holds metadata present only while status is in_progress or blocked.
type Claim struct {
	ClaimedAt       time.Time `yaml:"claimed_at" json:"claimed_at"`
	SessionID       string    `yaml:"session_id" json:"session_id"`
	ClaimedMode     ClaimMode `yaml:"claimed_mode" json:"claimed_mode"`
	WorktreePath    string    `yaml:"worktree_path,omitempty" json:"worktree_path,omitempty"`
	ClaimedBranch   string    `yaml:"claimed_branch" json:"claimed_branch"`
	BaselineMainSHA string    `yaml:"baseline_main_sha" json:"baseline_main_sha"`
}

// Completion holds metadata present only once status is done.
type Completion struct {
	CompletedAt time.Time `yaml:"completed_at" json:"completed_at"`
	Locked      bool      `yaml:"locked" json:"locked"`
}

// WU is a single Work Unit spec, as persisted to <id>.yaml.
type WU struct {
	ID          string   `yaml:"id" json:"id" console:"header:ID"`
	Title       string   `yaml:"title" json:"title" console:"header:Title"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Lane        string   `yaml:"lane" json:"lane" console:"header:Lane"`
	Type        Type     `yaml:"type" json:"type" console:"header:Type"`
	Status      Status   `yaml:"status" json:"status" console:"header:Status"`
	CodePaths   []string `yaml:"code_paths" json:"code_paths"`
	Acceptance  []string `yaml:"acceptance" json:"acceptance"`
	Tests       *Tests   `yaml:"tests,omitempty" json:"tests,omitempty"`

	*Claim      `yaml:",inline" json:",inline"`
	*Completion `yaml:",inline" json:",inline"`
}

// IsClaimed reports whether the WU carries claim metadata, i.e. status is
// in_progress or blocked.
func (w *WU) IsClaimed() bool {
	return w.Status == StatusInProgress || w.Status == StatusBlocked
}

// IsDone reports whether the WU is locked-done.
func (w *WU) IsDone() bool {
	return w.Status == StatusDone
}

// validTransitions is the state-machine guard: for each current status, the
// set of statuses a transition may move to. done has no outbound edge here;
// only the recovery subsystem's nuke/reset paths may leave it, and they do
// so by rewriting status directly rather than going through CanTransition.
var validTransitions = map[Status][]Status{
	StatusReady:      {StatusInProgress},
	StatusInProgress: {StatusBlocked, StatusDone, StatusReady},
	StatusBlocked:    {StatusInProgress, StatusReady},
	StatusDone:       {},
}

// CanTransition reports whether moving from `from` to `to` is an admissible
// state-machine edge.
func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
