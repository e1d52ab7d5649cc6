// Package statusdoc maintains the human-readable status dashboard (§6's
// status_doc): a markdown file with an "In Progress" and a "Completed"
// section, kept in sync with the event log by the lifecycle engine's done
// step rather than hand-edited.
package statusdoc

import (
	"fmt"

	"github.com/lumenflow/lumenflow/pkg/mdlist"
)

const (
	sectionInProgress = "In Progress"
	sectionCompleted  = "Completed"

	defaultSkeleton = "# Status\n\n## In Progress\n\n## Completed\n"
)

// MarkDone moves id out of every other section and ensures it appears
// exactly once, as "- <id>: <title>", in the Completed section. Idempotent:
// calling it again with the same id and title changes nothing further.
func MarkDone(path, id, title string) error {
	content, err := mdlist.ReadOrDefault(path, defaultSkeleton)
	if err != nil {
		return err
	}
	doc := mdlist.Parse(content)
	doc.RemoveBulletExcept(sectionCompleted, id)
	doc.Section(sectionCompleted).AppendBulletUnique(id, fmt.Sprintf("- %s: %s", id, title))
	return mdlist.WriteAtomic(path, doc.Render())
}

// MarkInProgress ensures id appears exactly once in the In Progress
// section and nowhere else. Used by recover's resume action, which moves a
// WU back to in_progress outside the normal claim flow.
func MarkInProgress(path, id, title string) error {
	content, err := mdlist.ReadOrDefault(path, defaultSkeleton)
	if err != nil {
		return err
	}
	doc := mdlist.Parse(content)
	doc.RemoveBulletExcept(sectionInProgress, id)
	doc.Section(sectionInProgress).AppendBulletUnique(id, fmt.Sprintf("- %s: %s", id, title))
	return mdlist.WriteAtomic(path, doc.Render())
}

// Remove deletes id from every section, used by recover's reset/nuke
// actions to take a WU off the dashboard entirely.
func Remove(path, id string) error {
	content, err := mdlist.ReadOrDefault(path, defaultSkeleton)
	if err != nil {
		return err
	}
	doc := mdlist.Parse(content)
	doc.RemoveBulletEverywhere(id)
	return mdlist.WriteAtomic(path, doc.Render())
}
