// Package backlog maintains the backlog dashboard (§6's backlog_doc): a
// markdown file organized into "Ready", "In Progress", and "Done" sections.
// Per §8 invariant 8, a WU id may appear as a bulleted list item in at most
// one of those sections at a time, but prose that merely mentions the id in
// running text (not a "- WU-id: ..." bullet) is left untouched.
package backlog

import (
	"fmt"

	"github.com/lumenflow/lumenflow/pkg/mdlist"
)

const (
	sectionReady      = "Ready"
	sectionInProgress = "In Progress"
	sectionDone       = "Done"

	defaultSkeleton = "# Backlog\n\n## Ready\n\n## In Progress\n\n## Done\n"
)

// MoveToDone moves id's bulleted entry into the Done section, removing any
// bullet for it from Ready/In Progress/other sections, and ensures exactly
// one Done bullet. Idempotent. Prose mentions of the id elsewhere are never
// touched since they aren't recognized as bullets.
func MoveToDone(path, id, title string) error {
	content, err := mdlist.ReadOrDefault(path, defaultSkeleton)
	if err != nil {
		return err
	}
	doc := mdlist.Parse(content)
	doc.RemoveBulletExcept(sectionDone, id)
	doc.Section(sectionDone).AppendBulletUnique(id, fmt.Sprintf("- %s: %s", id, title))
	return mdlist.WriteAtomic(path, doc.Render())
}

// MoveToInProgress moves id's bulleted entry into the In Progress section.
// Used by claim and by recover's resume action.
func MoveToInProgress(path, id, title string) error {
	content, err := mdlist.ReadOrDefault(path, defaultSkeleton)
	if err != nil {
		return err
	}
	doc := mdlist.Parse(content)
	doc.RemoveBulletExcept(sectionInProgress, id)
	doc.Section(sectionInProgress).AppendBulletUnique(id, fmt.Sprintf("- %s: %s", id, title))
	return mdlist.WriteAtomic(path, doc.Render())
}

// MoveToReady moves id's bulleted entry back into the Ready section. Used
// by recover's reset/nuke actions.
func MoveToReady(path, id, title string) error {
	content, err := mdlist.ReadOrDefault(path, defaultSkeleton)
	if err != nil {
		return err
	}
	doc := mdlist.Parse(content)
	doc.RemoveBulletExcept(sectionReady, id)
	doc.Section(sectionReady).AppendBulletUnique(id, fmt.Sprintf("- %s: %s", id, title))
	return mdlist.WriteAtomic(path, doc.Render())
}

// Remove deletes id's bulleted entry from every section, used by nuke.
func Remove(path, id string) error {
	content, err := mdlist.ReadOrDefault(path, defaultSkeleton)
	if err != nil {
		return err
	}
	doc := mdlist.Parse(content)
	doc.RemoveBulletEverywhere(id)
	return mdlist.WriteAtomic(path, doc.Render())
}
