// Package mdlist implements the small bit of markdown surgery the status
// and backlog dashboard generators both need: find a `## Heading` section,
// remove a bulleted `- WU-id: ...` line naming a given id from it, and
// append one such line if it isn't already present. Everything outside a
// recognized bullet line (headings, blank lines, prose paragraphs) is
// preserved verbatim and in order.
package mdlist

import (
	"strings"

	"github.com/lumenflow/lumenflow/pkg/stringutil"
)

// section is one `## Heading` block, including its heading line (empty for
// the preamble before the first heading) and every line until the next one.
type section struct {
	heading string
	lines   []string
}

// Doc is a parsed markdown document, editable by heading and WU id.
type Doc struct {
	sections []*section
}

// Parse splits content into sections on lines starting with "## ".
// Content before the first such heading becomes a headingless preamble
// section, always present even if empty.
func Parse(content string) *Doc {
	d := &Doc{sections: []*section{{heading: ""}}}
	if content == "" {
		return d
	}
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	cur := d.sections[0]
	for _, line := range lines {
		if strings.HasPrefix(line, "## ") {
			cur = &section{heading: line}
			d.sections = append(d.sections, cur)
			continue
		}
		cur.lines = append(cur.lines, line)
	}
	return d
}

// Render reassembles the document into markdown text, terminated with a
// single trailing newline. Trailing whitespace on each line is normalized
// away so two agents racing to append the same bullet don't leave a diff
// behind in whitespace alone.
func (d *Doc) Render() string {
	var b strings.Builder
	for _, s := range d.sections {
		if s.heading != "" {
			b.WriteString(s.heading)
			b.WriteString("\n")
		}
		for _, line := range s.lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return stringutil.NormalizeWhitespace(b.String())
}

// Section returns the section whose heading text equals "## "+title,
// creating and appending an empty one at the end of the document if it
// doesn't already exist.
func (d *Doc) Section(title string) *section {
	heading := "## " + title
	for _, s := range d.sections {
		if s.heading == heading {
			return s
		}
	}
	s := &section{heading: heading}
	d.sections = append(d.sections, s)
	return s
}

// bulletID returns the WU id a bullet line names, or "" if the line isn't a
// recognized "- <id>: ..." or "- <id> ..." bullet.
func bulletID(line string) string {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "- ") {
		return ""
	}
	rest := strings.TrimPrefix(trimmed, "- ")
	if i := strings.IndexAny(rest, ": "); i >= 0 {
		return rest[:i]
	}
	return rest
}

// RemoveBullet deletes every bullet line in the section that names id,
// reporting whether anything was removed.
func (s *section) RemoveBullet(id string) bool {
	removed := false
	kept := s.lines[:0:0]
	for _, line := range s.lines {
		if bulletID(line) == id {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	s.lines = kept
	return removed
}

// HasBullet reports whether the section already contains a bullet for id.
func (s *section) HasBullet(id string) bool {
	for _, line := range s.lines {
		if bulletID(line) == id {
			return true
		}
	}
	return false
}

// AppendBulletUnique appends line to the section unless a bullet for id is
// already present, so repeated calls are idempotent.
func (s *section) AppendBulletUnique(id, line string) {
	if s.HasBullet(id) {
		return
	}
	if len(s.lines) > 0 && strings.TrimSpace(s.lines[len(s.lines)-1]) != "" {
		s.lines = append(s.lines, "")
	}
	s.lines = append(s.lines, line)
}

// RemoveBulletExcept removes any bullet naming id from every section other
// than keepHeading, so an id ends up listed in at most one such section.
// Returns whether anything was removed.
func (d *Doc) RemoveBulletExcept(keepHeading, id string) bool {
	removed := false
	for _, s := range d.sections {
		if s.heading == "## "+keepHeading {
			continue
		}
		if s.RemoveBullet(id) {
			removed = true
		}
	}
	return removed
}

// RemoveBulletEverywhere removes any bullet naming id from every section,
// including ones with no heading at all. Returns whether anything changed.
func (d *Doc) RemoveBulletEverywhere(id string) bool {
	removed := false
	for _, s := range d.sections {
		if s.RemoveBullet(id) {
			removed = true
		}
	}
	return removed
}
