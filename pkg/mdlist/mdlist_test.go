package mdlist

import "testing"

func TestParseRenderRoundTrip(t *testing.T) {
	content := "# Title\n\n## In Progress\n\n- WU-1: First\n\n## Completed\n"
	doc := Parse(content)
	if got := doc.Render(); got != content {
		t.Fatalf("round trip mismatch:\nwant %q\ngot  %q", content, got)
	}
}

func TestMoveBulletBetweenSections(t *testing.T) {
	content := "## In Progress\n\n- WU-1: First\n\n## Completed\n"
	doc := Parse(content)

	if !doc.RemoveBulletExcept("Completed", "WU-1") {
		t.Fatal("expected bullet to be removed from In Progress")
	}
	doc.Section("Completed").AppendBulletUnique("WU-1", "- WU-1: First")

	rendered := doc.Render()
	reparsed := Parse(rendered)
	if reparsed.Section("In Progress").HasBullet("WU-1") {
		t.Fatal("WU-1 should no longer be in In Progress")
	}
	if !reparsed.Section("Completed").HasBullet("WU-1") {
		t.Fatal("WU-1 should be in Completed")
	}
}

func TestAppendBulletUniqueIdempotent(t *testing.T) {
	doc := Parse("## Completed\n")
	s := doc.Section("Completed")
	s.AppendBulletUnique("WU-2", "- WU-2: Second")
	s.AppendBulletUnique("WU-2", "- WU-2: Second")

	count := 0
	for _, line := range doc.Section("Completed").lines {
		if bulletID(line) == "WU-2" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one WU-2 bullet, got %d", count)
	}
}

func TestProseMentionNotTreatedAsBullet(t *testing.T) {
	doc := Parse("## Notes\n\nWU-1 was split out of WU-0 during planning.\n")
	if doc.Section("Notes").HasBullet("WU-1") {
		t.Fatal("prose mention should not be recognized as a bullet")
	}
	doc.RemoveBulletEverywhere("WU-1")
	if doc.Render() != "## Notes\n\nWU-1 was split out of WU-0 during planning.\n" {
		t.Fatalf("prose mention should survive RemoveBulletEverywhere, got %q", doc.Render())
	}
}

func TestSectionCreatedWhenMissing(t *testing.T) {
	doc := Parse("# Doc\n")
	s := doc.Section("New Section")
	s.AppendBulletUnique("WU-9", "- WU-9: Ninth")
	if !Parse(doc.Render()).Section("New Section").HasBullet("WU-9") {
		t.Fatal("expected New Section to contain WU-9 after render/reparse")
	}
}
