package profile

import (
	"strings"
	"testing"
	"time"

	"github.com/RomanSlack/FirstChat-BackEnd/models"
)

func TestSummarizer_Render(t *testing.T) {
	rec, err := Assemble(sampleIdentity(), sampleMedia(), []models.DownloadResult{
		{LabeledURL: sampleMedia()[0], LocalPath: "run/profile_photo_1.jpg", Succeeded: true, FailureKind: models.FailureNone},
		{LabeledURL: sampleMedia()[1], LocalPath: "run/profile_photo_2.url", FailureKind: models.FailureAuthRequired},
	}, time.Now())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	out := NewSummarizer().Render(rec, []string{"**Looking for**\n\nBad puns."})

	for _, want := range []string{
		"# Jane, 27",
		"Interests: Jazz",
		"**Looking for**",
		"## Media (2)",
		"Profile Photo 1: run/profile_photo_1.jpg",
		"Profile Photo 2: auth required, URL kept at run/profile_photo_2.url",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSummarizer_SectionsMarkdown(t *testing.T) {
	html := `<html><body>
<div class="profile-section"><h3>Looking for</h3><p>Someone <em>kind</em>.</p></div>
<div class="profile-section"><h3>Basics</h3><ul><li>Dog person</li></ul></div>
</body></html>`

	sections := NewSummarizer().SectionsMarkdown(html, ".profile-section")
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}
	if !strings.Contains(sections[0], "Looking for") || !strings.Contains(sections[0], "*kind*") {
		t.Errorf("section 0 = %q", sections[0])
	}
	if !strings.Contains(sections[1], "Dog person") {
		t.Errorf("section 1 = %q", sections[1])
	}
}

func TestSummarizer_SectionsMarkdownEmptySelector(t *testing.T) {
	if got := NewSummarizer().SectionsMarkdown("<html></html>", ""); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}
