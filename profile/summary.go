package profile

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/PuerkitoBio/goquery"

	"github.com/RomanSlack/FirstChat-BackEnd/models"
)

// Summarizer renders a human-readable summary of a scraped record. The bio
// sections are converted from the page's HTML to Markdown so their formatting
// (lists, emphasis) survives the round trip into a text file.
type Summarizer struct {
	conv *converter.Converter
}

// NewSummarizer creates a summarizer with a pre-configured Markdown converter.
func NewSummarizer() *Summarizer {
	return &Summarizer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// SectionsMarkdown converts each titled section matched by selector into
// Markdown, in document order. Sections that fail to convert are skipped.
func (s *Summarizer) SectionsMarkdown(rawHTML, selector string) []string {
	if selector == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	var out []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		inner, err := sel.Html()
		if err != nil {
			return
		}
		md, err := s.conv.ConvertString(inner)
		if err != nil {
			return
		}
		if md = strings.TrimSpace(md); md != "" {
			out = append(out, md)
		}
	})
	return out
}

// Render produces the summary.txt content for a record. sectionsMD is the
// Markdown form of the titled sections (may be empty).
func (s *Summarizer) Render(rec models.ProfileRecord, sectionsMD []string) string {
	var b strings.Builder

	header := rec.Name
	if header == "" {
		header = "Unknown"
	}
	if rec.Age != nil {
		header = fmt.Sprintf("%s, %d", header, *rec.Age)
	}
	fmt.Fprintf(&b, "# %s\n\n", header)

	if rec.Bio != "" {
		fmt.Fprintf(&b, "%s\n\n", rec.Bio)
	}
	if len(rec.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s\n\n", strings.Join(rec.Interests, ", "))
	}
	for _, md := range sectionsMD {
		b.WriteString(md)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "## Media (%d)\n\n", len(rec.Media))
	outcomes := make(map[string]models.DownloadResult, len(rec.Downloads))
	for _, d := range rec.Downloads {
		outcomes[d.LabeledURL.Label] = d
	}
	for _, m := range rec.Media {
		line := "pending"
		if d, ok := outcomes[m.Label]; ok {
			switch {
			case d.Succeeded:
				line = d.LocalPath
			case d.FailureKind == models.FailureAuthRequired && d.LocalPath != "":
				line = fmt.Sprintf("auth required, URL kept at %s", d.LocalPath)
			default:
				line = string(d.FailureKind)
			}
		}
		fmt.Fprintf(&b, "- %s: %s\n", m.Label, line)
	}

	return b.String()
}
