// Package profile extracts the identity fields of a scraped page and
// assembles the final record with its persisted artifacts.
package profile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/RomanSlack/FirstChat-BackEnd/config"
	"github.com/RomanSlack/FirstChat-BackEnd/models"
)

// nameAgeRe splits "Name, 25" style headers. The age part is optional on some
// profiles, so a non-match falls back to the whole text as the name.
var nameAgeRe = regexp.MustCompile(`([^,]+),?\s*(\d+)`)

// sectionTitleSel matches the heading inside a titled bio section.
const sectionTitleSel = "h1, h2, h3, h4, h5, .section-title"

// ParseIdentity extracts name, age, bio, interests and titled sections from a
// rendered HTML snapshot. Identity extraction is best-effort: a missing field
// stays zero, only an unparseable document is an error.
func ParseIdentity(rawHTML string, cfg config.TargetConfig) (models.Identity, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return models.Identity{}, models.NewScrapeError(
			models.ErrCodeInvalidInput, "failed to parse page snapshot", err)
	}

	var id models.Identity

	if text := strings.TrimSpace(doc.Find(cfg.NameSelector).First().Text()); text != "" {
		if m := nameAgeRe.FindStringSubmatch(text); m != nil {
			id.Name = strings.TrimSpace(m[1])
			if age, err := strconv.Atoi(m[2]); err == nil {
				id.Age = &age
			}
		} else {
			id.Name = text
		}
	}

	id.Bio = strings.TrimSpace(doc.Find(cfg.BioSelector).First().Text())

	id.Interests = []string{}
	doc.Find(cfg.InterestsSelector).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			id.Interests = append(id.Interests, t)
		}
	})

	sections := map[string]any{}
	doc.Find(cfg.SectionSelector).Each(func(i int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find(sectionTitleSel).First().Text())
		if title == "" {
			title = fmt.Sprintf("Section %d", i+1)
		}
		body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s.Text()), title))
		if body != "" {
			sections[title] = body
		}
	})
	if len(sections) > 0 {
		id.BioSections = sections
	}

	return id, nil
}
